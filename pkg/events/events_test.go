package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventBus(t *testing.T) {
	eb := NewEventBus()
	assert.NotNil(t, eb)
	assert.NotNil(t, eb.subscribers)
}

func TestEventBus_Subscribe(t *testing.T) {
	eb := NewEventBus()

	ch := eb.Subscribe("test-subscriber")
	assert.NotNil(t, ch)

	eb.mutex.RLock()
	_, exists := eb.subscribers["test-subscriber"]
	eb.mutex.RUnlock()
	assert.True(t, exists)
}

func TestEventBus_ResubscribeClosesOldChannel(t *testing.T) {
	eb := NewEventBus()

	old := eb.Subscribe("ws")
	eb.Subscribe("ws")

	_, open := <-old
	assert.False(t, open)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	eb := NewEventBus()

	eb.Subscribe("test-subscriber")
	eb.Unsubscribe("test-subscriber")

	eb.mutex.RLock()
	_, exists := eb.subscribers["test-subscriber"]
	eb.mutex.RUnlock()
	assert.False(t, exists)

	// unknown names are ignored
	eb.Unsubscribe("non-existent")
}

func TestEventBus_Publish(t *testing.T) {
	eb := NewEventBus()
	ch := eb.Subscribe("test-subscriber")

	eb.Publish(EventTypeGenerationStarted, GenerationStartedEvent(6, "AI_FIRST", "openai", "o3-mini"))

	select {
	case event := <-ch:
		assert.Equal(t, EventTypeGenerationStarted, event.Type)
		assert.NotEmpty(t, event.ID)
		assert.Empty(t, event.RequestID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected to receive event but didn't")
	}
}

func TestEventBus_WithRequestStampsEvents(t *testing.T) {
	eb := NewEventBus()
	ch := eb.Subscribe("test-subscriber")

	eb.WithRequest("req-42").Publish(EventTypeBatch, BatchEvent(2, 3, 3, 6))

	select {
	case event := <-ch:
		assert.Equal(t, "req-42", event.RequestID)
		assert.Equal(t, EventTypeBatch, event.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected to receive event but didn't")
	}
}

func TestEventBus_PublishToMultipleSubscribers(t *testing.T) {
	eb := NewEventBus()

	ch1 := eb.Subscribe("subscriber1")
	ch2 := eb.Subscribe("subscriber2")

	eb.Publish(EventTypeAttempt, AttemptEvent(1, 3, "valid", 4))

	var wg sync.WaitGroup
	for _, ch := range []<-chan PipelineEvent{ch1, ch2} {
		wg.Add(1)
		go func(ch <-chan PipelineEvent) {
			defer wg.Done()
			select {
			case event := <-ch:
				assert.Equal(t, EventTypeAttempt, event.Type)
			case <-time.After(100 * time.Millisecond):
				t.Error("subscriber didn't receive event")
			}
		}(ch)
	}
	wg.Wait()
}

func TestEventBus_PublishToFullChannel(t *testing.T) {
	eb := NewEventBus()
	eb.Subscribe("test-subscriber")

	for i := 0; i < 100; i++ {
		eb.Publish("test", nil)
	}

	done := make(chan bool)
	go func() {
		eb.Publish("test", nil)
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked on full channel")
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	eb := NewEventBus()
	ch := eb.Subscribe("ids")
	eb.Publish("a", nil)
	eb.Publish("b", nil)

	first := <-ch
	second := <-ch
	require.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEventHelpers(t *testing.T) {
	started := GenerationStartedEvent(12, "USER_FIRST", "openrouter", "openai/o3-mini")
	assert.Equal(t, 12, started["num_turns"])
	assert.Equal(t, "USER_FIRST", started["mode"])

	repair := RepairEvent("trim", 5, 4)
	assert.Equal(t, "trim", repair["strategy"])
	assert.Equal(t, 4, repair["to_turns"])

	done := GenerationCompletedEvent(6, 6, "valid", 2*time.Second)
	assert.Equal(t, int64(2000), done["duration_ms"])

	style := StyleCompletedEvent("English", 120, false)
	assert.Equal(t, false, style["fell_back"])

	errEvent := ErrorEvent("something failed", assert.AnError)
	assert.Equal(t, "something failed", errEvent["message"])
	assert.NotEmpty(t, errEvent["error"])
}
