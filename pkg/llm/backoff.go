package llm

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryState is the position of a Backoff in its retry cycle
type RetryState int

const (
	StateAttempting RetryState = iota
	StateWaiting
	StateExhausted
	StateSucceeded
)

func (s RetryState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateWaiting:
		return "waiting"
	case StateExhausted:
		return "exhausted"
	case StateSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxWait     = 60 * time.Second
)

// Backoff decides how long to wait after a rate-limited attempt. It only
// computes transitions; the caller performs the wait, so the same logic
// works with a blocking or a scheduled delay.
//
//	Attempting --success--> Succeeded
//	Attempting --429, attempts left--> Waiting --Resume--> Attempting
//	Attempting --429, none left--> Exhausted
type Backoff struct {
	MaxAttempts int
	MaxWait     time.Duration
	// Jitter returns the random extra added each time the delay doubles
	Jitter func() time.Duration

	state   RetryState
	attempt int
	next    time.Duration
	wait    time.Duration
}

// NewBackoff creates a backoff seeded at one second
func NewBackoff(maxAttempts int, maxWait time.Duration) *Backoff {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &Backoff{
		MaxAttempts: maxAttempts,
		MaxWait:     maxWait,
		Jitter:      func() time.Duration { return rand.N(time.Second) },
		state:       StateAttempting,
		attempt:     1,
		next:        defaultBaseDelay,
	}
}

func (b *Backoff) State() RetryState { return b.state }

// Attempt is the 1-based number of the current attempt
func (b *Backoff) Attempt() int { return b.attempt }

// Wait is the delay chosen by the last RateLimited transition
func (b *Backoff) Wait() time.Duration { return b.wait }

// Succeed records a successful attempt
func (b *Backoff) Succeed() {
	b.state = StateSucceeded
}

// RateLimited records a 429. It returns the delay before the next attempt
// and false once the attempt budget is spent.
func (b *Backoff) RateLimited(resetHint time.Duration) (time.Duration, bool) {
	if b.state != StateAttempting {
		return 0, false
	}
	if b.attempt >= b.MaxAttempts {
		b.state = StateExhausted
		b.wait = 0
		return 0, false
	}

	wait := b.next
	if resetHint > wait {
		wait = resetHint
	}
	if wait > b.MaxWait {
		wait = b.MaxWait
	}
	b.wait = wait
	b.state = StateWaiting

	b.next = b.next * 2
	if b.Jitter != nil {
		b.next += b.Jitter()
	}
	return wait, true
}

// Resume moves from Waiting to the next attempt
func (b *Backoff) Resume() {
	if b.state != StateWaiting {
		return
	}
	b.attempt++
	b.state = StateAttempting
}

// Sleeper performs a backoff wait. Implementations must return early with
// ctx.Err() when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DefaultSleeper blocks on a timer
var DefaultSleeper Sleeper = timerSleeper{}
