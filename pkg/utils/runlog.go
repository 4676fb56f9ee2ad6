package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RunLogDir is where run logs go, relative to the working directory
const RunLogDir = ".dialoguegen/runlogs"

// RunLogger writes structured JSONL events for a single run.
// A nil *RunLogger discards everything.
type RunLogger struct {
	mu   sync.Mutex
	f    *os.File
	id   string
	path string
}

// NewRunLogger creates dir/run-YYYYmmdd_HHMMSS.jsonl
func NewRunLogger(dir string) (*RunLogger, error) {
	if dir == "" {
		dir = RunLogDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}
	name := time.Now().Format("20060102_150405.000")
	name = strings.ReplaceAll(name, ".", "_")
	path := filepath.Join(dir, fmt.Sprintf("run-%s.jsonl", name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return &RunLogger{f: f, id: name, path: path}, nil
}

// Path returns the log file location
func (r *RunLogger) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Close closes the underlying file, if open.
func (r *RunLogger) Close() error {
	if r == nil || r.f == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.f.Close()
	r.f = nil
	return err
}

// secretEnvVars are replaced by a marker wherever their names or values appear
var secretEnvVars = []string{"OPENAI_API_KEY", "OPENROUTER_API_KEY"}

func redact(s string) string {
	for _, name := range secretEnvVars {
		if value := os.Getenv(name); len(value) > 4 {
			s = strings.ReplaceAll(s, value, "<REDACTED>")
		}
	}
	return s
}

// LogEvent writes a JSON line with the provided type and fields.
func (r *RunLogger) LogEvent(eventType string, fields map[string]any) {
	if r == nil {
		return
	}
	payload := map[string]any{
		"ts":     time.Now().Format(time.RFC3339Nano),
		"run_id": r.id,
		"type":   eventType,
	}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	line := redact(string(b))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return
	}
	_, _ = r.f.WriteString(line + "\n")
}
