package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync" // For thread-safe initialization

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the pipeline logger. A nil *Logger is valid and discards
// everything, so components can take one as an optional dependency.
type Logger struct {
	logger                 *log.Logger
	console                io.Writer
	userInteractionEnabled bool // Flag to control user interaction
	jsonMode               bool
	correlationID          string
}

var (
	globalLogger *Logger
	once         sync.Once
)

// LogFilePath is where GetLogger writes, relative to the working directory
const LogFilePath = ".dialoguegen/workspace.log"

// GetLogger returns the singleton instance of Logger.
// It initializes the logger with a file handler that rotates logs.
// The skipPrompts parameter determines if user interaction is enabled.
// This value can be overridden on subsequent calls to GetLogger.
func GetLogger(skipPrompts bool) *Logger {
	once.Do(func() {
		logFile := &lumberjack.Logger{
			Filename:   LogFilePath,
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		globalLogger = &Logger{
			logger:  log.New(logFile, "", log.LstdFlags),
			console: os.Stdout,
		}
	})
	globalLogger.userInteractionEnabled = !skipPrompts
	if os.Getenv("DIALOGUEGEN_JSON_LOGS") == "1" {
		globalLogger.jsonMode = true
		if globalLogger.correlationID == "" {
			globalLogger.correlationID = uuid.NewString()
		}
	}
	if cid := os.Getenv("DIALOGUEGEN_CORRELATION_ID"); cid != "" {
		globalLogger.correlationID = cid
	}
	return globalLogger
}

// NewLogger creates a logger writing to w. Process steps are not echoed
// to a console.
func NewLogger(w io.Writer) *Logger {
	return &Logger{logger: log.New(w, "", log.LstdFlags)}
}

// SetConsole sets where LogProcessStep echoes messages; nil disables echo
func (w *Logger) SetConsole(console io.Writer) {
	if w == nil {
		return
	}
	w.console = console
}

// Close closes the logger resources.
func (w *Logger) Close() error {
	if w == nil {
		return nil
	}
	if logFile, ok := w.logger.Writer().(*lumberjack.Logger); ok {
		return logFile.Close()
	}
	return nil
}

func (w *Logger) write(level, message string) {
	if w.jsonMode {
		_ = json.NewEncoder(w.logger.Writer()).Encode(map[string]any{"level": level, "msg": message, "cid": w.correlationID})
		return
	}
	if level == "info" {
		w.logger.Print(message)
		return
	}
	w.logger.Printf("%s: %s", strings.ToUpper(level), message)
}

// Log logs a general message only to the log file.
func (w *Logger) Log(message string) {
	if w == nil {
		return
	}
	w.write("info", message)
}

// Logf logs a formatted general message only to the log file.
func (w *Logger) Logf(format string, v ...interface{}) {
	if w == nil {
		return
	}
	w.write("info", fmt.Sprintf(format, v...))
}

// Warnf logs a degraded-but-continuing condition.
func (w *Logger) Warnf(format string, v ...interface{}) {
	if w == nil {
		return
	}
	w.write("warn", fmt.Sprintf(format, v...))
}

func (w *Logger) LogError(err error) {
	if w == nil || err == nil {
		return
	}
	w.write("error", err.Error())
}

// LogProcessStep logs the current step in a process and echoes it to the console.
func (w *Logger) LogProcessStep(step string) {
	if w == nil {
		return
	}
	w.write("info", "Process Step: "+step)
	if w.console != nil {
		fmt.Fprintln(w.console, step)
	}
}

// AskForConfirmation prompts the user with a message and waits for a 'yes' or 'no' response.
// It returns true for 'yes' and false for 'no'.
func (w *Logger) AskForConfirmation(prompt string, defaultResponse bool) bool {
	return w.askFrom(os.Stdin, prompt, defaultResponse)
}

func (w *Logger) askFrom(in io.Reader, prompt string, defaultResponse bool) bool {
	if w == nil || !w.userInteractionEnabled {
		w.Log("Skipping user confirmation in non-interactive mode.")
		return defaultResponse
	}
	reader := bufio.NewReader(in)
	for {
		w.LogProcessStep(fmt.Sprintf("%s (yes/no): ", prompt))
		response, err := reader.ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		switch response {
		case "yes", "y":
			return true
		case "no", "n":
			return false
		}
		if err != nil {
			return defaultResponse
		}
		w.LogProcessStep("Invalid input. Please type 'yes' or 'no'.")
	}
}
