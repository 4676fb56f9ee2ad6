// Package webui serves the dialogue pipeline over a local HTTP API and
// streams pipeline events to browsers over a websocket.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alantheprice/dialoguegen/pkg/agents"
	"github.com/alantheprice/dialoguegen/pkg/configuration"
	"github.com/alantheprice/dialoguegen/pkg/events"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

//go:embed static/*
var staticFiles embed.FS

const DefaultPort = 54321

const (
	// defaultPongWait is how long a websocket may stay silent before it is dropped
	defaultPongWait = 60 * time.Second
	writeWait       = 10 * time.Second
)

// ConnectionInfo stores metadata about a WebSocket connection
type ConnectionInfo struct {
	SessionID   string    // Unique session ID for this connection
	RequestID   string    // Only events for this request are forwarded when set
	ConnectedAt time.Time // When the connection was established
}

// ServerConfig wires a Server
type ServerConfig struct {
	Invoker  llm.Invoker
	Config   *configuration.Config
	EventBus *events.EventBus
	Registry *agents.Registry
	Logger   *utils.Logger
	Port     int
}

// Server exposes generation, style and validation endpoints
type Server struct {
	invoker      llm.Invoker
	config       *configuration.Config
	eventBus     *events.EventBus
	registry     *agents.Registry
	logger       *utils.Logger
	port         int
	server       *http.Server
	upgrader     websocket.Upgrader
	connections  sync.Map // map[*websocket.Conn]*ConnectionInfo
	isRunning    bool
	mutex        sync.RWMutex
	startTime    time.Time
	requestCount int
	// pongWait bounds the gap between client frames; pings go out at 9/10 of it
	pongWait time.Duration
}

// NewServer creates a new web server
func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Config == nil {
		cfg.Config = configuration.NewConfig()
	}
	if cfg.EventBus == nil {
		cfg.EventBus = events.NewEventBus()
	}
	if cfg.Registry == nil {
		cfg.Registry = agents.DefaultRegistry()
	}

	return &Server{
		invoker:  cfg.Invoker,
		config:   cfg.Config,
		eventBus: cfg.EventBus,
		registry: cfg.Registry,
		logger:   cfg.Logger,
		port:     cfg.Port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // Allow same-origin and direct connections
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
		startTime: time.Now(),
		pongWait:  defaultPongWait,
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/generate", s.handleAPIGenerate)
	mux.HandleFunc("/api/style", s.handleAPIStyle)
	mux.HandleFunc("/api/validate", s.handleAPIValidate)
	mux.HandleFunc("/api/agents", s.handleAPIAgents)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start binds the port and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.isRunning {
		s.mutex.Unlock()
		return fmt.Errorf("web server is already running")
	}

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.mutex.Unlock()
		return fmt.Errorf("failed to bind port %d: %w", s.port, err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.isRunning = true
	s.mutex.Unlock()

	go func() {
		s.logger.Logf("Web UI starting at http://localhost:%d", s.port)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.LogError(fmt.Errorf("web server error: %w", err))
		}
	}()

	// Wait for context cancellation
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the web server
func (s *Server) Shutdown() error {
	s.mutex.Lock()
	if !s.isRunning {
		s.mutex.Unlock()
		return nil
	}
	s.isRunning = false
	s.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Close all WebSocket connections
	s.connections.Range(func(conn, value interface{}) bool {
		if wsConn, ok := conn.(*websocket.Conn); ok {
			wsConn.Close()
		}
		return true
	})

	return s.server.Shutdown(ctx)
}

// IsRunning returns true if the web server is running
func (s *Server) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.isRunning
}

// GetPort returns the port the web server is running on
func (s *Server) GetPort() int {
	return s.port
}

// countConnections returns the current number of WebSocket connections
func (s *Server) countConnections() int {
	count := 0
	s.connections.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mutex.RLock()
	requests := s.requestCount
	s.mutex.RUnlock()

	health := map[string]interface{}{
		"status":      "ok",
		"port":        s.port,
		"uptime":      time.Since(s.startTime).String(),
		"requests":    requests,
		"connections": s.countConnections(),
	}
	if s.invoker != nil {
		health["provider"] = s.invoker.Provider()
		health["model"] = s.invoker.Model()
	}
	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CheckPortAvailable checks if a port is available to bind to
func CheckPortAvailable(port int) bool {
	listener, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false // Port is in use
	}
	listener.Close()
	return true // Port is free
}

// FindAvailablePort finds an available port starting from a base port
func FindAvailablePort(basePort int) int {
	port := basePort
	for port < basePort+100 {
		if CheckPortAvailable(port) {
			return port
		}
		port++
	}
	return basePort + 100 // Return last attempt even if not available
}
