package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/weftworks/weft/pkg/protocol"
)

// Handler routes one webhook path to one workflow callback.
type Handler struct {
	WorkflowID string
	Callback   protocol.TriggerCallback
	Logger     *slog.Logger
}

// ServerManager owns the single HTTP server all webhook triggers share.
// Triggers register their paths; the manager dispatches incoming requests.
type ServerManager struct {
	server   *http.Server
	handlers map[string]*Handler
	mu       sync.RWMutex
	logger   *slog.Logger
	port     int
	started  bool
	done     chan struct{}
	doneOnce sync.Once
}

func NewServerManager(port int, logger *slog.Logger) *ServerManager {
	return &ServerManager{
		handlers: make(map[string]*Handler),
		logger:   logger.With("module", "webhook_server_manager"),
		port:     port,
		done:     make(chan struct{}),
	}
}

// RegisterWebhook binds a path to a handler. Paths are exclusive.
func (sm *ServerManager) RegisterWebhook(path string, handler *Handler) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.handlers[path]; exists {
		return fmt.Errorf("webhook path %s already registered", path)
	}

	sm.handlers[path] = handler
	sm.logger.Info("Registered webhook handler", "path", path, "workflow_id", handler.WorkflowID)

	return nil
}

// UnregisterWebhook releases a path.
func (sm *ServerManager) UnregisterWebhook(path string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if handler, exists := sm.handlers[path]; exists {
		delete(sm.handlers, path)
		sm.logger.Info("Unregistered webhook handler", "path", path, "workflow_id", handler.WorkflowID)
	}
}

// Start brings the shared server up. Idempotent.
func (sm *ServerManager) Start(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.started {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", sm.handleWebhook)

	sm.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", sm.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sm.logger.Info("Starting webhook HTTP server", "addr", sm.server.Addr)

		if err := sm.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sm.logger.Error("Webhook server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		if err := sm.Stop(context.Background()); err != nil {
			sm.logger.Error("Failed to stop webhook server", "error", err)
		}
	}()

	sm.started = true

	return nil
}

// Stop shuts the shared server down. Idempotent.
func (sm *ServerManager) Stop(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.started {
		return nil
	}

	sm.started = false
	sm.doneOnce.Do(func() { close(sm.done) })

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return sm.server.Shutdown(shutdownCtx)
}

// Done closes when the shared server has stopped.
func (sm *ServerManager) Done() <-chan struct{} {
	return sm.done
}

func (sm *ServerManager) handleWebhook(w http.ResponseWriter, r *http.Request) {
	sm.mu.RLock()
	handler, exists := sm.handlers[r.URL.Path]
	sm.mu.RUnlock()

	if !exists {
		http.Error(w, "webhook path not found", http.StatusNotFound)

		return
	}

	handler.Logger.Info("Received webhook request", "method", r.Method, "path", r.URL.Path)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)

		return
	}

	payload := map[string]any{
		"method":    r.Method,
		"path":      r.URL.Path,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if len(body) > 0 {
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err == nil {
			payload["body"] = decoded
		} else {
			payload["body"] = string(body)
		}
	}

	headers := make(map[string]any, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}

	payload["headers"] = headers

	go func() {
		if err := handler.Callback(context.Background(), handler.WorkflowID, payload); err != nil {
			handler.Logger.Error("Error executing workflow for webhook", "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"accepted"}`))
}
