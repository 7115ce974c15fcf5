package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/jupark12/pdf-diff/config"
	"github.com/jupark12/pdf-diff/coordinator"
	"github.com/jupark12/pdf-diff/models"
	"github.com/jupark12/pdf-diff/preview"
	"github.com/jupark12/pdf-diff/store"
)

// Server exposes document upload, page previews, the job log and one comparison
// session per websocket connection.
type Server struct {
	cfg       *config.Config
	recorder  store.Recorder
	extractor coordinator.Extractor
	previews  *preview.Manager
	wsManager *models.WebSocketManager
	upgrader  websocket.Upgrader

	ctx  context.Context
	stop context.CancelFunc
	// sessions tracks open sessions so Shutdown can close their coordinators.
	sessions sync.WaitGroup

	mu     sync.Mutex
	closed bool           // set by Shutdown; no session starts afterwards
	refs   map[string]int // document id -> sessions comparing it
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, recorder store.Recorder, extractor coordinator.Extractor, renderer preview.Renderer) *Server {
	ctx, stop := context.WithCancel(context.Background())
	wsManager := models.NewWebSocketManager()
	wsManager.Start(ctx)

	return &Server{
		cfg:       cfg,
		recorder:  recorder,
		extractor: extractor,
		previews:  preview.NewManager(renderer),
		wsManager: wsManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:  ctx,
		stop: stop,
		refs: make(map[string]int),
	}
}

// Routes returns the HTTP handler of the service.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/jobs", s.handleJobs)
	r.Post("/documents", s.handleUpload)
	r.Get("/documents/{id}/pages/{page}", s.handlePreview)
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Start serves HTTP on the configured address until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Shutdown()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Shutdown()
	return err
}

// Shutdown closes every websocket session and waits for their coordinators to flush
// the job log.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.stop()
	s.sessions.Wait()
}

// beginSession counts a new session unless the server is shutting down.
func (s *Server) beginSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions.Add(1)
	return true
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.wsManager.Clients(),
	})
}

// handleJobs lists job log records, optionally for one session.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	recs, err := s.recorder.List(r.Context(), r.URL.Query().Get("session"))
	if err != nil {
		log.Printf("Failed to list jobs: %v", err)
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// retain records that a session compares the given documents.
func (s *Server) retain(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			s.refs[id]++
		}
	}
}

// release drops a session's reference to the given documents and stops the previews of
// those no session compares any more.
func (s *Server) release(ids ...string) {
	var idle []string
	s.mu.Lock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.refs[id]--
		if s.refs[id] <= 0 {
			delete(s.refs, id)
			idle = append(idle, id)
		}
	}
	s.mu.Unlock()

	for _, id := range idle {
		s.previews.Cancel(id)
	}
}
