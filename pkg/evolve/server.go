package evolve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/chromascribe/pkg/httputil"
)

// Messages returned in {"error": ...} bodies.
const (
	msgPromptRequired = "Prompt is required."
	msgEvolveFailed   = "Failed to evolve image."
	msgBadJSON        = "Request body must be JSON."
	msgBadImage       = "Image must be a base64 data URL."
	msgTooLarge       = "Request body too large."
)

// Server is the evolve proxy.
type Server struct {
	mu      sync.RWMutex
	gen     Generator
	timeout time.Duration
	origin  string
	logger  *log.Logger
	router  chi.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(l *log.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGenerateTimeout bounds each generator call.
func WithGenerateTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.timeout = d }
}

// WithAllowedOrigin sets Access-Control-Allow-Origin. The default is "*".
func WithAllowedOrigin(origin string) ServerOption {
	return func(s *Server) { s.origin = origin }
}

// NewServer creates a proxy that answers with gen.
func NewServer(gen Generator, opts ...ServerOption) *Server {
	s := &Server{
		gen:     gen,
		timeout: DefaultTimeout,
		origin:  "*",
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("serve")

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Get("/healthz", s.handleHealth)
	r.Post("/api/evolve", s.handleEvolve)
	r.Options("/api/evolve", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// SetGenerator swaps the generator for subsequent requests.
func (s *Server) SetGenerator(gen Generator) {
	s.mu.Lock()
	s.gen = gen
	s.mu.Unlock()
}

func (s *Server) generator() Generator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	model := ""
	if g := s.generator(); g != nil {
		model = g.Model()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": model})
}

func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	logger := loggerFor(r, s.logger)
	r.Body = http.MaxBytesReader(w, r.Body, httputil.MaxImageBytes)

	var req httputil.EvolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgBadJSON)
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, msgPromptRequired)
		return
	}
	var img []byte
	if req.Image != "" {
		_, data, err := httputil.DecodeDataURL(req.Image)
		if err != nil {
			writeError(w, http.StatusBadRequest, msgBadImage)
			return
		}
		img = data
	}

	gen := s.generator()
	if gen == nil {
		writeError(w, http.StatusInternalServerError, msgEvolveFailed)
		return
	}
	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := gen.Generate(ctx, img, prompt)
	if err != nil {
		logger.Error("evolve failed", "model", gen.Model(), "err", err)
		msg := err.Error()
		if msg == "" {
			msg = msgEvolveFailed
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	logger.Info("evolved", "model", gen.Model(), "bytes", len(out.Data), "duration", time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, httputil.EvolveResponse{Image: out.dataURL()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, httputil.ErrorResponse{Error: msg})
}

// =============================================================================
// Middleware
// =============================================================================

type ctxKey struct{}

const requestIDHeader = "X-Request-Id"

// requestID tags each request with a uuid, reusing a valid incoming one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func loggerFor(r *http.Request, base *log.Logger) *log.Logger {
	if id := RequestID(r.Context()); id != "" {
		return base.With("req", id[:8])
	}
	return base
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		loggerFor(r, s.logger).Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if s.origin != "*" {
			h.Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}
