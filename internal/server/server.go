// Package server exposes a batch feed over HTTP so training jobs on other
// machines can pull batches without linking against blendgen.
//
// Routes:
//
//	GET /healthz                 liveness
//	GET /v1/config               effective options
//	GET /v1/version              build info
//	GET /v1/batches/next         the next batch of the shared feed
//	GET /v1/batches/{index}      batch index, drawn or served from cache
//
// Batches are JSON by default; ?format=binary returns the compact cache
// encoding (application/octet-stream).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/blendgen/pkg/buildinfo"
	"github.com/matzehuels/blendgen/pkg/catalog"
	"github.com/matzehuels/blendgen/pkg/draw"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/observability"
	"github.com/matzehuels/blendgen/pkg/pipeline"
)

// Response formats.
const (
	FormatJSON   = "json"
	FormatBinary = "binary"
)

// Server serves batches drawn by a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	opts   pipeline.Options
	cat    *catalog.Catalog
	logger *log.Logger

	mu   sync.Mutex
	next int64
}

// New returns a server whose feed starts at opts.StartBatch. A nil runner
// draws without caching.
func New(runner *pipeline.Runner, opts pipeline.Options, cat *catalog.Catalog, logger *log.Logger) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "catalog is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	return &Server{runner: runner, opts: opts, cat: cat, logger: logger, next: opts.StartBatch}, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, buildinfo.Get())
		})
		r.Get("/batches/next", s.handleNext)
		r.Get("/batches/{index}", s.handleBatch)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("serving batches", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts)
}

// handleNext claims the next index of the shared feed. Concurrent clients
// get distinct batches.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	index := s.next
	s.next++
	s.mu.Unlock()
	s.serveBatch(w, r, index)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(chi.URLParam(r, "index"), 10, 64)
	if err != nil || index < 0 {
		writeError(w, bgerrors.New(bgerrors.ErrCodeInvalidInput, "invalid batch index %q", chi.URLParam(r, "index")))
		return
	}
	s.serveBatch(w, r, index)
}

func (s *Server) serveBatch(w http.ResponseWriter, r *http.Request, index int64) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatBinary {
		writeError(w, bgerrors.New(bgerrors.ErrCodeInvalidInput, "invalid format: %q (must be json or binary)", format))
		return
	}

	b, hit, err := s.runner.Batch(r.Context(), s.opts, s.cat, index)
	if err != nil {
		s.logger.Error("draw batch", append([]any{"index", index}, bgerrors.Fields(err)...)...)
		writeError(w, err)
		return
	}
	w.Header().Set("X-Batch-Index", strconv.FormatInt(index, 10))
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}

	if format == FormatBinary {
		data, err := draw.EncodeBatch(b)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// observe reports requests to the server hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start))
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}

// errorResponse is the JSON body of failed requests.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := bgerrors.HTTPStatus(err)
	if errors.Is(err, context.Canceled) {
		status = 499
	}
	writeJSON(w, status, errorResponse{Error: bgerrors.UserMessage(err), Code: string(bgerrors.GetCode(err))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
