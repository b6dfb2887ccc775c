// Package server exposes rendered zone layers over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zonemap/internal/config"
	"github.com/sells-group/zonemap/internal/render"
	"github.com/sells-group/zonemap/internal/store"
	"github.com/sells-group/zonemap/internal/zones"
)

const requestTimeout = 60 * time.Second

// Catalog is the subset of the artifact catalog the server reads.
type Catalog interface {
	Resolve(ctx context.Context, fileName, inputsHash string) (string, error)
	ZoneFile(ctx context.Context) (string, error)
	TransportZoneVersions(ctx context.Context) ([]store.Option, error)
	TravelCostModes(ctx context.Context) ([]store.Option, error)
	TravelCostVersions(ctx context.Context, fileName string) ([]store.Option, error)
}

// Server serves the catalog and styled zone layers.
type Server struct {
	catalog  Catalog
	renderer *render.Renderer
	cache    *render.LayerCache
	zoneOpts zones.Options
	cfg      config.ServerConfig
	limiter  *clientLimiter
	router   chi.Router
	log      *zap.Logger

	sourcesMu   sync.Mutex
	zoneSources map[string]string // zones hash -> source fingerprint
}

// New builds a server and its routes.
func New(catalog Catalog, renderer *render.Renderer, cfg config.ServerConfig, zoneOpts zones.Options) *Server {
	s := &Server{
		catalog:  catalog,
		renderer: renderer,
		cache:    render.NewLayerCache(cfg.CacheSize, cfg.CacheTTL),
		zoneOpts: zoneOpts,
		cfg:      cfg,
		limiter:  newClientLimiter(cfg.RateLimit, cfg.RateBurst),
		log:      zap.L().With(zap.String("component", "server")),

		zoneSources: make(map[string]string),
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(s.corsHandler())
	r.Use(s.limiter.middleware)
	r.Use(s.logRequests)
	r.Use(middleware.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/costs/{mode}/{hash}/origins", s.handleOrigins)
		r.Get("/map", s.handleMap)
		r.Get("/cache/stats", s.handleCacheStats)
	})
	s.router = r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Render-ID", "X-Cache"},
		MaxAge:         300,
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.Handler(opts)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Cache returns the rendered layer cache.
func (s *Server) Cache() *render.LayerCache {
	return s.cache
}

// ListenAndServe serves on the configured port until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps err to a status code: missing catalog entries are 404,
// everything else 500.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
