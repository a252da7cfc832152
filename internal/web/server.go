// Package web provides the HTTP server and JSON API for batch processing,
// mapping management, computed variables, and extraction.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/datalift/listprep/internal/config"
	"github.com/datalift/listprep/internal/extract"
	"github.com/datalift/listprep/internal/pipeline"
	"github.com/datalift/listprep/internal/variable"
	"github.com/datalift/listprep/internal/web/middleware"
)

// Server is the HTTP server for the list preparation service.
type Server struct {
	svc    *pipeline.Service
	vars   *variable.Engine
	ext    *extract.Engine
	cfg    *config.Config
	router *chi.Mux
	server *http.Server

	// slots bounds concurrent batch processing
	slots chan struct{}
}

// NewServer creates a Server wired to the processing service and engines.
func NewServer(svc *pipeline.Service, vars *variable.Engine, ext *extract.Engine, cfg *config.Config) *Server {
	s := &Server{
		svc:    svc,
		vars:   vars,
		ext:    ext,
		cfg:    cfg,
		router: chi.NewRouter(),
		slots:  make(chan struct{}, cfg.Upload.MaxConcurrent),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// processing endpoints get the tighter upload limit
		if s.cfg.Rate.Enabled {
			upload := newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute)
			r.With(upload.middleware).Post("/process", s.handleProcess)
		} else {
			r.Post("/process", s.handleProcess)
		}

		r.Get("/header-mappings", s.handleListMappings)
		r.Post("/header-mappings", s.handleSaveMappings)
		r.Delete("/header-mappings", s.handleDeleteMapping)

		r.Get("/variable-exclusions", s.handleListExclusions)
		r.Post("/variable-exclusions", s.handleSaveExclusion)
		r.Put("/variable-exclusions/{name}", s.handleSaveExclusionNamed)
		r.Delete("/variable-exclusions/{name}", s.handleDeleteExclusion)

		r.Post("/computed-variable/preview", s.handleVariablePreview)
		r.Post("/computed-variable", s.handleVariableApply)
		r.Delete("/computed-variable", s.handleVariableRemove)

		r.Get("/age-ranges", s.handleAgeRanges)
		r.Post("/extract", s.handleExtract)

		r.Get("/table-preview", s.handleTablePreview)
		r.Delete("/table", s.handleDeleteTable)
	})
}

// Start begins listening for HTTP requests. Blocks until the listener fails
// or Shutdown runs.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// acquireSlot blocks until a processing slot frees up or the wait ceiling
// passes. The returned release must be called when processing finishes.
func (s *Server) acquireSlot(ctx context.Context) (func(), bool) {
	wait, cancel := context.WithTimeout(ctx, s.cfg.Upload.MaxWaitTime)
	defer cancel()

	select {
	case s.slots <- struct{}{}:
		return func() { <-s.slots }, true
	case <-wait.Done():
		return nil, false
	}
}

// securityHeaders adds hardening headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a token bucket per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup drops stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow consumes a token for ip if one is available.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeFailure(w, http.StatusTooManyRequests, pipeline.UserMessage{
				Code:    "SYS004",
				Message: "Too many requests.",
				Action:  "Wait a minute and try again.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
