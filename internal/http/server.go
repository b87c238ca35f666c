// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

// Options configures the server.
type Options struct {
	Addr           string
	ImportMaxBytes int64

	ReportCacheSize int
	ReportCacheTTL  time.Duration

	// Logger scopes request logging. Defaults to a logger built from the
	// environment when nil.
	Logger *log.Logger
}

type Server struct {
	http.Server

	store        *storage.Repository
	transactions *services.TransactionService
	imports      *services.ImportService
	reports      *services.ReportService

	importMaxBytes int64

	// Monthly report responses are cached; any transaction write clears
	// the whole cache since one write can touch any month.
	reportCache  *cache.LRUCache[report.Report]
	cacheManager *cache.Manager

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	headers     *security.HeadersMiddleware
	tracer      *trace.Middleware
	logger      *log.Logger

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, store *storage.Repository, transactions *services.TransactionService, imports *services.ImportService, reports *services.ReportService) *Server {
	if opts.ImportMaxBytes <= 0 {
		opts.ImportMaxBytes = 10 * 1024 * 1024
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 64
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	detector := security.NewDetector()

	s := &Server{
		store:          store,
		transactions:   transactions,
		imports:        imports,
		reports:        reports,
		importMaxBytes: opts.ImportMaxBytes,
		reportCache:    cache.NewLRUCache[report.Report](opts.ReportCacheSize, opts.ReportCacheTTL),
		cacheManager:   cache.NewManager(),
		rateLimiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:       detector,
		headers:        security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:         trace.NewMiddleware(detector.ExtractClientIP),
		logger:         opts.Logger.WithComponent(log.ComponentHTTP),
		started:        time.Now(),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/import/template", s.handleImportTemplate)

	mux.HandleFunc("GET /api/reports/monthly/{year}/{month}", s.handleMonthlyReport)
	mux.HandleFunc("GET /api/reports/current-month", s.handleCurrentReport)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// wrap builds the middleware chain: tracing outermost, then probe
// detection, then security headers, then the request-scoped logger, then
// rate limiting on mutating methods. The logger sits inside tracing so it
// picks up the request ID.
func (s *Server) wrap(next http.Handler) http.Handler {
	limited := s.limitMutations(next)
	logged := log.Middleware(s.logger, trace.GetRequestID)(limited)
	headered := s.headers.Middleware(logged)
	detected := s.detectProbes(headered)
	return s.tracer.Middleware(detected)
}

// detectProbes flags requests that look like vulnerability scans. They are
// served normally; the signal feeds the warn log and the metrics endpoint.
func (s *Server) detectProbes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// limitMutations rate limits writes per client IP. Reads stay unthrottled;
// the dashboard polls them.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateReports drops all cached report responses after a write.
func (s *Server) invalidateReports() {
	s.reportCache.Clear()
}
