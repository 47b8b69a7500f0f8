package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"agrotrack/internal/cache"
	"agrotrack/internal/core"
	applog "agrotrack/internal/log"
	"agrotrack/internal/middleware/ratelimit"
	"agrotrack/internal/middleware/security"
	"agrotrack/internal/middleware/trace"
	"agrotrack/internal/services"
)

// LedgerAPI is the ledger surface the HTTP layer needs.
type LedgerAPI interface {
	AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error)
	Summary(ctx context.Context, period core.Period) (core.LedgerSummary, error)
	CategoryBreakdown(ctx context.Context, period core.Period) ([]core.CategoryAmount, error)
	Overview(ctx context.Context, period core.Period) (services.LedgerOverview, error)
	Today() core.Date
}

// ShipmentAPI is the shipment surface the HTTP layer needs.
type ShipmentAPI interface {
	CreateShipment(ctx context.Context, in core.ShipmentInput) (core.Shipment, error)
	AdvanceStatus(ctx context.Context, id string, to core.Status, description string) (core.Shipment, error)
	AppendEvent(ctx context.Context, id, title, description string, completed bool) (core.Shipment, error)
	GetShipment(ctx context.Context, id string) (core.Shipment, error)
	ListShipments(ctx context.Context, status core.Status) ([]core.Shipment, error)
}

// Pinger reports backend connectivity for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
	IdempotencyTTL     time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	ledger    LedgerAPI
	shipments ShipmentAPI
	health    Pinger

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	idempotency *idempotency
	caches      *cache.Manager
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run http.Server.
// The caller owns ListenAndServe and must call Shutdown to stop background work.
func NewServer(cfg Config, ledger LedgerAPI, shipments ShipmentAPI, health Pinger) *Server {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:      ledger,
		shipments:   shipments,
		health:      health,
		detector:    security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		idempotency: newIdempotency(cfg.IdempotencyTTL),
		caches:      cache.NewManager(),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.caches.Register("idempotency", s.idempotency.responses)
	s.caches.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeStatusError(w, req, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeStatusError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", req.Method+" is not allowed here")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	api.Use(s.idempotency.Middleware)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)

	api.HandleFunc("/ledger/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/ledger/breakdown", s.handleBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/ledger/overview", s.handleOverview).Methods(http.MethodGet)

	api.HandleFunc("/shipments", s.handleListShipments).Methods(http.MethodGet)
	api.HandleFunc("/shipments", s.handleCreateShipment).Methods(http.MethodPost)
	api.HandleFunc("/shipments/{id}", s.handleGetShipment).Methods(http.MethodGet)
	api.HandleFunc("/shipments/{id}/status", s.handleAdvanceStatus).Methods(http.MethodPost)
	api.HandleFunc("/shipments/{id}/events", s.handleAppendEvent).Methods(http.MethodPost)

	// Outermost first: trace, security headers, scanner detection, rate limit.
	var h http.Handler = r
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.MethodIs(http.MethodPost), s.onRateLimit)(h)
	h = s.withProbeDetection(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

func (s *Server) withProbeDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request detected",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeStatusError(w, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry later")
}

// Shutdown stops background cleanup and drains the HTTP server. Only the first
// call has any effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
