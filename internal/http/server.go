package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Options are the transport settings of the API server.
type Options struct {
	Addr string
	// Origin is the single browser origin allowed by CORS.
	Origin string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// AuthRateLimit caps signup and login requests per client per minute.
	AuthRateLimit int
}

// Deps are the services the handlers call.
type Deps struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Dashboard    *services.DashboardService
	Tokens       *auth.Tokens
	// Ready reports whether the store is reachable; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	*http.Server

	auth         *services.AuthService
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	tokens       *auth.Tokens
	ready        func(ctx context.Context) error
	logger       *log.Logger

	secureCookies bool
	validate      *validator.Validate
	limiter       *ratelimit.Limiter
	detector      *security.Detector
	tracer        *trace.Middleware
	started       time.Time
}

func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		auth:          deps.Auth,
		transactions:  deps.Transactions,
		dashboard:     deps.Dashboard,
		tokens:        deps.Tokens,
		ready:         deps.Ready,
		logger:        logger.WithComponent(log.ComponentHTTP),
		secureCookies: opts.SecureCookies,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimit}),
		detector:      security.NewDetector(),
		started:       time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Origin),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(origin string) http.Handler {
	mux := http.NewServeMux()

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})
	protected := auth.Middleware(s.tokens, func(w http.ResponseWriter, r *http.Request, status int, message string) {
		ErrorResponse(status, message).Write(w)
	})

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/auth/signup", limited(http.HandlerFunc(s.handleSignup)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("GET /api/auth/logout", s.handleLogout)
	mux.Handle("GET /api/auth/profile", protected(http.HandlerFunc(s.handleProfile)))

	mux.Handle("GET /api/transactions", protected(http.HandlerFunc(s.handleListTransactions)))
	mux.Handle("POST /api/transactions", protected(http.HandlerFunc(s.handleCreateTransaction)))
	mux.Handle("GET /api/transactions/export", protected(http.HandlerFunc(s.handleExport)))
	mux.Handle("PUT /api/transactions/{id}", protected(http.HandlerFunc(s.handleUpdateTransaction)))
	mux.Handle("DELETE /api/transactions/{id}", protected(http.HandlerFunc(s.handleDeleteTransaction)))

	mux.Handle("GET /api/dashboard", protected(http.HandlerFunc(s.handleDashboard)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", trace.HeaderRequestID},
		AllowCredentials: true,
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = c.Handler(h)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
