// Package api serves pages with the CSRF token already published and injected, and
// rejects state-changing requests that do not carry it back.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"warden/config"
	"warden/inject"
	"warden/store"
	"warden/util/goroutine"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// API holds the API server
type API struct {
	router         *mux.Router
	server         *http.Server
	config         *config.Config
	logger         *zap.SugaredLogger
	tokens         store.TokenStore
	injector       *inject.Injector
	pages          *pageSet
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	stopCh         chan struct{}
	stopOnce       sync.Once
}

// NewAPI creates a new API server
func NewAPI(cfg *config.Config, tokens store.TokenStore, logger *zap.SugaredLogger) *API {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	api := &API{
		router: mux.NewRouter(),
		config: cfg,
		logger: logger,
		tokens: tokens,
		injector: inject.NewInjector(inject.Options{
			MetaName:   cfg.CSRF.MetaName,
			HeaderName: cfg.CSRF.HeaderName,
			FieldName:  cfg.CSRF.FieldName,
			Logger:     logger,
		}),
		pages:        newPageSet(cfg.Pages.Dir),
		rateLimiters: make(map[string]*rateLimiterEntry),
		stopCh:       make(chan struct{}),
	}
	api.setupRoutes()
	api.server = &http.Server{
		Handler:      api.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	goroutine.Go("rate-limiter-cleanup", logger, api.cleanupRateLimiters)
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.errorRecoveryMiddleware)
	a.router.Use(a.securityHeadersMiddleware)
	if a.config.RateLimit.RequestsPerSecond > 0 {
		a.router.Use(a.rateLimitMiddleware)
	}
	a.router.Use(a.csrfProtectionMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	a.router.HandleFunc("/api/csrf-token", a.getCSRFToken).Methods("GET")
	a.router.HandleFunc("/api/echo", a.echo).Methods("POST", "PUT", "PATCH", "DELETE")

	a.router.Handle("/", a.pageInjectionMiddleware(http.HandlerFunc(a.serveIndex))).Methods("GET", "HEAD")
	a.router.Handle("/pages/{name}", a.pageInjectionMiddleware(http.HandlerFunc(a.servePage))).Methods("GET", "HEAD")

	// mux skips router middleware when no route matches
	a.router.MethodNotAllowedHandler = a.outerChain(http.HandlerFunc(a.methodNotAllowed))
	a.router.NotFoundHandler = a.outerChain(http.HandlerFunc(a.notFound))
}

// outerChain applies the router middleware that does not depend on a matched route
func (a *API) outerChain(h http.Handler) http.Handler {
	if a.config.RateLimit.RequestsPerSecond > 0 {
		h = a.rateLimitMiddleware(h)
	}
	return a.requestIDMiddleware(a.errorRecoveryMiddleware(a.securityHeadersMiddleware(h)))
}

// Handler returns the root handler, for embedding or tests
func (a *API) Handler() http.Handler {
	return a.router
}

// Start listens on addr and serves until Stop is called
func (a *API) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return a.Serve(l)
}

// Serve serves on an existing listener until Stop is called
func (a *API) Serve(l net.Listener) error {
	return a.server.Serve(l)
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	return a.server.Shutdown(ctx)
}
