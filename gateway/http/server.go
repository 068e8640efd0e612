// Package http serves the operator API of the reasoning engine: health,
// statistics, manual reasoning triggers, scheduler control, cache
// invalidation, a websocket feed of pass reports and Prometheus metrics.
package http

import (
	"bufio"
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/gateway"
	"github.com/c360/semreason/health"
	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/reasoner"
)

// Option configures a Server.
type Option func(*Server)

// WithCache enables DELETE /api/reasoning/cache.
func WithCache(c gateway.Cache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithMonitor backs GET /health with the monitor's checks.
func WithMonitor(m *health.Monitor) Option {
	return func(s *Server) {
		s.monitor = m
	}
}

// WithMetrics records request metrics and serves GET /metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithBackends sets the list answered by GET /api/reasoning/backends.
func WithBackends(active string, backends []gateway.BackendInfo) Option {
	return func(s *Server) {
		s.active = active
		s.backends = backends
	}
}

// WithRateLimit bounds manual reasoning triggers.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHub serves the pass report feed from hub.
func WithHub(hub *Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// WithCORS answers cross-origin requests from the listed origins.
func WithCORS(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithTLS serves HTTPS with cfg. A nil config serves plain HTTP.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server is the operator HTTP API.
type Server struct {
	sched       gateway.Scheduler
	cache       gateway.Cache
	monitor     *health.Monitor
	registry    *metric.MetricsRegistry
	active      string
	backends    []gateway.BackendInfo
	limiter     *rate.Limiter
	hub         *Hub
	corsOrigins []string
	tlsConfig   *tls.Config
	logger      *slog.Logger
}

var _ gateway.HTTPHandler = (*Server)(nil)

// New creates a Server driving sched.
func New(sched gateway.Scheduler, opts ...Option) (*Server, error) {
	if sched == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Gateway", "New", "scheduler is required")
	}
	s := &Server{
		sched:   sched,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "http-gateway")
	return s, nil
}

// Handler returns the API mounted at the root.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHTTPHandlers("/", mux)
	return mux
}

// RegisterHTTPHandlers mounts the API under prefix.
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	route := func(method, path string, h http.HandlerFunc) {
		mux.Handle(method+" "+prefix+path, s.instrument(path, h))
		if len(s.corsOrigins) > 0 {
			mux.Handle("OPTIONS "+prefix+path, s.instrument(path, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
		}
	}

	route("GET", "health", s.handleHealth)
	route("GET", "api/reasoning/stats", s.handleStats)
	route("POST", "api/reasoning/run", s.limited(s.handleRun))
	route("POST", "api/reasoning/consistency", s.limited(s.handleConsistency))
	route("POST", "api/reasoning/validate", s.limited(s.handleValidate))
	route("POST", "api/reasoning/enable", s.handleEnable)
	route("POST", "api/reasoning/disable", s.handleDisable)
	route("DELETE", "api/reasoning/cache", s.handleInvalidateCache)
	route("GET", "api/reasoning/backends", s.handleBackends)
	if s.hub != nil {
		route("GET", "api/reasoning/events", s.hub.ServeHTTP)
	}
	mux.Handle("GET "+prefix+"metrics", metric.Handler(s.registry))
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.tlsConfig,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Operator API listening", "addr", addr, "tls", s.tlsConfig != nil)
		if s.tlsConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapFatal(err, "Gateway", "ListenAndServe", "listen on "+addr)
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapTransient(err, "Gateway", "ListenAndServe", "shutdown")
	}
	return nil
}

// instrument adds the request ID, CORS headers and request metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("X-Request-ID", getOrGenerateRequestID(r))
		s.applyCORS(w, r)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		if s.registry != nil {
			s.registry.CoreMetrics().RecordHTTPRequest(route, strconv.Itoa(rec.status), time.Since(start))
		}
	})
}

func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	for _, allowed := range s.corsOrigins {
		if allowed != "*" && allowed != origin {
			continue
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")
		return
	}
}

// limited rejects manual triggers beyond the configured rate.
func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.fail(w, r, errors.WrapTransient(errors.ErrRateLimited, "Gateway", r.URL.Path, "rate limit"))
			return
		}
		h(w, r)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, sanitizeError(status))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := health.NewHealthy("semreason", "No checks registered")
	if s.monitor != nil {
		status = s.monitor.AggregateHealth(r.Context(), "semreason")
	}
	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.GetIntegrationStatistics())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	kind := reasoner.KindFullInference
	if q := r.URL.Query().Get("kind"); q != "" {
		parsed, err := reasoner.ParseKind(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown reasoning kind %q", q))
			return
		}
		kind = parsed
	}

	start := time.Now()
	ds, err := s.sched.RunFullReasoningNow(r.Context(), kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway.RunResponse{
		Kind:     kind,
		Triples:  ds.Len(),
		Dataset:  ds,
		Duration: time.Since(start).String(),
	})
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	consistent, err := s.sched.CheckConsistencyNow(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway.ConsistencyResponse{
		Consistent: consistent,
		Duration:   time.Since(start).String(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := s.sched.ValidateNow(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway.NewValidationResponse(res, time.Since(start)))
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Enable(); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway.ToggleResponse{AutoReasoningEnabled: true})
}

func (s *Server) handleDisable(w http.ResponseWriter, _ *http.Request) {
	s.sched.Disable()
	writeJSON(w, http.StatusOK, gateway.ToggleResponse{AutoReasoningEnabled: false})
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotFound, "result cache is disabled")
		return
	}
	pattern := r.URL.Query().Get("pattern")
	writeJSON(w, http.StatusOK, gateway.CacheResponse{
		Pattern:     pattern,
		Invalidated: s.cache.InvalidateCache(r.Context(), pattern),
	})
}

func (s *Server) handleBackends(w http.ResponseWriter, _ *http.Request) {
	resp := gateway.BackendsResponse{
		Active:   s.active,
		Backends: make([]gateway.BackendInfo, 0, len(s.backends)),
	}
	for _, b := range s.backends {
		b.Active = b.Name == s.active
		resp.Backends = append(resp.Backends, b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusRecorder captures the response status. It passes Hijack through
// so websocket upgrades still work.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
