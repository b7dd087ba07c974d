// Package gateway routes inbound HTTP requests by path prefix to backend
// services.
//
// The route table is an ordered list of rules loaded once at start. For each
// request the first rule whose prefix matches the path wins; the path is
// rewritten (by default the prefix is stripped) and the request is forwarded
// through httputil.ReverseProxy. Unmatched paths get a plain 404 and upstream
// connection failures a 502. Nothing is retried.
package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/hazyhaar/plantilla/kit"
	"github.com/hazyhaar/plantilla/observability"
	"github.com/hazyhaar/plantilla/shield"
)

// Router is an http.Handler dispatching to the compiled rules. It holds no
// mutable state after New and is safe for concurrent use.
type Router struct {
	rules     []Rule
	proxies   []*httputil.ReverseProxy
	accessLog *observability.AccessLog
	transport http.RoundTripper
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithAccessLog records every request in al.
func WithAccessLog(al *observability.AccessLog) Option {
	return func(r *Router) { r.accessLog = al }
}

// WithTransport overrides http.DefaultTransport for upstream calls.
func WithTransport(rt http.RoundTripper) Option {
	return func(r *Router) { r.transport = rt }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New validates cfg and builds one reverse proxy per rule.
func New(cfg *Config, opts ...Option) (*Router, error) {
	rules, err := cfg.Compile()
	if err != nil {
		return nil, err
	}

	rt := &Router{rules: rules, logger: slog.Default()}
	for _, o := range opts {
		o(rt)
	}

	rt.proxies = make([]*httputil.ReverseProxy, len(rules))
	for i, rule := range rules {
		rt.proxies[i] = newProxy(rule, rt.transport, rt.logger)
		rt.logger.Info("gateway: route registered",
			"prefix", rule.Prefix, "target", rule.Target.String(), "change_origin", rule.ChangeOrigin)
	}
	return rt, nil
}

// Rules returns a copy of the route table in match order.
func (rt *Router) Rules() []Rule {
	out := make([]Rule, len(rt.rules))
	copy(out, rt.rules)
	return out
}

// Lookup returns the index of the first rule matching path, or -1.
func (rt *Router) Lookup(path string) int {
	for i, rule := range rt.rules {
		if rule.Match(path) {
			return i
		}
	}
	return -1
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	entry := &observability.Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		TraceID:   kit.GetTraceID(r.Context()),
		IP:        shield.ExtractIP(r),
		UserAgent: r.UserAgent(),
	}

	i := rt.Lookup(r.URL.Path)
	if i < 0 {
		shield.GetLogger(r.Context()).Debug("gateway: no route", "path", r.URL.Path)
		http.NotFound(rec, r)
	} else {
		rule := rt.rules[i]
		entry.RoutePrefix = rule.Prefix
		entry.UpstreamPath = rule.RewritePath(r.URL.Path)
		ctx := kit.WithRoute(r.Context(), rule.Prefix)
		rt.proxies[i].ServeHTTP(rec, r.WithContext(ctx))
	}

	if rt.accessLog != nil {
		entry.Status = rec.Status()
		entry.Duration = time.Since(start)
		rt.accessLog.Record(entry)
	}
}

// statusRecorder captures the status code written by the proxy.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach Flush on the real writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
