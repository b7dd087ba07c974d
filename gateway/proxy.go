package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"

	"github.com/hazyhaar/plantilla/kit"
	"github.com/hazyhaar/plantilla/shield"
)

// newProxy builds the reverse proxy for one rule. The inbound path is
// rewritten, then joined onto the target's base path; method, headers, body
// and query are forwarded as-is.
func newProxy(rule Rule, transport http.RoundTripper, logger *slog.Logger) *httputil.ReverseProxy {
	p := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = rule.RewritePath(pr.In.URL.Path)
			pr.Out.URL.RawPath = ""
			pr.SetURL(rule.Target)
			pr.SetXForwarded()
			if !rule.ChangeOrigin {
				pr.Out.Host = pr.In.Host
			}
		},
		// The gateway's own trace middleware already set X-Trace-ID on the
		// response; an upstream echo of the same id would be appended twice.
		ModifyResponse: func(resp *http.Response) error {
			id := kit.GetTraceID(resp.Request.Context())
			if id != "" && resp.Header.Get("X-Trace-ID") == id {
				resp.Header.Del("X-Trace-ID")
			}
			return nil
		},
		Transport: transport,
		ErrorLog:  slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		shield.GetLogger(r.Context()).Error("gateway: upstream error",
			"route", kit.GetRoute(r.Context()), "target", rule.Target.String(),
			"method", r.Method, "path", r.URL.Path,
			"remote_addr", kit.GetRemoteAddr(r.Context()), "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
	return p
}
