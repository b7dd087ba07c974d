package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/plantilla/backend"
	"github.com/hazyhaar/plantilla/dbopen"
	"github.com/hazyhaar/plantilla/observability"
	"github.com/hazyhaar/plantilla/shield"
)

type echo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	Host   string `json:"host"`
	Body   string `json:"body"`
	Custom string `json:"custom"`
	XFF    string `json:"xff"`
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", "echo")
		json.NewEncoder(w).Encode(echo{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Host:   r.Host,
			Body:   string(body),
			Custom: r.Header.Get("X-Custom"),
			XFF:    r.Header.Get("X-Forwarded-For"),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, routes []RouteConfig, opts ...Option) *Router {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	rt, err := New(&Config{Routes: routes}, opts...)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return rt
}

func doEcho(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, echo) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var e echo
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
			t.Fatalf("decode echo: %v (%s)", err, w.Body.String())
		}
	}
	return w, e
}

func TestRouter_StripsPrefix(t *testing.T) {
	up := echoServer(t)
	rt := newTestRouter(t, []RouteConfig{{URL: "/badminton", Target: up.URL}})

	cases := map[string]string{
		"/badminton":                  "/",
		"/badminton/":                 "/",
		"/badminton/acercade":         "/acercade",
		"/badminton/listarUna/Miguel": "/listarUna/Miguel",
	}
	for in, want := range cases {
		w, e := doEcho(t, rt, httptest.NewRequest(http.MethodGet, in, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d", in, w.Code)
			continue
		}
		if e.Path != want {
			t.Errorf("%s: upstream path %q, want %q", in, e.Path, want)
		}
	}
}

func TestRouter_ForwardsRequestAsIs(t *testing.T) {
	up := echoServer(t)
	rt := newTestRouter(t, []RouteConfig{{URL: "/badminton", Target: up.URL}})

	req := httptest.NewRequest(http.MethodPost, "/badminton/personas?orden=nombre&x=1", strings.NewReader(`{"a":1}`))
	req.Header.Set("X-Custom", "kept")
	w, e := doEcho(t, rt, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if e.Method != http.MethodPost || e.Body != `{"a":1}` || e.Custom != "kept" {
		t.Errorf("request altered: %+v", e)
	}
	if e.Query != "orden=nombre&x=1" {
		t.Errorf("query: got %q", e.Query)
	}
	if w.Header().Get("X-Upstream") != "echo" || w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("response headers not relayed: %v", w.Header())
	}
	if e.XFF == "" {
		t.Error("X-Forwarded-For not set")
	}
}

func TestRouter_ChangeOrigin(t *testing.T) {
	up := echoServer(t)
	target, _ := url.Parse(up.URL)
	keep := false
	rt := newTestRouter(t, []RouteConfig{
		{URL: "/origin", Target: up.URL},
		{URL: "/keep", Target: up.URL, ChangeOrigin: &keep},
	})

	req := httptest.NewRequest(http.MethodGet, "http://gateway.local/origin/x", nil)
	_, e := doEcho(t, rt, req)
	if e.Host != target.Host {
		t.Errorf("change_origin: host %q, want %q", e.Host, target.Host)
	}

	req = httptest.NewRequest(http.MethodGet, "http://gateway.local/keep/x", nil)
	_, e = doEcho(t, rt, req)
	if e.Host != "gateway.local" {
		t.Errorf("change_origin=false: host %q, want gateway.local", e.Host)
	}
}

func TestRouter_UpstreamTraceHeaderKept(t *testing.T) {
	// Without the trace middleware in front, upstream headers pass unchanged.
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Trace-ID", "cafe0001")
	}))
	t.Cleanup(up.Close)

	rt := newTestRouter(t, []RouteConfig{{URL: "/b", Target: up.URL}})
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/b/", nil))
	if v := w.Header().Values("X-Trace-ID"); len(v) != 1 || v[0] != "cafe0001" {
		t.Errorf("X-Trace-ID: got %q", v)
	}
}

func TestRouter_FirstMatchWins(t *testing.T) {
	a := echoServer(t)
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(b.Close)

	rt := newTestRouter(t, []RouteConfig{
		{URL: "/api/v2", Target: b.URL},
		{URL: "/api", Target: a.URL},
	})
	if i := rt.Lookup("/api/v2/x"); i != 0 {
		t.Errorf("Lookup(/api/v2/x) = %d", i)
	}
	if i := rt.Lookup("/api/v3"); i != 1 {
		t.Errorf("Lookup(/api/v3) = %d", i)
	}

	w := httptest.NewRecorder()
	rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/x", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("status %d, want 418", w.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	up := echoServer(t)
	rt := newTestRouter(t, []RouteConfig{{URL: "/badminton", Target: up.URL}})

	for _, p := range []string{"/unknown", "/badmintonx", "/"} {
		w := httptest.NewRecorder()
		rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", p, w.Code)
		}
	}
}

func TestRouter_UpstreamDown(t *testing.T) {
	// WHAT: Target not listening.
	// WHY: Connection failures surface as 502, not a hang or a panic.
	up := httptest.NewServer(http.NotFoundHandler())
	target := up.URL
	up.Close()

	rt := newTestRouter(t, []RouteConfig{{URL: "/badminton", Target: target}})

	var logs bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/badminton/", nil)
	ctx := context.WithValue(req.Context(), shield.LoggerKey, slog.New(slog.NewJSONHandler(&logs, nil)))
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, req.WithContext(ctx))
	if w.Code != http.StatusBadGateway {
		t.Errorf("status %d, want 502", w.Code)
	}

	var line struct {
		Msg   string `json:"msg"`
		Route string `json:"route"`
	}
	if err := json.Unmarshal(logs.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", logs.String(), err)
	}
	if line.Msg != "gateway: upstream error" || line.Route != "/badminton" {
		t.Errorf("log line: %+v", line)
	}
}

func TestRouter_UpstreamStatusRelayed(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(up.Close)

	rt := newTestRouter(t, []RouteConfig{{URL: "/b", Target: up.URL}})
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/b/x", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "boom") {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestRouter_Rules(t *testing.T) {
	rt := newTestRouter(t, []RouteConfig{{URL: "/a", Target: "http://h:1"}, {URL: "/b", Target: "http://h:2"}})
	rules := rt.Rules()
	if len(rules) != 2 || rules[0].Prefix != "/a" || rules[1].Prefix != "/b" {
		t.Fatalf("rules: %+v", rules)
	}
	rules[0].Prefix = "/mutated"
	if rt.Rules()[0].Prefix != "/a" {
		t.Error("Rules must return a copy")
	}
}

func TestRouter_AccessLog(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(observability.Schema))
	al := observability.NewAccessLog(db, observability.WithFlushInterval(time.Hour), observability.WithLogger(quietLogger()))
	t.Cleanup(func() { al.Close() })

	up := echoServer(t)
	rt := newTestRouter(t, []RouteConfig{{URL: "/badminton", Target: up.URL}}, WithAccessLog(al))

	rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/badminton/acercade", nil))
	rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	al.Flush()

	entries, err := al.Query(context.Background(), observability.Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	byPath := map[string]*observability.Request{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	ok := byPath["/badminton/acercade"]
	if ok == nil || ok.Status != http.StatusOK || ok.RoutePrefix != "/badminton" || ok.UpstreamPath != "/acercade" {
		t.Errorf("proxied entry: %+v", ok)
	}
	miss := byPath["/nope"]
	if miss == nil || miss.Status != http.StatusNotFound || miss.RoutePrefix != "" {
		t.Errorf("unmatched entry: %+v", miss)
	}
}

func TestRouter_AccessLogDoesNotBlockOnLockedDB(t *testing.T) {
	// WHAT: Another connection holds the SQLite write lock while requests flow.
	// WHY: Access logging must not add database latency to the proxy path.
	path := filepath.Join(t.TempDir(), "access.db")
	db, err := dbopen.Open(path, dbopen.WithSchema(observability.Schema), dbopen.WithBusyTimeout(2000))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	locker, err := dbopen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { locker.Close() })
	ctx := context.Background()
	conn, err := locker.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	al := observability.NewAccessLog(db, observability.WithBufferSize(1),
		observability.WithFlushInterval(time.Hour), observability.WithLogger(quietLogger()))
	t.Cleanup(func() { al.Close() })

	up := echoServer(t)
	rt := newTestRouter(t, []RouteConfig{{URL: "/badminton", Target: up.URL}}, WithAccessLog(al))

	for i := 0; i < 3; i++ {
		start := time.Now()
		w := httptest.NewRecorder()
		rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badminton/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if d := time.Since(start); d > time.Second {
			t.Fatalf("request %d took %v with the log database locked", i, d)
		}
	}

	if _, err := conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	conn.Close()

	// Entries held back by the lock are written once it is released.
	deadline := time.Now().Add(15 * time.Second)
	for {
		if err := al.Flush(); err == nil && al.Pending() == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("entries still pending: %d", al.Pending())
		}
		time.Sleep(50 * time.Millisecond)
	}
	// Waits out any write the background flusher still has in flight.
	if err := al.Flush(); err != nil {
		t.Fatal(err)
	}
	entries, err := al.Query(ctx, observability.Filter{RoutePrefix: "/badminton"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("entries: got %d, want 3", len(entries))
	}
}

func TestRouter_EndToEndBackend(t *testing.T) {
	svc, err := backend.New(quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	up := httptest.NewServer(svc.Routes())
	t.Cleanup(up.Close)

	rt, err := New(DefaultConfig(), WithLogger(quietLogger()), WithTransport(rewriteHost(up.URL)))
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badminton/", nil))
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("home: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	var home backend.Home
	json.Unmarshal(w.Body.Bytes(), &home)
	if home.Mensaje != backend.HomeMessage {
		t.Errorf("home: %+v", home)
	}

	w = httptest.NewRecorder()
	rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badminton/acercade", nil))
	var about backend.About
	json.Unmarshal(w.Body.Bytes(), &about)
	if about.Autor != backend.AboutAuthor || about.Fecha != backend.AboutDate {
		t.Errorf("acercade: %+v", about)
	}

	w = httptest.NewRecorder()
	rt.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badminton/listarPersonas", nil))
	var list backend.List
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 10 || list.Data[0].Data["nombre"] != "Miguel" {
		t.Errorf("listarPersonas: %d records", len(list.Data))
	}
}

// rewriteHost sends every upstream request to base, keeping the path, so the
// default localhost:8002 route can be exercised against a test server.
func rewriteHost(base string) http.RoundTripper {
	u, _ := url.Parse(base)
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		r = r.Clone(r.Context())
		r.URL.Scheme = u.Scheme
		r.URL.Host = u.Host
		return http.DefaultTransport.RoundTrip(r)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
