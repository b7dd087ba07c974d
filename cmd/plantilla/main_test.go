package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/plantilla/backend"
	"github.com/hazyhaar/plantilla/gateway"
	"github.com/hazyhaar/plantilla/plantilla"
)

func startGateway(t *testing.T) string {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := backend.New(quiet)
	require.NoError(t, err)
	up := httptest.NewServer(svc.Routes())
	t.Cleanup(up.Close)

	gw, err := gateway.New(&gateway.Config{Routes: []gateway.RouteConfig{{URL: "/badminton", Target: up.URL}}},
		gateway.WithLogger(quiet))
	require.NoError(t, err)
	front := httptest.NewServer(gw)
	t.Cleanup(front.Close)
	return front.URL
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCLI_Home(t *testing.T) {
	gw := startGateway(t)
	out, _, err := run(t, "--gateway", gw, "home")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+plantilla.TitleHome)
	assert.Contains(t, out, backend.HomeMessage)
}

func TestCLI_AcercaDeHTML(t *testing.T) {
	gw := startGateway(t)
	out, _, err := run(t, "--gateway", gw, "--format", "html", "acercade")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>"+plantilla.TitleAcercaDe+"</h1>")
	assert.Contains(t, out, backend.AboutEmail)
}

func TestCLI_ListarSorted(t *testing.T) {
	gw := startGateway(t)
	out, _, err := run(t, "--gateway", gw, "--format", "html", "listar", "--sort", "ranking", "--full")
	require.NoError(t, err)
	assert.Less(t, bytes.Index([]byte(out), []byte("Carolina")), bytes.Index([]byte(out), []byte("Miguel")))
	assert.Contains(t, out, "CB Jaén")
}

func TestCLI_Una(t *testing.T) {
	gw := startGateway(t)
	out, _, err := run(t, "--gateway", gw, "una", "Kento")
	require.NoError(t, err)
	assert.Contains(t, out, "Momota")

	_, _, err = run(t, "--gateway", gw, "una")
	assert.Error(t, err, "una requires a nombre")
}

func TestCLI_GatewayDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, errOut, err := run(t, "--gateway", url, "acercade")
	require.NoError(t, err)
	assert.Contains(t, errOut, plantilla.AlertGatewayDown)
	assert.Contains(t, out, plantilla.FallbackMensaje)
}

func TestCLI_BadFlags(t *testing.T) {
	_, _, err := run(t, "--format", "pdf", "home")
	assert.Error(t, err)

	_, _, err = run(t, "--gateway", "not a url", "home")
	assert.Error(t, err)
}

func TestFrontHandler(t *testing.T) {
	gw := startGateway(t)
	c, err := plantilla.NewClient(gw, plantilla.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	h := newFrontHandler(c, plantilla.NewSession())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Body.String(), backend.HomeMessage)

	w = get("/personas?sort=nombre")
	assert.Contains(t, w.Body.String(), `<table width="100%"`)

	w = get("/personas/Akane")
	assert.Contains(t, w.Body.String(), "Yamaguchi")

	w = get("/ultima")
	assert.Contains(t, w.Body.String(), "Yamaguchi")
	assert.NotContains(t, w.Body.String(), `class="alert"`)
}

func TestWritePage_StaleShowsOwnArticle(t *testing.T) {
	a := plantilla.Article{Title: plantilla.TitleAcercaDe, Body: "<p>propio</p>", State: plantilla.Rendered}
	w := httptest.NewRecorder()
	writePage(w, httptest.NewRequest(http.MethodGet, "/acercade", nil), a, plantilla.ErrStale)

	body := w.Body.String()
	assert.Contains(t, body, "<h1>"+plantilla.TitleAcercaDe+"</h1>")
	assert.Contains(t, body, "<p>propio</p>")
}
