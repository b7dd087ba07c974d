package main

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/plantilla/plantilla"
	"github.com/hazyhaar/plantilla/shield"
)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<nav>
    <a href="/">Home</a> |
    <a href="/acercade">Acerca de</a> |
    <a href="/personas">Listar personas</a> |
    <a href="/personas?full=1">Listado completo</a> |
    <a href="/ultima">Última persona</a>
</nav>
{{if .Alert}}<div class="alert" role="alert">{{.Alert}}</div>
{{end}}<article>
<h1>{{.Title}}</h1>
{{.Body}}</article>
</body>
</html>
`))

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the front end as HTML pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           newFrontHandler(c, plantilla.NewSession()),
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				slog.Info("front end starting", "addr", addr, "gateway", opts.gateway)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}

// newFrontHandler serves one display session: every page is an action on s.
func newFrontHandler(c *plantilla.Client, s *plantilla.Session) http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.FrontStack() {
		r.Use(mw)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		a, err := c.Home(r.Context(), s)
		writePage(w, r, a, err)
	})
	r.Get("/acercade", func(w http.ResponseWriter, r *http.Request) {
		a, err := c.AcercaDe(r.Context(), s)
		writePage(w, r, a, err)
	})
	r.Get("/personas", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		a, err := c.ListarPersonas(r.Context(), s, plantilla.ListOptions{
			SortField: q.Get("sort"),
			Full:      q.Get("full") != "" && q.Get("full") != "0",
		})
		writePage(w, r, a, err)
	})
	r.Get("/personas/{nombre}", func(w http.ResponseWriter, r *http.Request) {
		a, err := c.ListarUna(r.Context(), s, chi.URLParam(r, "nombre"))
		writePage(w, r, a, err)
	})
	r.Get("/ultima", func(w http.ResponseWriter, r *http.Request) {
		a, err := c.MostrarUltima(s)
		writePage(w, r, a, err)
	})
	return r
}

// writePage renders a. A stale action did not update the session, but its
// article is complete and is still what this request asked for.
func writePage(w http.ResponseWriter, r *http.Request, a plantilla.Article, err error) {
	if errors.Is(err, plantilla.ErrStale) {
		shield.GetLogger(r.Context()).Debug("front: superseded action served to its own request", "title", a.Title)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, struct {
		Title string
		Alert string
		Body  template.HTML
	}{a.Title, a.Alert, template.HTML(a.Body)}); err != nil {
		shield.GetLogger(r.Context()).Error("front: render page", "error", err)
	}
}
