// Package plantilla is the front end of MS Plantilla: it fetches JSON from
// the API gateway and renders it into HTML articles.
//
// Every action follows the same path: take a sequence token on the Session,
// GET the route through the gateway, validate the payload, render it with a
// template from the registry and publish the article. Failures never escape
// as errors: an unreachable gateway produces an alert plus the fallback
// record, a malformed payload silently produces the fallback record.
package plantilla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/plantilla/kit"
	"github.com/hazyhaar/plantilla/render"
)

// DefaultPrefix is the gateway route of MS Plantilla.
const DefaultPrefix = "/badminton"

const maxPayload = 4 << 20

// Article titles.
const (
	TitleHome     = "Plantilla Home"
	TitleAcercaDe = "Plantilla Acerca de"
	TitleListado  = "Listado de personas"
	TitlePersona  = "Datos de la persona"
)

// Client talks to MS Plantilla through the API gateway.
type Client struct {
	base      *url.URL
	prefix    string
	http      *http.Client
	templates *render.Registry
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPrefix sets the gateway route prefix. Default: DefaultPrefix.
func WithPrefix(p string) Option {
	return func(c *Client) { c.prefix = "/" + strings.Trim(p, "/") }
}

// WithHTTPClient overrides the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTemplates overrides render.DefaultRegistry().
func WithTemplates(r *render.Registry) Option {
	return func(c *Client) { c.templates = r }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client for the gateway at gatewayURL,
// e.g. "http://localhost:8001".
func NewClient(gatewayURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("plantilla: invalid gateway url %q: %w", gatewayURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("plantilla: gateway url %q must be absolute http(s)", gatewayURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	c := &Client{
		base:   base,
		prefix: DefaultPrefix,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.templates == nil {
		c.templates = render.DefaultRegistry()
	}
	return c, nil
}

// URL returns the absolute gateway URL of route, e.g. URL("/acercade").
func (c *Client) URL(route string) string {
	u := *c.base
	u.Path = u.Path + c.prefix + route
	return u.String()
}

// ListOptions controls ListarPersonas.
type ListOptions struct {
	SortField string // empty: backend order
	Full      bool   // every persona field instead of nombre + apellidos
}

// Home shows the backend home message.
func (c *Client) Home(ctx context.Context, s *Session) (Article, error) {
	token := s.begin()
	rec, err := c.getRecord(ctx, "/", "mensaje")
	a := c.single(TitleHome, render.NameHome, rec, err)
	return a, s.commit(token, a, nil)
}

// AcercaDe shows the backend about payload.
func (c *Client) AcercaDe(ctx context.Context, s *Session) (Article, error) {
	token := s.begin()
	rec, err := c.getRecord(ctx, "/acercade", "mensaje", "autor", "email", "fecha")
	a := c.single(TitleAcercaDe, render.NameAcercaDe, rec, err)
	return a, s.commit(token, a, nil)
}

// ListarPersonas shows every persona as a table.
func (c *Client) ListarPersonas(ctx context.Context, s *Session, opts ListOptions) (Article, error) {
	token := s.begin()
	name := render.NamePersonas
	if opts.Full {
		name = render.NamePersonasFull
	}
	tpl := c.templates.MustGet(name)

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	target := c.URL("/listarPersonas")
	err := c.getJSON(ctx, target, &payload)
	var records []render.Record
	if err == nil {
		if payload.Data == nil {
			err = &PayloadError{URL: target, Status: http.StatusOK, Reason: "missing data array"}
		} else {
			records, err = decodeRecords(target, payload.Data)
		}
	}
	if err != nil {
		a := c.fallback(TitleListado, render.Render(nil, tpl, ""), err)
		return a, s.commit(token, a, nil)
	}

	a := Article{Title: TitleListado, Body: render.Render(records, tpl, opts.SortField), State: Rendered}
	c.checkResolved(a)
	return a, s.commit(token, a, nil)
}

// ListarUna fetches one persona by nombre, shows it and remembers it as the
// session's last displayed record.
func (c *Client) ListarUna(ctx context.Context, s *Session, nombre string) (Article, error) {
	token := s.begin()
	tpl := c.templates.MustGet(render.NamePersona)

	target := c.URL("/listarUna/" + url.PathEscape(nombre))
	var rec render.Record
	err := c.getJSON(ctx, target, &rec)
	if err == nil && (rec.Data == nil || !hasFields(rec, "nombre")) {
		err = &PayloadError{URL: target, Status: http.StatusOK, Reason: "missing data.nombre"}
	}
	if err != nil {
		a := c.fallback(TitlePersona, render.Render(nil, tpl, ""), err)
		return a, s.commit(token, a, nil)
	}

	body, view := render.RenderOne(tpl, rec, s.View())
	a := Article{Title: TitlePersona, Body: body, State: Rendered}
	c.checkResolved(a)
	return a, s.commit(token, a, &view)
}

// MostrarUltima re-renders the session's last displayed persona without
// fetching anything. With nothing cached it shows the fallback article.
func (c *Client) MostrarUltima(s *Session) (Article, error) {
	token := s.begin()
	tpl := c.templates.MustGet(render.NamePersona)

	rec, ok := s.View().Last()
	if !ok {
		a := c.fallback(TitlePersona, render.Render(nil, tpl, ""), nil)
		return a, s.commit(token, a, nil)
	}
	body, _ := render.RenderOne(tpl, rec, s.View())
	a := Article{Title: TitlePersona, Body: body, State: Rendered}
	return a, s.commit(token, a, nil)
}

// single renders a one-record informational article, substituting the
// fallback record when err is set.
func (c *Client) single(title, tplName string, rec render.Record, err error) Article {
	tpl := c.templates.MustGet(tplName)
	if err != nil {
		a := c.fallback(title, "", err)
		a.Body = render.Render([]render.Record{FallbackRecord()}, tpl, "")
		return a
	}
	a := Article{Title: title, Body: render.Render([]render.Record{rec}, tpl, ""), State: Rendered}
	c.checkResolved(a)
	return a
}

// fallback builds the degraded article and reports err the way its kind
// requires: transport failures alert the user, payload problems do not.
// body is appended after the fallback message.
func (c *Client) fallback(title, body string, err error) Article {
	a := Article{
		Title: title,
		Body:  "<p>" + render.Sanitize(FallbackMensaje) + "</p>\n" + body,
		State: FallbackRendered,
	}
	var te *TransportError
	switch {
	case err == nil:
	case errors.As(err, &te):
		a.Alert = AlertGatewayDown
		c.logger.Error("plantilla: gateway unreachable", "url", te.URL, "error", te.Cause)
	default:
		c.logger.Debug("plantilla: payload replaced by fallback", "error", err)
	}
	return a
}

func (c *Client) checkResolved(a Article) {
	if u := render.Unresolved(a.Body); len(u) > 0 {
		c.logger.Warn("plantilla: unresolved placeholders", "title", a.Title, "tokens", u)
	}
}

// getRecord fetches a flat JSON object and checks the required keys.
func (c *Client) getRecord(ctx context.Context, route string, required ...string) (render.Record, error) {
	target := c.URL(route)
	var data map[string]any
	if err := c.getJSON(ctx, target, &data); err != nil {
		return render.Record{}, err
	}
	rec := render.NewRecord(data)
	if data == nil || !hasFields(rec, required...) {
		return render.Record{}, &PayloadError{URL: target, Status: http.StatusOK,
			Reason: "missing one of " + strings.Join(required, ", ")}
	}
	return rec, nil
}

// getJSON performs the GET and decodes a 2xx JSON body into out.
func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &TransportError{URL: target, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if id := kit.GetTraceID(ctx); id != "" {
		req.Header.Set("X-Trace-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{URL: target, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return &TransportError{URL: target, Cause: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PayloadError{URL: target, Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &PayloadError{URL: target, Status: resp.StatusCode, Reason: err.Error()}
	}
	return nil
}

func decodeRecords(target string, raw []json.RawMessage) ([]render.Record, error) {
	records := make([]render.Record, 0, len(raw))
	for i, r := range raw {
		var rec render.Record
		if err := json.Unmarshal(r, &rec); err != nil || rec.Data == nil {
			return nil, &PayloadError{URL: target, Status: http.StatusOK,
				Reason: fmt.Sprintf("data[%d] is not a record", i)}
		}
		records = append(records, rec)
	}
	return records, nil
}

func hasFields(rec render.Record, names ...string) bool {
	for _, n := range names {
		if v, ok := rec.Field(n); !ok || v == nil {
			return false
		}
	}
	return true
}
