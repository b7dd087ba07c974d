// Package backend is the reference MS Plantilla service: the JSON contract the
// gateway forwards to and the plantilla client consumes. Data is an embedded
// seed held in memory; nothing is persisted.
package backend

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/plantilla/render"
)

// Fixed payloads of the informational routes.
const (
	HomeMessage  = "Microservicio MS Plantilla: home"
	AboutMessage = "Microservicio MS Plantilla: acerca de"
	AboutAuthor  = "Miguel Angel Carrasco Infante"
	AboutEmail   = "maci0002@red.ujaen.es"
	AboutDate    = "13/08/2001"
)

//go:embed personas.json
var seedJSON []byte

// Home is the payload of GET /.
type Home struct {
	Mensaje string `json:"mensaje"`
}

// About is the payload of GET /acercade.
type About struct {
	Mensaje string `json:"mensaje"`
	Autor   string `json:"autor"`
	Email   string `json:"email"`
	Fecha   string `json:"fecha"`
}

// List is the payload of GET /listarPersonas.
type List struct {
	Data []render.Record `json:"data"`
}

// Service serves the MS Plantilla routes.
type Service struct {
	personas []render.Record
	logger   *slog.Logger
}

// New loads the embedded seed.
func New(logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var personas []render.Record
	if err := json.Unmarshal(seedJSON, &personas); err != nil {
		return nil, fmt.Errorf("backend: decode seed: %w", err)
	}
	return &Service{personas: personas, logger: logger}, nil
}

// Personas returns a copy of the seed records.
func (s *Service) Personas() []render.Record {
	out := make([]render.Record, len(s.personas))
	copy(out, s.personas)
	return out
}

// Find returns the first persona whose nombre equals nombre, ignoring case.
func (s *Service) Find(nombre string) (render.Record, bool) {
	for _, p := range s.personas {
		if n, ok := p.Data["nombre"].(string); ok && strings.EqualFold(n, nombre) {
			return p, true
		}
	}
	return render.Record{}, false
}

// Routes mounts the service on a chi router.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Home{Mensaje: HomeMessage})
	})
	r.Get("/acercade", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, About{
			Mensaje: AboutMessage,
			Autor:   AboutAuthor,
			Email:   AboutEmail,
			Fecha:   AboutDate,
		})
	})
	r.Get("/listarPersonas", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, List{Data: s.Personas()})
	})
	r.Get("/listarUna/{nombre}", func(w http.ResponseWriter, r *http.Request) {
		nombre := chi.URLParam(r, "nombre")
		if u, err := url.PathUnescape(nombre); err == nil {
			nombre = u
		}
		p, ok := s.Find(nombre)
		if !ok {
			s.logger.Debug("backend: persona not found", "nombre", nombre)
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "persona no encontrada: " + nombre})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
