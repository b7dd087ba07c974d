package plantilla

import (
	"errors"
	"sync"

	"github.com/hazyhaar/plantilla/render"
)

// State is the display state of a Session.
type State int

const (
	Idle State = iota
	Fetching
	Rendered
	FallbackRendered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Rendered:
		return "rendered"
	case FallbackRendered:
		return "fallback_rendered"
	}
	return "unknown"
}

// MarshalText makes State readable in JSON output.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ErrStale is returned when a response arrives after a newer action was
// started on the same Session. The stale article is discarded.
var ErrStale = errors.New("plantilla: response superseded by a newer request")

// Article is what a display action produces: the page title, the HTML body
// and, after a transport failure, the alert shown to the user.
type Article struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Alert string `json:"alert,omitempty"`
	State State  `json:"state"`
}

// Session is one display surface (a browser tab, a terminal). Every action
// takes a sequence token when it starts; only the holder of the latest token
// may publish its article.
type Session struct {
	mu      sync.Mutex
	seq     uint64
	state   State
	article Article
	view    render.View
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// State returns the current display state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Article returns the article currently displayed.
func (s *Session) Article() Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.article
}

// View returns the render state (last displayed record).
func (s *Session) View() render.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = Fetching
	return s.seq
}

// commit publishes a if token is still the latest. view is applied only when
// non-nil.
func (s *Session) commit(token uint64, a Article, view *render.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		return ErrStale
	}
	s.article = a
	s.state = a.State
	if view != nil {
		s.view = *view
	}
	return nil
}
