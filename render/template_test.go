package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTable_HeaderOrder(t *testing.T) {
	tpl := Table("t", "c", []Field{F("b", "Bee"), F("a", "Ay")})
	bee := strings.Index(tpl.Header, "<th>Bee</th>")
	ay := strings.Index(tpl.Header, "<th>Ay</th>")
	if bee < 0 || ay < 0 || bee > ay {
		t.Fatalf("header should list titles in field order:\n%s", tpl.Header)
	}
}

func TestBuiltinTemplates_Valid(t *testing.T) {
	for _, tpl := range []Template{PersonasNarrow, PersonasFull, PersonaCard, AcercaDe, Home} {
		if err := tpl.Validate(); err != nil {
			t.Errorf("%s: %v", tpl.Name, err)
		}
	}
}

func TestValidate_TokenWithoutField(t *testing.T) {
	tpl := Template{Name: "bad", Row: "<td>### NOMBRE ###</td><td>### EDAD ###</td>", Fields: []Field{F("nombre", "Nombre")}}
	err := tpl.Validate()
	if err == nil || !strings.Contains(err.Error(), "### EDAD ###") {
		t.Fatalf("expected unbound token error, got %v", err)
	}
}

func TestValidate_FieldWithoutToken(t *testing.T) {
	tpl := Template{Name: "bad", Row: "<td>### NOMBRE ###</td>", Fields: []Field{F("nombre", "Nombre"), F("club", "Club")}}
	if err := tpl.Validate(); err == nil {
		t.Fatal("expected missing token error")
	}
}

func TestValidate_DuplicateToken(t *testing.T) {
	tpl := Template{Name: "bad", Row: "### NOMBRE ###", Fields: []Field{F("nombre", "Nombre"), {Name: "alias", Token: Token("nombre")}}}
	if err := tpl.Validate(); err == nil {
		t.Fatal("expected duplicate token error")
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	want := []string{NameAcercaDe, NameHome, NamePersona, NamePersonas, NamePersonasFull}
	if diff := cmp.Diff(want, r.List()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if !r.Has(NamePersonas) {
		t.Error("Has(personas) = false")
	}
	if err := r.Register(PersonasNarrow); err == nil {
		t.Error("duplicate registration should fail")
	}
	if _, err := r.Get("nope"); err == nil {
		t.Error("Get(nope) should fail")
	}
	if got := r.MustGet(NamePersonasFull); len(got.Fields) != len(PersonaFields()) {
		t.Errorf("full template fields: got %d", len(got.Fields))
	}
}

func TestFixed(t *testing.T) {
	f := Fixed(2)
	if got := f(1.8); got != "1.80" {
		t.Errorf("Fixed(2)(1.8) = %q", got)
	}
	if got := f("n/a"); got != "n/a" {
		t.Errorf("non-number: got %q", got)
	}
}
