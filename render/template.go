package render

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Field binds a record field to the placeholder token that stands for it in
// a row template.
type Field struct {
	Name   string    // key in Record.Data
	Token  string    // placeholder, e.g. "### NOMBRE ###"
	Title  string    // column title
	Format Formatter // nil means Text
}

func (f Field) format(v any) string {
	if f.Format == nil {
		return Text(v)
	}
	return f.Format(v)
}

// Template is header ++ rows ++ footer where each row is Row with its field
// tokens substituted.
type Template struct {
	Name   string
	Header string
	Row    string
	Footer string
	Fields []Field
}

var tokenPattern = regexp.MustCompile(`###\s*[^#\s][^#]*?\s*###`)

// Token returns the placeholder used for a field name: "### NAME ###".
func Token(name string) string {
	return "### " + strings.ToUpper(name) + " ###"
}

// F declares a field whose token derives from its name.
func F(name, title string) Field {
	return Field{Name: name, Token: Token(name), Title: title}
}

// Validate checks that every token in Row has exactly one Field and that
// every Field's token occurs in Row.
func (t Template) Validate() error {
	var errs []error
	byToken := make(map[string]int, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" || f.Token == "" {
			errs = append(errs, fmt.Errorf("render: template %q: field %+v needs a name and a token", t.Name, f))
			continue
		}
		byToken[f.Token]++
		if byToken[f.Token] == 2 {
			errs = append(errs, fmt.Errorf("render: template %q: token %q bound to several fields", t.Name, f.Token))
		}
		if !strings.Contains(t.Row, f.Token) {
			errs = append(errs, fmt.Errorf("render: template %q: token %q missing from row", t.Name, f.Token))
		}
	}
	for _, tok := range tokenPattern.FindAllString(t.Row, -1) {
		if byToken[tok] == 0 {
			errs = append(errs, fmt.Errorf("render: template %q: token %q has no field", t.Name, tok))
			byToken[tok] = -1
		}
	}
	return errors.Join(errs...)
}

// Unresolved lists the placeholder tokens still present in out.
func Unresolved(out string) []string {
	return tokenPattern.FindAllString(out, -1)
}

// Table builds a table template from an ordered field list. The header row
// lists the field titles in order; each record becomes one <tr> whose title
// attribute repeats the first field.
func Table(name, class string, fields []Field) Template {
	var hdr, row strings.Builder

	fmt.Fprintf(&hdr, "<table width=\"100%%\" class=\"%s\">\n", html.EscapeString(class))
	hdr.WriteString("    <thead>\n        <tr>\n")
	for _, f := range fields {
		fmt.Fprintf(&hdr, "            <th>%s</th>\n", html.EscapeString(f.Title))
	}
	hdr.WriteString("        </tr>\n    </thead>\n    <tbody>\n")

	if len(fields) > 0 {
		fmt.Fprintf(&row, "        <tr title=\"%s\">\n", fields[0].Token)
	} else {
		row.WriteString("        <tr>\n")
	}
	for _, f := range fields {
		fmt.Fprintf(&row, "            <td>%s</td>\n", f.Token)
	}
	row.WriteString("        </tr>\n")

	return Template{
		Name:   name,
		Header: hdr.String(),
		Row:    row.String(),
		Footer: "    </tbody>\n</table>\n",
		Fields: fields,
	}
}
