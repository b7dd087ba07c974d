// Package render turns backend records into HTML fragments.
//
// A Template is a header, a row with placeholder tokens and a footer. Which
// fields are shown depends only on the Template passed in: the narrow and
// full persona tables share the same Render function.
package render

import "strings"

// Substitute replaces every occurrence of each field token in tpl.Row with
// the formatted value of that field. Tokens whose field the record does not
// have are left in place.
func Substitute(tpl Template, rec Record) string {
	pairs := make([]string, 0, 2*len(tpl.Fields))
	for _, f := range tpl.Fields {
		v, ok := rec.Field(f.Name)
		if !ok {
			continue
		}
		pairs = append(pairs, f.Token, f.format(v))
	}
	if len(pairs) == 0 {
		return tpl.Row
	}
	return strings.NewReplacer(pairs...).Replace(tpl.Row)
}

// Render concatenates the header, one substituted row per record and the
// footer. When sortField is not empty the records are first sorted with
// SortStable; records itself is never reordered.
func Render(records []Record, tpl Template, sortField string) string {
	if sortField != "" {
		records = SortStable(records, sortField)
	}

	var b strings.Builder
	b.WriteString(tpl.Header)
	for _, r := range records {
		b.WriteString(Substitute(tpl, r))
	}
	b.WriteString(tpl.Footer)
	return b.String()
}

// RenderOne renders a single record wrapped in header and footer and returns
// the view updated to remember it as the last displayed record.
func RenderOne(tpl Template, rec Record, v View) (string, View) {
	return tpl.Header + Substitute(tpl, rec) + tpl.Footer, v.Remember(rec)
}
