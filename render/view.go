package render

// View is the display state carried between renders. It replaces a
// process-wide "last displayed record": callers own it and pass it along.
// The zero value is an empty view.
type View struct {
	last *Record
}

// Last returns the last record shown by RenderOne.
func (v View) Last() (Record, bool) {
	if v.last == nil {
		return Record{}, false
	}
	return *v.last, true
}

// Remember returns a copy of v with rec as the last displayed record.
func (v View) Remember(rec Record) View {
	return View{last: &rec}
}
