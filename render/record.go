package render

// Record is one backend entity, e.g. a persona. The field set is open-ended;
// templates only project the fields they name.
type Record struct {
	Data map[string]any `json:"data"`
}

// NewRecord wraps data in a Record.
func NewRecord(data map[string]any) Record {
	return Record{Data: data}
}

// Field returns the raw value of name and whether the record has it.
func (r Record) Field(name string) (any, bool) {
	if r.Data == nil {
		return nil, false
	}
	v, ok := r.Data[name]
	return v, ok
}
