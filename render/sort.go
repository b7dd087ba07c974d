package render

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

// SortStable returns a copy of records ordered by field. Records with equal
// keys keep their relative order.
//
// Keys are ranked by kind first: missing (or null) fields, then numbers,
// then everything else. Numbers compare as numbers; other values are coerced
// to strings and compared case-insensitively.
func SortStable(records []Record, field string) []Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Record) int {
		va, _ := a.Field(field)
		vb, _ := b.Field(field)
		return compareValues(va, vb)
	})
	return out
}

const (
	kindMissing = iota
	kindNumber
	kindText
)

func kindOf(v any) (int, float64) {
	if v == nil {
		return kindMissing, 0
	}
	if f, ok := number(v); ok {
		return kindNumber, f
	}
	return kindText, 0
}

func compareValues(a, b any) int {
	ka, fa := kindOf(a)
	kb, fb := kindOf(b)
	if c := cmp.Compare(ka, kb); c != 0 {
		return c
	}
	switch ka {
	case kindMissing:
		return 0
	case kindNumber:
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(strings.ToUpper(cast.ToString(a)), strings.ToUpper(cast.ToString(b)))
}

func number(v any) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
	return 0, false
}
