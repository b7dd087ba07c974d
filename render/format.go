package render

import (
	"strconv"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cast"
)

// Formatter turns a raw field value into the text inserted in a template.
// The result is inserted verbatim, so formatters must return safe HTML.
type Formatter func(v any) string

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Sanitize strips every tag from s and escapes what is left.
func Sanitize(s string) string {
	return strictPolicy().Sanitize(s)
}

// Text is the default Formatter: string coercion, then Sanitize.
func Text(v any) string {
	return Sanitize(cast.ToString(v))
}

// Fixed formats numeric values with the given number of decimals. Values
// that are not numbers fall back to Text.
func Fixed(decimals int) Formatter {
	return func(v any) string {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return Text(v)
		}
		return strconv.FormatFloat(f, 'f', decimals, 64)
	}
}
