package gateway

import "fmt"

// RuleError reports an invalid route entry. Index is the position of the
// entry in the config (0-based).
type RuleError struct {
	Index  int
	Prefix string
	Field  string
	Cause  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("gateway: route #%d (%s): %s: %v", e.Index, e.Prefix, e.Field, e.Cause)
}

func (e *RuleError) Unwrap() error { return e.Cause }

// ErrShadowed is the cause of a RuleError whose prefix can never match because
// an earlier rule already captures every path it would see.
type ErrShadowed struct {
	By      string
	ByIndex int
}

func (e *ErrShadowed) Error() string {
	return fmt.Sprintf("shadowed by route #%d (%s); list more specific prefixes first", e.ByIndex, e.By)
}
