package gateway

import (
	"net/url"
	"regexp"
	"strings"
)

// Rewrite replaces matches of Pattern in the request path.
type Rewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Rule is a compiled route: requests whose path starts with Prefix are
// forwarded to Target after PathRewrite is applied.
type Rule struct {
	Prefix       string
	Target       *url.URL
	PathRewrite  []Rewrite
	ChangeOrigin bool

	index int
}

// Match reports whether path falls under the rule's prefix. Matching is
// case-sensitive and stops at segment boundaries: /badminton matches
// /badminton and /badminton/x but not /badmintonx.
func (r Rule) Match(path string) bool {
	return matchPrefix(r.Prefix, path)
}

// RewritePath applies the rewrites in order. An empty result becomes "/".
func (r Rule) RewritePath(path string) string {
	for _, rw := range r.PathRewrite {
		path = rw.Pattern.ReplaceAllString(path, rw.Replacement)
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func matchPrefix(prefix, path string) bool {
	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
