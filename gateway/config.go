package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the declarative route table, loaded once at start.
//
//	listen: ":8001"
//	routes:
//	  - url: /badminton
//	    target: http://localhost:8002
//	    change_origin: true
//	    path_rewrite:
//	      "^/badminton": ""
//
// JSON documents with the same keys parse too.
type Config struct {
	Listen string        `yaml:"listen" json:"listen"`
	Routes []RouteConfig `yaml:"routes" json:"routes"`
}

// RouteConfig is one entry of the route table as written in the file.
type RouteConfig struct {
	URL          string   `yaml:"url" json:"url"`
	Target       string   `yaml:"target" json:"target"`
	ChangeOrigin *bool    `yaml:"change_origin" json:"change_origin"`
	PathRewrite  Rewrites `yaml:"path_rewrite" json:"path_rewrite"`
}

// RewriteConfig is a single pattern → replacement pair.
type RewriteConfig struct {
	Pattern     string
	Replacement string
}

// Rewrites keeps path_rewrite entries in document order, which a Go map
// would lose. A nil value means "strip the prefix".
type Rewrites []RewriteConfig

// UnmarshalYAML decodes a mapping node pair by pair.
func (rw *Rewrites) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("path_rewrite: expected a mapping of pattern to replacement, got line %d", value.Line)
	}
	out := make(Rewrites, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("path_rewrite %q: replacement must be a string (line %d)", k.Value, v.Line)
		}
		out = append(out, RewriteConfig{Pattern: k.Value, Replacement: v.Value})
	}
	*rw = out
	return nil
}

// DefaultConfig mirrors the single route of the MS Plantilla deployment.
func DefaultConfig() *Config {
	return &Config{
		Listen: ":8001",
		Routes: []RouteConfig{{
			URL:    "/badminton",
			Target: "http://localhost:8002",
		}},
	}
}

// ParseConfig decodes a YAML or JSON route table. It does not validate;
// call Compile (or New) for that.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("gateway: parse config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads and parses the route table at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gateway: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the whole table and reports every problem at once.
func (c *Config) Validate() error {
	_, err := c.Compile()
	return err
}

// Compile validates the table and turns it into immutable Rules.
// Errors are *RuleError values joined with errors.Join.
func (c *Config) Compile() ([]Rule, error) {
	if len(c.Routes) == 0 {
		return nil, errors.New("gateway: config has no routes")
	}

	var errs []error
	rules := make([]Rule, 0, len(c.Routes))
	for i, rc := range c.Routes {
		rule, err := compileRoute(i, rc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, prev := range rules {
			if matchPrefix(prev.Prefix, rule.Prefix) {
				errs = append(errs, &RuleError{Index: i, Prefix: rule.Prefix, Field: "url",
					Cause: &ErrShadowed{By: prev.Prefix, ByIndex: prev.index}})
				break
			}
		}
		rules = append(rules, rule)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rules, nil
}

func compileRoute(i int, rc RouteConfig) (Rule, error) {
	prefix := rc.URL
	switch {
	case prefix == "":
		return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "url", Cause: errors.New("empty prefix")}
	case !strings.HasPrefix(prefix, "/"):
		return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "url", Cause: errors.New("prefix must start with /")}
	case prefix != "/" && strings.HasSuffix(prefix, "/"):
		return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "url", Cause: errors.New("prefix must not end with /")}
	case strings.ContainsAny(prefix, "?#"):
		return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "url", Cause: errors.New("prefix must be a path only")}
	}

	target, err := url.Parse(rc.Target)
	if err != nil {
		return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "target", Cause: err}
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "target",
			Cause: fmt.Errorf("scheme %q is not http or https", target.Scheme)}
	}
	if target.Host == "" {
		return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "target", Cause: errors.New("missing host")}
	}

	rewrites := rc.PathRewrite
	if rewrites == nil {
		rewrites = Rewrites{{Pattern: "^" + regexp.QuoteMeta(prefix), Replacement: ""}}
	}
	compiled := make([]Rewrite, 0, len(rewrites))
	for _, rw := range rewrites {
		re, err := regexp.Compile(rw.Pattern)
		if err != nil {
			return Rule{}, &RuleError{Index: i, Prefix: prefix, Field: "path_rewrite", Cause: err}
		}
		compiled = append(compiled, Rewrite{Pattern: re, Replacement: rw.Replacement})
	}

	changeOrigin := true
	if rc.ChangeOrigin != nil {
		changeOrigin = *rc.ChangeOrigin
	}

	return Rule{
		Prefix:       prefix,
		Target:       target,
		PathRewrite:  compiled,
		ChangeOrigin: changeOrigin,
		index:        i,
	}, nil
}
