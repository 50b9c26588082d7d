// Package policy decides whether a parsed address is welcome.
package policy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/moriyoshi/addrspec"
	"github.com/moriyoshi/addrspec/internal/expand"
	"github.com/moriyoshi/addrspec/internal/logging"
)

type Action int

const (
	Accept Action = iota
	Reject
)

func (a Action) String() string {
	switch a {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "accept":
		*a = Accept
	case "reject":
		*a = Reject
	default:
		return fmt.Errorf("unknown action %q", b)
	}
	return nil
}

// Rule matches an address when both patterns match. A nil pattern matches
// anything.
type Rule struct {
	LocalPart *regexp.Regexp
	Domain    *regexp.Regexp
	Action    Action
}

func (r Rule) Match(a *addrspec.Address) bool {
	if r.LocalPart != nil && !r.LocalPart.MatchString(a.LocalPart()) {
		return false
	}
	if r.Domain != nil && !r.Domain.MatchString(a.Domain()) {
		return false
	}
	return true
}

func expander(key string) string {
	if strings.HasPrefix(key, "env.") {
		return os.Getenv(key[4:])
	}
	return ""
}

func compilePattern(s string) (*regexp.Regexp, error) {
	s = expand.Expand(s, expander)
	if s == "" {
		return nil, nil
	}
	return regexp.Compile(s)
}

func (r *Rule) UnmarshalStructure(v map[string]interface{}) error {
	var rule Rule
	for _, key := range []string{"local_part", "domain"} {
		raw, ok := v[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("key '%s' is not a string", key)
		}
		p, err := compilePattern(s)
		if err != nil {
			return fmt.Errorf("key '%s': %w", key, err)
		}
		if key == "local_part" {
			rule.LocalPart = p
		} else {
			rule.Domain = p
		}
	}
	if action, ok := v["action"].(string); !ok {
		return fmt.Errorf("key 'action' is not a string")
	} else if err := rule.Action.UnmarshalText([]byte(action)); err != nil {
		return err
	}
	*r = rule
	return nil
}

type Rules []Rule

func (rs *Rules) UnmarshalJSON(b []byte) error {
	var rules interface{}
	err := json.Unmarshal(b, &rules)
	if err != nil {
		return err
	}
	return rs.unmarshalInner(rules)
}

func (rs *Rules) UnmarshalYAML(n *yaml.Node) error {
	var rules interface{}
	err := n.Decode(&rules)
	if err != nil {
		return err
	}
	return rs.unmarshalInner(rules)
}

func (rs *Rules) unmarshalInner(rules interface{}) error {
	switch rules := rules.(type) {
	case map[string]interface{}:
		// mappings carry no order of their own
		keys := make([]string, 0, len(rules))
		for k := range rules {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_rs := make([]Rule, 0, len(rules))
		for _, domain := range keys {
			action, ok := rules[domain].(string)
			if !ok {
				return fmt.Errorf("value for key %q is not a string", domain)
			}
			var r Rule
			err := r.UnmarshalStructure(map[string]interface{}{"domain": domain, "action": action})
			if err != nil {
				return err
			}
			_rs = append(_rs, r)
		}
		*rs = _rs
	case []interface{}:
		_rs := make([]Rule, 0, len(rules))
		for i, r := range rules {
			if r, ok := r.(map[string]interface{}); !ok {
				return fmt.Errorf("rule #%d is not an object", i)
			} else {
				var rule Rule
				err := rule.UnmarshalStructure(r)
				if err != nil {
					return fmt.Errorf("rule #%d: %w", i, err)
				}
				_rs = append(_rs, rule)
			}
		}
		*rs = _rs
	default:
		return fmt.Errorf("rules is not an object or an array")
	}
	return nil
}

type Policy struct {
	Rules         Rules
	defaultAction Action
	logger        *slog.Logger
}

type OptionFunc func(*Policy) (*Policy, error)

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(p *Policy) (*Policy, error) {
		p.logger = logging.OrDiscard(logger)
		return p, nil
	}
}

// WithDefaultAction sets the action taken when no rule matches.
func WithDefaultAction(action Action) OptionFunc {
	return func(p *Policy) (*Policy, error) {
		if action != Accept && action != Reject {
			return nil, fmt.Errorf("invalid default action: %v", action)
		}
		p.defaultAction = action
		return p, nil
	}
}

func NewFromYAML(b []byte, options ...OptionFunc) (*Policy, error) {
	var rs Rules
	err := yaml.Unmarshal(b, &rs)
	if err != nil {
		return nil, err
	}
	return New(rs, options...)
}

// NewFromFile reads rules from path. YAML being a superset of JSON, both
// formats are accepted.
func NewFromFile(path string, options ...OptionFunc) (*Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := NewFromYAML(b, options...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func New(rs Rules, options ...OptionFunc) (*Policy, error) {
	p := &Policy{
		Rules:  rs,
		logger: logging.Discard(),
	}
	for _, option := range options {
		var err error
		p, err = option(p)
		if err != nil {
			return nil, err
		}
	}
	p.logger.Info("policy created", slog.Int("rules", len(rs)), slog.String("default", p.defaultAction.String()))
	for i, rule := range rs {
		p.logger.Debug(
			"rule",
			slog.Int("precedence", i),
			slog.String("local_part", patternString(rule.LocalPart)),
			slog.String("domain", patternString(rule.Domain)),
			slog.String("action", rule.Action.String()),
		)
	}
	return p, nil
}

func patternString(r *regexp.Regexp) string {
	if r == nil {
		return "*"
	}
	return r.String()
}

// Evaluate returns the action of the first rule matching a along with its
// index, or the default action and -1 when none does.
func (p *Policy) Evaluate(a *addrspec.Address) (Action, int) {
	for i, rule := range p.Rules {
		if rule.Match(a) {
			p.logger.Debug("matched", slog.String("address", a.String()), slog.Int("precedence", i), slog.String("action", rule.Action.String()))
			return rule.Action, i
		}
	}
	return p.defaultAction, -1
}
