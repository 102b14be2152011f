// FILE: lixenwraith/layerconf/validate.go
package layerconf

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule constrains one path of a merged snapshot.
// A Path starting with "^" is a regular expression matched against every
// dotted path in the snapshot (lower-case); otherwise it is a dotted path.
// Type and OneOf apply to each element when the value is a list and Type
// is not KindList itself.
type Rule struct {
	Path      string
	MustExist bool
	OneOf     []any
	Type      Kind // KindInvalid accepts any kind
}

// Logging and storage domains checked by DefaultRules.
var (
	LoggingTypes  = []string{"default", "colored", "google"}
	LoggingLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}
	StorageScopes = []string{
		"https://www.googleapis.com/auth/devstorage.read_only",
		"https://www.googleapis.com/auth/devstorage.read_write",
		"https://www.googleapis.com/auth/devstorage.full_control",
	}
	StorageAuthentications = []string{"default", "metadata"}
)

// DefaultRules returns the rules every project configuration must satisfy.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 12)
	for _, p := range []string{"logging.type", "logging.level", "logging.message_format", "logging.timestamp_format", "logging.loggers"} {
		rules = append(rules, Rule{Path: p, MustExist: true})
	}
	return append(rules,
		Rule{Path: "logging.type", MustExist: true, OneOf: anySlice(LoggingTypes)},
		Rule{Path: "logging.level", MustExist: true, OneOf: anySlice(LoggingLevels)},
		Rule{Path: `^logging\.loggers\.`, OneOf: anySlice(LoggingLevels)},
		Rule{Path: "storage.scopes", Type: KindList},
		Rule{Path: "storage.scopes", OneOf: anySlice(StorageScopes)},
		Rule{Path: "storage.temp_bucket", MustExist: true, Type: KindString},
		Rule{Path: "storage.cache_bucket", MustExist: true, Type: KindString},
		Rule{Path: "storage.authentication", MustExist: true, OneOf: anySlice(StorageAuthentications)},
	)
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Validate checks rules in order and returns the first violation as a
// *ValidationError. A malformed rule is reported as a plain error.
func Validate(s *Snapshot, rules []Rule) error {
	for _, r := range rules {
		if err := r.check(s); err != nil {
			return err
		}
	}
	return nil
}

func (r Rule) check(s *Snapshot) error {
	if !strings.HasPrefix(r.Path, "^") {
		val, found := s.lookup(r.Path)
		if !found {
			if r.MustExist {
				return &ValidationError{Path: strings.ToLower(r.Path), Reason: "must exist"}
			}
			return nil
		}
		return r.checkValue(strings.ToLower(r.Path), val)
	}

	re, err := regexp.Compile(r.Path)
	if err != nil {
		return fmt.Errorf("invalid rule pattern %q: %w", r.Path, err)
	}
	matched := false
	for _, p := range s.Paths() {
		lp := strings.ToLower(p)
		if !re.MatchString(lp) {
			continue
		}
		matched = true
		val, _ := s.lookup(p)
		if err := r.checkValue(lp, val); err != nil {
			return err
		}
	}
	if !matched && r.MustExist {
		return &ValidationError{Path: r.Path, Reason: "must exist"}
	}
	return nil
}

func (r Rule) checkValue(path string, val any) error {
	if r.Type == KindList {
		if _, ok := val.([]any); !ok {
			return &ValidationError{Path: path, Domain: "type " + KindList.String(), Value: val, Reason: "wrong type"}
		}
	}

	items := []any{val}
	if list, ok := val.([]any); ok {
		items = list
	}

	for _, item := range items {
		if r.Type != KindInvalid && r.Type != KindList && KindOf(item) != r.Type {
			return &ValidationError{Path: path, Domain: "type " + r.Type.String(), Value: val, Reason: "wrong type"}
		}
		if len(r.OneOf) > 0 && !r.allows(item) {
			return &ValidationError{Path: path, Domain: r.domain(), Value: val, Reason: "value not allowed"}
		}
	}
	return nil
}

func (r Rule) allows(item any) bool {
	for _, allowed := range r.OneOf {
		norm, err := normalize(allowed)
		if err != nil {
			continue
		}
		if valuesEqual(item, norm) {
			return true
		}
	}
	return false
}

func (r Rule) domain() string {
	parts := make([]string, len(r.OneOf))
	for i, v := range r.OneOf {
		parts[i] = fmt.Sprint(v)
	}
	return "one of [" + strings.Join(parts, ", ") + "]"
}
