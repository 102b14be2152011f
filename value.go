// FILE: lixenwraith/layerconf/value.go
package layerconf

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Kind is the normalized type of a configuration value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

var kindNames = [...]string{"invalid", "null", "bool", "int", "float", "string", "list", "map"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// KindOf returns the kind of a normalized value, or KindInvalid.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []any:
		return KindList
	case map[string]any:
		return KindMap
	}
	return KindInvalid
}

// ConverterFunc turns the payload of a tagged token into a value.
type ConverterFunc func(payload string) (any, error)

// Parser converts textual tokens from environment variables and
// command-line arguments into typed values.
//
// Tagged tokens ("@int 5", "@json [1]") are interpreted strictly as their
// tag says. Untagged tokens go through an ordered chain of probes and end
// up as plain strings when nothing else matches.
type Parser struct {
	converters map[string]ConverterFunc
}

// NewParser returns a parser with the standard tags registered.
func NewParser() *Parser {
	p := &Parser{converters: make(map[string]ConverterFunc)}
	p.Register("@int", convertInt)
	p.Register("@float", convertFloat)
	p.Register("@bool", convertBool)
	p.Register("@str", func(payload string) (any, error) { return payload, nil })
	p.Register("@none", func(string) (any, error) { return nil, nil })
	p.Register("@json", decodeJSON)
	p.Register("@yaml_file", convertYAMLFile)
	return p
}

// Register adds or replaces the converter for a tag. Tags must start with '@'.
func (p *Parser) Register(tag string, fn ConverterFunc) {
	if !strings.HasPrefix(tag, "@") || fn == nil {
		return
	}
	p.converters[tag] = fn
}

// Parse returns the typed value of token.
func (p *Parser) Parse(token string) (any, error) {
	if strings.HasPrefix(token, "@") {
		tag, payload, _ := strings.Cut(token, " ")
		if fn, ok := p.converters[tag]; ok {
			v, err := fn(payload)
			if err != nil {
				return nil, &ParseError{Token: token, Tag: tag, Err: err}
			}
			nv, err := normalize(v)
			if err != nil {
				return nil, &ParseError{Token: token, Tag: tag, Err: err}
			}
			return nv, nil
		}
	}

	for _, probe := range untaggedProbes {
		if v, ok := probe(token); ok {
			return v, nil
		}
	}
	return token, nil
}

var defaultParser = NewParser()

// ParseValue parses token with the default parser.
func ParseValue(token string) (any, error) {
	return defaultParser.Parse(token)
}

func convertInt(payload string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
}

func convertFloat(payload string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(payload), 64)
}

func convertBool(payload string) (any, error) {
	return strconv.ParseBool(strings.TrimSpace(payload))
}

func convertYAMLFile(payload string) (any, error) {
	return LoadDocument(strings.TrimSpace(payload))
}

// probe recognizes one untagged literal form.
type probe func(token string) (any, bool)

var untaggedProbes = []probe{probeBool, probeInt, probeFloat, probeQuoted, probeInline}

var (
	intPattern     = regexp.MustCompile(`^[+-]?(0|[1-9][0-9]*)$`)
	floatPattern   = regexp.MustCompile(`^[+-]?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
	specialPattern = regexp.MustCompile(`^[+-]?(inf|nan)$`)
)

func probeBool(token string) (any, bool) {
	switch token {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

func probeInt(token string) (any, bool) {
	if !intPattern.MatchString(token) {
		return nil, false
	}
	i, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return nil, false
	}
	return i, true
}

func probeFloat(token string) (any, bool) {
	switch {
	case specialPattern.MatchString(token):
	case floatPattern.MatchString(token) && strings.ContainsAny(token, ".eE"):
	default:
		return nil, false
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

// probeQuoted accepts TOML basic and literal strings.
func probeQuoted(token string) (any, bool) {
	if len(token) < 2 {
		return nil, false
	}
	first, last := token[0], token[len(token)-1]
	if first != last || (first != '"' && first != '\'') {
		return nil, false
	}
	v, ok := decodeTOMLValue(token)
	if !ok {
		return nil, false
	}
	s, ok := v.(string)
	return s, ok
}

// probeInline accepts TOML arrays and inline tables.
func probeInline(token string) (any, bool) {
	if len(token) < 2 {
		return nil, false
	}
	first, last := token[0], token[len(token)-1]
	if !(first == '[' && last == ']') && !(first == '{' && last == '}') {
		return nil, false
	}
	v, ok := decodeTOMLValue(token)
	if !ok {
		return nil, false
	}
	nv, err := normalize(v)
	if err != nil {
		return nil, false
	}
	return nv, true
}

func decodeTOMLValue(token string) (any, bool) {
	doc := make(map[string]any)
	if _, err := toml.Decode("v = "+token, &doc); err != nil {
		return nil, false
	}
	v, ok := doc["v"]
	if !ok || len(doc) != 1 || containsTime(v) {
		return nil, false
	}
	return v, true
}

func containsTime(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case []any:
		for _, e := range t {
			if containsTime(e) {
				return true
			}
		}
	case []map[string]any:
		for _, e := range t {
			if containsTime(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range t {
			if containsTime(e) {
				return true
			}
		}
	}
	return false
}

// normalize converts v into the value model (nil, bool, int64, float64,
// string, []any, map[string]any) and lower-cases every map key.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, int64, float64, string:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			ne, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if err := putNormalized(out, k, e); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			ne, err := normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if err := putNormalized(out, fmt.Sprint(iter.Key().Interface()), iter.Value().Interface()); err != nil {
				return nil, err
			}
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("unsupported configuration value type %T", v)
}

func putNormalized(out map[string]any, key string, v any) error {
	if err := checkSegment(key, ""); err != nil {
		return err
	}
	lk := strings.ToLower(key)
	if _, dup := out[lk]; dup {
		return &InvalidKeyError{Key: key, Reason: "duplicates another key after case normalization"}
	}
	nv, err := normalize(v)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	out[lk] = nv
	return nil
}

// canonicalize normalizes a root document: root keys upper-case, nested lower-case.
func canonicalize(doc map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if err := checkSegment(k, ""); err != nil {
			return nil, err
		}
		uk := strings.ToUpper(k)
		if _, dup := out[uk]; dup {
			return nil, &InvalidKeyError{Key: k, Reason: "duplicates another key after case normalization"}
		}
		nv, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[uk] = nv
	}
	return out, nil
}

// valuesEqual reports whether a and b are equal values of the same type.
// NaN equals NaN so that non-finite floats survive round-trip checks.
func valuesEqual(a, b any) bool {
	switch at := a.(type) {
	case float64:
		bt, ok := b.(float64)
		if !ok {
			return false
		}
		if math.IsNaN(at) {
			return math.IsNaN(bt)
		}
		return at == bt
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !valuesEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, ok := bt[k]
			if !ok || !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}
