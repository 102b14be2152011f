// FILE: lixenwraith/layerconf/json.go
package layerconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// decodeJSON decodes a @json payload. Comments and trailing commas are
// accepted. Integral numbers decode to int64, all others to float64.
func decodeJSON(payload string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(payload))))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return fromJSON(v)
}

func fromJSON(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := t.Int64(); err == nil {
				return i, nil
			}
		}
		return t.Float64()
	case []any:
		for i, e := range t {
			ne, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			t[i] = ne
		}
		return t, nil
	case map[string]any:
		for k, e := range t {
			ne, err := fromJSON(e)
			if err != nil {
				return nil, err
			}
			t[k] = ne
		}
		return t, nil
	}
	return v, nil
}

// encodeJSON writes v compactly. Floats always carry a fraction or an
// exponent so that decodeJSON returns them as floats again.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func appendJSON(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("non-finite float %v has no JSON form", t)
		}
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case string:
		buf.WriteString(quoteJSON(t))
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quoteJSON(k))
			buf.WriteByte(':')
			if err := appendJSON(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type %T for JSON encoding", v)
	}
	return nil
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	return strings.TrimSuffix(buf.String(), "\n")
}
