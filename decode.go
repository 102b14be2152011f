// FILE: lixenwraith/layerconf/decode.go
package layerconf

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ScanTagName is the struct tag read by Scan.
const ScanTagName = "yaml"

// Scan decodes the mapping at path into target, a non-nil pointer to a
// struct or map. An empty path decodes the whole snapshot with lower-case
// root keys. Fields are matched by their yaml tag.
func (s *Snapshot) Scan(path string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("scan target must be non-nil pointer, got %T", target)
	}

	var section any
	if path == "" {
		section = s.AsMap()
	} else {
		val, err := s.Get(path)
		if err != nil {
			return err
		}
		section = val
	}

	sectionMap, ok := section.(map[string]any)
	if !ok {
		if section != nil {
			return fmt.Errorf("path %q refers to non-map value (type %s)", path, typeName(section))
		}
		sectionMap = make(map[string]any) // null section
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          ScanTagName,
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
		ZeroFields:       true,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", path, err)
	}
	return nil
}

// decodeHook returns the composite decode hook for all type conversions
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		// Network types
		stringToNetIPHookFunc(),
		stringToURLHookFunc(),

		// Standard hooks
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}
		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		u, err := url.Parse(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}
