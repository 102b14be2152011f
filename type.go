// File: lixenwraith/layerconf/type.go
package layerconf

import (
	"fmt"
	"strconv"
)

// String retrieves a string value at path.
// Scalars are formatted; null reads as the empty string.
func (s *Snapshot) String(path string) (string, error) {
	val, err := s.Get(path)
	if err != nil {
		return "", err
	}

	switch v := val.(type) {
	case nil:
		return "", nil // Treat null as empty string for convenience
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("cannot convert %s to string for path %s", KindOf(val), path)
}

// Int64 retrieves an int64 value at path.
// Floats are truncated; strings are parsed with base detection.
func (s *Snapshot) Int64(path string) (int64, error) {
	val, err := s.Get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case nil:
		return 0, fmt.Errorf("value for path %s is null, cannot convert to int64", path)
	case int64:
		return v, nil
	case float64:
		return int64(v), nil // Truncate
	case string:
		i, err := strconv.ParseInt(v, 0, 64)
		if err == nil {
			return i, nil
		}
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("cannot convert string %q to int64 for path %s: %w", v, path, err)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %s to int64 for path %s", KindOf(val), path)
}

// Float64 retrieves a float64 value at path.
func (s *Snapshot) Float64(path string) (float64, error) {
	val, err := s.Get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case nil:
		return 0, fmt.Errorf("value for path %s is null, cannot convert to float64", path)
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string %q to float64 for path %s: %w", v, path, err)
		}
		return f, nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	}
	return 0, fmt.Errorf("cannot convert %s to float64 for path %s", KindOf(val), path)
}

// Bool retrieves a boolean value at path.
// Numbers read as true when non-zero.
func (s *Snapshot) Bool(path string) (bool, error) {
	val, err := s.Get(path)
	if err != nil {
		return false, err
	}

	switch v := val.(type) {
	case nil:
		return false, fmt.Errorf("value for path %s is null, cannot convert to bool", path)
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("cannot convert string %q to bool for path %s: %w", v, path, err)
		}
		return b, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	}
	return false, fmt.Errorf("cannot convert %s to bool for path %s", KindOf(val), path)
}

// StringSlice retrieves a list of scalars at path as strings.
func (s *Snapshot) StringSlice(path string) ([]string, error) {
	val, err := s.Get(path)
	if err != nil {
		return nil, err
	}

	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("cannot convert %s to string slice for path %s", KindOf(val), path)
	}

	out := make([]string, len(list))
	for i, e := range list {
		switch v := e.(type) {
		case string:
			out[i] = v
		case int64, float64, bool:
			out[i] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("element %d of path %s is %s, not a scalar", i, path, KindOf(e))
		}
	}
	return out, nil
}
