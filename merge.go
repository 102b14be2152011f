// FILE: lixenwraith/layerconf/merge.go
package layerconf

import (
	"fmt"
	"log/slog"
	"reflect"
)

// MergeMethod defines how two values at the same key path are combined.
type MergeMethod int

const (
	// MergeFirst keeps the value already in the accumulator
	MergeFirst MergeMethod = iota
	// MergeLast replaces the accumulated value with the incoming one
	MergeLast
	// MergeUnion concatenates lists and merges maps key by key
	MergeUnion
)

func (m MergeMethod) String() string {
	switch m {
	case MergeFirst:
		return "FIRST"
	case MergeLast:
		return "LAST"
	case MergeUnion:
		return "UNION"
	}
	return fmt.Sprintf("MergeMethod(%d)", int(m))
}

// Merger deep-merges nested maps under a per-kind policy.
// Scalars only support MergeFirst and MergeLast.
type Merger struct {
	Scalars MergeMethod
	Lists   MergeMethod
	Maps    MergeMethod
	Logger  *slog.Logger
}

// DefaultMerger layers documents: scalars overwrite, lists concatenate, maps recurse.
func DefaultMerger() Merger {
	return Merger{Scalars: MergeLast, Lists: MergeUnion, Maps: MergeUnion}
}

// OverrideMerger applies override sources: scalars and lists overwrite, maps recurse.
func OverrideMerger() Merger {
	return Merger{Scalars: MergeLast, Lists: MergeLast, Maps: MergeUnion}
}

// Merge merges docs left to right with DefaultMerger.
func Merge(docs ...map[string]any) (map[string]any, error) {
	return DefaultMerger().Apply(docs...)
}

// Apply merges docs left to right into a new map. Inputs are not modified.
func (m Merger) Apply(docs ...map[string]any) (map[string]any, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	result := make(map[string]any)
	for _, doc := range docs {
		if err := m.merge(result, doc, ""); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (m Merger) check() error {
	if m.Scalars != MergeFirst && m.Scalars != MergeLast {
		return fmt.Errorf("%w: %s for scalars", ErrInvalidMergeMethod, m.Scalars)
	}
	for _, method := range []MergeMethod{m.Lists, m.Maps} {
		if method < MergeFirst || method > MergeUnion {
			return fmt.Errorf("%w: %s", ErrInvalidMergeMethod, method)
		}
	}
	return nil
}

func (m Merger) merge(acc, doc map[string]any, prefix string) error {
	for key, incoming := range doc {
		path := joinPath(prefix, key)
		existing, exists := acc[key]
		if !exists {
			acc[key] = deepCopy(incoming)
			continue
		}

		if reflect.TypeOf(existing) != reflect.TypeOf(incoming) {
			m.logger().Error("type mismatch when merging",
				"path", path, "existing", typeName(existing), "incoming", typeName(incoming))
			return &MergeTypeError{Path: path, Existing: existing, Incoming: incoming}
		}

		switch ev := existing.(type) {
		case nil, bool, int64, float64, string:
			m.logger().Debug("merging scalars", "path", path, "method", m.Scalars)
			if m.Scalars == MergeLast {
				acc[key] = incoming
			}
		case []any:
			m.logger().Debug("merging lists", "path", path, "method", m.Lists)
			switch m.Lists {
			case MergeLast:
				acc[key] = deepCopy(incoming)
			case MergeUnion:
				joined := make([]any, 0, len(ev)+len(incoming.([]any)))
				joined = append(joined, ev...)
				joined = append(joined, deepCopy(incoming).([]any)...)
				acc[key] = joined
			}
		case map[string]any:
			m.logger().Debug("merging maps", "path", path, "method", m.Maps)
			switch m.Maps {
			case MergeLast:
				acc[key] = deepCopy(incoming)
			case MergeUnion:
				if err := m.merge(ev, incoming.(map[string]any), path); err != nil {
					return err
				}
			}
		default:
			m.logger().Error("unexpected type to merge", "path", path, "type", typeName(existing))
			return &MergeTypeError{Path: path, Existing: existing, Incoming: incoming}
		}
	}
	return nil
}

func (m Merger) logger() *slog.Logger {
	if m.Logger == nil {
		return discardLogger
	}
	return m.Logger
}

// deepCopy copies lists and maps of the value model; scalars are returned as is.
func deepCopy(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	}
	return v
}
