// FILE: lixenwraith/layerconf/errors.go
package layerconf

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, matched with errors.Is against the typed errors below.
var (
	ErrInvalidKey         = errors.New("invalid configuration key")
	ErrFileNotFound       = errors.New("configuration file not found")
	ErrMissingDimension   = errors.New("missing configuration dimension")
	ErrParse              = errors.New("malformed configuration token")
	ErrMergeType          = errors.New("configuration merge type mismatch")
	ErrValidation         = errors.New("configuration validation failed")
	ErrExport             = errors.New("configuration export failed")
	ErrKeyNotFound        = errors.New("configuration key not found")
	ErrCyclicReference    = errors.New("cyclic $ref in configuration documents")
	ErrBuilderUsed        = errors.New("configuration builder already used")
	ErrInvalidMergeMethod = errors.New("unsupported merge method")
)

// InvalidKeyError reports a key that violates the structural naming rules.
type InvalidKeyError struct {
	Source string // file or source name, may be empty
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid key %q in %s: %s", e.Key, e.Source, e.Reason)
	}
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Unwrap() error { return ErrInvalidKey }

// FileNotFoundError reports a configuration file or directory that does not exist.
type FileNotFoundError struct {
	Path   string
	Reason string
}

func (e *FileNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Path)
	}
	return "missing configuration file " + e.Path
}

func (e *FileNotFoundError) Unwrap() error { return ErrFileNotFound }

// MissingDimensionError reports a required dimension without a value.
type MissingDimensionError struct {
	Name string
}

func (e *MissingDimensionError) Error() string {
	return fmt.Sprintf("missing value for required dimension %q", e.Name)
}

func (e *MissingDimensionError) Unwrap() error { return ErrMissingDimension }

// ParseError reports a tagged token whose payload does not match its tag.
type ParseError struct {
	Token string
	Tag   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s: %v", e.Token, e.Tag, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// MergeTypeError reports two values of different types at the same key path.
type MergeTypeError struct {
	Path     string
	Existing any
	Incoming any
}

func (e *MergeTypeError) Error() string {
	return fmt.Sprintf("type mismatch at %q: cannot merge %s (%v) with %s (%v)",
		e.Path, typeName(e.Existing), e.Existing, typeName(e.Incoming), e.Incoming)
}

func (e *MergeTypeError) Unwrap() error { return ErrMergeType }

// ValidationError reports the first rule violated by a merged snapshot.
type ValidationError struct {
	Path   string
	Domain string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Path, e.Reason)
	if e.Domain != "" {
		fmt.Fprintf(&b, " (expected %s", e.Domain)
		if e.Reason != "must exist" {
			fmt.Fprintf(&b, ", got %v", e.Value)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ExportError signals an exported token that does not reproduce its value.
// It indicates a defect in the exporter, never a user error.
type ExportError struct {
	Path   string
	Value  any
	Token  string
	Parsed string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("internal error exporting %s: value %#v (type %s) exported as %q is parsed as %s",
		e.Path, e.Value, typeName(e.Value), e.Token, e.Parsed)
}

func (e *ExportError) Unwrap() error { return ErrExport }

// KeyNotFoundError reports a lookup of a path absent from a snapshot.
type KeyNotFoundError struct {
	Path string
}

func (e *KeyNotFoundError) Error() string {
	return "configuration key not found: " + e.Path
}

func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

// ResolveError wraps any failure of a build with the sources that were attempted.
type ResolveError struct {
	Sources []string
	Files   []string
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to read configuration %s: %v", strings.Join(e.Sources, ", "), e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
