// FILE: lixenwraith/layerconf/register.go
package layerconf

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// SourceDefault represents values taken from a defaults struct
const SourceDefault Source = "default"

// WithDefaults sets a struct whose fields form the lowest layer, below YAML.
// Field names come from the yaml tag (or the lower-cased field name);
// nested structs become nested mappings and nil pointers are skipped.
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// StructDefaults converts a struct (or struct pointer) into a canonical
// configuration tree using the same tags Scan reads.
func StructDefaults(structWithDefaults any) (map[string]any, error) {
	v := reflect.ValueOf(structWithDefaults)

	// Handle pointer or direct struct value
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("defaults require a non-nil struct pointer or value")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("defaults require a struct or struct pointer, got %T", structWithDefaults)
	}

	var errors []string
	tree := make(map[string]any)
	registerFields(v, tree, "", &errors)

	if len(errors) > 0 {
		return nil, fmt.Errorf("failed to register %d field(s): %s", len(errors), strings.Join(errors, "; "))
	}

	return canonicalize(tree)
}

// registerFields copies exported fields of v into tree, recursing into nested structs.
func registerFields(v reflect.Value, tree map[string]any, fieldPath string, errors *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get(ScanTagName)
		if tag == "-" {
			continue // Skip this field
		}

		key := strings.ToLower(field.Name)
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}
		if err := checkKey(key, "defaults"); err != nil {
			*errors = append(*errors, fmt.Sprintf("field %s%s: %v", fieldPath, field.Name, err))
			continue
		}

		// Durations are kept in the string form the decode hook reads back
		if d, ok := fieldValue.Interface().(time.Duration); ok {
			tree[key] = d.String()
			continue
		}

		isStruct := fieldValue.Kind() == reflect.Struct && fieldValue.Type() != reflect.TypeOf(time.Time{})
		isPtrToStruct := fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct

		if isStruct || isPtrToStruct {
			nestedValue := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					// Skip nil pointers, as their paths aren't well-defined defaults.
					continue
				}
				nestedValue = fieldValue.Elem()
			}

			nested := make(map[string]any)
			registerFields(nestedValue, nested, fieldPath+field.Name+".", errors)
			tree[key] = nested
			continue
		}

		value, err := normalize(fieldValue.Interface())
		if err != nil {
			*errors = append(*errors, fmt.Sprintf("field %s%s: %v", fieldPath, field.Name, err))
			continue
		}
		tree[key] = value
	}
}
