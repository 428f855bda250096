package paginate

import (
	"reflect"
	"strings"
	"sync"
)

// Accessor reads the named field from an item. It reports false when the
// item has no such field.
type Accessor[T any] func(item T, field string) (any, bool)

// fieldIndex maps lowercased json names and Go field names to field indexes
type fieldIndex map[string][]int

var fieldIndexes sync.Map // reflect.Type -> fieldIndex

// ReflectAccessor returns an Accessor that resolves fields by their json tag,
// falling back to the Go field name. Map items with string keys are read by key.
// Embedded structs are flattened.
func ReflectAccessor[T any]() Accessor[T] {
	return func(item T, field string) (any, bool) {
		return lookupField(reflect.ValueOf(item), field)
	}
}

func lookupField(v reflect.Value, field string) (any, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(field).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		idx, ok := indexFor(v.Type())[strings.ToLower(field)]
		if !ok {
			return nil, false
		}
		fv, err := v.FieldByIndexErr(idx)
		if err != nil {
			// nil embedded pointer
			return nil, false
		}
		return fv.Interface(), true
	}
	return nil, false
}

func indexFor(t reflect.Type) fieldIndex {
	if cached, ok := fieldIndexes.Load(t); ok {
		return cached.(fieldIndex)
	}
	idx := make(fieldIndex)
	buildIndex(t, nil, idx)
	actual, _ := fieldIndexes.LoadOrStore(t, idx)
	return actual.(fieldIndex)
}

func buildIndex(t reflect.Type, prefix []int, idx fieldIndex) {
	for i := range t.NumField() {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
				buildIndex(ft, path, idx)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" {
			if tag == "-" {
				continue
			}
			name = tag
		}
		// outer fields shadow embedded ones
		key := strings.ToLower(name)
		if existing, ok := idx[key]; !ok || len(existing) > len(path) {
			idx[key] = path
		}
		if goKey := strings.ToLower(f.Name); goKey != key {
			if _, ok := idx[goKey]; !ok {
				idx[goKey] = path
			}
		}
	}
}
