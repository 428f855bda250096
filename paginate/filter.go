package paginate

import (
	"fmt"
	"maps"
	"reflect"
	"strings"

	"golang.org/x/text/cases"

	"github.com/hmanprod/fleetmada-sub008/internal"
)

// Filters maps a field name to the value it must equal
type Filters map[string]any

// Active returns the criteria that take part in matching. Nil and zero
// values are dropped. It returns nil when no criterion is active.
func (f Filters) Active() Filters {
	var active Filters
	for k, v := range f {
		if internal.IsEmpty(v) {
			continue
		}
		if active == nil {
			active = make(Filters, len(f))
		}
		active[k] = v
	}
	return active
}

// Clone returns a shallow copy
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// Matcher is the combined search and filter predicate. It is not safe for
// concurrent use.
type Matcher[T any] struct {
	query   string
	filters Filters
	fields  []string
	access  Accessor[T]
	fold    cases.Caser
}

// NewMatcher builds a predicate for the given query and filters. The query
// is matched as a case-insensitive substring of any of fields.
func NewMatcher[T any](query string, filters Filters, fields []string, access Accessor[T]) *Matcher[T] {
	if access == nil {
		access = ReflectAccessor[T]()
	}
	m := &Matcher[T]{
		filters: filters.Active(),
		fields:  fields,
		access:  access,
		fold:    cases.Fold(),
	}
	if query != "" {
		m.query = m.fold.String(query)
	}
	return m
}

// Empty reports whether the matcher accepts every item
func (m *Matcher[T]) Empty() bool {
	return m.query == "" && len(m.filters) == 0
}

// Match reports whether item passes the search and every active filter
func (m *Matcher[T]) Match(item T) bool {
	if m.query != "" && !m.matchSearch(item) {
		return false
	}
	for field, want := range m.filters {
		got, ok := m.access(item, field)
		if !ok || !equal(got, want) {
			return false
		}
	}
	return true
}

func (m *Matcher[T]) matchSearch(item T) bool {
	for _, field := range m.fields {
		v, ok := m.access(item, field)
		if !ok {
			continue
		}
		s, ok := asString(v)
		if !ok || s == "" {
			continue
		}
		if strings.Contains(m.fold.String(s), m.query) {
			return true
		}
	}
	return false
}

// Filter returns the items matching query and filters, in their original
// order. With no query and no active filter it returns items unchanged.
func Filter[T any](items []T, query string, filters Filters, fields []string, access Accessor[T]) []T {
	m := NewMatcher(query, filters, fields, access)
	if m.Empty() {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if m.Match(item) {
			out = append(out, item)
		}
	}
	return out
}

// asString returns the string held by v, following pointers and named string types
func asString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

// equal compares a field value with a criterion. Values of the same kind
// family compare by value, so a named string type equals a plain string.
func equal(got, want any) bool {
	g, w := deref(reflect.ValueOf(got)), deref(reflect.ValueOf(want))
	if !g.IsValid() || !w.IsValid() {
		return !g.IsValid() && !w.IsValid()
	}
	switch {
	case g.Kind() == reflect.String && w.Kind() == reflect.String:
		return g.String() == w.String()
	case g.Kind() == reflect.Bool && w.Kind() == reflect.Bool:
		return g.Bool() == w.Bool()
	case g.CanInt() && w.CanInt():
		return g.Int() == w.Int()
	case g.CanUint() && w.CanUint():
		return g.Uint() == w.Uint()
	case isNumber(g) && isNumber(w):
		return toFloat(g) == toFloat(w)
	}
	return reflect.DeepEqual(g.Interface(), w.Interface())
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isNumber(v reflect.Value) bool {
	return v.CanInt() || v.CanUint() || v.CanFloat()
}

func toFloat(v reflect.Value) float64 {
	switch {
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
