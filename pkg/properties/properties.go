// Package properties provides a read-only key/value view of a single node's
// configuration with typed accessors and defaults.
package properties

import (
	"fmt"
	"sort"
	"strconv"
)

// Properties is an immutable set of string properties. The zero value is
// empty and ready to use.
type Properties struct {
	values map[string]string
}

// New copies values into a new Properties.
func New(values map[string]string) Properties {
	p := Properties{values: make(map[string]string, len(values))}
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

// With returns a copy of p with overrides layered on top.
func (p Properties) With(overrides map[string]string) Properties {
	out := New(p.values)
	for k, v := range overrides {
		out.values[k] = v
	}
	return out
}

// Get returns the value for key and whether it was set. A key set to the
// empty string is reported as present.
func (p Properties) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// GetOr returns the value for key, or def when the key is absent.
func (p Properties) GetOr(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Bool parses key as a boolean, returning def when the key is absent or empty.
func (p Properties) Bool(key string, def bool) (bool, error) {
	v, ok := p.values[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("property %s=%q is not a boolean", key, v)
	}
	return b, nil
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of properties.
func (p Properties) Len() int {
	return len(p.values)
}
