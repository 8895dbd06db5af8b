/*
Copyright © 2021 the nc2atmodat authors.
This file is part of nc2atmodat.

nc2atmodat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

nc2atmodat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with nc2atmodat.  If not, see <http://www.gnu.org/licenses/>.
*/

package nc2atmodat

import (
	"fmt"
	"reflect"
)

// Attributes is an ordered set of NetCDF attributes. Values are stored
// as one of the types that can be written to a NetCDF-3 file:
// string, []uint8, []int16, []int32, []float32 or []float64.
type Attributes struct {
	keys []string
	vals map[string]interface{}
}

// NewAttributes returns an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{vals: make(map[string]interface{})}
}

// Keys returns the attribute names in insertion order.
func (a *Attributes) Keys() []string {
	o := make([]string, len(a.keys))
	copy(o, a.keys)
	return o
}

// Len returns the number of attributes.
func (a *Attributes) Len() int { return len(a.keys) }

// Get returns the value of attribute key.
func (a *Attributes) Get(key string) (interface{}, bool) {
	v, ok := a.vals[key]
	return v, ok
}

// String returns the value of attribute key if it holds text.
func (a *Attributes) String(key string) (string, bool) {
	v, ok := a.vals[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set sets attribute key to val, keeping the position of an existing key.
// val is converted to a storable attribute type; an error is returned if
// that is not possible.
func (a *Attributes) Set(key string, val interface{}) error {
	v, err := attributeValue(val)
	if err != nil {
		return fmt.Errorf("nc2atmodat: attribute %s: %w", key, err)
	}
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = v
	return nil
}

// mustSet is Set for values that are known to be storable.
func (a *Attributes) mustSet(key string, val interface{}) {
	if err := a.Set(key, val); err != nil {
		panic(err)
	}
}

// Delete removes attribute key. It reports whether the key was present.
func (a *Attributes) Delete(key string) bool {
	if _, ok := a.vals[key]; !ok {
		return false
	}
	delete(a.vals, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
	return true
}

// Copy returns a deep copy of a.
func (a *Attributes) Copy() *Attributes {
	o := NewAttributes()
	for _, k := range a.keys {
		v := a.vals[k]
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice {
			c := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
			reflect.Copy(c, rv)
			v = c.Interface()
		}
		o.keys = append(o.keys, k)
		o.vals[k] = v
	}
	return o
}

// Merge sets every attribute in b on a, overriding existing values.
func (a *Attributes) Merge(b *Attributes) {
	for _, k := range b.keys {
		a.mustSet(k, b.vals[k])
	}
}

// attributeValue converts v to one of the types supported by NetCDF-3
// attributes. Scalars become one-element slices, integer types widen to
// the nearest supported type and unsigned types that cannot be stored
// exactly become float64.
func attributeValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string, []uint8, []int16, []int32, []float32, []float64:
		return t, nil
	case []string:
		if len(t) == 1 {
			return t[0], nil
		}
	case int8:
		return []int16{int16(t)}, nil
	case int16:
		return []int16{t}, nil
	case int32:
		return []int32{t}, nil
	case int:
		return []int32{int32(t)}, nil
	case int64:
		return []float64{float64(t)}, nil
	case uint8:
		return []uint8{t}, nil
	case uint16:
		return []int32{int32(t)}, nil
	case uint32:
		return []float64{float64(t)}, nil
	case uint64:
		return []float64{float64(t)}, nil
	case float32:
		return []float32{t}, nil
	case float64:
		return []float64{t}, nil
	case bool:
		if t {
			return []int16{1}, nil
		}
		return []int16{0}, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unsupported attribute type %T", v)
	}
	switch rv.Type().Elem().Kind() {
	case reflect.Int8:
		o := make([]int16, rv.Len())
		for i := range o {
			o[i] = int16(rv.Index(i).Int())
		}
		return o, nil
	case reflect.Int, reflect.Uint16:
		o := make([]int32, rv.Len())
		for i := range o {
			o[i] = int32(toFloat(rv.Index(i)))
		}
		return o, nil
	case reflect.Int64, reflect.Uint32, reflect.Uint64:
		o := make([]float64, rv.Len())
		for i := range o {
			o[i] = toFloat(rv.Index(i))
		}
		return o, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %T", v)
}

// toFloat returns the numeric value held by v as a float64.
func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	panic(fmt.Errorf("nc2atmodat: non-numeric kind %v", v.Kind()))
}

// isEmptyAttribute reports whether an attribute value carries no
// information: an empty string or an empty array.
func isEmptyAttribute(v interface{}) bool {
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.Len() == 0
}
