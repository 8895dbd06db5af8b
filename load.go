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
	"os"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"
)

const stageLoad = "load"

// Load reads the NetCDF file at path into memory. Both classic and
// NetCDF-4 (HDF5) files are supported. The file is closed before Load
// returns.
//
// A missing file is fatal. Missing coordinate precursors and variables
// with types that cannot be represented are reported in the result's
// Reason but do not cause an error.
func Load(path string) (*Dataset, StageResult) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fatal(stageLoad, fmt.Errorf("%w: %s", ErrFileNotFound, path))
		}
		return nil, fatal(stageLoad, fmt.Errorf("nc2atmodat: opening %s: %v", path, err))
	}
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fatal(stageLoad, fmt.Errorf("nc2atmodat: opening %s: %v", path, err))
	}
	defer g.Close()

	ds := NewDataset()
	ds.Source = path
	var notes []string
	for _, k := range copyAttributes(ds.Attrs, g.Attributes()) {
		notes = append(notes, fmt.Sprintf("skipped global attribute %s", k))
	}

	for _, name := range g.ListVariables() {
		if name == droppedVariable {
			continue
		}
		vr, err := g.GetVariable(name)
		if err != nil {
			return nil, fatal(stageLoad, fmt.Errorf("nc2atmodat: reading variable %s from %s: %v", name, path, err))
		}
		v, err := newVariableFromNetCDF(name, vr)
		if err != nil {
			notes = append(notes, fmt.Sprintf("skipped variable %s: %v", name, err))
			continue
		}
		for _, k := range copyAttributes(v.Attrs, vr.Attributes) {
			notes = append(notes, fmt.Sprintf("skipped attribute %s:%s", name, k))
		}
		if err := ds.SetVar(v); err != nil {
			return nil, fatal(stageLoad, err)
		}
	}

	var absent []string
	for _, name := range requiredVariables {
		if !ds.Has(name) {
			absent = append(absent, name)
		}
	}
	if len(absent) > 0 {
		notes = append(notes, "missing variables: "+strings.Join(absent, ", "))
	}
	r := done(stageLoad)
	r.Reason = strings.Join(notes, "; ")
	return ds, r
}

// newVariableFromNetCDF converts a variable read by the NetCDF reader,
// whose values are nested slices of a basic type, into a Variable.
func newVariableFromNetCDF(name string, vr *api.Variable) (*Variable, error) {
	shape, kind, err := nestedShape(reflect.ValueOf(vr.Values))
	if err != nil {
		return nil, err
	}
	typ, err := dataTypeOf(kind)
	if err != nil {
		return nil, err
	}
	if len(shape) != len(vr.Dimensions) {
		return nil, fmt.Errorf("rank %d does not match %d dimensions", len(shape), len(vr.Dimensions))
	}
	data := sparse.ZerosDense(shape...)
	data.Elements = flatten(reflect.ValueOf(vr.Values), data.Elements[:0])
	dims := make([]string, len(vr.Dimensions))
	copy(dims, vr.Dimensions)
	return NewVariable(name, dims, typ, data), nil
}

// nestedShape returns the lengths of the nested slices in v and the kind
// of their elements.
func nestedShape(v reflect.Value) ([]int, reflect.Kind, error) {
	var shape []int
	for v.Kind() == reflect.Slice {
		shape = append(shape, v.Len())
		if v.Len() == 0 {
			return shape, v.Type().Elem().Kind(), nil
		}
		v = v.Index(0)
	}
	if v.Kind() == reflect.Invalid {
		return nil, v.Kind(), fmt.Errorf("no values")
	}
	return shape, v.Kind(), nil
}

// flatten appends the elements of the nested slices in v to o in
// row-major order.
func flatten(v reflect.Value, o []float64) []float64 {
	if v.Kind() != reflect.Slice {
		return append(o, toFloat(v))
	}
	for i := 0; i < v.Len(); i++ {
		o = flatten(v.Index(i), o)
	}
	return o
}

func dataTypeOf(k reflect.Kind) (DataType, error) {
	switch k {
	case reflect.Float64, reflect.Int64, reflect.Uint32, reflect.Uint64:
		return Double, nil
	case reflect.Float32:
		return Float, nil
	case reflect.Int32, reflect.Uint16:
		return Int, nil
	case reflect.Int16:
		return Short, nil
	case reflect.Int8, reflect.Uint8:
		return Byte, nil
	}
	return 0, fmt.Errorf("unsupported element type %v", k)
}

// copyAttributes copies the attributes in src to dst. It returns the
// names of the attributes whose values cannot be stored.
func copyAttributes(dst *Attributes, src api.AttributeMap) (skipped []string) {
	if src == nil {
		return nil
	}
	for _, k := range src.Keys() {
		v, ok := src.Get(k)
		if !ok {
			continue
		}
		if err := dst.Set(k, v); err != nil {
			skipped = append(skipped, k)
		}
	}
	return skipped
}
