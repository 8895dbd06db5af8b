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
	"reflect"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Sizes of the raw test grid. Each staggered axis has as many points as
// its centre axis, as in MITRAS output.
const (
	testNT = 3
	testNK = 6
	testNJ = 7
	testNI = 8
)

// testLevels are the heights of the level boundaries of the flat test
// grid.
var testLevels = []float64{0, 10, 30, 60, 100, 150}

// testOptions control the contents of the test dataset.
type testOptions struct {
	complexTerrain bool // nonzero surface height
	reference      bool // include elam and ephi
}

func arrayOf(shape []int, f func(idx []int) float64) *sparse.DenseArray {
	a := sparse.ZerosDense(append([]int(nil), shape...)...)
	idx := make([]int, len(shape))
	for n := range a.Elements {
		r := n
		for i := len(shape) - 1; i >= 0; i-- {
			idx[i] = r % shape[i]
			r /= shape[i]
		}
		a.Elements[n] = f(idx)
	}
	return a
}

func addTestVar(t *testing.T, ds *Dataset, name string, dims []string, typ DataType, f func(idx []int) float64, attrs ...string) {
	t.Helper()
	shape := make([]int, len(dims))
	lens := map[string]int{
		dimTime: testNT,
		dimK:    testNK, dimKV: testNK,
		dimJ: testNJ, dimJV: testNJ,
		dimI: testNI, dimIV: testNI,
	}
	for i, d := range dims {
		shape[i] = lens[d]
	}
	var data *sparse.DenseArray
	if len(dims) == 0 {
		data = sparse.ZerosDense()
		data.Elements[0] = f(nil)
	} else {
		data = arrayOf(shape, f)
	}
	v := NewVariable(name, dims, typ, data)
	for i := 0; i < len(attrs); i += 2 {
		v.Attrs.mustSet(attrs[i], attrs[i+1])
	}
	if err := ds.SetVar(v); err != nil {
		t.Fatal(err)
	}
}

// testDataset returns a small dataset laid out like raw MITRAS output.
// Position values are chosen so that, in metres, the centre of cell m is
// halfway between staggered points m-1 and m.
func testDataset(t *testing.T, o testOptions) *Dataset {
	t.Helper()
	ds := NewDataset()
	ds.Attrs.mustSet("Model", "METRAS")
	ds.Attrs.mustSet("title", "test run")

	addTestVar(t, ds, dimTime, []string{dimTime}, Double,
		func(idx []int) float64 { return 600 * float64(idx[0]) },
		"units", "seconds since 2020-01-01 00:00:00")
	addTestVar(t, ds, "xsmet", []string{dimI}, Float,
		func(idx []int) float64 { return 100*float64(idx[0]) - 50 })
	addTestVar(t, ds, "xvmet", []string{dimIV}, Float,
		func(idx []int) float64 { return 100 * float64(idx[0]) })
	addTestVar(t, ds, "ysmet", []string{dimJ}, Float,
		func(idx []int) float64 { return 200*float64(idx[0]) - 100 })
	addTestVar(t, ds, "yvmet", []string{dimJV}, Float,
		func(idx []int) float64 { return 200 * float64(idx[0]) })
	addTestVar(t, ds, "zsmet", []string{dimK}, Float,
		func(idx []int) float64 {
			if idx[0] == 0 {
				return -5
			}
			return (testLevels[idx[0]-1] + testLevels[idx[0]]) / 2
		})
	surface := 0.0
	if o.complexTerrain {
		surface = 5
	}
	addTestVar(t, ds, "zvmet", []string{dimKV, dimJ, dimI}, Float,
		func(idx []int) float64 { return testLevels[idx[0]] + surface },
		"long_name", "height_of_boundaries")
	addTestVar(t, ds, "yzsurf", []string{dimJ, dimI}, Float,
		func(idx []int) float64 { return surface })
	addTestVar(t, ds, "lon", []string{dimJ, dimI}, Double,
		func(idx []int) float64 { return 100*float64(idx[1]) - 50 })
	addTestVar(t, ds, "lat", []string{dimJ, dimI}, Double,
		func(idx []int) float64 { return 200*float64(idx[0]) - 100 })
	if o.reference {
		addTestVar(t, ds, "elam", nil, Double, func([]int) float64 { return 10 })
		addTestVar(t, ds, "ephi", nil, Double, func([]int) float64 { return 53.5 })
	}
	addTestVar(t, ds, "treal", []string{dimTime, dimK, dimJ, dimI}, Float,
		func(idx []int) float64 {
			return 1000*float64(idx[0]) + 100*float64(idx[1]) + 10*float64(idx[2]) + float64(idx[3])
		},
		"long_name", "real_temperature",
		"units", "K",
		"cell_methods", "time: point k: j: i: mean")
	addTestVar(t, ds, "x_wind", []string{dimTime, dimK, dimJ, dimIV}, Float,
		func(idx []int) float64 { return float64(idx[3]) },
		"long_name", "x_wind",
		"units", "m s-1")
	addTestVar(t, ds, "albedo", []string{dimJ, dimI}, Float,
		func([]int) float64 { return 0.2 })
	addTestVar(t, ds, "junk", []string{dimJ, dimI}, Float,
		func([]int) float64 { return -1 })
	return ds
}

// nestedValues returns the data of v as the nested slices that the
// NetCDF writer expects.
func nestedValues(v *Variable) interface{} {
	elem := map[DataType]reflect.Type{
		Double: reflect.TypeOf(float64(0)),
		Float:  reflect.TypeOf(float32(0)),
		Int:    reflect.TypeOf(int32(0)),
		Short:  reflect.TypeOf(int16(0)),
		Byte:   reflect.TypeOf(int8(0)),
	}[v.Type]
	if len(v.Dims) == 0 {
		return reflect.ValueOf(v.Data.Elements[0]).Convert(elem).Interface()
	}
	var build func(shape []int, vals []float64) reflect.Value
	build = func(shape []int, vals []float64) reflect.Value {
		t := elem
		for range shape {
			t = reflect.SliceOf(t)
		}
		s := reflect.MakeSlice(t, shape[0], shape[0])
		stride := len(vals) / shape[0]
		for i := 0; i < shape[0]; i++ {
			if len(shape) == 1 {
				s.Index(i).Set(reflect.ValueOf(vals[i]).Convert(elem))
			} else {
				s.Index(i).Set(build(shape[1:], vals[i*stride:(i+1)*stride]))
			}
		}
		return s
	}
	return build(v.Data.Shape, v.Data.Elements).Interface()
}

func orderedMap(t *testing.T, a *Attributes) *util.OrderedMap {
	t.Helper()
	vals := make(map[string]interface{}, a.Len())
	for _, k := range a.Keys() {
		vals[k], _ = a.Get(k)
	}
	om, err := util.NewOrderedMap(a.Keys(), vals)
	if err != nil {
		t.Fatal(err)
	}
	return om
}

// writeTestFile writes ds to a classic NetCDF file at path.
func writeTestFile(t *testing.T, ds *Dataset, path string) {
	t.Helper()
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cw.AddGlobalAttrs(orderedMap(t, ds.Attrs)); err != nil {
		t.Fatal(err)
	}
	for _, name := range ds.VarNames() {
		v := ds.Var(name)
		err := cw.AddVar(name, api.Variable{
			Values:     nestedValues(v),
			Dimensions: v.Dims,
			Attributes: orderedMap(t, v.Attrs),
		})
		if err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}
}

// mustDone fails the test if r is not Done.
func mustDone(t *testing.T, r StageResult) {
	t.Helper()
	if r.Status != Done {
		t.Fatalf("stage %s", r)
	}
}

func checkValues(t *testing.T, name string, have, want []float64) {
	t.Helper()
	if len(have) != len(want) || !floats.EqualApprox(have, want, 1e-6) {
		t.Errorf("%s: have %v, want %v", name, have, want)
	}
}
