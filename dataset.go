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

	"github.com/ctessum/sparse"
)

// DataType is the NetCDF storage type of a variable.
type DataType int

// The storage types that can be written to NetCDF-3 files.
const (
	Double DataType = iota
	Float
	Int
	Short
	Byte
)

func (t DataType) String() string {
	switch t {
	case Double:
		return "double"
	case Float:
		return "float"
	case Int:
		return "int"
	case Short:
		return "short"
	case Byte:
		return "byte"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Variable is a named, dimensioned array with attributes.
type Variable struct {
	Name  string
	Dims  []string           // dimension names, outermost first
	Type  DataType           // storage type in the output file
	Attrs *Attributes        // variable attributes
	Data  *sparse.DenseArray // row-major values
}

// NewVariable returns a variable holding data with the given dimensions.
// Scalars are represented with a nil dims and a one-element array.
func NewVariable(name string, dims []string, typ DataType, data *sparse.DenseArray) *Variable {
	return &Variable{
		Name:  name,
		Dims:  dims,
		Type:  typ,
		Attrs: NewAttributes(),
		Data:  data,
	}
}

// HasDim reports whether v is defined along dimension dim.
func (v *Variable) HasDim(dim string) bool {
	return v.dimIndex(dim) >= 0
}

func (v *Variable) dimIndex(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Values returns the variable's elements.
func (v *Variable) Values() []float64 { return v.Data.Elements }

// Dataset is an in-memory collection of NetCDF dimensions, variables and
// global attributes. The pipeline stages modify it in place.
type Dataset struct {
	// Source is the path the dataset was loaded from.
	Source string

	// Attrs holds the global attributes.
	Attrs *Attributes

	dimNames []string
	dimLens  map[string]int
	offsets  map[string]int // index of each dimension's first point in the input grid
	varNames []string
	vars     map[string]*Variable
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Attrs:   NewAttributes(),
		dimLens: make(map[string]int),
		offsets: make(map[string]int),
		vars:    make(map[string]*Variable),
	}
}

// Dim returns the length of dimension name.
func (d *Dataset) Dim(name string) (int, bool) {
	n, ok := d.dimLens[name]
	return n, ok
}

// Dims returns the dimension names in definition order.
func (d *Dataset) Dims() []string {
	o := make([]string, len(d.dimNames))
	copy(o, d.dimNames)
	return o
}

// SetDim defines dimension name with length n, or changes the length of
// an existing dimension.
func (d *Dataset) SetDim(name string, n int) {
	if _, ok := d.dimLens[name]; !ok {
		d.dimNames = append(d.dimNames, name)
	}
	d.dimLens[name] = n
}

func (d *Dataset) deleteDim(name string) {
	if _, ok := d.dimLens[name]; !ok {
		return
	}
	delete(d.dimLens, name)
	delete(d.offsets, name)
	d.dimNames = removeString(d.dimNames, name)
}

// Var returns variable name, or nil if it does not exist.
func (d *Dataset) Var(name string) *Variable {
	return d.vars[name]
}

// Has reports whether variable name exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.vars[name]
	return ok
}

// VarNames returns the variable names in definition order.
func (d *Dataset) VarNames() []string {
	o := make([]string, len(d.varNames))
	copy(o, d.varNames)
	return o
}

// SetVar adds v to the dataset, replacing any variable with the same
// name. Dimensions that do not exist yet are created from the shape of
// v.Data; an error is returned if the shape disagrees with an existing
// dimension.
func (d *Dataset) SetVar(v *Variable) error {
	if len(v.Dims) != len(v.Data.Shape) && !(len(v.Dims) == 0 && len(v.Data.Elements) == 1) {
		return fmt.Errorf("nc2atmodat: variable %s has %d dimensions but data of rank %d",
			v.Name, len(v.Dims), len(v.Data.Shape))
	}
	for i, dim := range v.Dims {
		n, ok := d.dimLens[dim]
		if !ok {
			d.SetDim(dim, v.Data.Shape[i])
			continue
		}
		if n != v.Data.Shape[i] {
			return fmt.Errorf("nc2atmodat: variable %s has length %d along dimension %s, which has length %d",
				v.Name, v.Data.Shape[i], dim, n)
		}
	}
	if _, ok := d.vars[v.Name]; !ok {
		d.varNames = append(d.varNames, v.Name)
	}
	d.vars[v.Name] = v
	return nil
}

// DeleteVar removes variable name. It reports whether it was present.
func (d *Dataset) DeleteVar(name string) bool {
	if _, ok := d.vars[name]; !ok {
		return false
	}
	delete(d.vars, name)
	d.varNames = removeString(d.varNames, name)
	return true
}

// IsCoordinate reports whether variable name is a dimension coordinate
// variable, i.e. a one-dimensional variable with the same name as its
// dimension.
func (d *Dataset) IsCoordinate(name string) bool {
	v, ok := d.vars[name]
	return ok && len(v.Dims) == 1 && v.Dims[0] == name
}

// Rename renames dimension and coordinate variable from to to, as well as
// the dimension in every variable that uses it. A variable named from
// that is not a dimension is renamed as well.
func (d *Dataset) Rename(from, to string) error {
	if from == to {
		return nil
	}
	if _, ok := d.dimLens[to]; ok {
		return fmt.Errorf("nc2atmodat: cannot rename %s: dimension %s already exists", from, to)
	}
	if _, ok := d.vars[to]; ok {
		return fmt.Errorf("nc2atmodat: cannot rename %s: variable %s already exists", from, to)
	}
	if n, ok := d.dimLens[from]; ok {
		for i, dn := range d.dimNames {
			if dn == from {
				d.dimNames[i] = to
			}
		}
		delete(d.dimLens, from)
		d.dimLens[to] = n
		if off, ok := d.offsets[from]; ok {
			delete(d.offsets, from)
			d.offsets[to] = off
		}
		for _, v := range d.vars {
			for i, dim := range v.Dims {
				if dim == from {
					v.Dims[i] = to
				}
			}
		}
	}
	if v, ok := d.vars[from]; ok {
		v.Name = to
		delete(d.vars, from)
		d.vars[to] = v
		for i, vn := range d.varNames {
			if vn == from {
				d.varNames[i] = to
			}
		}
	}
	return nil
}

// SliceDim restricts dimension dim to the half-open index range
// [start, end) in every variable that uses it.
func (d *Dataset) SliceDim(dim string, start, end int) error {
	n, ok := d.dimLens[dim]
	if !ok {
		return fmt.Errorf("nc2atmodat: no dimension %s", dim)
	}
	if start < 0 || end > n || start >= end {
		return fmt.Errorf("nc2atmodat: slice [%d, %d) out of range for dimension %s of length %d",
			start, end, dim, n)
	}
	for _, name := range d.varNames {
		v := d.vars[name]
		if i := v.dimIndex(dim); i >= 0 {
			v.Data = sliceAxis(v.Data, i, start, end)
		}
	}
	d.dimLens[dim] = end - start
	d.offsets[dim] += start
	return nil
}

// Offset returns the index in the input grid of the first point of
// dimension dim, which is nonzero after cropping.
func (d *Dataset) Offset(dim string) int { return d.offsets[dim] }

// pruneDims removes dimensions that no variable uses.
func (d *Dataset) pruneDims() {
	used := make(map[string]bool)
	for _, v := range d.vars {
		for _, dim := range v.Dims {
			used[dim] = true
		}
	}
	for _, dim := range d.Dims() {
		if !used[dim] {
			d.deleteDim(dim)
		}
	}
}

// sliceAxis returns the part of a with index range [start, end) along
// axis.
func sliceAxis(a *sparse.DenseArray, axis, start, end int) *sparse.DenseArray {
	shape := make([]int, len(a.Shape))
	copy(shape, a.Shape)
	shape[axis] = end - start
	o := sparse.ZerosDense(shape...)

	// outer and inner are the number of elements before and after the
	// sliced axis.
	outer, inner := 1, 1
	for i := 0; i < axis; i++ {
		outer *= a.Shape[i]
	}
	for i := axis + 1; i < len(a.Shape); i++ {
		inner *= a.Shape[i]
	}
	n := a.Shape[axis]
	for o1 := 0; o1 < outer; o1++ {
		src := a.Elements[(o1*n+start)*inner : (o1*n+end)*inner]
		copy(o.Elements[o1*(end-start)*inner:], src)
	}
	return o
}

// column returns the values of a along its first axis at index 0 of
// every other axis, e.g. a[:,0,0] for a three-dimensional array.
func column(a *sparse.DenseArray) []float64 {
	if len(a.Shape) == 0 {
		return nil
	}
	stride := 1
	for _, s := range a.Shape[1:] {
		stride *= s
	}
	o := make([]float64, a.Shape[0])
	for i := range o {
		o[i] = a.Elements[i*stride]
	}
	return o
}

// vector returns a one-dimensional array holding vals.
func vector(vals []float64) *sparse.DenseArray {
	a := sparse.ZerosDense(len(vals))
	copy(a.Elements, vals)
	return a
}

func removeString(s []string, r string) []string {
	for i, v := range s {
		if v == r {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
