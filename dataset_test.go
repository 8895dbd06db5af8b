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

	"github.com/ctessum/sparse"
)

func TestSliceAxis(t *testing.T) {
	a := sparse.ZerosDense(2, 3, 4)
	for i := range a.Elements {
		a.Elements[i] = float64(i)
	}
	b := sliceAxis(a, 1, 1, 3)
	if !reflect.DeepEqual(b.Shape, []int{2, 2, 4}) {
		t.Fatalf("shape %v", b.Shape)
	}
	want := []float64{
		4, 5, 6, 7, 8, 9, 10, 11,
		16, 17, 18, 19, 20, 21, 22, 23,
	}
	checkValues(t, "slice", b.Elements, want)
}

func TestSliceDim(t *testing.T) {
	ds := testDataset(t, testOptions{})
	if err := ds.SliceDim(dimI, 2, 5); err != nil {
		t.Fatal(err)
	}
	if err := ds.SliceDim(dimI, 1, 3); err != nil {
		t.Fatal(err)
	}
	if n, _ := ds.Dim(dimI); n != 2 {
		t.Errorf("i has %d points", n)
	}
	if off := ds.Offset(dimI); off != 3 {
		t.Errorf("offset %d, want 3", off)
	}
	checkValues(t, "xsmet", ds.Var("xsmet").Values(), []float64{250, 350})
	if have := ds.Var("treal").Data.Get(1, 2, 3, 0); have != 1233 {
		t.Errorf("treal = %g, want 1233", have)
	}
	if err := ds.SliceDim(dimI, 0, 3); err == nil {
		t.Error("slicing past the end should fail")
	}
	if err := ds.SliceDim("nope", 0, 1); err == nil {
		t.Error("slicing a missing dimension should fail")
	}
}

func TestRename(t *testing.T) {
	ds := testDataset(t, testOptions{})
	if err := ds.SliceDim(dimI, 1, 4); err != nil {
		t.Fatal(err)
	}
	mustDone(t, ReassignHorizontal(ds))
	if err := ds.Rename(dimI, "x"); err != nil {
		t.Fatal(err)
	}
	if _, ok := ds.Dim(dimI); ok {
		t.Error("dimension i still exists")
	}
	if n, _ := ds.Dim("x"); n != 3 {
		t.Errorf("x has %d points", n)
	}
	if ds.Offset("x") != 1 {
		t.Errorf("offset of x = %d", ds.Offset("x"))
	}
	if !ds.IsCoordinate("x") || ds.Has(dimI) {
		t.Error("coordinate variable was not renamed")
	}
	want := []string{dimTime, dimK, dimJ, "x"}
	if have := ds.Var("treal").Dims; !reflect.DeepEqual(have, want) {
		t.Errorf("treal dims: have %v, want %v", have, want)
	}
	if err := ds.Rename(dimJ, "x"); err == nil {
		t.Error("renaming onto an existing dimension should fail")
	}
}

func TestSetVarShape(t *testing.T) {
	ds := testDataset(t, testOptions{})
	v := NewVariable("bad", []string{dimI}, Float, sparse.ZerosDense(testNI+1))
	if err := ds.SetVar(v); err == nil {
		t.Error("mismatched length should fail")
	}
	v = NewVariable("bad", []string{dimI, dimJ}, Float, sparse.ZerosDense(testNI))
	if err := ds.SetVar(v); err == nil {
		t.Error("mismatched rank should fail")
	}
	if ds.Has("bad") {
		t.Error("failed variable was added")
	}
}

func TestPruneDims(t *testing.T) {
	ds := testDataset(t, testOptions{})
	for _, name := range ds.VarNames() {
		if name != "albedo" {
			ds.DeleteVar(name)
		}
	}
	ds.pruneDims()
	want := []string{dimI, dimJ}
	if have := ds.Dims(); !reflect.DeepEqual(have, want) {
		t.Errorf("dims: have %v, want %v", have, want)
	}
}
