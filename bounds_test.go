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
)

func TestCellBounds(t *testing.T) {
	b := cellBounds([]float64{0, 1, 3}, 3)
	checkValues(t, "bounds", b.Elements, []float64{0, 1, 1, 3, 3, 5})
	b = cellBounds([]float64{7}, 1)
	checkValues(t, "single", b.Elements, []float64{7, 7})
}

func TestCreateBoundsFlat(t *testing.T) {
	ds := croppedDataset(t, testOptions{})
	mustDone(t, ReassignHorizontal(ds))
	mustDone(t, ReassignVertical(ds, FlatTerrain))
	mustDone(t, CreateBounds(ds, FlatTerrain))

	ib := ds.Var("i_bnds")
	if ib == nil {
		t.Fatal("no i_bnds")
	}
	if want := []string{dimI, dimBnds}; !reflect.DeepEqual(ib.Dims, want) {
		t.Errorf("i_bnds dims %v", ib.Dims)
	}
	checkValues(t, "i_bnds", ib.Values(), []float64{0, 100, 100, 200, 200, 300, 300, 400, 400, 500})
	checkValues(t, "j_bnds", ds.Var("j_bnds").Values(), []float64{0, 200, 200, 400, 400, 600, 600, 800})
	checkValues(t, "k_bnds", ds.Var("k_bnds").Values(), []float64{0, 10, 10, 30, 30, 50})
	if b, _ := ds.Var(dimI).Attrs.String("bounds"); b != "i_bnds" {
		t.Errorf("bounds attribute = %q", b)
	}
	if n, _ := ds.Dim(dimBnds); n != 2 {
		t.Errorf("bnds has length %d", n)
	}

	// The lower edge of each cell lies below its centre and the upper
	// edge above it.
	for m, c := range ds.Var(dimI).Values() {
		if lo, hi := ib.Data.Get(m, 0), ib.Data.Get(m, 1); !(lo < c && c < hi) {
			t.Errorf("cell %d: centre %g not within [%g, %g]", m, c, lo, hi)
		}
	}
}

func TestCreateBoundsComplex(t *testing.T) {
	ds := croppedDataset(t, testOptions{complexTerrain: true})
	mustDone(t, ReassignHorizontal(ds))
	mustDone(t, ReassignVertical(ds, ComplexTerrain))
	mustDone(t, CreateBounds(ds, ComplexTerrain))
	if ds.Has("k_bnds") {
		t.Error("k should not have bounds under complex terrain")
	}
	if !ds.Has("i_bnds") || !ds.Has("j_bnds") {
		t.Error("missing horizontal bounds")
	}
}

func TestCreateTimeBounds(t *testing.T) {
	ds := croppedDataset(t, testOptions{})
	mustDone(t, CreateTimeBounds(ds))
	checkValues(t, "time_bnds", ds.Var("time_bnds").Values(), []float64{-300, 300, 300, 900, 900, 1500})
	if b, _ := ds.Var(dimTime).Attrs.String("bounds"); b != "time_bnds" {
		t.Errorf("bounds attribute = %q", b)
	}

	mustDone(t, CropTime(ds, Range{Lo: 0, Hi: 1}))
	ds.DeleteVar("time_bnds")
	if r := CreateTimeBounds(ds); r.Status != Skipped {
		t.Errorf("single time step: %s", r)
	}
}

func TestCreateBoundsMissing(t *testing.T) {
	for _, name := range []string{"xvmet", "yvmet"} {
		ds := croppedDataset(t, testOptions{})
		mustDone(t, ReassignHorizontal(ds))
		ds.DeleteVar(name)
		if r := CreateBounds(ds, FlatTerrain); r.Status != Skipped {
			t.Errorf("missing %s: %s", name, r)
		}
		for _, b := range []string{"i_bnds", "j_bnds", "k_bnds"} {
			if ds.Has(b) {
				t.Errorf("missing %s: %s was created by a skipped stage", name, b)
			}
		}
		if _, ok := ds.Var(dimI).Attrs.Get("bounds"); ok {
			t.Errorf("missing %s: i has a bounds attribute", name)
		}
		if _, ok := ds.Dim(dimBnds); ok {
			t.Errorf("missing %s: bnds dimension was created", name)
		}
	}
}
