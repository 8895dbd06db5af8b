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
	"errors"
	"reflect"
	"strings"
	"testing"
)

// renamedDataset returns the test dataset after the coordinate and
// renaming stages.
func renamedDataset(t *testing.T, o testOptions) *Dataset {
	t.Helper()
	ds, tr := reassignedDataset(t, o)
	p := testProjection(t)
	ref, _ := ReferencePoint(ds, p, nil)
	mustDone(t, Geocoordinates(ds, p, ref))
	r, res := RenameAxes(ds, tr)
	mustDone(t, res)
	mustDone(t, RewriteCellMethods(ds, r))
	return ds
}

func TestSelectOutput(t *testing.T) {
	ds := renamedDataset(t, testOptions{})
	mustDone(t, SelectOutput(ds, DefaultTables().Records, nil))

	for _, name := range []string{"treal", "x_wind", "albedo", "lat", "lon", "x_utm", "y_utm",
		"x", "y", "z", "xv", dimTime, "x_bnds", "z_bnds", "zvmet", "zsmet", "yzsurf"} {
		if !ds.Has(name) {
			t.Errorf("%s was removed", name)
		}
	}
	for _, name := range []string{"junk", "xsmet", "yvmet"} {
		if ds.Has(name) {
			t.Errorf("%s was kept", name)
		}
	}
	for _, dim := range ds.Dims() {
		var used bool
		for _, name := range ds.VarNames() {
			used = used || ds.Var(name).HasDim(dim)
		}
		if !used {
			t.Errorf("dimension %s is unused", dim)
		}
	}
	if _, ok := ds.Dim(dimBnds); !ok {
		t.Error("bnds dimension was removed")
	}
}

func TestSelectOutputIdempotent(t *testing.T) {
	ds := renamedDataset(t, testOptions{})
	mustDone(t, SelectOutput(ds, DefaultTables().Records, []string{"junk"}))
	vars, dims := ds.VarNames(), ds.Dims()
	mustDone(t, SelectOutput(ds, DefaultTables().Records, []string{"junk"}))
	if !reflect.DeepEqual(ds.VarNames(), vars) || !reflect.DeepEqual(ds.Dims(), dims) {
		t.Errorf("second selection changed the dataset: %v %v", ds.VarNames(), ds.Dims())
	}
	if !ds.Has("junk") {
		t.Error("requested extra was removed")
	}
}

func TestSelectOutputMissingExtra(t *testing.T) {
	ds := renamedDataset(t, testOptions{})
	r := SelectOutput(ds, DefaultTables().Records, []string{"lat_utm"})
	mustDone(t, r)
	if !strings.Contains(r.Reason, "lat_utm") {
		t.Errorf("reason %q does not name the missing extra", r.Reason)
	}
}

func TestSelectOutputNoVariables(t *testing.T) {
	ds := renamedDataset(t, testOptions{})
	names, err := NewRecordNumbers("1_rec", "nothing")
	if err != nil {
		t.Fatal(err)
	}
	r := SelectOutput(ds, names, nil)
	if r.Status != Fatal || !errors.Is(r.Err, ErrNoVariables) {
		t.Errorf("have %s, want ErrNoVariables", r)
	}
}
