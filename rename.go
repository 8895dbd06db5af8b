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
	"strings"
)

const (
	stageRename         = "rename axes"
	stageCellMethods    = "rewrite cell methods"
	stageAddCellMethods = "add cell methods"
)

// Renames maps the old names of renamed dimensions to their new names.
type Renames map[string]string

var (
	horizontalRenames = []struct{ from, to string }{
		{dimI, "x"}, {dimJ, "y"},
		{dimIV, "xv"}, {dimJV, "yv"},
	}
	verticalRenames = []struct{ from, to string }{
		{dimK, "z"},
	}
)

// RenameAxes renames the grid index dimensions i, j, iv and jv, together
// with their coordinate and bounds variables, to x, y, xv and yv. Under
// flat terrain k becomes z as well; under complex terrain k is a level
// number and keeps its name.
func RenameAxes(ds *Dataset, t Terrain) (Renames, StageResult) {
	pairs := horizontalRenames
	if t == FlatTerrain {
		pairs = append(append(pairs[:0:0], pairs...), verticalRenames...)
	}
	r := make(Renames)
	for _, p := range pairs {
		if _, ok := ds.Dim(p.from); !ok {
			continue
		}
		if err := ds.Rename(p.from, p.to); err != nil {
			return r, fatal(stageRename, err)
		}
		r[p.from] = p.to
		if ds.Has(boundsName(p.from)) {
			if err := ds.Rename(boundsName(p.from), boundsName(p.to)); err != nil {
				return r, fatal(stageRename, err)
			}
		}
	}
	if len(r) == 0 {
		return r, skipped(stageRename, "no index dimensions to rename")
	}

	axes := []struct{ name, longName, axis string }{
		{"x", "x_position", "X"},
		{"y", "y_position", "Y"},
		{"z", "z_position", "Z"},
	}
	for _, a := range axes {
		v := ds.Var(a.name)
		if v == nil || !ds.IsCoordinate(a.name) {
			continue
		}
		v.Attrs.mustSet("long_name", a.longName)
		v.Attrs.mustSet("axis", a.axis)
		v.Attrs.mustSet("units", "m")
		if a.name == "z" {
			v.Attrs.mustSet("standard_name", "height")
			v.Attrs.mustSet("positive", "up")
		}
	}
	for _, name := range ds.VarNames() {
		v := ds.Var(name)
		b, ok := v.Attrs.String("bounds")
		if !ok {
			continue
		}
		for from, to := range r {
			if b == boundsName(from) {
				v.Attrs.mustSet("bounds", boundsName(to))
			}
		}
	}
	return r, done(stageRename)
}

// RewriteCellMethods replaces the old axis names in the cell_methods
// attribute of each variable with the names given in r. A name is only
// replaced if the variable is defined along the renamed dimension.
func RewriteCellMethods(ds *Dataset, r Renames) StageResult {
	if len(r) == 0 {
		return skipped(stageCellMethods, "no axes were renamed")
	}
	for _, name := range ds.VarNames() {
		v := ds.Var(name)
		cm, ok := v.Attrs.String("cell_methods")
		if !ok {
			continue
		}
		v.Attrs.mustSet("cell_methods", rewriteCellMethods(cm, v.Dims, r))
	}
	return done(stageCellMethods)
}

// rewriteCellMethods rewrites the "name:" tokens of cell methods cm.
// Each token is looked up once, so a replacement is never itself
// replaced again.
func rewriteCellMethods(cm string, dims []string, r Renames) string {
	has := make(map[string]bool, len(dims))
	for _, d := range dims {
		has[d] = true
	}
	f := strings.Fields(cm)
	for i, tok := range f {
		if !strings.HasSuffix(tok, ":") {
			continue
		}
		to, ok := r[strings.TrimSuffix(tok, ":")]
		if ok && has[to] {
			f[i] = to + ":"
		}
	}
	return strings.Join(f, " ")
}

// AddCellMethods gives every data variable that has no cell_methods
// attribute a generic one: time is sampled at points and every other
// dimension is averaged, e.g. "time: point z: y: x: mean".
func AddCellMethods(ds *Dataset) StageResult {
	var n int
	for _, name := range ds.VarNames() {
		v := ds.Var(name)
		if len(v.Dims) == 0 || v.HasDim(name) {
			continue
		}
		if _, ok := v.Attrs.Get("cell_methods"); ok {
			continue
		}
		v.Attrs.mustSet("cell_methods", defaultCellMethods(v.Dims))
		n++
	}
	if n == 0 {
		return skipped(stageAddCellMethods, "all variables have cell methods")
	}
	return done(stageAddCellMethods)
}

func defaultCellMethods(dims []string) string {
	var b strings.Builder
	for i, d := range dims {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d)
		b.WriteByte(':')
		if d == dimTime {
			b.WriteString(" point")
		}
	}
	if dims[len(dims)-1] != dimTime {
		b.WriteString(" mean")
	}
	return b.String()
}
