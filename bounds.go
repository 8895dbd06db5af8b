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
	"gonum.org/v1/gonum/floats"
)

const (
	stageBounds     = "create bounds"
	stageTimeBounds = "create time bounds"
)

// boundsName returns the name of the bounds variable of axis.
func boundsName(axis string) string { return axis + "_bnds" }

// cellBounds returns an (n, 2) array of cell edges. Row m holds
// edges[m] and edges[m+1]; the upper edge of the last row is
// extrapolated from the spacing of the two edges before it.
func cellBounds(edges []float64, n int) *sparse.DenseArray {
	b := sparse.ZerosDense(n, 2)
	for m := 0; m < n; m++ {
		b.Set(edges[m], m, 0)
		if m < n-1 {
			b.Set(edges[m+1], m, 1)
		} else if m > 0 {
			b.Set(edges[m]+(edges[m]-edges[m-1]), m, 1)
		} else {
			b.Set(edges[m], m, 1)
		}
	}
	return b
}

// CreateBounds adds bounds variables to the x, y and, for flat terrain, z
// axes. The edges come from the staggered positions: xvmet for i, yvmet
// for j and the first column of zvmet for k. Under complex terrain the
// level heights vary in space so k gets no bounds.
func CreateBounds(ds *Dataset, t Terrain) StageResult {
	axes := []struct {
		dim, src string
	}{
		{dimI, "xvmet"},
		{dimJ, "yvmet"},
	}
	if t == FlatTerrain {
		axes = append(axes, struct{ dim, src string }{dimK, "zvmet"})
	}
	var made []*Variable
	for _, a := range axes {
		n, ok := ds.Dim(a.dim)
		if !ok {
			continue
		}
		src := ds.Var(a.src)
		if src == nil {
			return skipped(stageBounds, "%v", missing(stageBounds, a.src))
		}
		edges, err := staggeredEdges(ds, src, a.dim, n)
		if err != nil {
			return skipped(stageBounds, "%v", err)
		}
		made = append(made, NewVariable(boundsName(a.dim), []string{a.dim, dimBnds}, Float, cellBounds(edges, n)))
	}
	if len(made) == 0 {
		return skipped(stageBounds, "no axes to bound")
	}
	for _, b := range made {
		if err := ds.SetVar(b); err != nil {
			return fatal(stageBounds, err)
		}
		if c := ds.Var(b.Dims[0]); c != nil {
			c.Attrs.mustSet("bounds", b.Name)
		}
	}
	return done(stageBounds)
}

// staggeredEdges returns the n staggered positions that form the lower
// edges of the cells along dim.
func staggeredEdges(ds *Dataset, src *Variable, dim string, n int) ([]float64, error) {
	vals := column(src.Data)
	vdim := map[string]string{dimI: dimIV, dimJ: dimJV, dimK: dimKV}[dim]
	start := 0
	if len(src.Dims) == 0 || src.Dims[0] != vdim {
		start = ds.Offset(dim) - 1
		if start < 0 {
			start = 0
		}
	}
	if len(vals) < start+n {
		return nil, fmt.Errorf("nc2atmodat: %s has %d values; %d are needed from index %d to bound axis %s",
			src.Name, len(vals), n, start, dim)
	}
	return vals[start : start+n], nil
}

// CreateTimeBounds adds a time_bnds variable that extends each time step
// by half the mean step length on either side.
func CreateTimeBounds(ds *Dataset) StageResult {
	t := ds.Var(dimTime)
	if t == nil {
		return skipped(stageTimeBounds, "%v", missing(stageTimeBounds, dimTime))
	}
	vals := t.Values()
	if len(vals) < 2 {
		return skipped(stageTimeBounds, "%d time steps; at least 2 are needed", len(vals))
	}
	dt := make([]float64, len(vals)-1)
	for i := range dt {
		dt[i] = vals[i+1] - vals[i]
	}
	half := floats.Sum(dt) / float64(len(dt)) / 2
	b := sparse.ZerosDense(len(vals), 2)
	for i, v := range vals {
		b.Set(v-half, i, 0)
		b.Set(v+half, i, 1)
	}
	bv := NewVariable(boundsName(dimTime), []string{dimTime, dimBnds}, Double, b)
	if err := ds.SetVar(bv); err != nil {
		return fatal(stageTimeBounds, err)
	}
	t.Attrs.mustSet("bounds", bv.Name)
	return done(stageTimeBounds)
}
