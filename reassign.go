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
	stageHorizontal = "reassign horizontal dimensions"
	stageVertical   = "reassign vertical dimension"
	stageTimeAttrs  = "time attributes"
)

// Terrain tells whether the model domain has orography.
type Terrain int

// Terrain kinds.
const (
	// UnknownTerrain means the surface height field was not available.
	UnknownTerrain Terrain = iota
	// FlatTerrain means the surface height is zero everywhere on average,
	// so every grid column shares one set of level heights.
	FlatTerrain
	// ComplexTerrain means the grid follows the orography and level
	// heights differ between columns.
	ComplexTerrain
)

func (t Terrain) String() string {
	switch t {
	case FlatTerrain:
		return "flat"
	case ComplexTerrain:
		return "complex"
	}
	return "unknown"
}

// DetectTerrain classifies the domain using the mean of the surface
// height field yzsurf: a mean of exactly zero means flat terrain, any
// other value complex terrain.
func DetectTerrain(ds *Dataset) (Terrain, error) {
	v := ds.Var("yzsurf")
	if v == nil {
		return UnknownTerrain, missing("terrain detection", "yzsurf")
	}
	if len(v.Values()) == 0 {
		return UnknownTerrain, fmt.Errorf("nc2atmodat: yzsurf is empty")
	}
	if floats.Sum(v.Values())/float64(len(v.Values())) == 0 {
		return FlatTerrain, nil
	}
	return ComplexTerrain, nil
}

// positions returns n values of the position variable src for the grid
// axis dim. If src is defined along dim, its values are used as they are.
// Otherwise src is taken to span the uncropped input grid and is read
// from the index of dim's first point.
func positions(ds *Dataset, src *Variable, dim string, n int) ([]float64, error) {
	vals := column(src.Data)
	start := 0
	if len(src.Dims) == 0 || src.Dims[0] != dim {
		start = ds.Offset(dim)
	}
	if len(vals) < start+n {
		return nil, fmt.Errorf("nc2atmodat: %s has %d values; %d are needed from index %d for axis %s",
			src.Name, len(vals), n, start, dim)
	}
	o := make([]float64, n)
	copy(o, vals[start:start+n])
	return o, nil
}

// setCoordinate stores vals as the coordinate variable of dimension dim.
func setCoordinate(ds *Dataset, dim string, typ DataType, vals []float64, attrs ...string) error {
	v := NewVariable(dim, []string{dim}, typ, vector(vals))
	for i := 0; i < len(attrs); i += 2 {
		v.Attrs.mustSet(attrs[i], attrs[i+1])
	}
	return ds.SetVar(v)
}

// ReassignHorizontal replaces the horizontal grid indices with the
// positions of the grid points in metres: i and j from xsmet and ysmet,
// iv and jv from xvmet and yvmet.
func ReassignHorizontal(ds *Dataset) StageResult {
	axes := []struct {
		dim, src, longName, axis string
		staggered                bool
	}{
		{dimI, "xsmet", "i_position", "X", false},
		{dimJ, "ysmet", "j_position", "Y", false},
		{dimIV, "xvmet", "iv_position", "X", true},
		{dimJV, "yvmet", "jv_position", "Y", true},
	}
	// All positions are read before any axis is replaced so that a
	// skipped stage leaves the dataset as it was.
	type coord struct {
		dim   string
		typ   DataType
		vals  []float64
		attrs []string
	}
	var coords []coord
	for _, a := range axes {
		n, ok := ds.Dim(a.dim)
		if !ok {
			continue
		}
		src := ds.Var(a.src)
		if src == nil {
			return skipped(stageHorizontal, "%v", missing(stageHorizontal, a.src))
		}
		vals, err := positions(ds, src, a.dim, n)
		if err != nil {
			return skipped(stageHorizontal, "%v", err)
		}
		attrs := []string{"long_name", a.longName, "units", "m"}
		if !a.staggered {
			attrs = append(attrs, "axis", a.axis)
		}
		coords = append(coords, coord{dim: a.dim, typ: src.Type, vals: vals, attrs: attrs})
	}
	if len(coords) == 0 {
		return skipped(stageHorizontal, "no horizontal grid dimensions")
	}
	for _, c := range coords {
		if err := setCoordinate(ds, c.dim, c.typ, c.vals, c.attrs...); err != nil {
			return fatal(stageHorizontal, err)
		}
	}
	return done(stageHorizontal)
}

// ReassignVertical sets up the vertical coordinate according to the
// terrain. Under flat terrain k holds the heights of the level centres,
// read from zsmet. Under complex terrain k becomes the model level number
// and zsmet is replaced by a three-dimensional field of level-centre
// heights computed from the level boundaries in zvmet.
func ReassignVertical(ds *Dataset, t Terrain) StageResult {
	nk, ok := ds.Dim(dimK)
	if !ok {
		return skipped(stageVertical, "no %s dimension", dimK)
	}
	switch t {
	case FlatTerrain:
		src := ds.Var("zsmet")
		if src == nil {
			return skipped(stageVertical, "%v", missing(stageVertical, "zsmet"))
		}
		vals, err := positions(ds, src, dimK, nk)
		if err != nil {
			return skipped(stageVertical, "%v", err)
		}
		// The topmost centre height in MITRAS output is a halo value.
		if nk >= 3 {
			vals[nk-1] = vals[nk-2] + (vals[nk-2] - vals[nk-3])
		}
		err = setCoordinate(ds, dimK, Double, vals,
			"long_name", "k_position",
			"standard_name", "height",
			"axis", "Z",
			"positive", "up",
			"units", "m")
		if err != nil {
			return fatal(stageVertical, err)
		}
	case ComplexTerrain:
		zs, err := levelCentres(ds, nk)
		if err != nil {
			return skipped(stageVertical, "%v", err)
		}
		levels := make([]float64, nk)
		for i := range levels {
			levels[i] = float64(i)
		}
		err = setCoordinate(ds, dimK, Int, levels,
			"long_name", "model level",
			"axis", "Z",
			"positive", "up")
		if err != nil {
			return fatal(stageVertical, err)
		}
		ds.DeleteVar("zsmet")
		if err := ds.SetVar(zs); err != nil {
			return fatal(stageVertical, err)
		}
	default:
		return skipped(stageVertical, "terrain is unknown")
	}
	return done(stageVertical)
}

// levelCentres returns a (k, j, i) zsmet variable holding the heights
// halfway between adjacent level boundaries of zvmet.
func levelCentres(ds *Dataset, nk int) (*Variable, error) {
	zv := ds.Var("zvmet")
	if zv == nil {
		return nil, missing(stageVertical, "zvmet")
	}
	if len(zv.Dims) != 3 {
		return nil, fmt.Errorf("nc2atmodat: zvmet has %d dimensions; 3 are needed", len(zv.Dims))
	}
	nj, ni := zv.Data.Shape[1], zv.Data.Shape[2]
	start := 0
	if zv.Dims[0] != dimKV {
		start = ds.Offset(dimK) - 1
		if start < 0 {
			start = 0
		}
	}
	if zv.Data.Shape[0] < start+nk+1 {
		return nil, fmt.Errorf("nc2atmodat: zvmet has %d levels; %d are needed from level %d",
			zv.Data.Shape[0], nk+1, start)
	}
	zs := sparse.ZerosDense(nk, nj, ni)
	for k := 0; k < nk; k++ {
		for j := 0; j < nj; j++ {
			for i := 0; i < ni; i++ {
				lo := zv.Data.Get(start+k, j, i)
				hi := zv.Data.Get(start+k+1, j, i)
				zs.Set(lo+0.5*(hi-lo), k, j, i)
			}
		}
	}
	v := NewVariable("zsmet", []string{dimK, zv.Dims[1], zv.Dims[2]}, zv.Type, zs)
	v.Attrs.mustSet("long_name", "vertical_distance_above_ground")
	v.Attrs.mustSet("standard_name", "height")
	v.Attrs.mustSet("units", "m")
	return v, nil
}

// AddTimeAttributes sets the CF attributes of the time coordinate.
func AddTimeAttributes(ds *Dataset) StageResult {
	t := ds.Var(dimTime)
	if t == nil {
		return skipped(stageTimeAttrs, "%v", missing(stageTimeAttrs, dimTime))
	}
	t.Attrs.mustSet("long_name", "time")
	t.Attrs.mustSet("standard_name", "time")
	t.Attrs.mustSet("axis", "T")
	return done(stageTimeAttrs)
}
