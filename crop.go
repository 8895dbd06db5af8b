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

import "fmt"

const (
	stageCropSpace = "crop space"
	stageCropTime  = "crop time"
)

// Range is a pair of grid indices.
type Range struct {
	Lo, Hi int
}

// SpatialCrop holds user-specified index ranges for the horizontal and
// vertical grid axes. For a range [Lo, Hi] the cell-centre axis keeps
// indices Lo+1 through Hi-2 and the staggered axis keeps Lo through
// Hi-2, so that the staggered axis holds one more point than the
// centre axis and encloses it.
type SpatialCrop struct {
	I, J, K Range
}

// axisPairs lists each cell-centre axis with its staggered counterpart.
var axisPairs = []struct{ scalar, vector string }{
	{dimI, dimIV},
	{dimJ, dimJV},
	{dimK, dimKV},
}

// CropSpace trims the spatial axes of ds. If c is nil, the halo cells
// that MITRAS writes around the domain are removed: the centre axes lose
// their first point and their last two points, and the staggered axes
// lose their last point. Otherwise the ranges in c are applied. Axes that
// are missing from ds are left alone.
func CropSpace(ds *Dataset, c *SpatialCrop) StageResult {
	for n, p := range axisPairs {
		ns, hasS := ds.Dim(p.scalar)
		nv, hasV := ds.Dim(p.vector)
		if !hasS && !hasV {
			continue
		}
		var r Range
		if c == nil {
			r.Lo = 0
			if hasS {
				r.Hi = ns - 1
			} else {
				r.Hi = nv
			}
		} else {
			r = [...]Range{c.I, c.J, c.K}[n]
		}
		if err := checkCrop(p.scalar, r, ns, hasS, nv, hasV); err != nil {
			return fatal(stageCropSpace, err)
		}
		if hasS {
			if err := ds.SliceDim(p.scalar, r.Lo+1, r.Hi-1); err != nil {
				return fatal(stageCropSpace, err)
			}
		}
		if hasV {
			if err := ds.SliceDim(p.vector, r.Lo, r.Hi-1); err != nil {
				return fatal(stageCropSpace, err)
			}
		}
		if hasS && hasV {
			ns, _ = ds.Dim(p.scalar)
			nv, _ = ds.Dim(p.vector)
			if nv != ns+1 {
				return fatal(stageCropSpace, fmt.Errorf("nc2atmodat: after cropping, axis %s has %d points and %s has %d",
					p.scalar, ns, p.vector, nv))
			}
		}
	}
	return done(stageCropSpace)
}

func checkCrop(axis string, r Range, ns int, hasS bool, nv int, hasV bool) error {
	if r.Lo < 0 || r.Hi-r.Lo < 3 {
		return fmt.Errorf("%w: axis %s range [%d, %d] must start at or above 0 and span at least 3 indices",
			ErrInvalidCrop, axis, r.Lo, r.Hi)
	}
	if hasS && r.Hi-1 > ns {
		return fmt.Errorf("%w: axis %s range [%d, %d] exceeds its %d points",
			ErrInvalidCrop, axis, r.Lo, r.Hi, ns)
	}
	if hasV && r.Hi-1 > nv {
		return fmt.Errorf("%w: staggered axis of %s range [%d, %d] exceeds its %d points",
			ErrInvalidCrop, axis, r.Lo, r.Hi, nv)
	}
	return nil
}

// CropTime keeps the time steps with indices in the half-open range
// [r.Lo, r.Hi).
func CropTime(ds *Dataset, r Range) StageResult {
	n, ok := ds.Dim(dimTime)
	if !ok {
		return skipped(stageCropTime, "no %s dimension", dimTime)
	}
	if r.Lo < 0 || r.Hi > n || r.Lo >= r.Hi {
		return fatal(stageCropTime, fmt.Errorf("%w: time range [%d, %d) with %d time steps",
			ErrInvalidCrop, r.Lo, r.Hi, n))
	}
	if err := ds.SliceDim(dimTime, r.Lo, r.Hi); err != nil {
		return fatal(stageCropTime, err)
	}
	return done(stageCropTime)
}
