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
	"io"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
)

const stageWrite = "write"

// Writer writes datasets to NetCDF-3 files.
type Writer struct {
	// ChunkX and ChunkY limit the size of the blocks in which
	// two-dimensional and higher variables are written: at most ChunkY
	// rows of full width, or pieces of ChunkX values of a row if a row is
	// wider than ChunkX.
	ChunkX, ChunkY int
}

// OutputPath returns the path of the converted file for input file in.
// If dir is empty the converted file is placed next to the input.
func OutputPath(in, dir string) string {
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, OutputPrefix+filepath.Base(in))
}

// WriteFile writes ds to a new file at path.
func (wr Writer) WriteFile(ds *Dataset, path string) StageResult {
	f, err := os.Create(path)
	if err != nil {
		return fatal(stageWrite, fmt.Errorf("nc2atmodat: creating output file: %v", err))
	}
	if err := wr.Write(ds, f); err != nil {
		f.Close()
		return fatal(stageWrite, fmt.Errorf("nc2atmodat: writing %s: %v", path, err))
	}
	if err := f.Close(); err != nil {
		return fatal(stageWrite, fmt.Errorf("nc2atmodat: closing %s: %v", path, err))
	}
	return done(stageWrite)
}

// Write writes ds to w.
func (wr Writer) Write(ds *Dataset, w *os.File) error {
	dims := ds.Dims()
	lengths := make([]int, len(dims))
	for i, d := range dims {
		lengths[i], _ = ds.Dim(d)
		if lengths[i] == 0 {
			return fmt.Errorf("dimension %s has length 0", d)
		}
	}
	h := cdf.NewHeader(dims, lengths)
	for _, k := range ds.Attrs.Keys() {
		v, _ := ds.Attrs.Get(k)
		h.AddAttribute("", k, v)
	}
	names := ds.VarNames()
	for _, name := range names {
		v := ds.Var(name)
		h.AddVariable(name, v.Dims, prototype(v.Type))
		for _, k := range v.Attrs.Keys() {
			a, _ := v.Attrs.Get(k)
			h.AddAttribute(name, k, a)
		}
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, name := range names {
		if err = wr.writeVar(f, ds.Var(name)); err != nil {
			return fmt.Errorf("writing variable %s: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// prototype returns a value of the Go type that cdf stores as t.
func prototype(t DataType) interface{} {
	switch t {
	case Double:
		return []float64{0}
	case Int:
		return []int32{0}
	case Short:
		return []int16{0}
	case Byte:
		return []uint8{0}
	}
	return []float32{0}
}

// writeVar writes the data of v in blocks that are contiguous in the
// file.
func (wr Writer) writeVar(f *cdf.File, v *Variable) error {
	shape := v.Data.Shape
	if len(shape) < 2 {
		var begin, end []int
		if len(shape) == 1 {
			begin, end = []int{0}, []int{shape[0] - 1}
		}
		return writeBlock(f, v, begin, end, v.Data.Elements)
	}

	ny, nx := shape[len(shape)-2], shape[len(shape)-1]
	rows, cols := wr.ChunkY, nx
	if rows < 1 {
		rows = 1
	}
	if wr.ChunkX > 0 && nx > wr.ChunkX {
		rows, cols = 1, wr.ChunkX
	}
	lead := make([]int, len(shape)-2)
	nLead := len(v.Data.Elements) / (ny * nx)
	for l := 0; l < nLead; l++ {
		// Unravel l into the indices of the leading dimensions.
		r := l
		for i := len(lead) - 1; i >= 0; i-- {
			lead[i] = r % shape[i]
			r /= shape[i]
		}
		for y0 := 0; y0 < ny; y0 += rows {
			y1 := y0 + rows
			if y1 > ny {
				y1 = ny
			}
			for x0 := 0; x0 < nx; x0 += cols {
				x1 := x0 + cols
				if x1 > nx {
					x1 = nx
				}
				begin := append(append([]int(nil), lead...), y0, x0)
				end := append(append([]int(nil), lead...), y1-1, x1-1)
				off := (l*ny+y0)*nx + x0
				n := (y1-y0-1)*nx + (x1 - x0)
				if err := writeBlock(f, v, begin, end, v.Data.Elements[off:off+n]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeBlock converts vals to the storage type of v and writes them to
// the file region from begin to end, both inclusive.
func writeBlock(f *cdf.File, v *Variable, begin, end []int, vals []float64) error {
	var data interface{}
	switch v.Type {
	case Double:
		data = vals
	case Float:
		d := make([]float32, len(vals))
		for i, e := range vals {
			d[i] = float32(e)
		}
		data = d
	case Int:
		d := make([]int32, len(vals))
		for i, e := range vals {
			d[i] = int32(e)
		}
		data = d
	case Short:
		d := make([]int16, len(vals))
		for i, e := range vals {
			d[i] = int16(e)
		}
		data = d
	case Byte:
		d := make([]uint8, len(vals))
		for i, e := range vals {
			d[i] = uint8(int64(e))
		}
		data = d
	default:
		return fmt.Errorf("unsupported type %v", v.Type)
	}
	n, err := f.Writer(v.Name, begin, end).Write(data)
	// The writer reports io.EOF when the block reaches the end of the
	// variable's data.
	if err != nil && !(err == io.EOF && n == len(vals)) {
		return err
	}
	return nil
}
