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
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
)

// Config holds the settings of a conversion run. A Converter keeps its
// own copy, so changes made after NewConverter returns have no effect.
type Config struct {
	// InputDir is prepended to relative InputFiles.
	InputDir string

	// InputFiles are the MITRAS/METRAS NetCDF files to convert.
	InputFiles []string

	// MetadataFile is the workbook holding the global attributes. If it
	// is empty, only the attributes of the input file are kept.
	MetadataFile string

	// Sheet says where the attributes are in MetadataFile.
	Sheet SheetSpec

	// Crop holds user index ranges for the spatial axes. If nil, only the
	// halo cells are removed.
	Crop *SpatialCrop

	// TimeCrop, if not nil, restricts the time steps to [Lo, Hi).
	TimeCrop *Range

	// Reference, if not nil, overrides the UTM position of the grid
	// origin.
	Reference *geom.Point

	// UTMZone is the UTM zone of the model domain.
	UTMZone int

	// Extras are variables to write in addition to the ones in the
	// record-number table.
	Extras []string

	// OutputDir is where converted files are written. If empty, each
	// converted file is placed next to its input.
	OutputDir string

	// ChunkX and ChunkY are the block sizes used when writing.
	ChunkX, ChunkY int

	// VectorCoordinates adds UTM and geographic coordinates of the
	// staggered grid points.
	VectorCoordinates bool

	// AddCellMethods adds generic cell_methods to variables lacking them.
	AddCellMethods bool

	// TimeBounds adds a time_bnds variable.
	TimeBounds bool

	// GridMapping adds a crs variable describing the UTM projection.
	GridMapping bool

	// CorrectionsFile is an optional TOML file of attribute corrections
	// that extend the built-in ones.
	CorrectionsFile string
}

// DefaultConfig returns a Config with default settings and no input
// files.
func DefaultConfig() Config {
	return Config{
		Sheet:   DefaultSheetSpec,
		UTMZone: DefaultUTMZone,
		ChunkX:  DefaultChunkX,
		ChunkY:  DefaultChunkY,
	}
}

// Paths returns the input file paths with InputDir applied.
func (c Config) Paths() []string {
	o := make([]string, len(c.InputFiles))
	for i, f := range c.InputFiles {
		if c.InputDir != "" && !filepath.IsAbs(f) {
			f = filepath.Join(c.InputDir, f)
		}
		o[i] = f
	}
	return o
}

// Validate checks c for settings that would make every conversion fail.
// The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if len(c.InputFiles) == 0 {
		return invalid("no input files")
	}
	if c.UTMZone < 1 || c.UTMZone > 60 {
		return invalid("UTM zone %d is not between 1 and 60", c.UTMZone)
	}
	if c.ChunkX < 1 || c.ChunkY < 1 {
		return invalid("chunk sizes must be positive; got %d x %d", c.ChunkX, c.ChunkY)
	}
	if c.Crop != nil {
		for _, r := range []struct {
			axis string
			Range
		}{{dimI, c.Crop.I}, {dimJ, c.Crop.J}, {dimK, c.Crop.K}} {
			if r.Lo < 0 || r.Hi-r.Lo < 3 {
				return invalid("crop range [%d, %d] for axis %s must start at or above 0 and span at least 3 indices",
					r.Lo, r.Hi, r.axis)
			}
		}
	}
	if c.TimeCrop != nil && (c.TimeCrop.Lo < 0 || c.TimeCrop.Lo >= c.TimeCrop.Hi) {
		return invalid("time range [%d, %d) is empty", c.TimeCrop.Lo, c.TimeCrop.Hi)
	}
	if c.MetadataFile != "" {
		if _, err := os.Stat(c.MetadataFile); err != nil {
			return invalid("metadata workbook: %v", err)
		}
		if c.Sheet.Sheet == "" || c.Sheet.Rows < 1 || c.Sheet.HeaderRow < 0 ||
			c.Sheet.KeyColumn < 0 || c.Sheet.ValueColumn < 0 {
			return invalid("metadata sheet layout %+v", c.Sheet)
		}
	}
	if c.CorrectionsFile != "" {
		if _, err := os.Stat(c.CorrectionsFile); err != nil {
			return invalid("corrections file: %v", err)
		}
	}
	if c.OutputDir != "" {
		fi, err := os.Stat(c.OutputDir)
		if err != nil {
			return invalid("output directory: %v", err)
		}
		if !fi.IsDir() {
			return invalid("output directory %s is not a directory", c.OutputDir)
		}
	}
	return nil
}

// clone returns a copy of c that shares no memory with it.
func (c Config) clone() Config {
	o := c
	o.InputFiles = append([]string(nil), c.InputFiles...)
	o.Extras = append([]string(nil), c.Extras...)
	if c.Crop != nil {
		cr := *c.Crop
		o.Crop = &cr
	}
	if c.TimeCrop != nil {
		tc := *c.TimeCrop
		o.TimeCrop = &tc
	}
	if c.Reference != nil {
		p := *c.Reference
		o.Reference = &p
	}
	return o
}
