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

package nc2atmodatutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/atmodat/nc2atmodat"
	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	o := make([]string, 0, len(s))
	for _, v := range s {
		if v = os.ExpandEnv(v); v != "" {
			o = append(o, v)
		}
	}
	return o
}

// toIntSliceE converts a configuration value to a slice of integers. The
// value may come from a configuration file, where it is a list, or from
// a command-line flag, where it is a JSON-style string such as "[1,5]".
func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var o []int
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return cast.ToIntSliceE(s)
	}
}

// toRange converts a configuration value holding two indices to a Range.
func toRange(cfg *viper.Viper, varName string) (nc2atmodat.Range, error) {
	v, err := toIntSliceE(cfg.Get(varName))
	if err != nil {
		return nc2atmodat.Range{}, fmt.Errorf("nc2atmodatutil: parsing %s: %v", varName, err)
	}
	if len(v) != 2 {
		return nc2atmodat.Range{}, fmt.Errorf("nc2atmodatutil: %s must hold 2 indices but has %d", varName, len(v))
	}
	return nc2atmodat.Range{Lo: v[0], Hi: v[1]}, nil
}

// ConvertConfig creates a conversion configuration from the settings in
// cfg. Environment variables in paths are expanded. The returned
// configuration has not been validated; NewConverter does that.
func ConvertConfig(cfg *viper.Viper) (nc2atmodat.Config, error) {
	c := nc2atmodat.DefaultConfig()
	c.InputDir = os.ExpandEnv(cfg.GetString("InputDir"))
	c.InputFiles = expandStringSlice(cfg.GetStringSlice("InputFiles"))
	c.MetadataFile = os.ExpandEnv(cfg.GetString("MetadataFile"))
	c.Sheet = nc2atmodat.SheetSpec{
		Sheet:       cfg.GetString("Sheet.Name"),
		HeaderRow:   cfg.GetInt("Sheet.HeaderRow"),
		Rows:        cfg.GetInt("Sheet.Rows"),
		KeyColumn:   cfg.GetInt("Sheet.KeyColumn"),
		ValueColumn: cfg.GetInt("Sheet.ValueColumn"),
	}
	c.UTMZone = cfg.GetInt("UTMZone")
	c.Extras = expandStringSlice(cfg.GetStringSlice("Extras"))
	c.OutputDir = os.ExpandEnv(cfg.GetString("OutputDir"))
	c.ChunkX = cfg.GetInt("ChunkX")
	c.ChunkY = cfg.GetInt("ChunkY")
	c.VectorCoordinates = cfg.GetBool("VectorCoordinates")
	c.AddCellMethods = cfg.GetBool("AddCellMethods")
	c.TimeBounds = cfg.GetBool("TimeBounds")
	c.GridMapping = cfg.GetBool("GridMapping")
	c.CorrectionsFile = os.ExpandEnv(cfg.GetString("CorrectionsFile"))

	if cfg.GetBool("UseCrop") {
		var crop nc2atmodat.SpatialCrop
		for _, r := range []struct {
			name string
			dst  *nc2atmodat.Range
		}{{"Crop.I", &crop.I}, {"Crop.J", &crop.J}, {"Crop.K", &crop.K}} {
			var err error
			if *r.dst, err = toRange(cfg, r.name); err != nil {
				return c, err
			}
		}
		c.Crop = &crop
	}
	if cfg.GetBool("UseTimeCrop") {
		r, err := toRange(cfg, "TimeCrop.Range")
		if err != nil {
			return c, err
		}
		c.TimeCrop = &r
	}
	if cfg.GetBool("UseReference") {
		c.Reference = &geom.Point{
			X: cfg.GetFloat64("Reference.X"),
			Y: cfg.GetFloat64("Reference.Y"),
		}
	}
	return c, nil
}
