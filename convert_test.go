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
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// testConfig writes a test input file and a metadata workbook to a
// temporary directory and returns a Config that converts the file into
// a second temporary directory.
func testConfig(t *testing.T, o testOptions) Config {
	t.Helper()
	in := t.TempDir()
	writeTestFile(t, testDataset(t, o), filepath.Join(in, "mitras.nc"))
	cfg := DefaultConfig()
	cfg.InputDir = in
	cfg.InputFiles = []string{"mitras.nc"}
	cfg.MetadataFile = writeTestWorkbook(t, in)
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestConvert(t *testing.T) {
	for _, o := range []testOptions{
		{reference: true},
		{complexTerrain: true},
	} {
		cfg := testConfig(t, o)
		cfg.TimeBounds = true
		cfg.GridMapping = true
		c, err := NewConverter(cfg)
		if err != nil {
			t.Fatal(err)
		}
		c.Log = quietLogger()
		c.now = func() time.Time { return time.Date(2021, 5, 6, 12, 0, 0, 0, time.UTC) }

		out, stages, err := c.Convert(context.Background(), cfg.Paths()[0])
		if err != nil {
			t.Fatalf("%+v: %v\n%# v", o, err, pretty.Formatter(stages))
		}
		if want := filepath.Join(cfg.OutputDir, "nc2atmodat_mitras.nc"); out != want {
			t.Errorf("output: have %s, want %s", out, want)
		}
		for _, s := range stages {
			if s.Status == Fatal {
				t.Errorf("%+v: stage %s", o, s)
			}
		}

		ds, r := Load(out)
		mustDone(t, r)
		for _, name := range []string{"treal", "x", "y", dimTime, "time_bnds", "lat", "lon", "x_utm", "y_utm", "crs"} {
			if !ds.Has(name) {
				t.Errorf("%+v: %s is missing from the output", o, name)
			}
		}
		if o.complexTerrain {
			// Level heights vary in space, so k stays a model-level index.
			if ds.Has("z") {
				t.Errorf("%+v: z written under complex terrain", o)
			}
			k := ds.Var(dimK)
			if k == nil {
				t.Fatalf("%+v: k is missing from the output", o)
			}
			if k.Type != Int {
				t.Errorf("%+v: k type: have %v, want %v", o, k.Type, Int)
			}
			checkValues(t, "k", column(k.Data), []float64{0, 1, 2})
		} else if !ds.Has("z") {
			t.Errorf("%+v: z is missing from the output", o)
		}
		if ds.Has("junk") {
			t.Errorf("%+v: junk was written", o)
		}
		if o.complexTerrain == ds.Has("z_bnds") {
			t.Errorf("%+v: z_bnds present: %v", o, ds.Has("z_bnds"))
		}
		if v, _ := ds.Attrs.Get("title"); v != "ATMODAT test" {
			t.Errorf("%+v: title: have %v", o, v)
		}
		if v, _ := ds.Attrs.Get("creation_date"); v != "2021-05-06T12:00:00" {
			t.Errorf("%+v: creation_date: have %v", o, v)
		}
		if _, ok := ds.Attrs.Get("Model"); ok {
			t.Errorf("%+v: deprecated attribute Model was kept", o)
		}
		h, _ := ds.Attrs.Get("history")
		if s, _ := h.(string); !strings.HasSuffix(s, "Thu May 06 2021: data standardised with nc2atmodat") {
			t.Errorf("%+v: history: have %q", o, h)
		}
		if _, ok := ds.Attrs.Get("geospatial_lat_min"); !ok {
			t.Errorf("%+v: geospatial extent is missing", o)
		}
	}
}

func TestConvertAllContinues(t *testing.T) {
	cfg := testConfig(t, testOptions{reference: true})
	cfg.InputFiles = []string{"absent.nc", "mitras.nc"}
	c, err := NewConverter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c.Log = quietLogger()

	results, err := c.ConvertAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("error: have %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("have %d results, want 2", len(results))
	}
	if !errors.Is(results[0].Err, ErrFileNotFound) {
		t.Errorf("first result: have %v, want %v", results[0].Err, ErrFileNotFound)
	}
	if results[1].Err != nil {
		t.Errorf("second result: %v", results[1].Err)
	}
	if _, err := os.Stat(results[1].Output); err != nil {
		t.Error(err)
	}
}

func TestConvertAllCancelled(t *testing.T) {
	cfg := testConfig(t, testOptions{})
	c, err := NewConverter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c.Log = quietLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := c.ConvertAll(ctx)
	if err != context.Canceled {
		t.Errorf("error: have %v, want %v", err, context.Canceled)
	}
	if len(results) != 0 {
		t.Errorf("have %d results, want 0", len(results))
	}
}

func TestConvertWithoutMetadata(t *testing.T) {
	cfg := testConfig(t, testOptions{reference: true})
	cfg.MetadataFile = ""
	c, err := NewConverter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c.Log = quietLogger()
	out, _, err := c.Convert(context.Background(), cfg.Paths()[0])
	if err != nil {
		t.Fatal(err)
	}
	ds, r := Load(out)
	mustDone(t, r)
	if v, _ := ds.Attrs.Get("title"); v != "test run" {
		t.Errorf("title: have %v, want the input file's title", v)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := ioutil.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	valid := DefaultConfig()
	valid.InputFiles = []string{"a.nc"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	for _, test := range []struct {
		name   string
		modify func(*Config)
	}{
		{"no input", func(c *Config) { c.InputFiles = nil }},
		{"zone", func(c *Config) { c.UTMZone = 61 }},
		{"chunks", func(c *Config) { c.ChunkY = 0 }},
		{"crop span", func(c *Config) { c.Crop = &SpatialCrop{I: Range{0, 10}, J: Range{2, 4}, K: Range{0, 5}} }},
		{"crop start", func(c *Config) { c.Crop = &SpatialCrop{I: Range{-1, 10}, J: Range{0, 10}, K: Range{0, 5}} }},
		{"time crop", func(c *Config) { c.TimeCrop = &Range{2, 2} }},
		{"metadata", func(c *Config) { c.MetadataFile = filepath.Join(dir, "absent.xlsx") }},
		{"sheet", func(c *Config) { c.MetadataFile = file; c.Sheet.Sheet = "" }},
		{"corrections", func(c *Config) { c.CorrectionsFile = filepath.Join(dir, "absent.toml") }},
		{"output dir", func(c *Config) { c.OutputDir = filepath.Join(dir, "absent") }},
		{"output file", func(c *Config) { c.OutputDir = file }},
	} {
		t.Run(test.name, func(t *testing.T) {
			c := valid.clone()
			test.modify(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("have %v, want %v", err, ErrInvalidConfig)
			}
			if _, err := NewConverter(c); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewConverter: have %v, want %v", err, ErrInvalidConfig)
			}
		})
	}
}

func TestConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputFiles = []string{"a.nc"}
	cfg.Reference = &geom.Point{X: 1, Y: 2}
	c, err := NewConverter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.InputFiles[0] = "b.nc"
	cfg.Reference.X = 3
	have := c.Config()
	if have.InputFiles[0] != "a.nc" || have.Reference.X != 1 {
		t.Errorf("converter config changed with its source: %+v", have)
	}
}

func TestPaths(t *testing.T) {
	cfg := Config{InputDir: "/data", InputFiles: []string{"a.nc", "/abs/b.nc"}}
	want := []string{filepath.Join("/data", "a.nc"), "/abs/b.nc"}
	if diff := pretty.Diff(cfg.Paths(), want); len(diff) > 0 {
		t.Error(diff)
	}
}
