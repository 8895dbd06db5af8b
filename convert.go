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
	"fmt"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

// Converter converts MITRAS/METRAS files to ATMODAT-compliant files.
type Converter struct {
	cfg    Config
	tables *Tables
	proj   *Projection

	// Log receives a record of every stage. It defaults to the logrus
	// standard logger.
	Log logrus.FieldLogger

	// now returns the current time; it is replaced in tests.
	now func() time.Time
}

// NewConverter validates cfg and prepares the lookup tables and the
// projection.
func NewConverter(cfg Config) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := DefaultTables()
	if cfg.CorrectionsFile != "" {
		var err error
		if t, err = t.WithCorrections(cfg.CorrectionsFile); err != nil {
			return nil, err
		}
	}
	p, err := NewUTM(cfg.UTMZone)
	if err != nil {
		return nil, err
	}
	return &Converter{
		cfg:    cfg.clone(),
		tables: t,
		proj:   p,
		Log:    logrus.StandardLogger(),
		now:    time.Now,
	}, nil
}

// Config returns a copy of the converter's configuration.
func (c *Converter) Config() Config { return c.cfg.clone() }

// FileResult is the outcome of converting one file.
type FileResult struct {
	Input, Output string
	Stages        []StageResult
	Err           error
}

// ConvertAll converts each input file in turn. A file that fails does not
// stop the others. The returned error is non-nil if any file failed or
// ctx was cancelled.
func (c *Converter) ConvertAll(ctx context.Context) ([]FileResult, error) {
	var results []FileResult
	var failed []string
	for _, path := range c.cfg.Paths() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		out, stages, err := c.Convert(ctx, path)
		results = append(results, FileResult{Input: path, Output: out, Stages: stages, Err: err})
		if err != nil {
			failed = append(failed, path)
			c.Log.WithFields(logrus.Fields{
				"file":  path,
				"error": err,
			}).Error("nc2atmodat conversion failed")
			continue
		}
		c.Log.WithFields(logrus.Fields{
			"file":   path,
			"output": out,
		}).Info("nc2atmodat conversion finished")
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("nc2atmodat: %d of %d files failed: %s",
			len(failed), len(results), strings.Join(failed, ", "))
	}
	return results, nil
}

// pipeline tracks the stages run on one file.
type pipeline struct {
	ctx    context.Context
	log    logrus.FieldLogger
	file   string
	stages []StageResult
}

// record logs r and reports whether processing may continue.
func (p *pipeline) record(r StageResult) bool {
	p.stages = append(p.stages, r)
	l := p.log.WithFields(logrus.Fields{
		"file":  p.file,
		"stage": r.Stage,
	})
	switch r.Status {
	case Done:
		if r.Reason != "" {
			l.WithField("reason", r.Reason).Warn("nc2atmodat stage done with warnings")
		} else {
			l.Debug("nc2atmodat stage done")
		}
	case Skipped:
		l.WithField("reason", r.Reason).Warn("nc2atmodat stage skipped")
	case Fatal:
		l.WithField("reason", r.Reason).Error("nc2atmodat stage failed")
		return false
	}
	return p.ctx.Err() == nil
}

// err returns the error that stopped the pipeline.
func (p *pipeline) err() error {
	if len(p.stages) > 0 {
		if last := p.stages[len(p.stages)-1]; last.Status == Fatal {
			return last.Err
		}
	}
	return p.ctx.Err()
}

// Convert converts the file at path and returns the path of the
// converted file together with the outcome of every stage.
func (c *Converter) Convert(ctx context.Context, path string) (string, []StageResult, error) {
	p := &pipeline{ctx: ctx, log: c.Log, file: path}

	ds, r := Load(path)
	if !p.record(r) {
		return "", p.stages, p.err()
	}

	if !p.record(CropSpace(ds, c.cfg.Crop)) {
		return "", p.stages, p.err()
	}
	if c.cfg.TimeCrop != nil {
		if !p.record(CropTime(ds, *c.cfg.TimeCrop)) {
			return "", p.stages, p.err()
		}
	}

	terrain, err := DetectTerrain(ds)
	if err != nil {
		p.record(skipped("terrain detection", "%v", err))
	} else {
		c.Log.WithFields(logrus.Fields{"file": path, "terrain": terrain}).Debug("nc2atmodat terrain")
	}
	steps := []func() StageResult{
		func() StageResult { return ReassignHorizontal(ds) },
		func() StageResult { return ReassignVertical(ds, terrain) },
		func() StageResult { return CreateBounds(ds, terrain) },
		func() StageResult { return AddTimeAttributes(ds) },
	}
	if c.cfg.TimeBounds {
		steps = append(steps, func() StageResult { return CreateTimeBounds(ds) })
	}
	for _, s := range steps {
		if !p.record(s()) {
			return "", p.stages, p.err()
		}
	}

	ref, refSource := ReferencePoint(ds, c.proj, c.cfg.Reference)
	c.Log.WithFields(logrus.Fields{
		"file":   path,
		"x":      ref.X,
		"y":      ref.Y,
		"source": refSource,
	}).Info("nc2atmodat reference point")
	geo := Geocoordinates(ds, c.proj, ref)
	if !p.record(geo) {
		return "", p.stages, p.err()
	}
	var extent *geom.Bounds
	if geo.Status == Done {
		if extent, err = GeospatialExtent(ds); err != nil {
			p.record(skipped("geospatial extent", "%v", err))
		}
	}
	steps = steps[:0]
	if c.cfg.VectorCoordinates {
		steps = append(steps, func() StageResult { return GeocoordinatesVector(ds, c.proj, ref) })
	}
	if c.cfg.GridMapping {
		steps = append(steps, func() StageResult { return GridMapping(ds, c.proj) })
	}
	for _, s := range steps {
		if !p.record(s()) {
			return "", p.stages, p.err()
		}
	}

	renames, r := RenameAxes(ds, terrain)
	if !p.record(r) {
		return "", p.stages, p.err()
	}
	steps = []func() StageResult{
		func() StageResult { return RewriteCellMethods(ds, renames) },
	}
	if c.cfg.AddCellMethods {
		steps = append(steps, func() StageResult { return AddCellMethods(ds) })
	}
	steps = append(steps,
		func() StageResult { return SelectOutput(ds, c.tables.Records, c.cfg.Extras) },
		func() StageResult { return ApplyCorrections(ds, c.tables.Corrections) },
		func() StageResult { return NormalizeAttributes(ds) },
		func() StageResult { return c.injectMetadata(ds, path, extent) },
	)
	for _, s := range steps {
		if !p.record(s()) {
			return "", p.stages, p.err()
		}
	}

	out := OutputPath(path, c.cfg.OutputDir)
	w := Writer{ChunkX: c.cfg.ChunkX, ChunkY: c.cfg.ChunkY}
	if !p.record(w.WriteFile(ds, out)) {
		return "", p.stages, p.err()
	}
	return out, p.stages, nil
}

func (c *Converter) injectMetadata(ds *Dataset, path string, extent *geom.Bounds) StageResult {
	var meta *Attributes
	if c.cfg.MetadataFile != "" {
		var err error
		meta, err = ReadGlobalAttributes(c.cfg.MetadataFile, c.cfg.Sheet, c.now())
		if err != nil {
			return fatal(stageMetadata, err)
		}
	}
	history, err := History(path, c.now())
	if err != nil {
		return fatal(stageMetadata, err)
	}
	return InjectMetadata(ds, meta, history, extent)
}
