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
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/requestcache"
	"github.com/tealeg/xlsx"
)

const stageMetadata = "inject metadata"

// SheetSpec says where the global attributes are in the metadata
// workbook. Row and column indices start at zero.
type SheetSpec struct {
	// Sheet is the name of the worksheet.
	Sheet string

	// HeaderRow is the row holding the column titles. Attribute rows
	// start directly below it.
	HeaderRow int

	// Rows is the number of rows below HeaderRow that are read.
	Rows int

	// KeyColumn and ValueColumn hold the attribute names and values.
	KeyColumn, ValueColumn int
}

// DefaultSheetSpec matches the layout of the ATMODAT metadata template.
var DefaultSheetSpec = SheetSpec{
	Sheet:       "data_files",
	HeaderRow:   2,
	Rows:        40,
	KeyColumn:   1,
	ValueColumn: 8,
}

// timeFormat is used for creation_date.
const timeFormat = "2006-01-02T15:04:05"

// historyFormat is used for the dates in the history attribute.
const historyFormat = "Mon Jan 02 2006"

// workbookCache holds previously opened workbooks so that a batch of
// files reads each workbook once.
var workbookCache *requestcache.Cache

var workbookCacheOnce sync.Once

func loadWorkbook(path string) (*xlsx.File, error) {
	workbookCacheOnce.Do(func() {
		workbookCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			f, err := xlsx.OpenFile(req.(string))
			if err != nil {
				return nil, fmt.Errorf("nc2atmodat: opening metadata workbook: %v", err)
			}
			return f, nil
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(100))
	})
	r := workbookCache.NewRequest(context.Background(), path, path)
	f, err := r.Result()
	if err != nil {
		return nil, err
	}
	return f.(*xlsx.File), nil
}

// ReadGlobalAttributes reads global attributes from the workbook at path.
// Rows without a value are ignored, as is the last remaining row of the
// range, which holds the template's own history entry. Rows without a key
// are ignored too. "#" characters are removed from keys and values and
// surrounding space is trimmed. A creation_date attribute holding now is
// appended.
func ReadGlobalAttributes(path string, spec SheetSpec, now time.Time) (*Attributes, error) {
	f, err := loadWorkbook(path)
	if err != nil {
		return nil, err
	}
	s, ok := f.Sheet[spec.Sheet]
	if !ok {
		return nil, fmt.Errorf("nc2atmodat: reading metadata; no sheet %s in %s", spec.Sheet, path)
	}

	type row struct{ key, val string }
	var rows []row
	for i := spec.HeaderRow + 1; i <= spec.HeaderRow+spec.Rows; i++ {
		val := clean(cellValue(s, i, spec.ValueColumn))
		if val == "" {
			continue
		}
		rows = append(rows, row{key: clean(cellValue(s, i, spec.KeyColumn)), val: val})
	}
	if len(rows) > 0 {
		rows = rows[:len(rows)-1]
	}

	a := NewAttributes()
	for _, r := range rows {
		if r.key == "" {
			continue
		}
		a.mustSet(r.key, r.val)
	}
	a.mustSet("creation_date", now.Format(timeFormat))
	return a, nil
}

// cellValue returns the text of a cell, or "" if the cell is outside
// the sheet's data.
func cellValue(s *xlsx.Sheet, row, col int) string {
	if row >= len(s.Rows) || s.Rows[row] == nil || col >= len(s.Rows[row].Cells) {
		return ""
	}
	c := s.Rows[row].Cells[col]
	if c == nil {
		return ""
	}
	return c.Value
}

func clean(s string) string {
	return strings.TrimSpace(strings.Replace(s, "#", "", -1))
}

// History returns the provenance record for a file converted from the
// input at path.
func History(path string, now time.Time) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("nc2atmodat: building history: %v", err)
	}
	return fmt.Sprintf("%s: data created with m2cdf \n%s: data standardised with nc2atmodat",
		fi.ModTime().Format(historyFormat), now.Format(historyFormat)), nil
}

// DeleteDeprecated removes the global attributes written by the model
// that the ATMODAT standard replaces.
func DeleteDeprecated(ds *Dataset) {
	for _, k := range deprecatedGlobalAttributes {
		ds.Attrs.Delete(k)
	}
}

// InjectMetadata sets the global attributes of ds: the attributes in meta
// are merged over the ones from the input file, the history attribute is
// set, and deprecated attributes are removed. If extent is not nil, the
// geospatial extent attributes that meta does not provide are added.
func InjectMetadata(ds *Dataset, meta *Attributes, history string, extent *geom.Bounds) StageResult {
	if meta != nil {
		ds.Attrs.Merge(meta)
	}
	if history != "" {
		ds.Attrs.mustSet("history", history)
	}
	DeleteDeprecated(ds)
	if extent != nil && !extent.Empty() {
		ea := extentAttributes(extent)
		for _, k := range ea.Keys() {
			if _, ok := ds.Attrs.Get(k); ok {
				continue
			}
			v, _ := ea.Get(k)
			ds.Attrs.mustSet(k, v)
		}
	}
	return done(stageMetadata)
}
