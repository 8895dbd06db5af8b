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
	"strings"
)

const stageSelect = "select output"

// SelectOutput removes every variable from ds that should not be
// written. Data variables are kept if their names appear in the
// record-number table or in extras. The coordinate variables of the
// dimensions they use are kept too, as are the variables that kept
// variables refer to through their bounds or grid_mapping attributes.
// Unused dimensions are removed.
//
// Requested extras that are not in ds are listed in the result's Reason.
// If no data variable is left, the result is fatal with ErrNoVariables.
func SelectOutput(ds *Dataset, names *RecordNumbers, extras []string) StageResult {
	keep := make(map[string]bool)
	for _, name := range ds.VarNames() {
		if !ds.IsCoordinate(name) && names.Contains(name) {
			keep[name] = true
		}
	}
	var absent []string
	for _, name := range extras {
		if ds.Has(name) {
			keep[name] = true
		} else {
			absent = append(absent, name)
		}
	}
	var data int
	for name := range keep {
		if !ds.IsCoordinate(name) {
			data++
		}
	}
	if data == 0 {
		return fatal(stageSelect, fmt.Errorf("%w; add variables to the output list or the extras", ErrNoVariables))
	}

	// Follow references until nothing new is added; bounds variables have
	// dimensions of their own.
	for changed := true; changed; {
		changed = false
		for _, name := range ds.VarNames() {
			if !keep[name] {
				continue
			}
			v := ds.Var(name)
			refs := append([]string(nil), v.Dims...)
			for _, attr := range []string{"bounds", "grid_mapping"} {
				if s, ok := v.Attrs.String(attr); ok {
					refs = append(refs, s)
				}
			}
			for _, ref := range refs {
				if ds.Has(ref) && !keep[ref] {
					keep[ref] = true
					changed = true
				}
			}
		}
	}

	for _, name := range ds.VarNames() {
		if !keep[name] {
			ds.DeleteVar(name)
		}
	}
	ds.pruneDims()

	if len(absent) > 0 {
		r := done(stageSelect)
		r.Reason = "requested variables not in dataset: " + strings.Join(absent, ", ")
		return r
	}
	return done(stageSelect)
}
