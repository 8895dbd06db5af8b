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

import "strings"

const (
	stageCorrect   = "attribute corrections"
	stageNormalize = "normalize attributes"
)

// ApplyCorrections sets the attributes listed in the correction table on
// the variables of ds. Attributes that the table does not name are left
// as they are.
func ApplyCorrections(ds *Dataset, c *AttributeCorrections) StageResult {
	var n int
	for _, name := range c.Variables() {
		v := ds.Var(name)
		if v == nil {
			continue
		}
		a, _ := c.For(name)
		v.Attrs.Merge(a)
		n++
	}
	if n == 0 {
		return skipped(stageCorrect, "no corrected variables in dataset")
	}
	return done(stageCorrect)
}

// NormalizeAttributes removes attributes with empty values from every
// variable and replaces underscores in long names with spaces.
func NormalizeAttributes(ds *Dataset) StageResult {
	for _, name := range ds.VarNames() {
		a := ds.Var(name).Attrs
		for _, k := range a.Keys() {
			v, _ := a.Get(k)
			if isEmptyAttribute(v) {
				a.Delete(k)
			}
		}
		if ln, ok := a.String("long_name"); ok {
			a.mustSet("long_name", strings.Replace(ln, "_", " ", -1))
		}
	}
	return done(stageNormalize)
}
