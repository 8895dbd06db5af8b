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
	"math"
	"sort"

	"github.com/BurntSushi/toml"
)

// entry is one key-value pair of a lookup table.
type entry struct{ key, value string }

// RecordNumbers maps the record numbers of the MITRAS binary output
// format to canonical variable names. A record number that holds more than
// one field must be split into suffixed keys ("18b_rec", "18c_rec", ...).
type RecordNumbers struct {
	names map[string]string
	set   map[string]bool
}

// NewRecordNumbers builds a record-number table from key-name pairs,
// given as alternating keys and names. Duplicate keys are an error.
func NewRecordNumbers(pairs ...string) (*RecordNumbers, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("nc2atmodat: odd number of record table entries")
	}
	r := &RecordNumbers{
		names: make(map[string]string, len(pairs)/2),
		set:   make(map[string]bool, len(pairs)/2),
	}
	for i := 0; i < len(pairs); i += 2 {
		key, name := pairs[i], pairs[i+1]
		if prev, ok := r.names[key]; ok {
			return nil, fmt.Errorf("nc2atmodat: record number %q maps to both %q and %q; "+
				"use distinct suffixed keys", key, prev, name)
		}
		r.names[key] = name
		r.set[name] = true
	}
	return r, nil
}

// Lookup returns the variable name for record number key.
func (r *RecordNumbers) Lookup(key string) (string, error) {
	name, ok := r.names[key]
	if !ok {
		return "", fmt.Errorf("%w: record number %q", ErrNotFound, key)
	}
	return name, nil
}

// Contains reports whether name is one of the table's variable names.
func (r *RecordNumbers) Contains(name string) bool { return r.set[name] }

// Names returns the sorted set of variable names in the table.
func (r *RecordNumbers) Names() []string {
	o := make([]string, 0, len(r.set))
	for n := range r.set {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// AttributeCorrections maps variable names to attributes that should be
// set on them in the output.
type AttributeCorrections struct {
	m map[string]*Attributes
}

// For returns a copy of the corrections for variable name.
func (c *AttributeCorrections) For(name string) (*Attributes, bool) {
	a, ok := c.m[name]
	if !ok {
		return nil, false
	}
	return a.Copy(), true
}

// Variables returns the sorted names of the corrected variables.
func (c *AttributeCorrections) Variables() []string {
	o := make([]string, 0, len(c.m))
	for n := range c.m {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// with returns a copy of c with the corrections in o merged over it.
func (c *AttributeCorrections) with(o map[string]*Attributes) *AttributeCorrections {
	n := &AttributeCorrections{m: make(map[string]*Attributes, len(c.m)+len(o))}
	for k, v := range c.m {
		n.m[k] = v.Copy()
	}
	for k, v := range o {
		if a, ok := n.m[k]; ok {
			a.Merge(v)
		} else {
			n.m[k] = v.Copy()
		}
	}
	return n
}

// Tables holds the lookup tables used during a conversion. Tables are
// built once and not modified afterwards.
type Tables struct {
	Records     *RecordNumbers
	Corrections *AttributeCorrections

	// Coordinates maps the letters used in the coordinate table to
	// coordinate names.
	Coordinates map[string]string
}

// coordinateEntries lists the coordinate variables that are always part
// of the output whitelist.
var coordinateEntries = []entry{
	{"a", "lat"}, {"b", "lon"},
	{"c", "i"}, {"d", "j"}, {"e", "k"},
	{"f", "x_utm"}, {"g", "y_utm"},
	{"h", "i_bnds"}, {"i", "j_bnds"}, {"j", "k_bnds"},
	{"k", "x"}, {"l", "y"}, {"m", "z"},
	{"n", "x_bnds"}, {"o", "y_bnds"}, {"p", "z_bnds"},
}

// recordEntries lists the MITRAS output records.
var recordEntries = []entry{
	{"2", "nsfccl"},
	{"10a_rec", "albedo"},
	{"13a_rec", "zvmet"},
	{"13b_rec", "zsmet"},
	{"17_rec", "yzsurf"},
	{"18b_rec", "elam"},
	{"18c_rec", "elat"},
	{"18d_rec", "elon"},
	{"18e_rec", "ephi"},
	{"19_rec", "surfra"},
	{"1010_rec", "building_mask"},
	{"1100_rec", "qvcont"},
	{"1900a_rec", "yz0t"},
	{"1900b_rec", "surfrat"},
	{"2003_rec", "x_wind"},
	{"2103_rec", "y_wind"},
	{"2200_rec", "z_wind"},
	{"3400_rec", "P_total"},
	{"4003_rec", "rhosum"},
	{"5006_rec", "treal"},
	{"5101_rec", "tmrt"},
	{"5102_rec", "utci"},
	{"5103_rec", "pet"},
	{"5104_rec", "pt"},
	{"5901a", "tbuisurf_e"},
	{"5901b", "tbuisurf_w"},
	{"5901c", "tbuisurf_n"},
	{"5901d", "tbuisurf_s"},
	{"5901e", "tbuisurf_t"},
	{"5901f", "tbuisurf_b"},
	{"5902", "tbuisurf_p"},
	{"5910_rec", "sfcbnets"},
	{"5911_rec", "sfcbnetl"},
	{"5912_rec", "sfcbinl"},
	{"5913_rec", "sfcbgskyl"},
	{"5914_rec", "sfcbgroul"},
	{"5921_rec", "sfcbins"},
	{"6000_rec", "averu"},
	{"6001_rec", "ahoru"},
	{"6051_rec", "tkesum"},
	{"6600_rec", "ujstern"},
	{"6601_rec", "tjstern"},
	{"6602_rec", "qvjstern"},
	{"6650_rec", "tjjnb"},
	{"6651_rec", "qvjjnb"},
	{"7006_rec", "rh"},
	{"7103_rec", "qlcsum"},
	{"7203_rec", "qlrsum"},
	{"7210", "qlract"},
	{"7211_rec", "qlrdel"},
	{"7217e", "bqlract_t"},
	{"7217g", "bqlract_p"},
	{"7218e", "bqlrdel_t"},
	{"7218g", "bqlrdel_p"},
	{"8001", "conc01"},
	{"8002", "conc02"},
	{"8100_rec", "ssvd"},
	{"8200_rec", "sssdel"},
	{"8300_rec", "sssint"},
	{"8400_rec", "sssedi"},
	{"8401_rec", "sssint"},
	{"8600_rec", "sswdel"},
	{"8700_rec", "sswint"},
	{"9000_rec", "ssq"},
	{"13400", "p0no"},
	{"15003", "t0no"},
	{"17003", "qv0no"},
	{"17103", "qlc0no"},
	{"18500", "ss0no"},
}

func correctionTable() map[string]*Attributes {
	m := make(map[string]*Attributes)
	add := func(name string, kv ...string) {
		a := NewAttributes()
		for i := 0; i < len(kv); i += 2 {
			a.mustSet(kv[i], kv[i+1])
		}
		m[name] = a
	}
	add("conc01",
		"long_name", "concentration of pm10",
		"standard_name", "mass_concentration_of_pm10_ambient_aerosol_particles_in_air",
		"units", "kg m-3")
	add("ahoru", "comment", "horizontal exchange coefficient for momentum/TKE")
	add("averu", "comment", "vertical exchange coefficient for momentum/TKE")
	add("fzdl", "comment", "The Monin Obukhov Stability parameter is a dimensionless "+
		"length parameter used in boundary layer meteorology to parameterize fluxes in "+
		"the surface layer. It defined as the ratio of the reference (measurement) "+
		"height (z) and the Obukhov length scale (L). Reference: Srivastava et al. "+
		"2017, https://doi.org/10.1007/s10546-017-0273-y.")
	add("nsfccl", "comment", "Identifier for each surface cover class used in this "+
		"model domain. This variable is related to surface variables.")
	add("qvrf2m", "comment", "2m relative humidity")
	add("t2m", "comment", "2m temperature is calculated by interpolating between the "+
		"lowest model level and the Earth's surface, taking account of the "+
		"atmospheric conditions")
	add("ustern", "comment", "friction velocity")

	// The input carries placeholder comments for these; an empty
	// correction is stripped during normalization.
	add("elam", "comment", "")
	add("ephi", "comment", "")

	add("zvmet",
		"long_name", "height above mean sea level",
		"standard_name", "height_above_mean_sea_level",
		"comment", "height of the vertical grid cell boundary, lowest layer denotes the orography height")

	sides := []struct{ suffix, where string }{
		{"e", "at eastern building wall"},
		{"w", "at western building wall"},
		{"n", "at northern building wall"},
		{"s", "at southern building wall"},
		{"t", "at building roof"},
		{"b", "at building ceiling"},
	}
	fields := []struct{ prefix, what string }{
		{"tbuisurf", "Surface temperature"},
		{"bqlract", "Surface rain water rate"},
		{"bqlrdel", "Surface rain water amount"},
		{"bqlrint", "Surface rain water"},
	}
	for _, f := range fields {
		for _, s := range sides {
			add(f.prefix+"_"+s.suffix, "comment", f.what+" "+s.where)
		}
		add(f.prefix+"_p", "comment", "Plane view of "+lowerFirst(f.what)+" at building roof")
	}
	return m
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// DefaultTables returns the built-in lookup tables.
func DefaultTables() *Tables {
	var pairs []string
	coords := make(map[string]string, len(coordinateEntries))
	for _, e := range recordEntries {
		pairs = append(pairs, e.key, e.value)
	}
	for _, e := range coordinateEntries {
		pairs = append(pairs, e.key, e.value)
		coords[e.key] = e.value
	}
	r, err := NewRecordNumbers(pairs...)
	if err != nil {
		panic(err) // The built-in table is fixed.
	}
	return &Tables{
		Records:     r,
		Corrections: &AttributeCorrections{m: correctionTable()},
		Coordinates: coords,
	}
}

// WithCorrections returns a copy of t whose attribute corrections are
// extended by those in the TOML file at path. The file holds one table
// per variable:
//
//	[conc02]
//	long_name = "concentration of pm2.5"
//	units = "kg m-3"
func (t *Tables) WithCorrections(path string) (*Tables, error) {
	o, err := LoadCorrections(path)
	if err != nil {
		return nil, err
	}
	return &Tables{
		Records:     t.Records,
		Corrections: t.Corrections.with(o),
		Coordinates: t.Coordinates,
	}, nil
}

// LoadCorrections reads per-variable attribute corrections from a TOML
// file.
func LoadCorrections(path string) (map[string]*Attributes, error) {
	var raw map[string]map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("nc2atmodat: reading attribute corrections: %w", err)
	}
	o := make(map[string]*Attributes, len(raw))
	for name, attrs := range raw {
		a := NewAttributes()
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := attrs[k]
			switch t := v.(type) {
			case int64:
				if t < math.MinInt32 || t > math.MaxInt32 {
					return nil, fmt.Errorf("nc2atmodat: attribute correction %s:%s: %d does not fit in a 32-bit integer; write it as %d.0 to store a double", name, k, t, t)
				}
				v = []int32{int32(t)}
			case []interface{}:
				f := make([]float64, len(t))
				for i, e := range t {
					switch n := e.(type) {
					case int64:
						f[i] = float64(n)
					case float64:
						f[i] = n
					default:
						return nil, fmt.Errorf("nc2atmodat: attribute correction %s:%s: unsupported array element %T", name, k, e)
					}
				}
				v = f
			}
			if err := a.Set(k, v); err != nil {
				return nil, fmt.Errorf("nc2atmodat: attribute correction %s:%s: %w", name, k, err)
			}
		}
		o[name] = a
	}
	return o, nil
}
