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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

const (
	stageGeocoord       = "geocoordinates"
	stageGeocoordVector = "vector geocoordinates"
	stageGridMapping    = "grid mapping"
)

// gridMappingName is the name of the variable that describes the
// projection of the UTM coordinates.
const gridMappingName = "crs"

const longLatProj = "+proj=longlat +datum=WGS84 +no_defs"

// Projection converts between geographic coordinates in degrees and UTM
// coordinates in metres.
type Projection struct {
	Zone             int
	forward, inverse proj.Transformer
}

// NewUTM returns the projection for the northern-hemisphere UTM zone on
// the WGS84 ellipsoid.
func NewUTM(zone int) (*Projection, error) {
	if zone < 1 || zone > 60 {
		return nil, fmt.Errorf("nc2atmodat: UTM zone %d is not between 1 and 60", zone)
	}
	utm, err := proj.Parse(fmt.Sprintf("+proj=utm +zone=%d +ellps=WGS84 +datum=WGS84 +units=m +no_defs", zone))
	if err != nil {
		return nil, err
	}
	ll, err := proj.Parse(longLatProj)
	if err != nil {
		return nil, err
	}
	fwd, err := ll.NewTransform(utm)
	if err != nil {
		return nil, err
	}
	inv, err := utm.NewTransform(ll)
	if err != nil {
		return nil, err
	}
	return &Projection{Zone: zone, forward: fwd, inverse: inv}, nil
}

// Forward returns the UTM easting and northing of a longitude and
// latitude.
func (p *Projection) Forward(lon, lat float64) (x, y float64, err error) {
	return p.forward(lon, lat)
}

// Inverse returns the longitude and latitude of a UTM easting and
// northing.
func (p *Projection) Inverse(x, y float64) (lon, lat float64, err error) {
	return p.inverse(x, y)
}

// Reference source names reported by ReferencePoint.
const (
	RefUser    = "user"
	RefDataset = "dataset"
	RefDefault = "default"
)

// ReferencePoint returns the UTM position of the model grid origin and
// where it came from. A non-nil override wins. Otherwise the reference
// longitude elam and latitude ephi stored in ds are projected. If those
// are absent or cannot be projected, the default point is used.
func ReferencePoint(ds *Dataset, p *Projection, override *geom.Point) (geom.Point, string) {
	if override != nil {
		return *override, RefUser
	}
	elam, ephi := ds.Var("elam"), ds.Var("ephi")
	if elam != nil && ephi != nil && len(elam.Values()) > 0 && len(ephi.Values()) > 0 {
		x, y, err := p.Forward(elam.Values()[0], ephi.Values()[0])
		if err == nil && !math.IsNaN(x) && !math.IsNaN(y) {
			return geom.Point{X: x, Y: y}, RefDataset
		}
	}
	return geom.Point{X: DefaultRefX, Y: DefaultRefY}, RefDefault
}

// geoGrid describes one set of model position fields and the variables
// computed from them.
type geoGrid struct {
	xOff, yOff       string // input offsets from the reference point, m
	xUTM, yUTM       string // output UTM coordinates
	lon, lat         string // output geographic coordinates
	xLong, yLong     string // long_name of the UTM coordinates
	lonLong, latLong string // long_name of the geographic coordinates
	standard         bool   // set CF standard names
}

var (
	centreGrid = geoGrid{
		xOff: "lon", yOff: "lat",
		xUTM: "x_utm", yUTM: "y_utm",
		lon: "lon", lat: "lat",
		xLong: "easting", yLong: "northing",
		lonLong: "longitude", latLong: "latitude",
		standard: true,
	}
	uGrid = geoGrid{
		xOff: "lonu", yOff: "latu",
		xUTM: "xu_utm", yUTM: "yu_utm",
		lon: "lonu", lat: "latu",
		xLong: "u-easting", yLong: "u-northing",
		lonLong: "u-longitude", latLong: "u-latitude",
	}
	vGrid = geoGrid{
		xOff: "lonv", yOff: "latv",
		xUTM: "xv_utm", yUTM: "yv_utm",
		lon: "lonv", lat: "latv",
		xLong: "v-easting", yLong: "v-northing",
		lonLong: "v-longitude", latLong: "v-latitude",
	}
)

// Geocoordinates computes UTM and geographic coordinates of the grid
// cell centres. MITRAS stores the distance of each point from the
// reference point in metres in the variables lon (east) and lat (north).
// These are added to ref to give x_utm and y_utm, which are then
// projected back to give true longitudes and latitudes that replace lon
// and lat.
func Geocoordinates(ds *Dataset, p *Projection, ref geom.Point) StageResult {
	if err := centreGrid.check(ds); err != nil {
		return skipped(stageGeocoord, "%v", err)
	}
	if err := centreGrid.compute(ds, p, ref); err != nil {
		return fatal(stageGeocoord, err)
	}
	return done(stageGeocoord)
}

// GeocoordinatesVector does what Geocoordinates does for the points of
// the staggered grids: lonu and latu on (j, iv), and lonv and latv on
// (jv, i).
func GeocoordinatesVector(ds *Dataset, p *Projection, ref geom.Point) StageResult {
	for _, g := range []geoGrid{uGrid, vGrid} {
		if err := g.check(ds); err != nil {
			return skipped(stageGeocoordVector, "%v", err)
		}
	}
	for _, g := range []geoGrid{uGrid, vGrid} {
		if err := g.compute(ds, p, ref); err != nil {
			return fatal(stageGeocoordVector, err)
		}
	}
	return done(stageGeocoordVector)
}

func (g geoGrid) check(ds *Dataset) error {
	xo, yo := ds.Var(g.xOff), ds.Var(g.yOff)
	if xo == nil {
		return missing(stageGeocoord, g.xOff)
	}
	if yo == nil {
		return missing(stageGeocoord, g.yOff)
	}
	if len(xo.Values()) != len(yo.Values()) {
		return fmt.Errorf("nc2atmodat: %s and %s have different sizes", g.xOff, g.yOff)
	}
	return nil
}

func (g geoGrid) compute(ds *Dataset, p *Projection, ref geom.Point) error {
	xo, yo := ds.Var(g.xOff), ds.Var(g.yOff)
	dims := append([]string(nil), xo.Dims...)
	shape := append([]int(nil), xo.Data.Shape...)

	xu := sparse.ZerosDense(shape...)
	yu := sparse.ZerosDense(shape...)
	lon := sparse.ZerosDense(shape...)
	lat := sparse.ZerosDense(shape...)
	for i := range xu.Elements {
		x := ref.X + xo.Data.Elements[i]
		y := ref.Y + yo.Data.Elements[i]
		lo, la, err := p.Inverse(x, y)
		if err != nil {
			return fmt.Errorf("nc2atmodat: projecting %s point %d: %v", g.xUTM, i, err)
		}
		xu.Elements[i], yu.Elements[i] = x, y
		lon.Elements[i], lat.Elements[i] = lo, la
	}

	vars := []struct {
		name, longName, std, units string
		data                       *sparse.DenseArray
	}{
		{g.xUTM, g.xLong, "projection_x_coordinate", "m", xu},
		{g.yUTM, g.yLong, "projection_y_coordinate", "m", yu},
		{g.lon, g.lonLong, "longitude", "degrees_east", lon},
		{g.lat, g.latLong, "latitude", "degrees_north", lat},
	}
	for _, vv := range vars {
		v := NewVariable(vv.name, append([]string(nil), dims...), Double, vv.data)
		v.Attrs.mustSet("long_name", vv.longName)
		if g.standard {
			v.Attrs.mustSet("standard_name", vv.std)
		}
		v.Attrs.mustSet("units", vv.units)
		ds.DeleteVar(vv.name)
		if err := ds.SetVar(v); err != nil {
			return err
		}
	}
	return nil
}

// GridMapping adds a CF grid mapping variable describing the UTM
// projection and links x_utm and y_utm to it.
func GridMapping(ds *Dataset, p *Projection) StageResult {
	if !ds.Has(centreGrid.xUTM) || !ds.Has(centreGrid.yUTM) {
		return skipped(stageGridMapping, "%v", missing(stageGridMapping, centreGrid.xUTM))
	}
	v := NewVariable(gridMappingName, nil, Int, sparse.ZerosDense())
	v.Attrs.mustSet("grid_mapping_name", "transverse_mercator")
	v.Attrs.mustSet("longitude_of_central_meridian", float64(p.Zone*6-183))
	v.Attrs.mustSet("latitude_of_projection_origin", 0.0)
	v.Attrs.mustSet("false_easting", 500000.0)
	v.Attrs.mustSet("false_northing", 0.0)
	v.Attrs.mustSet("scale_factor_at_central_meridian", 0.9996)
	v.Attrs.mustSet("semi_major_axis", 6378137.0)
	v.Attrs.mustSet("inverse_flattening", 298.257223563)
	v.Attrs.mustSet("epsg_code", fmt.Sprintf("EPSG:%d", 32600+p.Zone))
	if err := ds.SetVar(v); err != nil {
		return fatal(stageGridMapping, err)
	}
	for _, name := range []string{centreGrid.xUTM, centreGrid.yUTM} {
		ds.Var(name).Attrs.mustSet("grid_mapping", gridMappingName)
	}
	return done(stageGridMapping)
}

// GeospatialExtent returns the range of the geographic coordinates in
// ds, with longitude along X and latitude along Y. It must be called
// after Geocoordinates.
func GeospatialExtent(ds *Dataset) (*geom.Bounds, error) {
	lon, lat := ds.Var(centreGrid.lon), ds.Var(centreGrid.lat)
	if lon == nil || lat == nil {
		return nil, missing("geospatial extent", "lon")
	}
	if len(lon.Values()) != len(lat.Values()) || len(lon.Values()) == 0 {
		return nil, fmt.Errorf("nc2atmodat: lon and lat have %d and %d values",
			len(lon.Values()), len(lat.Values()))
	}
	b := geom.NewBounds()
	for i, x := range lon.Values() {
		b.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: lat.Values()[i]}))
	}
	return b, nil
}

// extentAttributes returns the ACDD geospatial attributes for b.
func extentAttributes(b *geom.Bounds) *Attributes {
	a := NewAttributes()
	a.mustSet("geospatial_lat_min", b.Min.Y)
	a.mustSet("geospatial_lat_max", b.Max.Y)
	a.mustSet("geospatial_lat_units", "degrees_north")
	a.mustSet("geospatial_lon_min", b.Min.X)
	a.mustSet("geospatial_lon_max", b.Max.X)
	a.mustSet("geospatial_lon_units", "degrees_east")
	return a
}
