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

// Package nc2atmodat converts MITRAS/METRAS model output into NetCDF files
// that follow the ATMODAT metadata standard. A conversion is a fixed
// sequence of stages applied to one input file at a time: load, crop,
// dimension reassignment, geographic coordinates, axis renaming, attribute
// correction, output selection, metadata injection and writing.
package nc2atmodat

// Version gives the version number.
const Version = "1.1.0"

// OutputPrefix is prepended to the base name of every input file to form
// the name of the converted file.
const OutputPrefix = "nc2atmodat_"

// Default location of the grid origin in UTM zone 32 (Hamburg), used when
// neither a user reference point nor an embedded reference longitude and
// latitude are available.
const (
	DefaultRefX = 564568.279
	DefaultRefY = 5935921.365
)

// DefaultUTMZone is the UTM zone of the model domain.
const DefaultUTMZone = 32

// Default chunk sizes along the horizontal axes used when writing.
const (
	DefaultChunkX = 400
	DefaultChunkY = 400
)

// droppedVariable is never loaded from the input file; its encoding in
// MITRAS output is not readable.
const droppedVariable = "nsfccl"

// requiredVariables are the variables that the coordinate stages depend
// on. Missing ones are reported but do not stop a conversion.
var requiredVariables = []string{
	"xsmet", "ysmet", "zsmet",
	"xvmet", "yvmet", "zvmet",
	"elam", "ephi",
	"lon", "lat",
}

// deprecatedGlobalAttributes are removed from the output's global
// attributes.
var deprecatedGlobalAttributes = []string{
	"Model", "NCO", "history_of_appended_files", "Convention",
	"Datatype", "Title", "Version", "Institution", "Person",
	"Program", "Project", "Comment",
}

// Names of the grid dimensions as they appear in model output.
const (
	dimI    = "i"
	dimJ    = "j"
	dimK    = "k"
	dimIV   = "iv"
	dimJV   = "jv"
	dimKV   = "kv"
	dimTime = "time"
	dimBnds = "bnds"
)
