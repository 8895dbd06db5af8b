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
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when an input file does not exist.
	ErrFileNotFound = errors.New("nc2atmodat: input file not found")

	// ErrInvalidCrop is returned for crop ranges that are out of bounds or
	// empty.
	ErrInvalidCrop = errors.New("nc2atmodat: invalid crop range")

	// ErrNoVariables is returned when output selection leaves nothing to
	// write.
	ErrNoVariables = errors.New("nc2atmodat: no variables provided")

	// ErrNotFound is returned by table lookups of unknown keys.
	ErrNotFound = errors.New("nc2atmodat: not found")

	// ErrMissingVariable is returned when a stage lacks a variable it needs.
	ErrMissingVariable = errors.New("nc2atmodat: missing variable")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("nc2atmodat: invalid configuration")
)

// Status is the outcome of a pipeline stage.
type Status int

// Stage outcomes.
const (
	// Done means the stage ran and changed the dataset as intended.
	Done Status = iota
	// Skipped means the stage could not run, usually because a precursor
	// variable is missing, and left the dataset unchanged.
	Skipped
	// Fatal means processing of the current file must stop.
	Fatal
)

func (s Status) String() string {
	switch s {
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StageResult records what a stage did.
type StageResult struct {
	Stage  string
	Status Status
	Reason string // why the stage was skipped or failed
	Err    error  // set when Status is Fatal
}

func done(stage string) StageResult {
	return StageResult{Stage: stage, Status: Done}
}

func skipped(stage, format string, args ...interface{}) StageResult {
	return StageResult{Stage: stage, Status: Skipped, Reason: fmt.Sprintf(format, args...)}
}

func fatal(stage string, err error) StageResult {
	return StageResult{Stage: stage, Status: Fatal, Reason: err.Error(), Err: err}
}

func (r StageResult) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s: %s", r.Stage, r.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Stage, r.Status, r.Reason)
}

// missing returns an error reporting that variable name, needed by stage,
// is absent.
func missing(stage, name string) error {
	return fmt.Errorf("%w %s needed by %s", ErrMissingVariable, name, stage)
}
