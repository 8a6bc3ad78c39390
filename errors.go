/*
Copyright © 2026 the gridcompare authors.
This file is part of gridcompare.

gridcompare is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridcompare is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridcompare.  If not, see <http://www.gnu.org/licenses/>.*/

package gridcompare

import (
	"fmt"
	"math"
)

// AlignmentError is returned when the two grids of a variable do not
// share the same geometry.
type AlignmentError struct {
	Variable string

	// Field is the mismatched property: columns, rows, cellsize,
	// xmin or ymin.
	Field string

	Scenario1, Scenario2 float64
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("gridcompare: %s: scenario grids are not aligned: %s is %g in scenario 1 and %g in scenario 2 (difference %g)",
		e.Variable, e.Field, e.Scenario1, e.Scenario2, math.Abs(e.Scenario2-e.Scenario1))
}

// GeometryError describes a parcel that cannot be rasterized.
type GeometryError struct {
	ParcelID string
	Reason   string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("gridcompare: parcel %q: %s", e.ParcelID, e.Reason)
}

// ComputationError indicates an internal inconsistency, such as a mask
// referring to a cell outside of the grid. It aborts the comparison.
type ComputationError struct {
	Variable string
	Err      error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("gridcompare: %s: %v", e.Variable, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// FailureKind classifies why a variable could not be compared.
type FailureKind string

// Failure kinds reported in a Result.
const (
	FailDecode    FailureKind = "decode"
	FailAlignment FailureKind = "alignment"
	FailInput     FailureKind = "input"
	FailTimeout   FailureKind = "timeout"
	FailRender    FailureKind = "render"
	FailStore     FailureKind = "store"
)

// Failure records a variable that is absent from a Result.
type Failure struct {
	Variable string      `json:"variable"`
	Kind     FailureKind `json:"kind"`
	Reason   string      `json:"reason"`
}
