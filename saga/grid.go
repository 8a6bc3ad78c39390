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

// Package saga reads and writes SAGA GIS compressed grid containers
// (.sg-grd-z): a zip archive holding a textual .sgrd header and a binary
// .sdat raster with the same base name.
package saga

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// DefaultNoData is the SAGA default no-data value, used when a header
// does not declare one.
const DefaultNoData = -99999.

// MaxCells is the largest number of cells a decoded grid may hold.
const MaxCells = 1 << 30

// RowOrder specifies how the rows of a binary data entry are ordered.
type RowOrder int

const (
	// RowOrderHeader follows the TOPTOBOTTOM header flag. When the
	// flag is absent, rows are assumed to be stored bottom-to-top,
	// which is the SAGA default.
	RowOrderHeader RowOrder = iota

	// RowOrderTopDown forces the first stored row to be the northernmost.
	RowOrderTopDown

	// RowOrderBottomUp forces the first stored row to be the southernmost.
	RowOrderBottomUp
)

func (o RowOrder) String() string {
	switch o {
	case RowOrderHeader:
		return "header"
	case RowOrderTopDown:
		return "topdown"
	case RowOrderBottomUp:
		return "bottomup"
	default:
		return fmt.Sprintf("RowOrder(%d)", int(o))
	}
}

// ParseRowOrder parses the names returned by RowOrder.String.
func ParseRowOrder(s string) (RowOrder, error) {
	switch s {
	case "", "header":
		return RowOrderHeader, nil
	case "topdown":
		return RowOrderTopDown, nil
	case "bottomup":
		return RowOrderBottomUp, nil
	default:
		return RowOrderHeader, fmt.Errorf("saga: invalid row order %q; valid options are header, topdown and bottomup", s)
	}
}

// Grid is a decoded raster. Grids are not modified after decoding.
type Grid struct {
	Name, Unit string

	// Nx and Ny are the number of columns and rows.
	Nx, Ny int

	// CellSize is the edge length of the square cells, in the
	// units of the planar spatial reference.
	CellSize float64

	// XMin and YMin are the coordinates of the lower-left corner of
	// the lower-left cell.
	XMin, YMin float64

	// NoData is the sentinel marking cells without a valid value.
	NoData float64

	// Data holds Nx*Ny values in row-major order, where row 0 is the
	// northernmost row.
	Data []float32

	// Header is the parsed header the grid was decoded from.
	// It is nil for grids that were created in memory.
	Header *Header
}

// NewGrid allocates a grid with all cells set to noData.
func NewGrid(nx, ny int, cellSize, xMin, yMin, noData float64) *Grid {
	g := &Grid{
		Nx:       nx,
		Ny:       ny,
		CellSize: cellSize,
		XMin:     xMin,
		YMin:     yMin,
		NoData:   noData,
		Data:     make([]float32, nx*ny),
	}
	nd := float32(noData)
	for i := range g.Data {
		g.Data[i] = nd
	}
	return g
}

// Index returns the position in g.Data of the cell at the given row
// (counted from the north) and column.
func (g *Grid) Index(row, col int) int { return row*g.Nx + col }

// At returns the value at the given row and column.
func (g *Grid) At(row, col int) float32 { return g.Data[g.Index(row, col)] }

// IsNoData reports whether v marks a missing value in g.
// NaN values are always treated as missing.
func (g *Grid) IsNoData(v float32) bool {
	return v == float32(g.NoData) || math.IsNaN(float64(v))
}

// XMax returns the x coordinate of the right edge of the grid.
func (g *Grid) XMax() float64 { return g.XMin + float64(g.Nx)*g.CellSize }

// YMax returns the y coordinate of the top edge of the grid.
func (g *Grid) YMax() float64 { return g.YMin + float64(g.Ny)*g.CellSize }

// Bounds returns the planar extent of g.
func (g *Grid) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.XMin, Y: g.YMin},
		Max: geom.Point{X: g.XMax(), Y: g.YMax()},
	}
}

// CellCenter returns the planar coordinates of the centre of the cell at
// the given row (counted from the north) and column.
func (g *Grid) CellCenter(row, col int) geom.Point {
	return geom.Point{
		X: g.XMin + (float64(col)+0.5)*g.CellSize,
		Y: g.YMax() - (float64(row)+0.5)*g.CellSize,
	}
}

func (g *Grid) String() string {
	return fmt.Sprintf("%s %dx%d cellsize=%g origin=(%g, %g)", g.Name, g.Nx, g.Ny, g.CellSize, g.XMin, g.YMin)
}
