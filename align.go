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

	"github.com/ctessum/geom"
	"github.com/spatialmodel/gridcompare/saga"
)

// DefaultTolerance is the absolute tolerance, in planar units, used when
// comparing the cell size and origin of two grids.
const DefaultTolerance = 1e-3

// GridGeometry holds the shape and location of a regular grid.
type GridGeometry struct {
	Nx, Ny     int
	CellSize   float64
	XMin, YMin float64
}

// GeometryOf returns the geometry of g.
func GeometryOf(g *saga.Grid) GridGeometry {
	return GridGeometry{Nx: g.Nx, Ny: g.Ny, CellSize: g.CellSize, XMin: g.XMin, YMin: g.YMin}
}

// Len returns the number of cells.
func (g GridGeometry) Len() int { return g.Nx * g.Ny }

// YMax returns the y coordinate of the top edge of the grid.
func (g GridGeometry) YMax() float64 { return g.YMin + float64(g.Ny)*g.CellSize }

// XMax returns the x coordinate of the right edge of the grid.
func (g GridGeometry) XMax() float64 { return g.XMin + float64(g.Nx)*g.CellSize }

// Bounds returns the planar extent of the grid.
func (g GridGeometry) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.XMin, Y: g.YMin},
		Max: geom.Point{X: g.XMax(), Y: g.YMax()},
	}
}

// CellCenter returns the centre of the cell at index i, where cells are
// numbered row by row starting at the north-west corner.
func (g GridGeometry) CellCenter(i int) geom.Point {
	row, col := i/g.Nx, i%g.Nx
	return geom.Point{
		X: g.XMin + (float64(col)+0.5)*g.CellSize,
		Y: g.YMax() - (float64(row)+0.5)*g.CellSize,
	}
}

func (g GridGeometry) String() string {
	return fmt.Sprintf("%dx%d@%g(%g,%g)", g.Nx, g.Ny, g.CellSize, g.XMin, g.YMin)
}

// ScenarioPair holds the two aligned grids of one variable.
type ScenarioPair struct {
	Variable             string
	Scenario1, Scenario2 *saga.Grid
}

// Align checks that g1 and g2 share the same shape and, within
// tolerance, the same cell size and origin. No resampling is attempted.
func Align(variable string, g1, g2 *saga.Grid, tolerance float64) (*ScenarioPair, error) {
	mismatch := func(field string, a, b float64) error {
		return &AlignmentError{Variable: variable, Field: field, Scenario1: a, Scenario2: b}
	}
	if g1.Nx != g2.Nx {
		return nil, mismatch("columns", float64(g1.Nx), float64(g2.Nx))
	}
	if g1.Ny != g2.Ny {
		return nil, mismatch("rows", float64(g1.Ny), float64(g2.Ny))
	}
	for _, f := range []struct {
		name string
		a, b float64
	}{
		{"cellsize", g1.CellSize, g2.CellSize},
		{"xmin", g1.XMin, g2.XMin},
		{"ymin", g1.YMin, g2.YMin},
	} {
		if !(math.Abs(f.a-f.b) <= tolerance) {
			return nil, mismatch(f.name, f.a, f.b)
		}
	}
	return &ScenarioPair{Variable: variable, Scenario1: g1, Scenario2: g2}, nil
}

// Geometry returns the grid geometry of scenario 1, which scenario 2
// matches within tolerance.
func (p *ScenarioPair) Geometry() GridGeometry { return GeometryOf(p.Scenario1) }

// Valid reports whether cell i holds a value in both scenarios.
func (p *ScenarioPair) Valid(i int) bool {
	return !p.Scenario1.IsNoData(p.Scenario1.Data[i]) && !p.Scenario2.IsNoData(p.Scenario2.Data[i])
}

// Difference returns a grid holding scenario 2 minus scenario 1 where
// both are valid, and the scenario 1 no-data value elsewhere.
func (p *ScenarioPair) Difference() *saga.Grid {
	g := p.Scenario1
	d := saga.NewGrid(g.Nx, g.Ny, g.CellSize, g.XMin, g.YMin, g.NoData)
	d.Name = p.Variable + "_diff"
	d.Unit = g.Unit
	for i := range d.Data {
		if p.Valid(i) {
			d.Data[i] = p.Scenario2.Data[i] - p.Scenario1.Data[i]
		}
	}
	return d
}
