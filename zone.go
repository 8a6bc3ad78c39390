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
)

// TotalID identifies the whole-zone row and the synthetic mask used when
// no parcels are given.
const TotalID = "total"

// Parcel is a polygonal zone in the planar reference of the grids.
type Parcel struct {
	ID   string
	Geom geom.Geom
}

// Mask is the set of grid cells belonging to a parcel.
type Mask struct {
	ID string

	// Cells holds cell indices in ascending order.
	Cells []int

	// Synthetic is true for the mask covering the whole grid, which is
	// used when no parcels are given.
	Synthetic bool
}

// Rasterize computes the mask of each parcel on grid g. A cell belongs to
// a parcel when its centre is inside the parcel or on its edge; holes are
// excluded. Parcels are rasterized independently, so overlapping parcels
// may share cells. Masks are returned in input order.
//
// If parcels is empty, a single synthetic mask covering every cell is
// returned. Invalid parcels are left out and reported as warnings.
func Rasterize(g GridGeometry, parcels []Parcel) ([]*Mask, []*GeometryError, error) {
	if g.Nx <= 0 || g.Ny <= 0 || !(g.CellSize > 0) {
		return nil, nil, fmt.Errorf("gridcompare: rasterizing parcels: invalid grid %v", g)
	}
	if len(parcels) == 0 {
		m := &Mask{ID: TotalID, Synthetic: true, Cells: make([]int, g.Len())}
		for i := range m.Cells {
			m.Cells[i] = i
		}
		return []*Mask{m}, nil, nil
	}

	var masks []*Mask
	var warnings []*GeometryError
	for _, p := range parcels {
		poly, err := checkParcel(p)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		masks = append(masks, &Mask{ID: p.ID, Cells: cellsIn(g, poly)})
	}
	return masks, warnings, nil
}

// edgeEps absorbs rounding when converting coordinates to cell positions.
const edgeEps = 1e-9

// cellsIn returns the ascending indices of the cells of g whose centres
// are within poly. Only the window covered by the bounds of poly is tested.
func cellsIn(g GridGeometry, poly geom.Polygonal) []int {
	b := poly.Bounds()
	yMax := g.YMax()
	// Clamp in float space: positions of distant parcels overflow int.
	cf0 := math.Max(0, math.Ceil((b.Min.X-g.XMin)/g.CellSize-0.5-edgeEps))
	cf1 := math.Min(float64(g.Nx-1), math.Floor((b.Max.X-g.XMin)/g.CellSize-0.5+edgeEps))
	rf0 := math.Max(0, math.Ceil((yMax-b.Max.Y)/g.CellSize-0.5-edgeEps))
	rf1 := math.Min(float64(g.Ny-1), math.Floor((yMax-b.Min.Y)/g.CellSize-0.5+edgeEps))
	if !(cf0 <= cf1 && rf0 <= rf1) {
		return nil
	}
	c0, c1, r0, r1 := int(cf0), int(cf1), int(rf0), int(rf1)

	var cells []int
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			i := r*g.Nx + c
			if g.CellCenter(i).Within(poly) != geom.Outside {
				cells = append(cells, i)
			}
		}
	}
	return cells
}

// checkParcel returns the polygonal geometry of p or the reason it
// cannot be rasterized.
func checkParcel(p Parcel) (geom.Polygonal, *GeometryError) {
	invalid := func(format string, args ...interface{}) *GeometryError {
		return &GeometryError{ParcelID: p.ID, Reason: fmt.Sprintf(format, args...)}
	}
	if p.Geom == nil {
		return nil, invalid("missing geometry")
	}
	poly, ok := p.Geom.(geom.Polygonal)
	if !ok {
		return nil, invalid("geometry type %T is not polygonal", p.Geom)
	}
	polys := poly.Polygons()
	if len(polys) == 0 {
		return nil, invalid("empty geometry")
	}
	for _, pp := range polys {
		if len(pp) == 0 {
			return nil, invalid("polygon without rings")
		}
		for j, r := range pp {
			distinct := make(map[geom.Point]struct{}, len(r))
			for _, pt := range r {
				if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
					return nil, invalid("non-finite coordinate in ring %d", j)
				}
				distinct[pt] = struct{}{}
			}
			if len(distinct) < 3 {
				return nil, invalid("ring %d has %d distinct vertices, at least 3 are needed", j, len(distinct))
			}
		}
	}
	if a := poly.Area(); !(a > 0) {
		return nil, invalid("zero area")
	}
	return poly, nil
}
