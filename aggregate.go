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
)

// Sums holds the zonal totals of one zone for both scenarios.
type Sums struct {
	ID                   string
	Scenario1, Scenario2 float64

	// Cells is the number of cells that were valid in both scenarios.
	Cells int

	// ZeroCoverage is true when no valid cell fell in the zone.
	ZeroCoverage bool
}

// Aggregate sums both scenarios of pair over each mask, counting only
// cells that are valid in both grids. The total covers the union of the
// masks, so cells shared by overlapping parcels are counted once. When
// the only mask is synthetic, no parcel sums are returned and the total
// covers the whole grid.
func Aggregate(pair *ScenarioPair, masks []*Mask) ([]Sums, Sums, error) {
	n := pair.Geometry().Len()
	if len(masks) == 1 && masks[0].Synthetic {
		total, err := sumCells(pair, masks[0].Cells, n)
		total.ID = TotalID
		return nil, total, err
	}

	parcels := make([]Sums, len(masks))
	inUnion := make([]bool, n)
	for i, m := range masks {
		s, err := sumCells(pair, m.Cells, n)
		if err != nil {
			return nil, Sums{}, err
		}
		s.ID = m.ID
		parcels[i] = s
		for _, c := range m.Cells {
			inUnion[c] = true
		}
	}
	var union []int
	for c, in := range inUnion {
		if in {
			union = append(union, c)
		}
	}
	total, err := sumCells(pair, union, n)
	total.ID = TotalID
	return parcels, total, err
}

// sumCells accumulates the valid values at cells in the order given.
func sumCells(pair *ScenarioPair, cells []int, n int) (Sums, error) {
	var s Sums
	d1, d2 := pair.Scenario1.Data, pair.Scenario2.Data
	for _, c := range cells {
		if c < 0 || c >= n {
			return Sums{}, &ComputationError{
				Variable: pair.Variable,
				Err:      fmt.Errorf("mask cell %d outside of grid with %d cells", c, n),
			}
		}
		if !pair.Valid(c) {
			continue
		}
		s.Scenario1 += float64(d1[c])
		s.Scenario2 += float64(d2[c])
		s.Cells++
	}
	s.ZeroCoverage = s.Cells == 0
	return s, nil
}
