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

package geo

import (
	"github.com/ctessum/geom"
)

// Extent returns the bounding box of polys grown by buffer on every side.
// It returns nil if polys is empty.
func Extent(polys []geom.Polygonal, buffer float64) *geom.Bounds {
	if len(polys) == 0 {
		return nil
	}
	b := geom.NewBounds()
	for _, p := range polys {
		b.Extend(p.Bounds())
	}
	b.Min.X -= buffer
	b.Min.Y -= buffer
	b.Max.X += buffer
	b.Max.Y += buffer
	return b
}

// Area returns the planar area of p with holes subtracted.
func Area(p geom.Polygonal) float64 {
	return p.Area()
}

// Perimeter returns the total length of every ring of p, holes included.
func Perimeter(p geom.Polygonal) float64 {
	var l float64
	for _, poly := range p.Polygons() {
		for _, r := range poly {
			ring := append(geom.LineString{}, r...)
			if n := len(ring); n > 1 && !ring[0].Equals(ring[n-1]) {
				ring = append(ring, ring[0])
			}
			l += ring.Length()
		}
	}
	return l
}
