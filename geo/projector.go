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

// Package geo holds the geometry and coordinate reference system helpers
// used by the comparison engine.
package geo

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

const (
	// Lambert93 is the proj4 definition of RGF93 / Lambert-93 (EPSG:2154),
	// the planar reference of the scenario grids.
	Lambert93 = "+proj=lcc +lat_1=49 +lat_2=44 +lat_0=46.5 +lon_0=3 +x_0=700000 +y_0=6600000 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"

	// WGS84 is the proj4 definition of geographic WGS84 coordinates
	// (EPSG:4326).
	WGS84 = "+proj=longlat +datum=WGS84 +no_defs"
)

// LatLonBounds is a geographic bounding box in decimal degrees.
type LatLonBounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Projector converts coordinates between a planar spatial reference
// and WGS84.
type Projector struct {
	// SR is the planar spatial reference.
	SR *proj.SR

	toGeo, toPlanar proj.Transformer
}

// NewProjector creates a projector for the planar spatial reference
// given as a proj4 string or WKT. An empty string selects Lambert-93.
func NewProjector(planar string) (*Projector, error) {
	if planar == "" {
		planar = Lambert93
	}
	sr, err := proj.Parse(planar)
	if err != nil {
		return nil, fmt.Errorf("geo: parsing planar spatial reference: %v", err)
	}
	if _, _, err = sr.Transformers(); err != nil {
		return nil, fmt.Errorf("geo: %v", err)
	}
	ll, err := proj.Parse(WGS84)
	if err != nil {
		return nil, fmt.Errorf("geo: parsing geographic spatial reference: %v", err)
	}
	p := &Projector{SR: sr}
	if p.toGeo, err = sr.NewTransform(ll); err != nil {
		return nil, fmt.Errorf("geo: %v", err)
	}
	if p.toPlanar, err = ll.NewTransform(sr); err != nil {
		return nil, fmt.Errorf("geo: %v", err)
	}
	return p, nil
}

// ToGeographic converts planar coordinates to longitude and latitude.
func (p *Projector) ToGeographic(x, y float64) (lon, lat float64, err error) {
	return p.toGeo(x, y)
}

// ToPlanar converts longitude and latitude to planar coordinates.
func (p *Projector) ToPlanar(lon, lat float64) (x, y float64, err error) {
	return p.toPlanar(lon, lat)
}

// Bounds converts a planar bounding box to geographic coordinates by
// transforming its lower-left and upper-right corners.
func (p *Projector) Bounds(b *geom.Bounds) (LatLonBounds, error) {
	g, err := b.Transform(p.toGeo)
	if err != nil {
		return LatLonBounds{}, fmt.Errorf("geo: transforming bounds: %v", err)
	}
	ll := g.(*geom.Bounds)
	return LatLonBounds{
		South: ll.Min.Y,
		West:  ll.Min.X,
		North: ll.Max.Y,
		East:  ll.Max.X,
	}, nil
}

// Reproject transforms g from the spatial reference src to the planar
// spatial reference of p.
func (p *Projector) Reproject(g geom.Geom, src *proj.SR) (geom.Geom, error) {
	t, err := src.NewTransform(p.SR)
	if err != nil {
		return nil, fmt.Errorf("geo: %v", err)
	}
	return g.Transform(t)
}
