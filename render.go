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
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"

	"github.com/ctessum/geom/carto"
	"github.com/spatialmodel/gridcompare/geo"
	"gonum.org/v1/gonum/stat"
)

// Clip percentiles and the smallest scale limit of difference previews.
const (
	lowPercentile  = 0.02
	highPercentile = 0.98
	minLimit       = 1e-10
)

// RdBu is the ColorBrewer red-to-blue diverging colour list.
var RdBu = carto.Colorlist{
	Val: []float64{-1, -0.8, -0.6, -0.4, -0.2, 0, 0.2, 0.4, 0.6, 0.8, 1},
	R:   []float64{103, 178, 214, 244, 253, 247, 209, 146, 67, 33, 5},
	G:   []float64{0, 24, 96, 165, 219, 247, 229, 197, 147, 102, 48},
	B:   []float64{31, 43, 77, 130, 199, 247, 240, 222, 195, 172, 97},

	HighLimit: color.NRGBA{5, 48, 97, 255},
	LowLimit:  color.NRGBA{103, 0, 31, 255},
}

// Preview is a colour-coded image of the difference between two scenarios.
type Preview struct {
	// PNG holds the encoded image, one pixel per cell with north up.
	PNG []byte `json:"-"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Bounds is the geographic extent of the image.
	Bounds geo.LatLonBounds `json:"bounds"`

	// Limit is the magnitude of the differences mapped to the ends of
	// the colour scale.
	Limit float64 `json:"limit"`
}

// RenderDiff draws the difference between the two scenarios of pair.
// Differences are clipped to ±L, where L is the largest magnitude of the
// 2nd and 98th percentiles of valid differences. Improvements are drawn
// in blue and deteriorations in red according to v. Cells without a
// valid difference are transparent. Bounds are left empty when projector
// is nil.
func RenderDiff(pair *ScenarioPair, v Variable, projector *geo.Projector) (*Preview, error) {
	g := pair.Geometry()
	diff := make([]float64, g.Len())
	var valid []float64
	for i := range diff {
		if !pair.Valid(i) {
			diff[i] = math.NaN()
			continue
		}
		diff[i] = float64(pair.Scenario2.Data[i]) - float64(pair.Scenario1.Data[i])
		if !math.IsInf(diff[i], 0) {
			valid = append(valid, diff[i])
		}
	}
	limit := clipLimit(valid)

	cm := carto.NewColorMap(carto.Linear)
	cm.ColorScheme = RdBu
	cm.AddArray([]float64{-limit, limit})
	cm.Set()
	sign := 1.
	if !v.ImprovesOnIncrease {
		sign = -1
	}

	img := image.NewNRGBA(image.Rect(0, 0, g.Nx, g.Ny))
	for i, d := range diff {
		if math.IsNaN(d) {
			continue // transparent
		}
		d = math.Max(-limit, math.Min(limit, d*sign))
		img.SetNRGBA(i%g.Nx, i/g.Nx, cm.GetColor(d))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("gridcompare: %s: encoding preview: %v", pair.Variable, err)
	}
	p := &Preview{
		PNG:    buf.Bytes(),
		Width:  g.Nx,
		Height: g.Ny,
		Limit:  limit,
	}
	if projector != nil {
		b, err := projector.Bounds(g.Bounds())
		if err != nil {
			return nil, fmt.Errorf("gridcompare: %s: %v", pair.Variable, err)
		}
		p.Bounds = b
	}
	return p, nil
}

// clipLimit returns the symmetric colour scale limit for the given
// differences. vals is sorted in place.
func clipLimit(vals []float64) float64 {
	if len(vals) == 0 {
		return minLimit
	}
	sort.Float64s(vals)
	lo := stat.Quantile(lowPercentile, stat.Empirical, vals, nil)
	hi := stat.Quantile(highPercentile, stat.Empirical, vals, nil)
	return math.Max(math.Max(math.Abs(lo), math.Abs(hi)), minLimit)
}
