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
	"io"
	"testing"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcompare/saga"
)

// testGrid returns an nx by ny grid with unit cells whose lower-left
// corner is at (x0, y0) and whose values are given by f.
func testGrid(nx, ny int, x0, y0 float64, f func(i int) float32) *saga.Grid {
	g := saga.NewGrid(nx, ny, 1, x0, y0, saga.DefaultNoData)
	for i := range g.Data {
		g.Data[i] = f(i)
	}
	return g
}

func constant(v float32) func(int) float32 {
	return func(int) float32 { return v }
}

func encode(t *testing.T, g *saga.Grid) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := saga.Encode(&buf, g, saga.RowOrderHeader); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func rect(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}
