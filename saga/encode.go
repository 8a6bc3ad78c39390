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

package saga

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Encode writes g to w as a compressed grid container with a SAGA header
// using the cell-centre origin convention. RowOrderHeader and
// RowOrderBottomUp both write rows bottom-to-top.
func Encode(w io.Writer, g *Grid, order RowOrder) error {
	if len(g.Data) != g.Nx*g.Ny {
		return fmt.Errorf("saga: encoding grid %s: %d values for %dx%d cells", g.Name, len(g.Data), g.Nx, g.Ny)
	}
	name := g.Name
	if name == "" {
		name = "grid"
	}
	topDown := order == RowOrderTopDown

	zw := zip.NewWriter(w)
	hw, err := zw.Create(name + extHeader)
	if err != nil {
		return err
	}
	if err := writeHeader(hw, g, name, topDown); err != nil {
		return err
	}
	dw, err := zw.Create(name + extData)
	if err != nil {
		return err
	}
	buf := make([]byte, g.Nx*4)
	for fileRow := 0; fileRow < g.Ny; fileRow++ {
		row := fileRow
		if !topDown {
			row = g.Ny - 1 - fileRow
		}
		for j, v := range g.Data[row*g.Nx : (row+1)*g.Nx] {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := dw.Write(buf); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeHeader(w io.Writer, g *Grid, name string, topDown bool) error {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	tb := "FALSE"
	if topDown {
		tb = "TRUE"
	}
	lines := [][2]string{
		{"NAME", name},
		{"DESCRIPTION", ""},
		{"UNIT", g.Unit},
		{"DATAFILE_OFFSET", "0"},
		{"DATAFORMAT", "FLOAT"},
		{"BYTEORDER_BIG", "FALSE"},
		{"POSITION_XMIN", f(g.XMin + g.CellSize/2)},
		{"POSITION_YMIN", f(g.YMin + g.CellSize/2)},
		{"CELLCOUNT_X", strconv.Itoa(g.Nx)},
		{"CELLCOUNT_Y", strconv.Itoa(g.Ny)},
		{"CELLSIZE", f(g.CellSize)},
		{"Z_FACTOR", "1.000000"},
		{"Z_OFFSET", "0.000000"},
		{"NODATA_VALUE", f(g.NoData) + ";" + f(g.NoData)},
		{"TOPTOBOTTOM", tb},
	}
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%s\t= %s\n", l[0], l[1])
	}
	_, err := io.WriteString(w, b.String())
	return err
}
