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
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// container builds a zip archive from name/content pairs.
func container(t *testing.T, entries ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < len(entries); i += 2 {
		w, err := zw.Create(entries[i])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(entries[i+1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func floats(bo binary.ByteOrder, v ...float32) string {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		bo.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return string(b)
}

const header2x3 = `NAME	= runoff
UNIT	= mm
DATAFORMAT	= FLOAT
POSITION_XMIN	= 652012.5
POSITION_YMIN	= 6860002.5
CELLCOUNT_X	= 2
CELLCOUNT_Y	= 3
CELLSIZE	= 5
NODATA_VALUE	= -99999.000000;-99999.000000
`

func TestDecode(t *testing.T) {
	data := floats(binary.LittleEndian, 1, 2, 3, 4, 5, 6)
	tests := []struct {
		name   string
		header string
		order  RowOrder
		want   []float32
	}{
		{
			name:   "default bottom up",
			header: header2x3,
			want:   []float32{5, 6, 3, 4, 1, 2},
		},
		{
			name:   "header top down",
			header: header2x3 + "TOPTOBOTTOM = TRUE\n",
			want:   []float32{1, 2, 3, 4, 5, 6},
		},
		{
			name:   "header bottom up",
			header: header2x3 + "TOPTOBOTTOM = FALSE\n",
			want:   []float32{5, 6, 3, 4, 1, 2},
		},
		{
			name:   "forced top down",
			header: header2x3 + "TOPTOBOTTOM = FALSE\n",
			order:  RowOrderTopDown,
			want:   []float32{1, 2, 3, 4, 5, 6},
		},
		{
			name:   "forced bottom up",
			header: header2x3 + "TOPTOBOTTOM = TRUE\n",
			order:  RowOrderBottomUp,
			want:   []float32{5, 6, 3, 4, 1, 2},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := container(t, "runoff.sgrd", test.header, "runoff.sdat", data)
			g, err := Decode(b, "runoff.sg-grd-z", test.order)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(g.Data, test.want) {
				t.Errorf("data: have %v, want %v", g.Data, test.want)
			}
			if g.Nx != 2 || g.Ny != 3 || g.CellSize != 5 {
				t.Errorf("dimensions: have %dx%d cellsize %g", g.Nx, g.Ny, g.CellSize)
			}
			if g.XMin != 652010 || g.YMin != 6860000 {
				t.Errorf("origin: have (%g, %g), want (652010, 6860000)", g.XMin, g.YMin)
			}
			if g.NoData != -99999 {
				t.Errorf("nodata: have %g", g.NoData)
			}
			if g.Name != "runoff" || g.Unit != "mm" {
				t.Errorf("name/unit: have %q %q", g.Name, g.Unit)
			}
		})
	}
}

func TestDecodeHeaderVariants(t *testing.T) {
	data := floats(binary.LittleEndian, 1, 2, 3, 4)
	tests := []struct {
		name       string
		header     string
		xMin, yMin float64
		noData     float64
	}{
		{
			name:   "esri corner whitespace",
			header: "ncols 2\nnrows 2\nxllcorner 100\nyllcorner 200\ncellsize 10\nNODATA_value -9999\n",
			xMin:   100, yMin: 200, noData: -9999,
		},
		{
			name:   "esri center",
			header: "NCOLS 2\nNROWS 2\nXLLCENTER 105\nYLLCENTER 205\nCELLSIZE 10\n",
			xMin:   100, yMin: 200, noData: DefaultNoData,
		},
		{
			name:   "lower case saga keys",
			header: "cellcount_x = 2\ncellcount_y = 2\nposition_xmin = 105\nposition_ymin = 205\ncellsize = 10\nnodata_value = -1;-1\n",
			xMin:   100, yMin: 200, noData: -1,
		},
		{
			name:   "no nodata",
			header: "CELLCOUNT_X = 2\nCELLCOUNT_Y = 2\nPOSITION_XMIN = 105\nPOSITION_YMIN = 205\nCELLSIZE = 10\n",
			xMin:   100, yMin: 200, noData: DefaultNoData,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := container(t, "g.sgrd", test.header, "g.sdat", data)
			g, err := Decode(b, "", RowOrderTopDown)
			if err != nil {
				t.Fatal(err)
			}
			if g.XMin != test.xMin || g.YMin != test.yMin {
				t.Errorf("origin: have (%g, %g), want (%g, %g)", g.XMin, g.YMin, test.xMin, test.yMin)
			}
			if g.NoData != test.noData {
				t.Errorf("nodata: have %g, want %g", g.NoData, test.noData)
			}
		})
	}
}

func TestDecodeBigEndianOffset(t *testing.T) {
	hdr := header2x3 + "BYTEORDER_BIG = TRUE\nDATAFILE_OFFSET = 3\nTOPTOBOTTOM = TRUE\n"
	data := "abc" + floats(binary.BigEndian, 1, 2, 3, 4, 5, 6)
	b := container(t, "sub/runoff.sgrd", hdr, "sub/runoff.sdat", data, "sub/runoff.prj", "PROJCS[]")
	g, err := Decode(b, "", RowOrderHeader)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 2, 3, 4, 5, 6}
	if !reflect.DeepEqual(g.Data, want) {
		t.Errorf("have %v, want %v", g.Data, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	six := floats(binary.LittleEndian, 1, 2, 3, 4, 5, 6)
	tests := []struct {
		name    string
		archive []byte
		want    error
	}{
		{
			name:    "missing header",
			archive: container(t, "runoff.sdat", six),
			want:    ErrMissingHeader,
		},
		{
			name:    "missing data",
			archive: container(t, "runoff.sgrd", header2x3),
			want:    ErrMissingData,
		},
		{
			name:    "base name mismatch",
			archive: container(t, "runoff.sgrd", header2x3, "other.sdat", six),
			want:    ErrMissingData,
		},
		{
			name:    "short data",
			archive: container(t, "runoff.sgrd", header2x3, "runoff.sdat", six[:20]),
			want:    ErrSizeMismatch,
		},
		{
			name:    "long data",
			archive: container(t, "runoff.sgrd", header2x3, "runoff.sdat", six+"xxxx"),
			want:    ErrSizeMismatch,
		},
		{
			name:    "zero columns",
			archive: container(t, "g.sgrd", strings.Replace(header2x3, "CELLCOUNT_X\t= 2", "CELLCOUNT_X\t= 0", 1), "g.sdat", ""),
			want:    ErrInvalidDimension,
		},
		{
			name: "cell count overflow",
			archive: container(t, "g.sgrd", strings.NewReplacer(
				"CELLCOUNT_X\t= 2", "CELLCOUNT_X\t= 4294967296",
				"CELLCOUNT_Y\t= 3", "CELLCOUNT_Y\t= 1073741824").Replace(header2x3), "g.sdat", ""),
			want: ErrInvalidDimension,
		},
		{
			name:    "too many cells",
			archive: container(t, "g.sgrd", strings.Replace(header2x3, "CELLCOUNT_X\t= 2", "CELLCOUNT_X\t= 1073741824", 1), "g.sdat", ""),
			want:    ErrInvalidDimension,
		},
		{
			name:    "negative cellsize",
			archive: container(t, "g.sgrd", strings.Replace(header2x3, "CELLSIZE\t= 5", "CELLSIZE\t= -5", 1), "g.sdat", six),
			want:    ErrInvalidDimension,
		},
		{
			name:    "missing cellsize",
			archive: container(t, "g.sgrd", strings.Replace(header2x3, "CELLSIZE\t= 5\n", "", 1), "g.sdat", six),
			want:    ErrMissingField,
		},
		{
			name:    "missing origin",
			archive: container(t, "g.sgrd", strings.Replace(header2x3, "POSITION_YMIN\t= 6860002.5\n", "", 1), "g.sdat", six),
			want:    ErrMissingField,
		},
		{
			name:    "unsupported format",
			archive: container(t, "g.sgrd", strings.Replace(header2x3, "= FLOAT", "= SHORTINT", 1), "g.sdat", six),
			want:    ErrUnsupportedFormat,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(test.archive, "x.sg-grd-z", RowOrderHeader)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("have error %v, want *DecodeError", err)
			}
			if !errors.Is(err, test.want) {
				t.Errorf("have error %v, want %v", err, test.want)
			}
		})
	}

	t.Run("not a zip", func(t *testing.T) {
		_, err := Decode([]byte("this is not an archive"), "x", RowOrderHeader)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("have error %v, want *DecodeError", err)
		}
	})
	t.Run("unparsable number", func(t *testing.T) {
		b := container(t, "g.sgrd", strings.Replace(header2x3, "CELLSIZE\t= 5", "CELLSIZE\t= five", 1), "g.sdat", six)
		if _, err := Decode(b, "x", RowOrderHeader); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestRoundTrip(t *testing.T) {
	g := NewGrid(3, 2, 5, 652010, 6860000, DefaultNoData)
	g.Name = "infiltration"
	g.Unit = "mm"
	copy(g.Data, []float32{1.5, -2, 0, float32(DefaultNoData), 1e6, 7})

	for _, order := range []RowOrder{RowOrderHeader, RowOrderTopDown, RowOrderBottomUp} {
		t.Run(order.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, g, order); err != nil {
				t.Fatal(err)
			}
			g2, err := Decode(buf.Bytes(), "", RowOrderHeader)
			if err != nil {
				t.Fatal(err)
			}
			g2.Header = nil
			if !reflect.DeepEqual(g, g2) {
				t.Errorf("have %+v, want %+v", g2, g)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	g := NewGrid(2, 2, 1, 0, 0, -1)
	g.Name = "surface_runoff"
	copy(g.Data, []float32{1, 2, 3, 4})
	var buf bytes.Buffer
	if err := Encode(&buf, g, RowOrderHeader); err != nil {
		t.Fatal(err)
	}
	f := filepath.Join(t.TempDir(), "surface_runoff.sg-grd-z")
	if err := os.WriteFile(f, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	g2, err := DecodeFile(f, RowOrderHeader)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g.Data, g2.Data) {
		t.Errorf("have %v, want %v", g2.Data, g.Data)
	}
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing"), RowOrderHeader); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestGridGeometry(t *testing.T) {
	g := NewGrid(10, 5, 2, 100, 200, DefaultNoData)
	if c := g.CellCenter(0, 0); c.X != 101 || c.Y != 209 {
		t.Errorf("north-west centre: have %v", c)
	}
	if c := g.CellCenter(4, 9); c.X != 119 || c.Y != 201 {
		t.Errorf("south-east centre: have %v", c)
	}
	b := g.Bounds()
	if b.Min.X != 100 || b.Min.Y != 200 || b.Max.X != 120 || b.Max.Y != 210 {
		t.Errorf("bounds: have %+v", b)
	}
	if !g.IsNoData(float32(math.NaN())) || !g.IsNoData(-99999) || g.IsNoData(0) {
		t.Error("IsNoData")
	}
}

func TestParseRowOrder(t *testing.T) {
	for _, o := range []RowOrder{RowOrderHeader, RowOrderTopDown, RowOrderBottomUp} {
		o2, err := ParseRowOrder(o.String())
		if err != nil || o2 != o {
			t.Errorf("%v: have %v, %v", o, o2, err)
		}
	}
	if _, err := ParseRowOrder("sideways"); err == nil {
		t.Error("expected an error")
	}
}
