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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
)

// Header holds the metadata parsed from a .sgrd header entry.
type Header struct {
	Name, Unit string

	Nx, Ny   int
	CellSize float64

	// XMin and YMin are the lower-left corner of the grid, after any
	// cell-centre origin has been shifted by half a cell.
	XMin, YMin float64

	NoData float64

	// TopToBottom and HasRowOrder record the TOPTOBOTTOM flag and
	// whether it was present at all.
	TopToBottom, HasRowOrder bool

	BigEndian  bool
	DataFormat string
	DataOffset int64

	ZFactor, ZOffset float64

	// Raw holds every key (upper case) and value of the header.
	Raw map[string]string
}

// ReadHeader parses a SAGA-style header. Lines may be of the form
// "KEY = VALUE" or "KEY VALUE"; keys are case-insensitive and may appear
// in any order.
func ReadHeader(r io.Reader) (*Header, error) {
	raw := make(map[string]string)
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var key, val string
		if i := strings.Index(line, "="); i >= 0 {
			key, val = line[:i], line[i+1:]
		} else {
			f := strings.Fields(line)
			key = f[0]
			val = strings.Join(f[1:], " ")
		}
		raw[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return parseHeader(raw)
}

// lookup returns the value of the first key present in raw.
func lookup(raw map[string]string, keys ...string) (string, string, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return k, v, true
		}
	}
	return "", "", false
}

func parseHeader(raw map[string]string) (*Header, error) {
	h := &Header{
		Raw:        raw,
		NoData:     DefaultNoData,
		DataFormat: "FLOAT",
		ZFactor:    1,
	}
	h.Name = raw["NAME"]
	h.Unit = raw["UNIT"]

	var err error
	if h.Nx, err = requiredInt(raw, "CELLCOUNT_X", "NCOLS"); err != nil {
		return nil, err
	}
	if h.Ny, err = requiredInt(raw, "CELLCOUNT_Y", "NROWS"); err != nil {
		return nil, err
	}
	if h.Nx > MaxCells/h.Ny {
		return nil, fmt.Errorf("%w: %dx%d cells exceeds %d", ErrInvalidDimension, h.Nx, h.Ny, MaxCells)
	}
	k, v, ok := lookup(raw, "CELLSIZE")
	if !ok {
		return nil, fmt.Errorf("%w: CELLSIZE", ErrMissingField)
	}
	if h.CellSize, err = cast.ToFloat64E(v); err != nil {
		return nil, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
	}
	if !(h.CellSize > 0) {
		return nil, fmt.Errorf("%w: CELLSIZE = %s", ErrInvalidDimension, v)
	}

	if h.XMin, err = origin(raw, h.CellSize, "X"); err != nil {
		return nil, err
	}
	if h.YMin, err = origin(raw, h.CellSize, "Y"); err != nil {
		return nil, err
	}

	if k, v, ok := lookup(raw, "NODATA_VALUE", "NODATA"); ok && v != "" {
		// SAGA stores no-data as a range "a;b"; the lower bound is the
		// sentinel written to the data.
		first := strings.TrimSpace(strings.SplitN(v, ";", 2)[0])
		if h.NoData, err = cast.ToFloat64E(first); err != nil {
			return nil, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
		}
	}
	if k, v, ok := lookup(raw, "TOPTOBOTTOM"); ok && v != "" {
		if h.TopToBottom, err = cast.ToBoolE(v); err != nil {
			return nil, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
		}
		h.HasRowOrder = true
	}
	if k, v, ok := lookup(raw, "BYTEORDER_BIG"); ok && v != "" {
		if h.BigEndian, err = cast.ToBoolE(v); err != nil {
			return nil, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
		}
	}
	if _, v, ok := lookup(raw, "DATAFORMAT"); ok && v != "" {
		h.DataFormat = strings.ToUpper(v)
	}
	if h.DataFormat != "FLOAT" {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, h.DataFormat)
	}
	if k, v, ok := lookup(raw, "DATAFILE_OFFSET"); ok && v != "" {
		if h.DataOffset, err = cast.ToInt64E(v); err != nil {
			return nil, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
		}
		if h.DataOffset < 0 {
			return nil, fmt.Errorf("saga: negative DATAFILE_OFFSET %d", h.DataOffset)
		}
	}
	for key, dst := range map[string]*float64{"Z_FACTOR": &h.ZFactor, "Z_OFFSET": &h.ZOffset} {
		if v, ok := raw[key]; ok && v != "" {
			if *dst, err = cast.ToFloat64E(v); err != nil {
				return nil, fmt.Errorf("saga: parsing %s value %q: %v", key, v, err)
			}
		}
	}
	return h, nil
}

func requiredInt(raw map[string]string, keys ...string) (int, error) {
	k, v, ok := lookup(raw, keys...)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(keys, " or "))
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s = %d", ErrInvalidDimension, k, n)
	}
	return n, nil
}

// origin returns the lower-left corner coordinate along axis ("X" or "Y").
// Cell-centre conventions are shifted by half a cell.
func origin(raw map[string]string, cellSize float64, axis string) (float64, error) {
	if k, v, ok := lookup(raw, axis+"LLCORNER"); ok {
		c, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
		}
		return c, nil
	}
	k, v, ok := lookup(raw, "POSITION_"+axis+"MIN", axis+"LLCENTER")
	if !ok {
		return 0, fmt.Errorf("%w: POSITION_%sMIN", ErrMissingField, axis)
	}
	c, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("saga: parsing %s value %q: %v", k, v, err)
	}
	return c - cellSize/2, nil
}
