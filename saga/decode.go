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
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrMissingHeader indicates that a container has no .sgrd entry.
	ErrMissingHeader = errors.New("saga: missing header entry (.sgrd)")

	// ErrMissingData indicates that a container has no .sdat entry
	// matching its header.
	ErrMissingData = errors.New("saga: missing data entry (.sdat)")

	// ErrMissingField indicates that a required header key is absent.
	ErrMissingField = errors.New("saga: missing header field")

	// ErrInvalidDimension indicates a non-positive row count,
	// column count or cell size.
	ErrInvalidDimension = errors.New("saga: invalid grid dimension")

	// ErrUnsupportedFormat indicates a DATAFORMAT other than FLOAT.
	ErrUnsupportedFormat = errors.New("saga: unsupported data format")

	// ErrSizeMismatch indicates that the data entry does not hold
	// exactly one value per cell.
	ErrSizeMismatch = errors.New("saga: data size mismatch")
)

// DecodeError is returned when a container cannot be decoded.
type DecodeError struct {
	// Source names the container, typically its file name.
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("saga: decoding grid: %v", e.Err)
	}
	return fmt.Sprintf("saga: decoding %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const extHeader, extData = ".sgrd", ".sdat"

// Decode decodes the compressed grid container held in b.
// source is only used in error messages.
func Decode(b []byte, source string, order RowOrder) (*Grid, error) {
	g, err := decode(bytes.NewReader(b), int64(len(b)), order)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return g, nil
}

// DecodeFile decodes the compressed grid container at the given path.
func DecodeFile(filename string, order RowOrder) (*Grid, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &DecodeError{Source: filename, Err: err}
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, &DecodeError{Source: filename, Err: err}
	}
	g, err := decode(f, fi.Size(), order)
	if err != nil {
		return nil, &DecodeError{Source: filename, Err: err}
	}
	return g, nil
}

func decode(r io.ReaderAt, size int64, order RowOrder) (*Grid, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("saga: reading archive: %v", err)
	}
	hdrFile, datFile, err := findEntries(zr.File)
	if err != nil {
		return nil, err
	}

	hr, err := hdrFile.Open()
	if err != nil {
		return nil, fmt.Errorf("saga: opening %s: %v", hdrFile.Name, err)
	}
	h, err := ReadHeader(hr)
	hr.Close()
	if err != nil {
		return nil, err
	}

	dr, err := datFile.Open()
	if err != nil {
		return nil, fmt.Errorf("saga: opening %s: %v", datFile.Name, err)
	}
	defer dr.Close()
	if h.DataOffset > 0 {
		if _, err := io.CopyN(io.Discard, dr, h.DataOffset); err != nil {
			return nil, fmt.Errorf("%w: %s shorter than DATAFILE_OFFSET %d", ErrSizeMismatch, datFile.Name, h.DataOffset)
		}
	}
	want := int64(h.Nx) * int64(h.Ny) * 4
	// Read one byte more than needed so that trailing data is detected.
	raw, err := io.ReadAll(io.LimitReader(dr, want+1))
	if err != nil {
		return nil, fmt.Errorf("saga: reading %s: %v", datFile.Name, err)
	}
	if int64(len(raw)) != want {
		if int64(len(raw)) > want {
			return nil, fmt.Errorf("%w: %s holds more than %d bytes for %dx%d cells", ErrSizeMismatch, datFile.Name, want, h.Nx, h.Ny)
		}
		return nil, fmt.Errorf("%w: %s holds %d bytes, want %d for %dx%d cells", ErrSizeMismatch, datFile.Name, len(raw), want, h.Nx, h.Ny)
	}

	g := &Grid{
		Name:     h.Name,
		Unit:     h.Unit,
		Nx:       h.Nx,
		Ny:       h.Ny,
		CellSize: h.CellSize,
		XMin:     h.XMin,
		YMin:     h.YMin,
		NoData:   h.NoData,
		Data:     make([]float32, h.Nx*h.Ny),
		Header:   h,
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(path.Base(hdrFile.Name), path.Ext(hdrFile.Name))
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if h.BigEndian {
		bo = binary.BigEndian
	}

	bottomUp := !h.TopToBottom
	switch order {
	case RowOrderTopDown:
		bottomUp = false
	case RowOrderBottomUp:
		bottomUp = true
	}
	for fileRow := 0; fileRow < h.Ny; fileRow++ {
		row := fileRow
		if bottomUp {
			row = h.Ny - 1 - fileRow
		}
		src := raw[fileRow*h.Nx*4 : (fileRow+1)*h.Nx*4]
		dst := g.Data[row*h.Nx : (row+1)*h.Nx]
		for j := range dst {
			dst[j] = math.Float32frombits(bo.Uint32(src[j*4:]))
		}
	}
	return g, nil
}

// findEntries returns the first header entry, by name, that has a data
// entry with the same base name.
func findEntries(files []*zip.File) (hdr, dat *zip.File, err error) {
	headers := make(map[string]*zip.File)
	data := make(map[string]*zip.File)
	for _, f := range files {
		ext := strings.ToLower(path.Ext(f.Name))
		base := strings.TrimSuffix(f.Name, path.Ext(f.Name))
		switch ext {
		case extHeader:
			headers[base] = f
		case extData:
			data[base] = f
		}
	}
	if len(headers) == 0 {
		return nil, nil, ErrMissingHeader
	}
	if len(data) == 0 {
		return nil, nil, ErrMissingData
	}
	bases := make([]string, 0, len(headers))
	for b := range headers {
		bases = append(bases, b)
	}
	sort.Strings(bases)
	for _, b := range bases {
		if d, ok := data[b]; ok {
			return headers[b], d, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: no data entry matches header %s", ErrMissingData, headers[bases[0]].Name)
}
