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

package compareutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcompare"
	"github.com/spatialmodel/gridcompare/cloud"
	"github.com/spatialmodel/gridcompare/saga"
)

// Compare runs the comparison configured by cfg and writes the result as
// JSON to the output file, or to stdout when none is configured, along
// with the optional CSV, spreadsheet and difference grid outputs.
func Compare(ctx context.Context, cfg *Cfg, log logrus.FieldLogger, stdout io.Writer) (*gridcompare.Result, error) {
	dir1, dir2 := cfg.expand("scenario1"), cfg.expand("scenario2")
	if dir1 == "" || dir2 == "" {
		return nil, fmt.Errorf("gridcompare: both the scenario1 and scenario2 directories must be specified")
	}

	var store gridcompare.PreviewStore
	if u := cfg.expand("Previews"); u != "" {
		s, err := cloud.NewBlobStore(ctx, u, "")
		if err != nil {
			return nil, err
		}
		defer s.Close()
		store = s
	}
	c, err := cfg.comparer(log, store, nil)
	if err != nil {
		return nil, err
	}

	inputs, err := readInputs(ctx, dir1, dir2, c.Variables)
	if err != nil {
		return nil, err
	}
	parcels, warnings, err := loadParcels(ctx, cfg.expand("parcels"), cfg.GetString("IDProperty"), c.Projector)
	if err != nil {
		return nil, err
	}
	res, err := c.Compare(ctx, &gridcompare.Request{Inputs: inputs, Parcels: parcels, Warnings: warnings})
	if err != nil {
		return nil, err
	}

	writeJSON := func(w io.Writer) error {
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(res)
	}
	if out := cfg.expand("output"); out != "" {
		if err := writeFile(ctx, out, writeJSON); err != nil {
			return nil, err
		}
		log.WithField("file", out).Info("wrote result")
	} else if err := writeJSON(stdout); err != nil {
		return nil, err
	}
	if f := cfg.expand("csv"); f != "" {
		if err := writeFile(ctx, f, func(w io.Writer) error { return gridcompare.WriteCSV(w, res) }); err != nil {
			return nil, err
		}
		log.WithField("file", f).Info("wrote CSV export")
	}
	if f := cfg.expand("xlsx"); f != "" {
		if err := writeFile(ctx, f, func(w io.Writer) error { return gridcompare.WriteXLSX(w, res) }); err != nil {
			return nil, err
		}
		log.WithField("file", f).Info("wrote spreadsheet export")
	}
	if dir := cfg.expand("diffgrids"); dir != "" {
		if err := writeDiffGrids(ctx, dir, res); err != nil {
			return nil, err
		}
		log.WithField("dir", dir).Info("wrote difference grids")
	}
	return res, nil
}

// writeDiffGrids writes the difference grid of each compared variable to
// dir, which may be a bucket URL, as <variable>_diff.sg-grd-z.
func writeDiffGrids(ctx context.Context, dir string, res *gridcompare.Result) error {
	for _, v := range res.Variables {
		if v.Pair == nil {
			continue
		}
		d := v.Pair.Difference()
		err := writeFile(ctx, join(dir, d.Name+ContainerExt), func(w io.Writer) error {
			return saga.Encode(w, d, saga.RowOrderHeader)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
