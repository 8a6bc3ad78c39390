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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/tealeg/xlsx"
)

var csvHeader = []string{"variable", "label", "id", "scenario1", "scenario2", "percent_change"}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatChange(c Change) string {
	if !c.Defined {
		return ""
	}
	return formatFloat(c.Value)
}

// WriteCSV writes the rows of res in long format, one line per variable
// and zone, with the whole-zone row last for each variable. Undefined
// percent changes are left empty.
func WriteCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range res.Variables {
		for _, r := range append(append([]Row{}, v.Parcels...), v.Total) {
			rec := []string{v.Name, v.Label, r.ID, formatFloat(r.Scenario1), formatFloat(r.Scenario2), formatChange(r.PercentChange)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes res as a spreadsheet with one sheet per variable and
// a sheet listing failures, if any.
func WriteXLSX(w io.Writer, res *Result) error {
	f := xlsx.NewFile()
	for _, v := range res.Variables {
		sheet, err := f.AddSheet(v.Name)
		if err != nil {
			return fmt.Errorf("gridcompare: writing spreadsheet: %v", err)
		}
		row := sheet.AddRow()
		for _, h := range []string{"id", "scenario1", "scenario2", "percent_change", "cells", "trend"} {
			row.AddCell().SetString(h)
		}
		for _, r := range append(append([]Row{}, v.Parcels...), v.Total) {
			row := sheet.AddRow()
			row.AddCell().SetString(r.ID)
			row.AddCell().SetFloat(r.Scenario1)
			row.AddCell().SetFloat(r.Scenario2)
			if r.PercentChange.Defined {
				row.AddCell().SetFloat(r.PercentChange.Value)
			} else {
				row.AddCell().SetString("")
			}
			row.AddCell().SetInt(r.Cells)
			row.AddCell().SetString(string(r.Trend))
		}
	}
	if len(res.Failures) > 0 {
		sheet, err := f.AddSheet("failures")
		if err != nil {
			return fmt.Errorf("gridcompare: writing spreadsheet: %v", err)
		}
		row := sheet.AddRow()
		for _, h := range []string{"variable", "kind", "reason"} {
			row.AddCell().SetString(h)
		}
		for _, fl := range res.Failures {
			row := sheet.AddRow()
			row.AddCell().SetString(fl.Variable)
			row.AddCell().SetString(string(fl.Kind))
			row.AddCell().SetString(fl.Reason)
		}
	}
	return f.Write(w)
}

// MetricRow is a percent change computed from precomputed totals.
type MetricRow struct {
	Variable string `json:"variable"`
	Row
}

// CompareMetrics reads precomputed totals from CSV data with a header
// line naming at least the columns variable, scenario1 and scenario2
// (scenario_1 and scenario_2 are also accepted). An id column is used
// when present. Trends are interpreted with vars; unknown variables have
// an unknown trend.
func CompareMetrics(r io.Reader, vars []Variable) ([]MetricRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("gridcompare: reading metrics: %v", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("gridcompare: reading metrics: no header line")
	}
	col := make(map[string]int)
	for i, h := range recs[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	find := func(names ...string) (int, error) {
		for _, n := range names {
			if i, ok := col[n]; ok {
				return i, nil
			}
		}
		return -1, fmt.Errorf("gridcompare: reading metrics: missing column %s", names[0])
	}
	iVar, err := find("variable")
	if err != nil {
		return nil, err
	}
	i1, err := find("scenario1", "scenario_1")
	if err != nil {
		return nil, err
	}
	i2, err := find("scenario2", "scenario_2")
	if err != nil {
		return nil, err
	}
	iID, _ := find("id")

	var rows []MetricRow
	for line, rec := range recs[1:] {
		s1, err := cast.ToFloat64E(strings.TrimSpace(rec[i1]))
		if err != nil {
			return nil, fmt.Errorf("gridcompare: reading metrics line %d: %v", line+2, err)
		}
		s2, err := cast.ToFloat64E(strings.TrimSpace(rec[i2]))
		if err != nil {
			return nil, fmt.Errorf("gridcompare: reading metrics line %d: %v", line+2, err)
		}
		mr := MetricRow{Variable: rec[iVar]}
		mr.ID = TotalID
		if iID >= 0 && rec[iID] != "" {
			mr.ID = rec[iID]
		}
		mr.Scenario1, mr.Scenario2 = s1, s2
		mr.PercentChange = PercentChange(s1, s2)
		mr.Trend = Unknown
		if v, ok := Lookup(vars, mr.Variable); ok {
			mr.Trend = TrendOf(mr.PercentChange, v.ImprovesOnIncrease)
		}
		rows = append(rows, mr)
	}
	return rows, nil
}
