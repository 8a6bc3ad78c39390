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
	"encoding/json"
	"fmt"
	"math"
)

// Change is a relative change in percent, rounded to a whole number.
// A Change is undefined when scenario 1 is zero and scenario 2 is not.
type Change struct {
	Value   float64
	Defined bool
}

// PercentChange returns the change from s1 to s2 relative to |s1|.
// Two zero values give a defined change of zero.
func PercentChange(s1, s2 float64) Change {
	if s1 == 0 {
		if s2 == 0 {
			return Change{Defined: true}
		}
		return Change{}
	}
	v := math.RoundToEven((s2 - s1) / math.Abs(s1) * 100)
	if v == 0 {
		v = 0 // drop the sign of negative zero
	}
	return Change{Value: v, Defined: true}
}

// MarshalJSON encodes an undefined change as null.
func (c Change) MarshalJSON() ([]byte, error) {
	if !c.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Change) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*c = Change{}
		return nil
	}
	if err := json.Unmarshal(b, &c.Value); err != nil {
		return err
	}
	c.Defined = true
	return nil
}

func (c Change) String() string {
	if !c.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%+.0f%%", c.Value)
}

// Trend interprets the sign of a change for a variable.
type Trend string

// Trends.
const (
	Improved  Trend = "improved"
	Worsened  Trend = "worsened"
	Unchanged Trend = "unchanged"
	Unknown   Trend = "unknown"
)

// TrendOf returns whether c is an improvement given whether the
// variable improves when it increases.
func TrendOf(c Change, improvesOnIncrease bool) Trend {
	switch {
	case !c.Defined:
		return Unknown
	case c.Value == 0:
		return Unchanged
	case (c.Value > 0) == improvesOnIncrease:
		return Improved
	default:
		return Worsened
	}
}

// Row is one line of a comparison table.
type Row struct {
	ID            string  `json:"id"`
	Scenario1     float64 `json:"scenario1"`
	Scenario2     float64 `json:"scenario2"`
	PercentChange Change  `json:"percent_change"`
	Cells         int     `json:"cells"`
	ZeroCoverage  bool    `json:"zero_coverage,omitempty"`
	Trend         Trend   `json:"trend"`
}

// NewRow computes the percent change and trend for the sums of a zone.
// Zones without valid cells have an undefined change.
func NewRow(s Sums, v Variable) Row {
	r := Row{
		ID:           s.ID,
		Scenario1:    s.Scenario1,
		Scenario2:    s.Scenario2,
		Cells:        s.Cells,
		ZeroCoverage: s.ZeroCoverage,
	}
	if !s.ZeroCoverage {
		r.PercentChange = PercentChange(s.Scenario1, s.Scenario2)
	}
	r.Trend = TrendOf(r.PercentChange, v.ImprovesOnIncrease)
	return r
}
