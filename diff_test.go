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
	"encoding/json"
	"math"
	"testing"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		s1, s2 float64
		want   Change
	}{
		{s1: 100, s2: 150, want: Change{Value: 50, Defined: true}},
		{s1: 200, s2: 100, want: Change{Value: -50, Defined: true}},
		{s1: 3, s2: 4, want: Change{Value: 33, Defined: true}},
		{s1: 1000, s2: 999.999, want: Change{Value: 0, Defined: true}},
		{s1: -10, s2: -5, want: Change{Value: 50, Defined: true}},
		{s1: 8, s2: 9, want: Change{Value: 12, Defined: true}},
		{s1: 200, s2: 205, want: Change{Value: 2, Defined: true}},
		{s1: 200, s2: 207, want: Change{Value: 4, Defined: true}},
		{s1: 200, s2: 195, want: Change{Value: -2, Defined: true}},
		{s1: 0, s2: 0, want: Change{Value: 0, Defined: true}},
		{s1: 0, s2: 5, want: Change{}},
	}
	for _, test := range tests {
		have := PercentChange(test.s1, test.s2)
		if have != test.want {
			t.Errorf("PercentChange(%g, %g) = %+v, want %+v", test.s1, test.s2, have, test.want)
		}
		if have.Defined && math.Signbit(have.Value) && have.Value == 0 {
			t.Errorf("PercentChange(%g, %g) is negative zero", test.s1, test.s2)
		}
	}
}

func TestChangeJSON(t *testing.T) {
	b, err := json.Marshal(Row{ID: "1", Scenario1: 0, Scenario2: 5, Trend: Unknown})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"1","scenario1":0,"scenario2":5,"percent_change":null,"cells":0,"trend":"unknown"}`
	if string(b) != want {
		t.Errorf("have %s\nwant %s", b, want)
	}
	var r Row
	if err := json.Unmarshal([]byte(`{"percent_change":-12}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.PercentChange != (Change{Value: -12, Defined: true}) {
		t.Errorf("have %+v", r.PercentChange)
	}
	if err := json.Unmarshal([]byte(`{"percent_change":null}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.PercentChange.Defined {
		t.Errorf("null should be undefined")
	}
}

func TestChangeString(t *testing.T) {
	for c, want := range map[Change]string{
		{Value: 50, Defined: true}: "+50%",
		{Value: -3, Defined: true}: "-3%",
		{Value: 0, Defined: true}:  "+0%",
		{}:                         "n/a",
	} {
		if c.String() != want {
			t.Errorf("have %q, want %q", c.String(), want)
		}
	}
}

func TestTrendOf(t *testing.T) {
	up := Change{Value: 10, Defined: true}
	down := Change{Value: -10, Defined: true}
	tests := []struct {
		c       Change
		improve bool
		want    Trend
	}{
		{up, true, Improved},
		{down, true, Worsened},
		{up, false, Worsened},
		{down, false, Improved},
		{Change{Defined: true}, false, Unchanged},
		{Change{}, true, Unknown},
	}
	for _, test := range tests {
		if have := TrendOf(test.c, test.improve); have != test.want {
			t.Errorf("TrendOf(%v, %v) = %s, want %s", test.c, test.improve, have, test.want)
		}
	}
}
