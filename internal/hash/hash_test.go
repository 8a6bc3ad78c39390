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

package hash

import (
	"math"
	"testing"
)

type key struct {
	Name   string
	Values []float64
}

func TestHash(t *testing.T) {
	a := Hash(key{Name: "a", Values: []float64{1, 2}})
	b := Hash(key{Name: "a", Values: []float64{1, 2}})
	c := Hash(key{Name: "a", Values: []float64{1, 3}})
	if a != b {
		t.Errorf("identical objects hash differently: %s != %s", a, b)
	}
	if a == c {
		t.Errorf("different objects share hash %s", a)
	}
	if len(a) != 32 {
		t.Errorf("hash length %d, want 32", len(a))
	}
}

func TestHashNaN(t *testing.T) {
	a := Hash(key{Name: "nan", Values: []float64{math.NaN()}})
	b := Hash(key{Name: "nan", Values: []float64{math.NaN()}})
	if a != b {
		t.Errorf("NaN objects hash differently: %s != %s", a, b)
	}
}

func TestBytes(t *testing.T) {
	if Bytes([]byte("abc")) != Bytes([]byte("abc")) {
		t.Error("identical content hashes differently")
	}
	if Bytes([]byte("abc")) == Bytes([]byte("abd")) {
		t.Error("different content shares a hash")
	}
}
