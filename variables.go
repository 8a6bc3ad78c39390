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
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Variable describes a compared field.
type Variable struct {
	// Name is the identifier of the variable, which is also the base
	// name of its grid containers.
	Name string `toml:"name" json:"name"`

	// Label is a human readable description.
	Label string `toml:"label" json:"label"`

	Unit string `toml:"unit" json:"unit"`

	// ImprovesOnIncrease is true when a larger value is the desirable
	// outcome, as for infiltration capacity.
	ImprovesOnIncrease bool `toml:"improves_on_increase" json:"improves_on_increase"`
}

// DefaultVariables are the fields produced by the erosion and runoff model.
var DefaultVariables = []Variable{
	{Name: "infiltration", Label: "Capacité d'infiltration du sol", Unit: "mm", ImprovesOnIncrease: true},
	{Name: "interrill_erosion", Label: "Érosion diffuse", Unit: "kg"},
	{Name: "rill_erosion", Label: "Érosion concentrée", Unit: "kg"},
	{Name: "surface_runoff", Label: "Ruissellement", Unit: "mm"},
}

type variableFile struct {
	Variable []Variable `toml:"variable"`
}

// ReadVariables reads a variable table from TOML data of the form
//
//	[[variable]]
//	name = "infiltration"
//	label = "Soil infiltration capacity"
//	unit = "mm"
//	improves_on_increase = true
func ReadVariables(r io.Reader) ([]Variable, error) {
	var f variableFile
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return nil, fmt.Errorf("gridcompare: reading variable table: %v", err)
	}
	if len(f.Variable) == 0 {
		return nil, fmt.Errorf("gridcompare: variable table is empty")
	}
	seen := make(map[string]bool)
	for i, v := range f.Variable {
		if v.Name == "" {
			return nil, fmt.Errorf("gridcompare: variable %d has no name", i)
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("gridcompare: variable %s is listed twice", v.Name)
		}
		seen[v.Name] = true
		if v.Label == "" {
			f.Variable[i].Label = v.Name
		}
	}
	return f.Variable, nil
}

// ReadVariablesFile reads a variable table from a TOML file.
func ReadVariablesFile(filename string) ([]Variable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("gridcompare: %v", err)
	}
	defer f.Close()
	return ReadVariables(f)
}

// Lookup returns the variable with the given name.
func Lookup(vars []Variable, name string) (Variable, bool) {
	for _, v := range vars {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}
