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
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/gridcompare/geo"
)

const parcelCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"id": 12},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[5,0],[5,10],[0,10],[0,0]]]}},
    {"type": "Feature", "id": "north", "properties": {"name": "x"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[0,8],[2,8],[2,10],[0,10],[0,8]]],
       [[[8,8],[10,8],[10,10],[8,10],[8,8]]]]}},
    {"type": "Feature", "properties": null, "geometry": null},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "GeometryCollection", "geometries": []}},
    {"type": "Feature", "properties": {"id": "p5"},
     "geometry": {"type": "Polygon", "coordinates": [[[6,0],[10,0],[10,4],[6,4],[6,0]]]}}
  ]
}`

func TestDecodeParcels(t *testing.T) {
	parcels, warnings, err := DecodeParcels([]byte(parcelCollection), "")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, p := range parcels {
		ids = append(ids, p.ID)
	}
	if want := []string{"12", "north", "p5"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids: have %v, want %v", ids, want)
	}
	var warned []string
	for _, w := range warnings {
		warned = append(warned, w.ParcelID)
	}
	if want := []string{"3", "4"}; !reflect.DeepEqual(warned, want) {
		t.Errorf("warnings for %v, want %v", warned, want)
	}
	mp, ok := parcels[1].Geom.(geom.MultiPolygon)
	if !ok || len(mp) != 2 {
		t.Fatalf("have %#v, want a two part MultiPolygon", parcels[1].Geom)
	}
	if a := geo.Area(mp); a != 8 {
		t.Errorf("multipolygon area %g, want 8", a)
	}
	masks, _, err := Rasterize(grid10, parcels)
	if err != nil {
		t.Fatal(err)
	}
	var cells []int
	for _, m := range masks {
		cells = append(cells, len(m.Cells))
	}
	if want := []int{50, 8, 16}; !reflect.DeepEqual(cells, want) {
		t.Errorf("cells %v, want %v", cells, want)
	}
}

func TestDecodeParcelsIDProperty(t *testing.T) {
	parcels, _, err := DecodeParcels([]byte(parcelCollection), "name")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, p := range parcels {
		ids = append(ids, p.ID)
	}
	if want := []string{"1", "x", "5"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("have %v, want %v", ids, want)
	}
}

func TestDecodeParcelsSingle(t *testing.T) {
	tests := []struct {
		name, in, id string
	}{
		{name: "feature", id: "a", in: `{"type": "Feature", "properties": {"id": "a"},
			"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}`},
		{name: "geometry", id: "1", in: `{"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			parcels, warnings, err := DecodeParcels([]byte(test.in), DefaultIDProperty)
			if err != nil {
				t.Fatal(err)
			}
			if len(warnings) != 0 || len(parcels) != 1 || parcels[0].ID != test.id {
				t.Errorf("have %+v with warnings %v", parcels, warnings)
			}
		})
	}
}

func TestDecodeParcelsErrors(t *testing.T) {
	for name, in := range map[string]string{
		"not json":     `{"type": `,
		"missing type": `{"features": []}`,
	} {
		if _, _, err := DecodeParcels([]byte(in), ""); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestReadParcelsGeoJSON(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "parcels.geojson")
	if err := os.WriteFile(f, []byte(parcelCollection), 0644); err != nil {
		t.Fatal(err)
	}
	parcels, warnings, err := ReadParcels(f, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(parcels) != 3 || len(warnings) != 2 {
		t.Errorf("have %d parcels and %d warnings", len(parcels), len(warnings))
	}
	if _, _, err := ReadParcels(filepath.Join(dir, "parcels.kml"), "", nil); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func writeShapefile(t *testing.T, filename string, field goshp.Field, polys []geom.Polygon, vals []string) {
	t.Helper()
	e, err := shp.NewEncoderFromFields(filename, goshp.POLYGON, field)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range polys {
		if err := e.EncodeFields(p, vals[i]); err != nil {
			t.Fatal(err)
		}
	}
	e.Close()
}

func TestReadShapefileParcels(t *testing.T) {
	dir := t.TempDir()
	polys := []geom.Polygon{rect(0, 0, 5, 10), rect(6, 0, 10, 4)}

	withID := filepath.Join(dir, "ids.shp")
	writeShapefile(t, withID, goshp.StringField("ID", 10), polys, []string{"A", "B"})
	parcels, _, err := ReadParcels(withID, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(parcels) != 2 || parcels[0].ID != "A" || parcels[1].ID != "B" {
		t.Fatalf("have %+v", parcels)
	}
	if a := geo.Area(parcels[0].Geom.(geom.Polygonal)); a != 50 {
		t.Errorf("area %g, want 50", a)
	}

	noID := filepath.Join(dir, "names.shp")
	writeShapefile(t, noID, goshp.StringField("NAME", 10), polys, []string{"x", "y"})
	parcels, err = ReadShapefileParcels(noID, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(parcels) != 2 || parcels[0].ID != "1" || parcels[1].ID != "2" {
		t.Errorf("have %+v", parcels)
	}
}

func TestReadShapefileParcelsReproject(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "lonlat.shp")
	writeShapefile(t, f, goshp.StringField("ID", 10),
		[]geom.Polygon{rect(3, 46.5, 3.01, 46.51)}, []string{"a"})
	if err := os.WriteFile(filepath.Join(dir, "lonlat.prj"), []byte(geo.WGS84), 0644); err != nil {
		t.Fatal(err)
	}
	projector, err := geo.NewProjector(geo.Lambert93)
	if err != nil {
		t.Fatal(err)
	}
	parcels, err := ReadShapefileParcels(f, "id", projector)
	if err != nil {
		t.Fatal(err)
	}
	b := parcels[0].Geom.Bounds()
	if math.Abs(b.Min.X-700000) > 1 || math.Abs(b.Min.Y-6600000) > 1 {
		t.Errorf("have origin (%g, %g), want (700000, 6600000)", b.Min.X, b.Min.Y)
	}
	if w := b.Max.X - b.Min.X; w < 700 || w > 800 {
		t.Errorf("width %g m, want about 765 m", w)
	}
}
