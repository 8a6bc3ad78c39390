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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/spatialmodel/gridcompare/geo"
	"github.com/spf13/cast"
)

// DefaultIDProperty is the attribute holding parcel identifiers.
const DefaultIDProperty = "id"

// ReadParcels reads parcels from a GeoJSON file (.geojson or .json) or an
// ESRI shapefile (.shp). Shapefiles that come with a .prj file are
// reprojected to the planar reference of projector; GeoJSON coordinates
// must already be planar. Features that cannot be read as geometry are
// returned as warnings.
func ReadParcels(filename, idProperty string, projector *geo.Projector) ([]Parcel, []*GeometryError, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".shp":
		p, err := ReadShapefileParcels(filename, idProperty, projector)
		return p, nil, err
	case ".geojson", ".json":
		b, err := os.ReadFile(filename)
		if err != nil {
			return nil, nil, fmt.Errorf("gridcompare: reading parcels: %v", err)
		}
		return DecodeParcels(b, idProperty)
	default:
		return nil, nil, fmt.Errorf("gridcompare: unsupported parcel file %s; supported formats are .geojson, .json and .shp", filename)
	}
}

type geoJSONObject struct {
	Type        string                 `json:"type"`
	ID          interface{}            `json:"id"`
	Properties  map[string]interface{} `json:"properties"`
	Geometry    *geoJSONObject         `json:"geometry"`
	Features    []*geoJSONObject       `json:"features"`
	Coordinates interface{}            `json:"coordinates"`
}

// DecodeParcels reads parcels from a GeoJSON FeatureCollection, Feature or
// bare geometry. A parcel ID is taken from the idProperty attribute, then
// from the feature id, then from the feature position (starting at 1).
func DecodeParcels(b []byte, idProperty string) ([]Parcel, []*GeometryError, error) {
	if idProperty == "" {
		idProperty = DefaultIDProperty
	}
	var o geoJSONObject
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, nil, fmt.Errorf("gridcompare: decoding parcels: %v", err)
	}
	var features []*geoJSONObject
	switch o.Type {
	case "FeatureCollection":
		features = o.Features
	case "Feature":
		features = []*geoJSONObject{&o}
	case "":
		return nil, nil, fmt.Errorf("gridcompare: decoding parcels: missing GeoJSON type")
	default:
		features = []*geoJSONObject{{Type: "Feature", Geometry: &o}}
	}

	var parcels []Parcel
	var warnings []*GeometryError
	for i, f := range features {
		id := featureID(f, idProperty, i)
		if f == nil || f.Geometry == nil {
			warnings = append(warnings, &GeometryError{ParcelID: id, Reason: "missing geometry"})
			continue
		}
		g, err := fromGeoJSON(f.Geometry)
		if err != nil {
			warnings = append(warnings, &GeometryError{ParcelID: id, Reason: err.Error()})
			continue
		}
		parcels = append(parcels, Parcel{ID: id, Geom: g})
	}
	return parcels, warnings, nil
}

func featureID(f *geoJSONObject, idProperty string, i int) string {
	if f != nil {
		if v, ok := f.Properties[idProperty]; ok && v != nil {
			return cast.ToString(v)
		}
		if f.ID != nil {
			return cast.ToString(f.ID)
		}
	}
	return strconv.Itoa(i + 1)
}

// fromGeoJSON converts a GeoJSON geometry. MultiPolygons are decoded
// part by part.
func fromGeoJSON(o *geoJSONObject) (geom.Geom, error) {
	if o.Type != "MultiPolygon" {
		return geojson.FromGeoJSON(&geojson.Geometry{Type: o.Type, Coordinates: o.Coordinates})
	}
	parts, ok := o.Coordinates.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("invalid MultiPolygon coordinates")
	}
	mp := make(geom.MultiPolygon, 0, len(parts))
	for _, part := range parts {
		g, err := geojson.FromGeoJSON(&geojson.Geometry{Type: "Polygon", Coordinates: part})
		if err != nil {
			return nil, err
		}
		mp = append(mp, g.(geom.Polygon))
	}
	return mp, nil
}

// ReadShapefileParcels reads parcels from an ESRI shapefile, taking
// parcel IDs from the idProperty attribute when the shapefile has one and
// from the record position otherwise.
func ReadShapefileParcels(filename, idProperty string, projector *geo.Projector) ([]Parcel, error) {
	if idProperty == "" {
		idProperty = DefaultIDProperty
	}
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("gridcompare: opening parcel shapefile: %v", err)
	}
	defer d.Close()

	var fields []string
	for _, f := range d.Fields() {
		if strings.EqualFold(f.String(), idProperty) {
			fields = append(fields, f.String())
			break
		}
	}

	var parcels []Parcel
	for {
		g, vals, more := d.DecodeRowFields(fields...)
		if !more {
			break
		}
		if d.Error() != nil {
			break
		}
		id := strconv.Itoa(len(parcels) + 1)
		if len(fields) > 0 {
			if v := strings.TrimSpace(vals[fields[0]]); v != "" {
				id = v
			}
		}
		parcels = append(parcels, Parcel{ID: id, Geom: g})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("gridcompare: reading parcel shapefile: %v", err)
	}

	sr, err := d.SR()
	if err != nil || projector == nil {
		// Without a .prj file the shapefile is taken to be planar already.
		return parcels, nil
	}
	for i, p := range parcels {
		if p.Geom == nil {
			continue
		}
		g, err := projector.Reproject(p.Geom, sr)
		if err != nil {
			return nil, fmt.Errorf("gridcompare: reprojecting parcel %s: %v", p.ID, err)
		}
		parcels[i].Geom = g
	}
	return parcels, nil
}

// Polygons returns the polygonal geometries of the parcels that can be
// rasterized. Parcels rejected by Rasterize are left out.
func Polygons(parcels []Parcel) []geom.Polygonal {
	var polys []geom.Polygonal
	for _, p := range parcels {
		if pg, err := checkParcel(p); err == nil {
			polys = append(polys, pg)
		}
	}
	return polys
}
