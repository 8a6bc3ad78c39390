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
	"context"
	"fmt"
	"runtime"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/gridcompare/internal/hash"
	"github.com/spatialmodel/gridcompare/saga"
)

// DefaultCacheEntries is the default number of grids and mask sets held
// in memory by a Comparer.
const DefaultCacheEntries = 32

var cacheLevels = []string{"dedupe", "memory", "compute"}

type gridRequest struct {
	data   []byte
	source string
	order  saga.RowOrder
}

type maskRequest struct {
	geometry GridGeometry
	parcels  []Parcel
}

// cached wraps a result or error so that errors are cached like results
// and concurrent duplicate requests are always released.
type cached struct {
	grid     *saga.Grid
	masks    []*Mask
	warnings []*GeometryError
	err      error
}

// process creates the content of grid and mask cache entries.
func process(ctx context.Context, payload interface{}) (interface{}, error) {
	switch r := payload.(type) {
	case gridRequest:
		g, err := saga.Decode(r.data, r.source, r.order)
		return &cached{grid: g, err: err}, nil
	case maskRequest:
		m, w, err := Rasterize(r.geometry, r.parcels)
		return &cached{masks: m, warnings: w, err: err}, nil
	default:
		return &cached{err: fmt.Errorf("gridcompare: invalid cache request type %T", payload)}, nil
	}
}

func newCache(entries int) *requestcache.Cache {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	return requestcache.NewCache(process, runtime.GOMAXPROCS(0), requestcache.Deduplicate(), requestcache.Memory(entries))
}

// decodeCached decodes a grid container, reusing previous results for
// identical content. Cached grids must not be modified.
func (c *Comparer) decodeCached(ctx context.Context, data []byte, source string) (*saga.Grid, error) {
	key := fmt.Sprintf("grid_%s_%s", hash.Bytes(data), c.RowOrder)
	r := c.cache.NewRequest(ctx, gridRequest{data: data, source: source, order: c.RowOrder}, key)
	res, err := r.Result()
	if err != nil {
		return nil, err
	}
	out := res.(*cached)
	return out.grid, out.err
}

// masksCached rasterizes parcels, reusing previous results for the same
// grid geometry and parcel set. parcelKey identifies the parcel set.
func (c *Comparer) masksCached(ctx context.Context, g GridGeometry, parcels []Parcel, parcelKey string) ([]*Mask, []*GeometryError, error) {
	key := fmt.Sprintf("mask_%s_%s", g, parcelKey)
	r := c.cache.NewRequest(ctx, maskRequest{geometry: g, parcels: parcels}, key)
	res, err := r.Result()
	if err != nil {
		return nil, nil, err
	}
	out := res.(*cached)
	return out.masks, out.warnings, out.err
}
