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

// Package gridcompare compares two scenarios of gridded model output,
// reducing each variable to per-parcel and whole-zone totals and a
// colour-coded preview of the difference.
package gridcompare

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/requestcache"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcompare/geo"
	"github.com/spatialmodel/gridcompare/internal/hash"
	"github.com/spatialmodel/gridcompare/saga"
)

// Version is the version of gridcompare.
const Version = "0.1.0"

// DefaultTimeout bounds a comparison request.
const DefaultTimeout = 2 * time.Minute

// PreviewStore persists difference previews.
type PreviewStore interface {
	// Put stores data under key and returns a URL or path at which it
	// can be retrieved.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Input holds the two grid containers of one variable.
type Input struct {
	Scenario1, Scenario2 []byte
}

// Request is a comparison request.
type Request struct {
	// Inputs holds grid containers by variable name.
	Inputs map[string]Input

	// Parcels are the zones to aggregate over. If there are none, the
	// whole grid is used.
	Parcels []Parcel

	// Warnings are problems found while reading the parcels. They are
	// copied to the result.
	Warnings []*GeometryError
}

// VariableResult holds the comparison of one variable.
type VariableResult struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Unit    string `json:"unit"`
	Parcels []Row  `json:"parcels"`
	Total   Row    `json:"total"`

	Preview    *Preview `json:"preview"`
	PreviewKey string   `json:"preview_key"`
	PreviewURL string   `json:"preview_url,omitempty"`

	// Pair holds the aligned grids.
	Pair *ScenarioPair `json:"-"`
}

// Zone describes the extent of the parcels.
type Zone struct {
	Bounds    *geom.Bounds `json:"bounds"`
	Area      float64      `json:"area"`
	Perimeter float64      `json:"perimeter"`
}

// Result is the outcome of a comparison request.
type Result struct {
	// Variables holds the successfully compared variables in the order
	// of the variable table.
	Variables []*VariableResult `json:"variables"`

	// Failures lists the variables that could not be compared.
	Failures []Failure `json:"failures"`

	ParcelIDs []string `json:"parcel_ids"`

	// Bounds is the geographic extent of the grids.
	Bounds *geo.LatLonBounds `json:"bounds,omitempty"`

	Zone *Zone `json:"zone,omitempty"`

	Warnings []string `json:"warnings,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// Variable returns the result for the named variable, or nil.
func (r *Result) Variable(name string) *VariableResult {
	for _, v := range r.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Comparer compares scenario grids. A Comparer is safe for concurrent use
// once created.
type Comparer struct {
	Variables []Variable
	Tolerance float64
	RowOrder  saga.RowOrder
	Projector *geo.Projector

	// Store receives the difference previews. If it is nil, previews
	// are only returned in the result.
	Store PreviewStore

	Timeout time.Duration

	// ZoneBuffer is the distance added around the parcel extent.
	ZoneBuffer float64

	Clock   clockwork.Clock
	Log     logrus.FieldLogger
	Metrics *Metrics

	cacheEntries int
	cache        *requestcache.Cache
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithVariables sets the variable table.
func WithVariables(v []Variable) Option { return func(c *Comparer) { c.Variables = v } }

// WithTolerance sets the alignment tolerance.
func WithTolerance(t float64) Option { return func(c *Comparer) { c.Tolerance = t } }

// WithRowOrder sets the row order used when decoding grids.
func WithRowOrder(o saga.RowOrder) Option { return func(c *Comparer) { c.RowOrder = o } }

// WithStore sets the preview store.
func WithStore(s PreviewStore) Option { return func(c *Comparer) { c.Store = s } }

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option { return func(c *Comparer) { c.Timeout = d } }

// WithZoneBuffer sets the buffer around the parcel extent.
func WithZoneBuffer(b float64) Option { return func(c *Comparer) { c.ZoneBuffer = b } }

// WithClock sets the clock used for timeouts and elapsed times.
func WithClock(clock clockwork.Clock) Option { return func(c *Comparer) { c.Clock = clock } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(c *Comparer) { c.Log = l } }

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) Option { return func(c *Comparer) { c.Metrics = m } }

// WithCacheEntries sets the number of grids and mask sets kept in memory.
func WithCacheEntries(n int) Option { return func(c *Comparer) { c.cacheEntries = n } }

// NewComparer creates a Comparer that reports geographic bounds with
// projector.
func NewComparer(projector *geo.Projector, opts ...Option) *Comparer {
	c := &Comparer{
		Variables: DefaultVariables,
		Tolerance: DefaultTolerance,
		Projector: projector,
		Timeout:   DefaultTimeout,
		Clock:     clockwork.NewRealClock(),
		Log:       logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	c.cache = newCache(c.cacheEntries)
	return c
}

// outcome is the result of comparing one variable.
type outcome struct {
	idx      int
	result   *VariableResult
	failure  *Failure
	warnings []*GeometryError
	geometry GridGeometry
	err      error
}

type job struct {
	v  Variable
	in Input
}

// Compare compares every variable of req concurrently. Variables that
// cannot be decoded, aligned, rendered or stored, or that do not finish
// before the timeout, are reported as failures while the others complete.
// An error is returned only for internal inconsistencies.
func (c *Comparer) Compare(ctx context.Context, req *Request) (*Result, error) {
	start := c.Clock.Now()
	if c.Metrics != nil {
		c.Metrics.Requests.Inc()
	}
	ctx, cancel := clockwork.WithTimeout(ctx, c.Clock, c.Timeout)
	defer cancel()

	res := &Result{Variables: []*VariableResult{}, Failures: []Failure{}, ParcelIDs: parcelIDs(req.Parcels)}
	parcelKey := hash.Hash(req.Parcels)

	var jobs []job
	keyParts := []string{parcelKey}
	for _, v := range c.Variables {
		in, ok := req.Inputs[v.Name]
		if !ok {
			res.Failures = append(res.Failures, c.fail(v.Name, FailInput, fmt.Errorf("no grids provided")))
			continue
		}
		jobs = append(jobs, job{v: v, in: in})
		keyParts = append(keyParts, v.Name, hash.Bytes(in.Scenario1), hash.Bytes(in.Scenario2))
	}
	var unknown []string
	for name := range req.Inputs {
		if _, ok := Lookup(c.Variables, name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		res.Failures = append(res.Failures, c.fail(name, FailInput, fmt.Errorf("unknown variable")))
	}
	requestKey := hash.Hash(keyParts)
	log := c.Log.WithField("request", requestKey)
	log.WithFields(logrus.Fields{
		"variables": len(jobs),
		"parcels":   len(req.Parcels),
	}).Info("starting comparison")

	out := make(chan outcome, len(jobs))
	for i, j := range jobs {
		go func(i int, j job) {
			o := c.compareVariable(ctx, j.v, j.in, req.Parcels, parcelKey, requestKey)
			o.idx = i
			out <- o
		}(i, j)
	}
	done := make([]*outcome, len(jobs))
collect:
	for remaining := len(jobs); remaining > 0; remaining-- {
		select {
		case o := <-out:
			done[o.idx] = &o
		case <-ctx.Done():
			// Keep outcomes that arrived with the deadline.
			for {
				select {
				case o := <-out:
					done[o.idx] = &o
				default:
					break collect
				}
			}
		}
	}

	var geometry *GridGeometry
	var warnings []*GeometryError
	for i, j := range jobs {
		o := done[i]
		switch {
		case o == nil:
			res.Failures = append(res.Failures, c.fail(j.v.Name, FailTimeout, expired(ctx)))
		case o.err != nil:
			return nil, o.err
		case o.failure != nil:
			res.Failures = append(res.Failures, *o.failure)
		default:
			res.Variables = append(res.Variables, o.result)
			c.Metrics.countVariable(j.v.Name, "ok")
			if geometry == nil {
				g := o.geometry
				geometry = &g
				warnings = o.warnings
			}
		}
	}

	seen := make(map[string]bool)
	for _, w := range append(req.Warnings, warnings...) {
		if msg := w.Error(); !seen[msg] {
			seen[msg] = true
			res.Warnings = append(res.Warnings, msg)
			log.WithField("parcel", w.ParcelID).Warn(w.Reason)
		}
	}
	if geometry != nil && c.Projector != nil {
		b, err := c.Projector.Bounds(geometry.Bounds())
		if err != nil {
			log.WithError(err).Warn("computing grid bounds")
		} else {
			res.Bounds = &b
		}
	}
	if polys := Polygons(req.Parcels); len(polys) > 0 {
		z := &Zone{Bounds: geo.Extent(polys, c.ZoneBuffer)}
		for _, p := range polys {
			z.Area += geo.Area(p)
			z.Perimeter += geo.Perimeter(p)
		}
		res.Zone = z
	}
	res.Elapsed = c.Clock.Since(start)
	c.Metrics.setCacheRequests(c.cache.Requests())
	log.WithFields(logrus.Fields{
		"compared": len(res.Variables),
		"failed":   len(res.Failures),
		"elapsed":  res.Elapsed,
	}).Info("finished comparison")
	return res, nil
}

// fail records a failed variable.
func (c *Comparer) fail(variable string, kind FailureKind, err error) Failure {
	c.Log.WithFields(logrus.Fields{
		"variable": variable,
		"kind":     kind,
	}).WithError(err).Warn("variable not compared")
	c.Metrics.countVariable(variable, string(kind))
	return Failure{Variable: variable, Kind: kind, Reason: err.Error()}
}

func (c *Comparer) compareVariable(ctx context.Context, v Variable, in Input, parcels []Parcel, parcelKey, requestKey string) outcome {
	log := c.Log.WithField("variable", v.Name)
	failed := func(kind FailureKind, err error) outcome {
		if cerr := expired(ctx); cerr != nil {
			kind, err = FailTimeout, cerr
		}
		f := c.fail(v.Name, kind, err)
		return outcome{failure: &f}
	}
	t0 := c.Clock.Now()
	stage := func(name string) {
		now := c.Clock.Now()
		c.Metrics.observeStage(name, now.Sub(t0))
		log.WithField("duration", now.Sub(t0)).Debug(name)
		t0 = now
	}

	if len(in.Scenario1) == 0 {
		return failed(FailInput, fmt.Errorf("missing scenario 1 grid"))
	}
	if len(in.Scenario2) == 0 {
		return failed(FailInput, fmt.Errorf("missing scenario 2 grid"))
	}
	if err := expired(ctx); err != nil {
		return failed(FailTimeout, err)
	}

	var g1, g2 *saga.Grid
	var err1, err2 error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g1, err1 = c.decodeCached(ctx, in.Scenario1, v.Name+" scenario 1")
	}()
	go func() {
		defer wg.Done()
		g2, err2 = c.decodeCached(ctx, in.Scenario2, v.Name+" scenario 2")
	}()
	wg.Wait()
	if err1 != nil {
		return failed(FailDecode, err1)
	}
	if err2 != nil {
		return failed(FailDecode, err2)
	}
	stage("decode")

	pair, err := Align(v.Name, g1, g2, c.Tolerance)
	if err != nil {
		return failed(FailAlignment, err)
	}
	stage("align")
	if err := expired(ctx); err != nil {
		return failed(FailTimeout, err)
	}

	masks, warnings, err := c.masksCached(ctx, pair.Geometry(), parcels, parcelKey)
	if err != nil {
		return outcome{err: &ComputationError{Variable: v.Name, Err: err}}
	}
	stage("mask")

	parcelSums, totalSums, err := Aggregate(pair, masks)
	if err != nil {
		var ce *ComputationError
		if !errors.As(err, &ce) {
			err = &ComputationError{Variable: v.Name, Err: err}
		}
		return outcome{err: err}
	}
	vr := &VariableResult{
		Name:    v.Name,
		Label:   v.Label,
		Unit:    v.Unit,
		Parcels: make([]Row, len(parcelSums)),
		Total:   NewRow(totalSums, v),
		Pair:    pair,
	}
	for i, s := range parcelSums {
		vr.Parcels[i] = NewRow(s, v)
	}
	stage("aggregate")
	if err := expired(ctx); err != nil {
		return failed(FailTimeout, err)
	}

	vr.Preview, err = RenderDiff(pair, v, c.Projector)
	if err != nil {
		return failed(FailRender, err)
	}
	stage("render")

	vr.PreviewKey = requestKey + "/" + v.Name + "_diff.png"
	if c.Store != nil {
		vr.PreviewURL, err = c.Store.Put(ctx, vr.PreviewKey, vr.Preview.PNG, "image/png")
		if err != nil {
			return failed(FailStore, err)
		}
		stage("store")
	}
	log.WithFields(logrus.Fields{
		"total_scenario1": vr.Total.Scenario1,
		"total_scenario2": vr.Total.Scenario2,
		"percent_change":  vr.Total.PercentChange,
	}).Info("compared variable")
	return outcome{result: vr, warnings: warnings, geometry: pair.Geometry()}
}

// expired returns the error of ctx if it is done and nil otherwise,
// without blocking.
func expired(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// parcelIDs returns the distinct parcel IDs in input order.
func parcelIDs(parcels []Parcel) []string {
	ids := []string{}
	seen := make(map[string]bool)
	for _, p := range parcels {
		if !seen[p.ID] {
			seen[p.ID] = true
			ids = append(ids, p.ID)
		}
	}
	return ids
}
