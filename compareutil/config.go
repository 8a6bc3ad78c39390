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
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gridcompare"
	"github.com/spatialmodel/gridcompare/cloud"
	"github.com/spatialmodel/gridcompare/geo"
	"github.com/spatialmodel/gridcompare/saga"
	"github.com/spf13/cast"
)

// ContainerExt is the file name extension of grid containers.
const ContainerExt = ".sg-grd-z"

// logger returns a logger configured with LogLevel and LogFile, and a
// function releasing the log file.
func (cfg *Cfg) logger() (*logrus.Logger, func(), error) {
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, nil, fmt.Errorf("gridcompare: invalid LogLevel: %v", err)
	}
	log := logrus.New()
	log.Level = level
	log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	log.Out = os.Stderr
	closeLog := func() {}
	if f := cfg.expand("LogFile"); f != "" {
		w, err := os.OpenFile(f, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("gridcompare: opening log file: %v", err)
		}
		log.Out = w
		closeLog = func() { w.Close() }
	}
	return log, closeLog, nil
}

// variables returns the variable table from VariableFile, or the default
// table.
func (cfg *Cfg) variables() ([]gridcompare.Variable, error) {
	if f := cfg.expand("VariableFile"); f != "" {
		return gridcompare.ReadVariablesFile(f)
	}
	return gridcompare.DefaultVariables, nil
}

// comparer creates a Comparer from the configuration.
func (cfg *Cfg) comparer(log logrus.FieldLogger, store gridcompare.PreviewStore, m *gridcompare.Metrics) (*gridcompare.Comparer, error) {
	vars, err := cfg.variables()
	if err != nil {
		return nil, err
	}
	projector, err := geo.NewProjector(cfg.GetString("Projection"))
	if err != nil {
		return nil, err
	}
	order, err := saga.ParseRowOrder(cfg.GetString("RowOrder"))
	if err != nil {
		return nil, err
	}
	tolerance, err := cast.ToFloat64E(cfg.Get("Tolerance"))
	if err != nil {
		return nil, fmt.Errorf("gridcompare: invalid Tolerance: %v", err)
	}
	timeout, err := cast.ToDurationE(cfg.Get("Timeout"))
	if err != nil {
		return nil, fmt.Errorf("gridcompare: invalid Timeout: %v", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("gridcompare: Timeout must be positive, not %v", timeout)
	}
	entries, err := cast.ToIntE(cfg.Get("CacheEntries"))
	if err != nil {
		return nil, fmt.Errorf("gridcompare: invalid CacheEntries: %v", err)
	}
	buffer, err := cast.ToFloat64E(cfg.Get("ZoneBuffer"))
	if err != nil {
		return nil, fmt.Errorf("gridcompare: invalid ZoneBuffer: %v", err)
	}
	opts := []gridcompare.Option{
		gridcompare.WithVariables(vars),
		gridcompare.WithRowOrder(order),
		gridcompare.WithTolerance(tolerance),
		gridcompare.WithTimeout(timeout),
		gridcompare.WithCacheEntries(entries),
		gridcompare.WithZoneBuffer(buffer),
		gridcompare.WithLogger(log),
		gridcompare.WithMetrics(m),
	}
	if store != nil {
		opts = append(opts, gridcompare.WithStore(store))
	}
	return gridcompare.NewComparer(projector, opts...), nil
}

// join joins a directory or bucket URL and a file name.
func join(dir, name string) string {
	if cloud.IsBucketURL(dir) {
		return strings.TrimRight(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// readInputs reads the grid containers of vars from the two scenario
// locations, which are directories or bucket URLs. Containers missing from
// both scenarios are left out, so that they are reported as input
// failures; a container missing from one scenario is left empty.
func readInputs(ctx context.Context, dir1, dir2 string, vars []gridcompare.Variable) (map[string]gridcompare.Input, error) {
	tmp, err := ioutil.TempDir("", "gridcompare")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	read := func(dir, name string) ([]byte, error) {
		f, err := cloud.Download(ctx, join(dir, name+ContainerExt), tmp)
		if errors.Is(err, cloud.ErrNotFound) {
			return nil, nil
		} else if err != nil {
			return nil, err
		}
		b, err := ioutil.ReadFile(f)
		if os.IsNotExist(err) {
			return nil, nil
		}
		return b, err
	}

	inputs := make(map[string]gridcompare.Input)
	for _, v := range vars {
		s1, err := read(dir1, v.Name)
		if err != nil {
			return nil, fmt.Errorf("gridcompare: reading %s: %v", v.Name, err)
		}
		s2, err := read(dir2, v.Name)
		if err != nil {
			return nil, fmt.Errorf("gridcompare: reading %s: %v", v.Name, err)
		}
		if s1 == nil && s2 == nil {
			continue
		}
		inputs[v.Name] = gridcompare.Input{Scenario1: s1, Scenario2: s2}
	}
	return inputs, nil
}

// loadParcels reads the parcel file at loc, a path or bucket URL, in the
// planar reference of projector. An empty loc means no parcels.
func loadParcels(ctx context.Context, loc, idProperty string, projector *geo.Projector) ([]gridcompare.Parcel, []*gridcompare.GeometryError, error) {
	if loc == "" {
		return nil, nil, nil
	}
	tmp, err := ioutil.TempDir("", "gridcompare")
	if err != nil {
		return nil, nil, err
	}
	defer os.RemoveAll(tmp)
	f, err := cloud.Download(ctx, loc, tmp)
	if err != nil {
		return nil, nil, err
	}
	return gridcompare.ReadParcels(f, idProperty, projector)
}

// writeFile creates the file at path, which may be a blob URL, and
// writes to it with write.
func writeFile(ctx context.Context, path string, write func(io.Writer) error) error {
	f, err := cloud.Create(ctx, path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("gridcompare: writing %s: %v", path, err)
	}
	return f.Close()
}
