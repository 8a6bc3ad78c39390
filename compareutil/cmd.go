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

// Package compareutil contains the command-line and HTTP interfaces of
// gridcompare.
package compareutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lnashier/viper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spatialmodel/gridcompare"
	"github.com/spatialmodel/gridcompare/geo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds the command tree and configuration.
type Cfg struct {
	*viper.Viper

	// Root is the main command.
	Root *cobra.Command

	versionCmd, compareCmd, metricsCmd, serveCmd *cobra.Command
}

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

// InitializeConfig creates the commands and binds their options to a new
// configuration.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "gridcompare",
		Short: "Compare gridded model outputs between two scenarios.",
		Long: `gridcompare compares the raster outputs of two runs of an erosion and
runoff model. For each variable it decodes the SAGA grids of both scenarios,
checks that they are aligned, sums them over parcels, computes the percent
change and draws a colour-coded difference preview.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GRIDCOMPARE_var' where 'var' is the
name of the variable to be set. Paths are allowed to contain environment variables.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return cfg.setConfig() },
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of gridcompare.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gridcompare v%s\n", gridcompare.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Compare two scenario directories.",
		Long: `compare reads the grid container <variable>.sg-grd-z of every variable
from the scenario1 and scenario2 directories, compares them over the parcels
and writes the result as JSON, with optional CSV, spreadsheet, difference
grid and preview outputs. Variables that cannot be compared are listed as
failures in the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := cfg.logger()
			if err != nil {
				return err
			}
			defer closeLog()
			_, err = Compare(context.Background(), cfg, log, cmd.OutOrStdout())
			return err
		},
		DisableAutoGenTag: true,
	}

	cfg.metricsCmd = &cobra.Command{
		Use:   "metrics FILE",
		Short: "Compare precomputed totals.",
		Long: `metrics reads precomputed totals from a CSV file with the columns
variable, scenario1 and scenario2 (and optionally id) and prints the percent
change and trend of each line as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := cfg.variables()
			if err != nil {
				return err
			}
			f, err := os.Open(os.ExpandEnv(args[0]))
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := gridcompare.CompareMetrics(f, vars)
			if err != nil {
				return err
			}
			e := json.NewEncoder(cmd.OutOrStdout())
			e.SetIndent("", "  ")
			return e.Encode(rows)
		},
		DisableAutoGenTag: true,
	}

	cfg.serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the comparison HTTP server.",
		Long: `serve starts an HTTP server answering comparison requests for scenario
directories below DataDir. Previews are kept in the Previews bucket and
served under /previews/. Metrics are exposed under /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := cfg.logger()
			if err != nil {
				return err
			}
			defer closeLog()
			ctx := context.Background()
			reg := prometheus.NewRegistry()
			s, err := NewServer(ctx, cfg, log, reg)
			if err != nil {
				return err
			}
			defer s.Close()

			srv := &http.Server{
				Addr:              cfg.GetString("address"),
				Handler:           s,
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
				MaxHeaderBytes:    1 << 20,
			}
			errc := make(chan error, 1)
			go func() {
				log.WithField("address", srv.Addr).Info("listening")
				errc <- srv.ListenAndServe()
			}()
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errc:
				return err
			case <-quit:
			}
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
		DisableAutoGenTag: true,
	}

	persistent := cfg.Root.PersistentFlags()
	options := []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{persistent},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of logged events: debug, info,
              warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{persistent},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can include
              environment variables. If LogFile is left blank, events are
              logged to standard error.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{persistent},
		},
		{
			name: "VariableFile",
			usage: `
              VariableFile is the path to a TOML file listing the compared
              variables in [[variable]] tables with the keys name, label, unit
              and improves_on_increase. If it is left blank, the infiltration,
              interrill_erosion, rill_erosion and surface_runoff variables
              are compared.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{persistent},
		},
		{
			name: "Projection",
			usage: `
              Projection gives the planar spatial reference of the grids and
              parcels in Proj4 or WKT format. It is used to compute the
              geographic bounds of the previews.`,
			defaultVal: geo.Lambert93,
			flagsets:   []*pflag.FlagSet{persistent},
		},
		{
			name: "RowOrder",
			usage: `
              RowOrder specifies the row order of grid data: "header" follows
              the TOPTOBOTTOM header key (rows are stored from the bottom up
              when it is missing), "topdown" and "bottomup" override it.`,
			defaultVal: "header",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags(), cfg.serveCmd.Flags()},
		},
		{
			name: "Tolerance",
			usage: `
              Tolerance is the largest difference in origin or cell size
              allowed between the grids of the two scenarios.`,
			defaultVal: gridcompare.DefaultTolerance,
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags(), cfg.serveCmd.Flags()},
		},
		{
			name: "Timeout",
			usage: `
              Timeout bounds the duration of a comparison request. Variables
              not compared in time are reported as failures.`,
			defaultVal: gridcompare.DefaultTimeout.String(),
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags(), cfg.serveCmd.Flags()},
		},
		{
			name: "CacheEntries",
			usage: `
              CacheEntries is the number of decoded grids and parcel masks
              kept in memory.`,
			defaultVal: gridcompare.DefaultCacheEntries,
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags(), cfg.serveCmd.Flags()},
		},
		{
			name: "IDProperty",
			usage: `
              IDProperty is the parcel attribute holding parcel identifiers.
              Parcels without it are numbered from 1 in file order.`,
			defaultVal: gridcompare.DefaultIDProperty,
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags(), cfg.serveCmd.Flags()},
		},
		{
			name: "ZoneBuffer",
			usage: `
              ZoneBuffer is the distance by which the reported extent of the
              parcels is enlarged, in the units of Projection.`,
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags(), cfg.serveCmd.Flags()},
		},
		{
			name: "scenario1",
			usage: `
              scenario1 is the directory or bucket URL holding the grid
              containers of the reference scenario.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "scenario2",
			usage: `
              scenario2 is the directory or bucket URL holding the grid
              containers of the compared scenario.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "parcels",
			usage: `
              parcels is the path or bucket URL of a GeoJSON (.geojson, .json)
              or shapefile (.shp) holding the parcels. If it is left blank, the
              whole grid is used.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the path of the JSON result. If it is left blank, the
              result is written to standard output.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "csv",
			usage: `
              csv is the path of an optional CSV export of the result.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "xlsx",
			usage: `
              xlsx is the path of an optional spreadsheet export of the result.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "diffgrids",
			usage: `
              diffgrids is an optional directory where the difference grid
              <variable>_diff.sg-grd-z of each compared variable is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "Previews",
			usage: `
              Previews is the bucket URL (file://, mem://, gs:// or s3://)
              where difference previews are stored. The compare command only
              stores previews when it is set.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.compareCmd.Flags()},
		},
		{
			name: "address",
			usage: `
              address is the host and port the server listens on.`,
			defaultVal: ":8080",
			flagsets:   []*pflag.FlagSet{cfg.serveCmd.Flags()},
		},
		{
			name: "DataDir",
			usage: `
              DataDir is the directory below which scenario directories and
              parcel files named in requests are looked up.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{cfg.serveCmd.Flags()},
		},
		{
			name: "PreviewBucket",
			usage: `
              PreviewBucket is the bucket URL where the server stores
              difference previews.`,
			defaultVal: "mem://previews",
			flagsets:   []*pflag.FlagSet{cfg.serveCmd.Flags()},
		},
	}

	// Set the prefix for configuration environment variables.
	cfg.SetEnvPrefix("GRIDCOMPARE")
	cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			default:
				panic(fmt.Errorf("compareutil: invalid type %T for option %s", v, option.name))
			}
		}
		cfg.BindPFlag(option.name, option.flagsets[0].Lookup(option.name))
	}

	cfg.Root.AddCommand(cfg.versionCmd, cfg.compareCmd, cfg.metricsCmd, cfg.serveCmd)
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one.
func (cfg *Cfg) setConfig() error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gridcompare: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// expand returns the value of a path option with environment variables
// expanded.
func (cfg *Cfg) expand(name string) string {
	return strings.TrimSpace(os.ExpandEnv(cfg.GetString(name)))
}
