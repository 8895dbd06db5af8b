/*
Copyright © 2021 the nc2atmodat authors.
This file is part of nc2atmodat.

nc2atmodat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

nc2atmodat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with nc2atmodat.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package nc2atmodatutil provides the command-line interface of
// nc2atmodat.
package nc2atmodatutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atmodat/nc2atmodat"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to nc2atmodat.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log_level",
			usage: `
              log_level sets the minimum level of the log messages that are
              printed: one of debug, info, warning, error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputDir",
			usage: `
              InputDir is the directory holding the model output files.
              It is prepended to InputFiles that are relative paths.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "InputFiles",
			usage: `
              InputFiles is a list of MITRAS/METRAS NetCDF files to convert.
              Files can be local paths, http(s) URLs, or blob storage
              locations in the format 'provider://bucket/file' where
              provider is one of file, gs, or s3.`,
			shorthand:  "i",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "MetadataFile",
			usage: `
              MetadataFile is the location of the Excel workbook holding the
              ATMODAT global attributes. If it is empty, only the global
              attributes of the input files are kept.`,
			shorthand:  "m",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Sheet.Name",
			usage: `
              Sheet.Name is the name of the worksheet in MetadataFile that
              holds the global attributes.`,
			defaultVal: nc2atmodat.DefaultSheetSpec.Sheet,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Sheet.HeaderRow",
			usage: `
              Sheet.HeaderRow is the zero-based index of the row holding the
              column titles. Attribute rows start directly below it.`,
			defaultVal: nc2atmodat.DefaultSheetSpec.HeaderRow,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Sheet.Rows",
			usage: `
              Sheet.Rows is the number of attribute rows below the header row.`,
			defaultVal: nc2atmodat.DefaultSheetSpec.Rows,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Sheet.KeyColumn",
			usage: `
              Sheet.KeyColumn is the zero-based index of the column holding
              the attribute names.`,
			defaultVal: nc2atmodat.DefaultSheetSpec.KeyColumn,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Sheet.ValueColumn",
			usage: `
              Sheet.ValueColumn is the zero-based index of the column holding
              the attribute values.`,
			defaultVal: nc2atmodat.DefaultSheetSpec.ValueColumn,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "UseCrop",
			usage: `
              UseCrop specifies whether to crop the model domain to the index
              ranges in Crop.I, Crop.J, and Crop.K. If false, only the halo
              cells around the domain are removed.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Crop.I",
			usage: `
              Crop.I is the [begin, end] index range of the i axis that is
              kept when UseCrop is true.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Crop.J",
			usage: `
              Crop.J is the [begin, end] index range of the j axis that is
              kept when UseCrop is true.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Crop.K",
			usage: `
              Crop.K is the [begin, end] index range of the k axis that is
              kept when UseCrop is true.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "UseTimeCrop",
			usage: `
              UseTimeCrop specifies whether to keep only the time steps in
              TimeCrop.Range.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "TimeCrop.Range",
			usage: `
              TimeCrop.Range is the [begin, end) range of time step indices
              kept when UseTimeCrop is true.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "UseReference",
			usage: `
              UseReference specifies whether the UTM position of the grid
              origin is taken from Reference.X and Reference.Y instead of
              from the reference longitude and latitude in the input file.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Reference.X",
			usage: `
              Reference.X is the UTM easting of the grid origin in meters.`,
			defaultVal: nc2atmodat.DefaultRefX,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Reference.Y",
			usage: `
              Reference.Y is the UTM northing of the grid origin in meters.`,
			defaultVal: nc2atmodat.DefaultRefY,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "UTMZone",
			usage: `
              UTMZone is the UTM zone of the model domain.`,
			defaultVal: nc2atmodat.DefaultUTMZone,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Extras",
			usage: `
              Extras is a list of variables to write in addition to the
              standard output variables, for example lon_utm or lat_utm.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory where converted files are written.
              It can be a blob storage location. If it is empty, each
              converted file is written next to its input.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "ChunkX",
			usage: `
              ChunkX is the largest number of values along the x axis that
              are written at once.`,
			defaultVal: nc2atmodat.DefaultChunkX,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "ChunkY",
			usage: `
              ChunkY is the largest number of rows along the y axis that
              are written at once.`,
			defaultVal: nc2atmodat.DefaultChunkY,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "VectorCoordinates",
			usage: `
              VectorCoordinates specifies whether to add UTM and geographic
              coordinates of the staggered grid points.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "AddCellMethods",
			usage: `
              AddCellMethods specifies whether to add a generic cell_methods
              attribute to variables that have none.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "TimeBounds",
			usage: `
              TimeBounds specifies whether to add a time_bnds variable.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "GridMapping",
			usage: `
              GridMapping specifies whether to add a crs variable describing
              the UTM projection.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "CorrectionsFile",
			usage: `
              CorrectionsFile is an optional TOML file of variable attribute
              corrections that extend the built-in ones.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("NC2ATMODAT")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(convertCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the logging level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("nc2atmodat: problem reading configuration file: %v", err)
		}
	}
	lvl, err := logrus.ParseLevel(Cfg.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("nc2atmodat: %v", err)
	}
	logrus.SetLevel(lvl)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "nc2atmodat",
	Short: "Convert MITRAS/METRAS output to ATMODAT-compliant NetCDF.",
	Long: `nc2atmodat converts NetCDF output of the MITRAS and METRAS models into
NetCDF files that follow the ATMODAT metadata standard and the CF conventions.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'NC2ATMODAT_var' where 'var' is the
name of the variable to be set. Paths are additionally allowed to contain
environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of nc2atmodat.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("nc2atmodat v%s\n", nc2atmodat.Version)
	},
	DisableAutoGenTag: true,
}

// convertCmd is a command that converts a batch of files.
var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert model output files.",
	Long: `convert converts each of the input files in turn. Files given as
arguments are added to InputFiles. A file that cannot be converted does not
stop the others, but the command then finishes with an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ConvertConfig(Cfg)
		if err != nil {
			return err
		}
		cfg.InputFiles = append(cfg.InputFiles, expandStringSlice(args)...)
		return Convert(context.Background(), cfg, logrus.StandardLogger())
	},
	DisableAutoGenTag: true,
}

// Convert converts the files in cfg. Remote input, metadata, and
// corrections files are downloaded first, and if cfg.OutputDir is a blob
// storage location the converted files are uploaded there. An input that
// cannot be downloaded, or whose output name clashes with that of an
// earlier input, fails on its own without stopping the others.
func Convert(ctx context.Context, cfg nc2atmodat.Config, log logrus.FieldLogger) error {
	d := &downloader{log: log}
	defer func() {
		if err := d.cleanup(); err != nil {
			log.WithField("error", err).Warn("nc2atmodat: removing downloaded files")
		}
	}()
	all := cfg.Paths()
	var paths, failed []string
	outputs := make(map[string]string) // output base name -> input
	inputs := make(map[string]string)  // local path -> input
	for _, f := range all {
		p, err := d.maybeDownload(ctx, f)
		if err == nil {
			name := filepath.Base(nc2atmodat.OutputPath(p, ""))
			if first, ok := outputs[name]; ok {
				err = fmt.Errorf("nc2atmodatutil: output %s of %s would overwrite that of %s", name, f, first)
			} else {
				outputs[name] = f
			}
		}
		if err != nil {
			failed = append(failed, f)
			log.WithFields(logrus.Fields{
				"file":  f,
				"error": err,
			}).Error("nc2atmodat conversion failed")
			continue
		}
		paths = append(paths, p)
		inputs[p] = f
	}
	if len(paths) == 0 {
		return batchError(failed, len(all))
	}
	cfg.InputDir, cfg.InputFiles = "", paths
	for _, f := range []*string{&cfg.MetadataFile, &cfg.CorrectionsFile} {
		if *f == "" {
			continue
		}
		p, err := d.maybeDownload(ctx, *f)
		if err != nil {
			return err
		}
		*f = p
	}

	u := &uploader{log: log}
	defer func() {
		if err := u.cleanup(); err != nil {
			log.WithField("error", err).Warn("nc2atmodat: removing uploaded files")
		}
	}()
	cfg.OutputDir = u.maybeUpload(cfg.OutputDir)
	if u.err != nil {
		return fmt.Errorf("nc2atmodatutil: preparing output directory: %v", u.err)
	}

	c, err := nc2atmodat.NewConverter(cfg)
	if err != nil {
		return err
	}
	c.Log = log
	results, convErr := c.ConvertAll(ctx)
	for _, r := range results {
		if r.Err == nil {
			u.add(r.Output)
		} else {
			failed = append(failed, inputs[r.Input])
		}
	}
	if err := u.uploadOutput(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return convErr
	}
	return batchError(failed, len(all))
}

// batchError reports the files that failed out of n, or nil if none did.
func batchError(failed []string, n int) error {
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("nc2atmodatutil: %d of %d files failed: %s",
		len(failed), n, strings.Join(failed, ", "))
}
