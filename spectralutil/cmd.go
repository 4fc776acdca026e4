/*
Copyright © 2024 the Spectral authors.
This file is part of Spectral.

Spectral is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Spectral is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Spectral.  If not, see <http://www.gnu.org/licenses/>.*/

// Package spectralutil holds the command-line interface and configuration
// handling of the spectral tools.
package spectralutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/spectral"
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
	// Options are the configuration options available to the commands.
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
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages to print.
              One of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "rsr.dir",
			usage: `
              rsr.dir is the directory holding the spectral response files,
              one file per instrument named rsr_<instrument>_<platform>.csv.
              It can include environment variables.`,
			defaultVal: "${HOME}/.spectral/rsr",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "platform",
			usage: `
              platform is the name of the satellite, for example Meteosat-10.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "instrument",
			usage: `
              instrument is the name of the imager, for example seviri.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "band",
			usage: `
              band is the band name, or a central wavelength in µm.`,
			shorthand:  "b",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{tb2radCmd.Flags(), rad2tbCmd.Flags(), solarFluxCmd.Flags(), nirCmd.Flags(), rayleighCmd.Flags()},
		},
		{
			name: "bands",
			usage: `
              bands is the list of bands to process. The default is all bands
              of the instrument.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{lutCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "detector",
			usage: `
              detector selects the detector whose response is used.`,
			defaultVal: spectral.DefaultDetector,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "wavespace",
			usage: `
              wavespace is the spectral axis radiances are expressed against:
              wavelength or wavenumber.`,
			defaultVal: string(spectral.WavelengthSpace),
			flagsets:   []*pflag.FlagSet{tb2radCmd.Flags(), rad2tbCmd.Flags(), lutCmd.Flags()},
		},
		{
			name: "tb.resolution",
			usage: `
              tb.resolution is the temperature step (K) of radiance lookup tables.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{tb2radCmd.Flags(), lutCmd.Flags(), nirCmd.Flags()},
		},
		{
			name: "lut.dir",
			usage: `
              lut.dir is the directory where radiance lookup tables are read from
              and written to. If empty, no lookup tables are used. It can
              include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{tb2radCmd.Flags(), lutCmd.Flags(), nirCmd.Flags()},
		},
		{
			name: "integrated",
			usage: `
              integrated specifies whether radiances are band-integrated rather
              than normalized by the integral of the response. Lookup tables
              hold normalized radiances and are not used for integrated ones.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{tb2radCmd.Flags()},
		},
		{
			name: "seviri",
			usage: `
              seviri specifies whether to use the closed-form SEVIRI conversion
              instead of integrating over the spectral response.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{tb2radCmd.Flags(), rad2tbCmd.Flags()},
		},
		{
			name: "values",
			usage: `
              values are the input values: brightness temperatures (K) for
              tb2rad and radiances for rad2tb.`,
			shorthand:  "v",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{tb2radCmd.Flags(), rad2tbCmd.Flags()},
		},
		{
			name: "solar.spectrum",
			usage: `
              solar.spectrum is the path to a two-column (wavelength in µm,
              irradiance in W m⁻² µm⁻¹) solar spectrum file. If empty, a 5772 K
              blackbody sun is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{solarFluxCmd.Flags(), nirCmd.Flags()},
		},
		{
			name: "date",
			usage: `
              date (YYYY-MM-DD) corrects the solar spectrum for the Earth-Sun
              distance on that day. If empty, the mean distance is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{solarFluxCmd.Flags(), nirCmd.Flags()},
		},
		{
			name: "sunz",
			usage: `
              sunz are the sun zenith angles in degrees.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{nirCmd.Flags(), rayleighCmd.Flags()},
		},
		{
			name: "tb.band",
			usage: `
              tb.band are the brightness temperatures (K) of the 3.x µm band.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{nirCmd.Flags()},
		},
		{
			name: "tb.thermal",
			usage: `
              tb.thermal are the brightness temperatures (K) of the 11 µm band.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{nirCmd.Flags()},
		},
		{
			name: "tb.co2",
			usage: `
              tb.co2 are the brightness temperatures (K) of the 13.4 µm band.
              If given, the thermal radiance is corrected for CO2 absorption.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{nirCmd.Flags()},
		},
		{
			name: "emissive",
			usage: `
              emissive specifies whether to also print the thermal part of the
              3.x µm band as a brightness temperature.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{nirCmd.Flags()},
		},
		{
			name: "satz",
			usage: `
              satz are the satellite zenith angles in degrees.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{rayleighCmd.Flags()},
		},
		{
			name: "azidiff",
			usage: `
              azidiff are the relative azimuth angles between sun and satellite
              in degrees.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{rayleighCmd.Flags()},
		},
		{
			name: "redband",
			usage: `
              redband are the reflectances (%) of a red band used to reduce
              the correction over bright pixels.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{rayleighCmd.Flags()},
		},
		{
			name: "rayleigh.dir",
			usage: `
              rayleigh.dir is the directory holding the Rayleigh lookup tables,
              one subdirectory per aerosol type. It can include environment
              variables.`,
			defaultVal: "${HOME}/.spectral/rayleigh",
			flagsets:   []*pflag.FlagSet{rayleighCmd.Flags()},
		},
		{
			name: "atmosphere",
			usage: `
              atmosphere is the standard atmosphere of the Rayleigh lookup table.`,
			defaultVal: "us-standard",
			flagsets:   []*pflag.FlagSet{rayleighCmd.Flags()},
		},
		{
			name: "aerosol",
			usage: `
              aerosol is the aerosol type of the Rayleigh lookup table.`,
			defaultVal: "marine_clean_aerosol",
			flagsets:   []*pflag.FlagSet{rayleighCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the plot to create. The format follows
              the file extension (png, svg, pdf).`,
			shorthand:  "o",
			defaultVal: "rsr.png",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SPECTRAL")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

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
	Root.AddCommand(tb2radCmd)
	Root.AddCommand(rad2tbCmd)
	Root.AddCommand(lutCmd)
	Root.AddCommand(solarFluxCmd)
	Root.AddCommand(nirCmd)
	Root.AddCommand(rayleighCmd)
	Root.AddCommand(plotCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("spectral: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("spectral: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "spectral",
	Short: "Radiometric conversions for satellite imagers.",
	Long: `spectral converts between brightness temperatures and radiances using
the spectral responses of satellite imager bands, computes in-band solar
fluxes, splits 3.x µm radiances into reflected and emitted parts, and
computes Rayleigh scattering corrections.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SPECTRAL_var' where 'var' is the
name of the variable to be set, with '.' replaced by '_'.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of spectral.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spectral v%s\n", spectral.Version)
	},
	DisableAutoGenTag: true,
}

var tb2radCmd = &cobra.Command{
	Use:   "tb2rad",
	Short: "Convert brightness temperatures to radiances",
	Long: `tb2rad converts the brightness temperatures given by --values to
radiances of the band given by --band. Radiances are normalized by the
integral of the band response unless --integrated is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := floats(Cfg, "values")
		if err != nil {
			return err
		}
		return TbToRadiance(context.Background(), cmd.OutOrStdout(), Cfg, values)
	},
	DisableAutoGenTag: true,
}

var rad2tbCmd = &cobra.Command{
	Use:   "rad2tb",
	Short: "Convert radiances to brightness temperatures",
	Long: `rad2tb converts the radiances given by --values to brightness
temperatures of the band given by --band, using the central wavelength of
the band.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := floats(Cfg, "values")
		if err != nil {
			return err
		}
		return RadianceToTb(cmd.OutOrStdout(), Cfg, values)
	},
	DisableAutoGenTag: true,
}

var lutCmd = &cobra.Command{
	Use:   "lut",
	Short: "Build radiance lookup tables",
	Long: `lut builds the radiance lookup tables of the bands given by --bands,
or of all bands of the instrument, in the directory given by --lut.dir.
Tables that already exist and match the current band responses are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return BuildLookupTables(context.Background(), cmd.OutOrStdout(), Cfg)
	},
	DisableAutoGenTag: true,
}

var solarFluxCmd = &cobra.Command{
	Use:   "solarflux",
	Short: "Compute the in-band solar flux",
	Long: `solarflux prints the in-band solar flux (W m⁻²) and the in-band
solar irradiance of the band given by --band.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return SolarFlux(cmd.OutOrStdout(), Cfg)
	},
	DisableAutoGenTag: true,
}

var nirCmd = &cobra.Command{
	Use:   "nir",
	Short: "Compute 3.x µm reflectances",
	Long: `nir computes the solar reflectance of the 3.x µm band given by --band
from its brightness temperatures (--tb.band), the 11 µm brightness
temperatures (--tb.thermal) and the sun zenith angles (--sunz).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Reflectance(cmd.OutOrStdout(), Cfg)
	},
	DisableAutoGenTag: true,
}

var rayleighCmd = &cobra.Command{
	Use:   "rayleigh",
	Short: "Compute Rayleigh reflectances",
	Long: `rayleigh computes the Rayleigh scattering reflectance (%) of the band
given by --band for the given sun and satellite zenith angles and relative
azimuths.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Rayleigh(context.Background(), cmd.OutOrStdout(), Cfg)
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot spectral responses",
	Long: `plot draws the spectral responses of the bands given by --bands, or
of all bands of the instrument, into the file given by --OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return PlotResponses(Cfg)
	},
	DisableAutoGenTag: true,
}
