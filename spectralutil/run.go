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

package spectralutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/nir"
	"github.com/spatialmodel/spectral/radtb"
	"github.com/spatialmodel/spectral/rayleigh"
	"github.com/spatialmodel/spectral/solar"
	"github.com/spf13/cast"
)

// floats returns the configuration variable name as a list of numbers.
func floats(cfg *viper.Viper, name string) ([]float64, error) {
	s := cfg.GetStringSlice(name)
	o := make([]float64, 0, len(s))
	for _, v := range s {
		f, err := cast.ToFloat64E(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("spectral: reading %s: %v", name, err)
		}
		o = append(o, f)
	}
	return o, nil
}

// requireFloats is like floats but fails for an empty list.
func requireFloats(cfg *viper.Viper, name string) (array.Array, error) {
	v, err := floats(cfg, name)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("spectral: no values given for %s", name)
	}
	return array.New(v), nil
}

// bandID interprets s as a central wavelength in µm if it is a number and
// as a band name otherwise.
func bandID(s string) (spectral.BandID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("spectral: no band given; set the band configuration variable")
	}
	if wl, err := strconv.ParseFloat(s, 64); err == nil {
		return spectral.Wavelength(wl), nil
	}
	return spectral.BandName(s), nil
}

// source returns the spectral response source configured by rsr.dir.
func source(cfg *viper.Viper) *spectral.CSVSource {
	return &spectral.CSVSource{Dir: os.ExpandEnv(cfg.GetString("rsr.dir"))}
}

// platform returns the configured platform and instrument names.
func platform(cfg *viper.Viper) (string, string, error) {
	p, i := cfg.GetString("platform"), cfg.GetString("instrument")
	if p == "" || i == "" {
		return "", "", fmt.Errorf("spectral: the platform and instrument configuration variables must be set")
	}
	return p, i, nil
}

func converter(cfg *viper.Viper) (*radtb.Converter, error) {
	p, i, err := platform(cfg)
	if err != nil {
		return nil, err
	}
	b, err := bandID(cfg.GetString("band"))
	if err != nil {
		return nil, err
	}
	return radtb.NewConverter(source(cfg), p, i, b, converterOptions(cfg)...)
}

func converterOptions(cfg *viper.Viper) []radtb.Option {
	opts := []radtb.Option{
		radtb.WithDetector(cfg.GetString("detector")),
		radtb.WithTbResolution(cfg.GetFloat64("tb.resolution")),
		radtb.WithLogger(logrus.StandardLogger()),
	}
	if ws := cfg.GetString("wavespace"); ws != "" {
		opts = append(opts, radtb.WithWavespace(spectral.Wavespace(ws)))
	}
	return opts
}

func seviriConverter(cfg *viper.Viper) (*radtb.SeviriConverter, error) {
	b, err := bandID(cfg.GetString("band"))
	if err != nil {
		return nil, err
	}
	return radtb.NewSeviriConverter(cfg.GetString("platform"), b)
}

// printColumns writes one line per element of the given arrays, which
// must all have the same length.
func printColumns(w io.Writer, cols ...array.Array) error {
	data := make([]*array.Dense, len(cols))
	for i, c := range cols {
		d, err := array.Compute(context.Background(), c)
		if err != nil {
			return err
		}
		data[i] = d
	}
	for j := 0; j < data[0].Len(); j++ {
		fields := make([]string, len(data))
		for i, d := range data {
			fields[i] = strconv.FormatFloat(d.At(j), 'g', 10, 64)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// TbToRadiance converts the brightness temperatures tb to radiances of the
// configured band and prints them to w.
func TbToRadiance(ctx context.Context, w io.Writer, cfg *viper.Viper, tb []float64) error {
	if len(tb) == 0 {
		return fmt.Errorf("spectral: no brightness temperatures given")
	}
	in := array.New(tb)
	if cfg.GetBool("seviri") {
		c, err := seviriConverter(cfg)
		if err != nil {
			return err
		}
		r, err := c.TbToRadiance(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "# tb (K)\tradiance (%s)\n", r.Unit)
		return printColumns(w, in, r.Values)
	}
	c, err := converter(cfg)
	if err != nil {
		return err
	}
	opt := radtb.TbOptions{Integrated: cfg.GetBool("integrated")}
	if dir := os.ExpandEnv(cfg.GetString("lut.dir")); dir != "" && !opt.Integrated {
		lut, err := c.LoadOrBuildLookupTable(ctx, dir)
		if err != nil {
			return err
		}
		opt.LUT = lut
	}
	r, err := c.TbToRadiance(in, opt)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# tb (K)\tradiance (%s)\n", r.Unit)
	return printColumns(w, in, r.Values)
}

// RadianceToTb converts radiances to brightness temperatures of the
// configured band and prints them to w.
func RadianceToTb(w io.Writer, cfg *viper.Viper, rad []float64) error {
	if len(rad) == 0 {
		return fmt.Errorf("spectral: no radiances given")
	}
	in := array.New(rad)
	var tb array.Array
	if cfg.GetBool("seviri") {
		c, err := seviriConverter(cfg)
		if err != nil {
			return err
		}
		if tb, err = c.RadianceToTb(in); err != nil {
			return err
		}
	} else {
		c, err := converter(cfg)
		if err != nil {
			return err
		}
		if tb, err = c.RadianceToTb(in); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "# radiance\ttb (K)")
	return printColumns(w, in, tb)
}

// bandNames returns the configured bands, or all bands of in.
func bandNames(cfg *viper.Viper, in *spectral.Instrument) []string {
	if b := cfg.GetStringSlice("bands"); len(b) > 0 {
		return b
	}
	names := make([]string, len(in.Bands))
	for i, b := range in.Bands {
		names[i] = b.Name
	}
	return names
}

// BuildLookupTables builds the radiance lookup tables of the configured
// bands in lut.dir and prints their paths to w.
func BuildLookupTables(ctx context.Context, w io.Writer, cfg *viper.Viper) error {
	p, i, err := platform(cfg)
	if err != nil {
		return err
	}
	dir := os.ExpandEnv(cfg.GetString("lut.dir"))
	if dir == "" {
		return fmt.Errorf("spectral: the lut.dir configuration variable must be set")
	}
	src := source(cfg)
	in, err := src.Instrument(p, i)
	if err != nil {
		return err
	}
	bands := bandNames(cfg, in)
	bar := progressbar.NewOptions(len(bands),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("building lookup tables"),
		progressbar.OptionShowCount(),
	)
	for _, b := range bands {
		c, err := radtb.NewConverter(src, p, i, spectral.BandName(b), converterOptions(cfg)...)
		if err != nil {
			return err
		}
		if _, err := c.LoadOrBuildLookupTable(ctx, dir); err != nil {
			return err
		}
		fmt.Fprintln(w, c.LookupTableFile(dir))
		bar.Add(1)
	}
	return bar.Finish()
}

// spectrum returns the configured solar spectrum, scaled to the Earth-Sun
// distance on the configured date. It returns nil if no spectrum file and
// no date are configured.
func spectrum(cfg *viper.Viper) (*solar.Spectrum, error) {
	path := os.ExpandEnv(cfg.GetString("solar.spectrum"))
	date := cfg.GetString("date")
	if path == "" && date == "" {
		return nil, nil
	}
	var s *solar.Spectrum
	if path == "" {
		s = solar.DefaultSpectrum()
	} else {
		var err error
		if s, err = solar.ReadSpectrum(path); err != nil {
			return nil, err
		}
	}
	if date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("spectral: date: %v", err)
		}
		s = s.Scaled(solar.SunEarthDistanceCorrection(t))
	}
	return s, nil
}

// SolarFlux prints the in-band solar flux and irradiance of the
// configured band to w.
func SolarFlux(w io.Writer, cfg *viper.Viper) error {
	c, err := converter(cfg)
	if err != nil {
		return err
	}
	s, err := spectrum(cfg)
	if err != nil {
		return err
	}
	if s == nil {
		logrus.Warn("spectral: no solar spectrum given; using a 5772 K blackbody sun")
		s = solar.DefaultSpectrum()
	}
	flux, err := solar.InbandFlux(s, c.Response(), 0)
	if err != nil {
		return err
	}
	irr, err := solar.InbandIrradiance(s, c.Response(), 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "band\t%s\nflux\t%g\nirradiance\t%g\n", c.Band, solar.FluxUnit(flux), irr)
	return nil
}

// Reflectance prints the 3.x µm reflectances computed from the configured
// angles and brightness temperatures to w.
func Reflectance(w io.Writer, cfg *viper.Viper) error {
	p, i, err := platform(cfg)
	if err != nil {
		return err
	}
	b, err := bandID(cfg.GetString("band"))
	if err != nil {
		return err
	}
	opts := []nir.Option{
		nir.WithConverterOptions(converterOptions(cfg)...),
		nir.WithLogger(logrus.StandardLogger()),
	}
	s, err := spectrum(cfg)
	if err != nil {
		return err
	}
	if s != nil {
		opts = append(opts, nir.WithSpectrum(s))
	}
	if dir := os.ExpandEnv(cfg.GetString("lut.dir")); dir != "" {
		opts = append(opts, nir.WithLUTDir(dir))
	}
	c, err := nir.New(source(cfg), p, i, b, opts...)
	if err != nil {
		return err
	}
	sunz, err := requireFloats(cfg, "sunz")
	if err != nil {
		return err
	}
	tbBand, err := requireFloats(cfg, "tb.band")
	if err != nil {
		return err
	}
	tbThermal, err := requireFloats(cfg, "tb.thermal")
	if err != nil {
		return err
	}
	var tbCO2 array.Array
	if v, err := floats(cfg, "tb.co2"); err != nil {
		return err
	} else if len(v) > 0 {
		tbCO2 = array.New(v)
	}
	r, err := c.ReflectanceFromTbs(sunz, tbBand, tbThermal, tbCO2)
	if err != nil {
		return err
	}
	if !cfg.GetBool("emissive") {
		fmt.Fprintln(w, "# reflectance")
		return printColumns(w, r)
	}
	e, err := c.EmissivePart3x(true)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# reflectance\temissive tb (K)")
	return printColumns(w, r, e)
}

// Rayleigh prints the Rayleigh reflectances (%) for the configured band
// and angles to w.
func Rayleigh(ctx context.Context, w io.Writer, cfg *viper.Viper) error {
	p, i, err := platform(cfg)
	if err != nil {
		return err
	}
	b, err := bandID(cfg.GetString("band"))
	if err != nil {
		return err
	}
	c, err := rayleigh.New(source(cfg), p, i,
		rayleigh.WithAtmosphere(cfg.GetString("atmosphere")),
		rayleigh.WithAerosolType(cfg.GetString("aerosol")),
		rayleigh.WithLUTDir(os.ExpandEnv(cfg.GetString("rayleigh.dir"))),
		rayleigh.WithDetector(cfg.GetString("detector")),
		rayleigh.WithLogger(logrus.StandardLogger()),
	)
	if err != nil {
		return err
	}
	sunz, err := requireFloats(cfg, "sunz")
	if err != nil {
		return err
	}
	satz, err := requireFloats(cfg, "satz")
	if err != nil {
		return err
	}
	azidiff, err := requireFloats(cfg, "azidiff")
	if err != nil {
		return err
	}
	var red array.Array
	if v, err := floats(cfg, "redband"); err != nil {
		return err
	} else if len(v) > 0 {
		red = array.New(v)
	}
	r, err := c.GetReflectance(ctx, sunz, satz, azidiff, b, red)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# rayleigh reflectance (%)")
	return printColumns(w, r)
}
