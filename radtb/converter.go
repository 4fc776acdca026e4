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

// Package radtb converts between brightness temperature and band radiance
// for satellite imager bands, by integrating the Planck function over the
// band's spectral response or by looking up precomputed tables.
package radtb

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/blackbody"
	"github.com/spatialmodel/spectral/internal/hash"
	"gonum.org/v1/gonum/integrate"
)

// The temperature range covered by lookup tables, in K.
const (
	TBMin = 150.
	TBMax = 360.
)

// DefaultTbResolution is the default lookup table step in K.
const DefaultTbResolution = 0.1

// Converter converts between brightness temperature and radiance for one
// band and detector, in either wavelength or wavenumber space.
type Converter struct {
	Platform   string
	Instrument string
	Band       string
	Detector   string

	// Log receives diagnostic messages. It defaults to the logrus
	// standard logger.
	Log logrus.FieldLogger

	space        spectral.Wavespace
	tbResolution float64

	response *spectral.Response
	axis     []float64 // SI units: m or m⁻¹
	values   []float64
	integral float64
}

// Option configures a Converter.
type Option func(*Converter)

// WithDetector selects the detector whose response is used.
// The default is spectral.DefaultDetector.
func WithDetector(detector string) Option {
	return func(c *Converter) { c.Detector = detector }
}

// WithWavespace selects wavelength or wavenumber space.
// The default is wavelength space.
func WithWavespace(space spectral.Wavespace) Option {
	return func(c *Converter) { c.space = space }
}

// WithTbResolution sets the temperature step of lookup tables in K.
func WithTbResolution(res float64) Option {
	return func(c *Converter) { c.tbResolution = res }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Converter) { c.Log = log }
}

// NewConverter returns a converter for the band of instrument on platform
// identified by band, using the responses provided by src.
func NewConverter(src spectral.Source, platform, instrument string, band spectral.BandID, opts ...Option) (*Converter, error) {
	c := newConverter(platform, instrument, opts)
	in, err := src.Instrument(platform, instrument)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	name, err := in.ResolveBand(band)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	resp, err := in.Response(name, c.Detector)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	c.Band = name
	if err := c.setResponse(resp); err != nil {
		return nil, err
	}
	return c, nil
}

// NewConverterFromResponse returns a converter for a response that is
// already in memory.
func NewConverterFromResponse(platform, instrument, band string, resp *spectral.Response, opts ...Option) (*Converter, error) {
	c := newConverter(platform, instrument, opts)
	c.Band = band
	if err := c.setResponse(resp); err != nil {
		return nil, err
	}
	return c, nil
}

func newConverter(platform, instrument string, opts []Option) *Converter {
	c := &Converter{
		Platform:     platform,
		Instrument:   instrument,
		Detector:     spectral.DefaultDetector,
		Log:          logrus.StandardLogger(),
		space:        spectral.WavelengthSpace,
		tbResolution: DefaultTbResolution,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Converter) setResponse(resp *spectral.Response) error {
	if err := c.space.Check(); err != nil {
		return fmt.Errorf("radtb: %w", err)
	}
	if !(c.tbResolution > 0) {
		return fmt.Errorf("radtb: invalid temperature resolution %g", c.tbResolution)
	}
	var scale float64
	if c.space == spectral.WavelengthSpace {
		resp = resp.ToWavelength()
		scale = 1e-6
	} else {
		resp = resp.ToWavenumber()
		scale = 100
	}
	c.response = resp
	c.values = resp.Values
	c.axis = make([]float64, len(resp.Values))
	for i, x := range resp.Axis() {
		c.axis[i] = x * scale
	}
	c.integral = trapz(c.axis, c.values)
	if !(c.integral > 0) {
		return fmt.Errorf("radtb: %s/%s band %s has a non-positive response integral", c.Platform, c.Instrument, c.Band)
	}
	c.Log.WithFields(logrus.Fields{
		"platform":   c.Platform,
		"instrument": c.Instrument,
		"band":       c.Band,
		"detector":   c.Detector,
		"wavespace":  c.space,
	}).Debug("radtb: loaded spectral response")
	return nil
}

func trapz(x, f []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, f)
}

// Wavespace returns the wave space the converter works in.
func (c *Converter) Wavespace() spectral.Wavespace { return c.space }

// TbResolution returns the lookup table temperature step in K.
func (c *Converter) TbResolution() float64 { return c.tbResolution }

// Response returns the response curve in the converter's wave space.
func (c *Converter) Response() *spectral.Response { return c.response }

// Integral returns ∫response d(axis) with the axis in SI units.
func (c *Converter) Integral() float64 { return c.integral }

// CentralWavelength returns the band central wavelength in µm.
func (c *Converter) CentralWavelength() float64 { return c.response.CentralWavelength }

// centralAxis returns the central wavelength in the converter's SI axis unit.
func (c *Converter) centralAxis() float64 {
	wl := c.response.CentralWavelength * 1e-6
	if c.space == spectral.WavenumberSpace {
		return 1 / wl
	}
	return wl
}

// Fingerprint returns a short digest of the response data, used to tie
// lookup tables to the response they were computed from.
func (c *Converter) Fingerprint() string {
	return hash.Fingerprint(string(c.space), c.axis, c.values)
}

// Radiance holds radiances together with their unit.
type Radiance struct {
	Values array.Array
	Unit   string
	Scale  float64
}

// Unit strings of the radiances returned by TbToRadiance.
const (
	UnitWavelength = "W/m^2 sr^-1 m^-1"
	UnitWavenumber = "W/m^2 sr^-1 (m^-1)^-1"
	UnitIntegrated = "W/m^2 sr^-1"
)

// TbOptions modifies TbToRadiance.
type TbOptions struct {
	// Integrated returns the band-integrated radiance instead of the
	// radiance per unit of the spectral axis.
	Integrated bool

	// LUT, if not nil, is used to look up radiances instead of
	// integrating the Planck function.
	LUT *LookupTable
}

func (c *Converter) unit(integrated bool) string {
	return unitOf(c.space, integrated)
}

// TbToRadiance converts brightness temperatures in K to radiances.
// By default the result is the band radiance normalized by the response
// integral, the mean spectral radiance over the band. NaN temperatures
// give NaN radiances.
func (c *Converter) TbToRadiance(tb array.Array, opt TbOptions) (*Radiance, error) {
	if opt.LUT != nil {
		if opt.LUT.Normalized == opt.Integrated {
			return nil, fmt.Errorf("radtb: lookup table normalization (%v) does not match the request", opt.LUT.Normalized)
		}
		if opt.LUT.Space != "" && opt.LUT.Space != c.space {
			return nil, fmt.Errorf("radtb: lookup table is in %s space, converter in %s space", opt.LUT.Space, c.space)
		}
		v, err := opt.LUT.Lookup(tb)
		if err != nil {
			return nil, err
		}
		return &Radiance{Values: v, Unit: c.unit(opt.Integrated), Scale: 1}, nil
	}
	norm := c.integral
	if opt.Integrated {
		norm = 1
	}
	axis, values, space := c.axis, c.values, c.space
	v, err := array.Map(func(out []float64, in [][]float64) {
		buf := make([]float64, len(axis))
		for i, t := range in[0] {
			if math.IsNaN(t) {
				out[i] = math.NaN()
				continue
			}
			for j, x := range axis {
				buf[j] = blackbody.Radiance(x, t, space) * values[j]
			}
			out[i] = integrate.Trapezoidal(axis, buf) / norm
		}
	}, tb.DType(), tb)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	return &Radiance{Values: v, Unit: c.unit(opt.Integrated), Scale: 1}, nil
}

// RadianceToTb converts normalized radiances to brightness temperatures
// by inverting the Planck function at the band central wavelength.
func (c *Converter) RadianceToTb(rad array.Array) (array.Array, error) {
	tb, err := blackbody.TemperatureArray([]float64{c.centralAxis()}, rad, c.space)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	return tb, nil
}

// TbGrid returns the temperatures of a lookup table with step res:
// TBMin, TBMin+res, ... up to but excluding TBMax.
func TbGrid(res float64) []float64 {
	n := int(math.Round((TBMax - TBMin) / res))
	tb := make([]float64, n)
	for i := range tb {
		tb[i] = TBMin + float64(i)*res
	}
	return tb
}

// MakeLookupTable computes a lookup table over the TbGrid of the converter.
func (c *Converter) MakeLookupTable(ctx context.Context, integrated bool) (*LookupTable, error) {
	tb := TbGrid(c.tbResolution)
	rad, err := c.TbToRadiance(array.Chunk(array.New(tb), 256), TbOptions{Integrated: integrated})
	if err != nil {
		return nil, err
	}
	d, err := array.Compute(ctx, rad.Values)
	if err != nil {
		return nil, fmt.Errorf("radtb: computing lookup table: %w", err)
	}
	return &LookupTable{
		TB:          tb,
		Radiance:    d.Data,
		Resolution:  c.tbResolution,
		Normalized:  !integrated,
		Platform:    c.Platform,
		Instrument:  c.Instrument,
		Band:        c.Band,
		Detector:    c.Detector,
		Space:       c.space,
		Fingerprint: c.Fingerprint(),
	}, nil
}
