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

// Package nir derives the solar reflectance of bands in the 3.5-3.95 µm
// window by removing the thermal emission, estimated from a co-located
// thermal window band, from the observed radiance.
package nir

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/radtb"
	"github.com/spatialmodel/spectral/solar"
)

// The central wavelength range (µm) of supported bands.
const (
	MinWavelength = 3.5
	MaxWavelength = 3.95
)

// Defaults for the Calculator options.
const (
	DefaultSunzThreshold = 85.
	DefaultMaskingLimit  = 85.
	DefaultEpsilon       = 0.005
)

// ErrNoReflectance is returned by EmissivePart3x when no reflectance has
// been derived yet.
var ErrNoReflectance = errors.New("nir: no reflectance has been derived")

// Calculator derives 3.x µm reflectances for one band. A Calculator keeps
// the radiances and reflectance of its last ReflectanceFromTbs call for use
// by EmissivePart3x; it is safe for concurrent use, but concurrent callers
// share that state.
type Calculator struct {
	Log logrus.FieldLogger

	conv          *radtb.Converter
	solarFlux     float64
	spectrum      *solar.Spectrum
	sunzThreshold float64
	maskingLimit  float64
	masking       bool
	epsilon       float64
	lut           *radtb.LookupTable
	lutDir        string
	convOpts      []radtb.Option

	mu          sync.Mutex
	radBand     array.Array
	radThermal  array.Array
	reflectance array.Array
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithSolarFlux sets the in-band solar flux (W m⁻²) instead of computing it.
func WithSolarFlux(flux float64) Option {
	return func(c *Calculator) { c.solarFlux = flux }
}

// WithSpectrum sets the solar spectrum the in-band flux is computed from.
func WithSpectrum(s *solar.Spectrum) Option {
	return func(c *Calculator) { c.spectrum = s }
}

// WithSunzThreshold sets the sun zenith angle (degrees) at which the
// solar radiance is evaluated at most.
func WithSunzThreshold(deg float64) Option {
	return func(c *Calculator) { c.sunzThreshold = deg }
}

// WithMaskingLimit sets the sun zenith angle (degrees) beyond which
// reflectances are invalid.
func WithMaskingLimit(deg float64) Option {
	return func(c *Calculator) { c.maskingLimit = deg; c.masking = true }
}

// WithoutMasking disables masking by sun zenith angle.
func WithoutMasking() Option {
	return func(c *Calculator) { c.masking = false }
}

// WithEpsilon sets the smallest valid difference between the solar and
// thermal radiances.
func WithEpsilon(eps float64) Option {
	return func(c *Calculator) { c.epsilon = eps }
}

// WithLookupTable converts temperatures with lut instead of integrating
// the Planck function.
func WithLookupTable(lut *radtb.LookupTable) Option {
	return func(c *Calculator) { c.lut = lut }
}

// WithLUTDir converts temperatures with the band's lookup table in dir,
// building it first if needed.
func WithLUTDir(dir string) Option {
	return func(c *Calculator) { c.lutDir = dir }
}

// WithConverterOptions passes options to the radiance converter created by New.
func WithConverterOptions(opts ...radtb.Option) Option {
	return func(c *Calculator) { c.convOpts = append(c.convOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Calculator) { c.Log = log }
}

// New returns a calculator for the band of instrument on platform
// identified by band.
func New(src spectral.Source, platform, instrument string, band spectral.BandID, opts ...Option) (*Calculator, error) {
	c := newCalculator(opts)
	conv, err := radtb.NewConverter(src, platform, instrument, band, c.convOpts...)
	if err != nil {
		return nil, fmt.Errorf("nir: %w", err)
	}
	return c.init(conv)
}

// NewCalculator returns a calculator for the band of conv.
func NewCalculator(conv *radtb.Converter, opts ...Option) (*Calculator, error) {
	return newCalculator(opts).init(conv)
}

func newCalculator(opts []Option) *Calculator {
	c := &Calculator{
		Log:           logrus.StandardLogger(),
		sunzThreshold: DefaultSunzThreshold,
		maskingLimit:  DefaultMaskingLimit,
		masking:       true,
		epsilon:       DefaultEpsilon,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Calculator) init(conv *radtb.Converter) (*Calculator, error) {
	c.conv = conv
	cwl := conv.CentralWavelength()
	if cwl < MinWavelength || cwl > MaxWavelength {
		return nil, fmt.Errorf("nir: band %s central wavelength %g µm is outside [%g, %g]: %w",
			conv.Band, cwl, MinWavelength, MaxWavelength, spectral.ErrUnsupported)
	}
	if c.solarFlux == 0 {
		spec := c.spectrum
		if spec == nil {
			c.Log.WithField("band", conv.Band).Warn("nir: no solar spectrum given; using a 5772 K blackbody sun")
			spec = solar.DefaultSpectrum()
		}
		flux, err := solar.InbandFlux(spec, conv.Response(), 0)
		if err != nil {
			return nil, fmt.Errorf("nir: %w", err)
		}
		c.solarFlux = flux
	}
	if c.lut == nil && c.lutDir != "" {
		lut, err := conv.LoadOrBuildLookupTable(context.Background(), c.lutDir)
		if err != nil {
			return nil, fmt.Errorf("nir: %w", err)
		}
		c.lut = lut
	}
	c.Log.WithFields(logrus.Fields{
		"band":       conv.Band,
		"solar_flux": c.solarFlux,
	}).Debug("nir: calculator ready")
	return c, nil
}

// SolarFlux returns the in-band solar flux in W m⁻².
func (c *Calculator) SolarFlux() float64 { return c.solarFlux }

// Converter returns the band's radiance converter.
func (c *Calculator) Converter() *radtb.Converter { return c.conv }

// ReflectanceFromTbs returns the solar reflectance (0-1) of the band given
// the sun zenith angle (degrees), the band's brightness temperature and the
// brightness temperature of a thermal window band near 11 µm. If tbCO2,
// the temperature of a 13.4 µm CO2 band, is not nil the thermal term is
// corrected for CO2 absorption. Reflectances are NaN where the sun is too
// low, where the thermal radiance approaches the solar radiance, and where
// tbBand is NaN. The result has the precision and kind of tbBand.
func (c *Calculator) ReflectanceFromTbs(sunz, tbBand, tbThermal, tbCO2 array.Array) (array.Array, error) {
	if tbBand.Len() != tbThermal.Len() {
		return nil, fmt.Errorf("nir: band and thermal temperatures have different shapes: %v != %v",
			tbBand.Shape(), tbThermal.Shape())
	}
	opt := radtb.TbOptions{LUT: c.lut}
	rb, err := c.conv.TbToRadiance(tbBand, opt)
	if err != nil {
		return nil, fmt.Errorf("nir: %w", err)
	}
	rt, err := c.conv.TbToRadiance(tbThermal, opt)
	if err != nil {
		return nil, fmt.Errorf("nir: %w", err)
	}
	inputs := []array.Array{sunz, tbBand, rb.Values, rt.Values}
	if tbCO2 != nil {
		corr, err := DeriveRad39Corr(tbThermal, tbCO2, "rosenfeld")
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, corr)
	}

	integral := c.conv.Integral()
	flux := c.solarFlux
	threshold := c.sunzThreshold
	limit := c.maskingLimit
	masking := c.masking
	eps := c.epsilon
	r, err := array.Map(func(out []float64, in [][]float64) {
		for i := range out {
			z, tb, lb, lt := in[0][i], in[1][i], in[2][i], in[3][i]
			corr := 1.
			if len(in) > 4 {
				corr = in[4][i]
			}
			sz := math.Max(0, math.Min(z, threshold))
			lsun := flux * math.Cos(sz*math.Pi/180) / math.Pi
			thermal := lt * integral * corr
			denom := lsun - thermal
			switch {
			case math.IsNaN(tb), denom < eps, masking && (z < 0 || z > limit):
				out[i] = math.NaN()
			default:
				out[i] = (lb*integral - thermal) / denom
			}
		}
	}, tbBand.DType(), inputs...)
	if err != nil {
		return nil, fmt.Errorf("nir: %w", err)
	}

	c.mu.Lock()
	c.radBand, c.radThermal, c.reflectance = rb.Values, rt.Values, r
	c.mu.Unlock()
	return r, nil
}

// EmissivePart3x returns the thermally emitted part of the band's radiance,
// L_thermal·(1−r), from the last call to ReflectanceFromTbs. Where the
// reflectance is undefined the band radiance is used. If tb is true the
// result is converted to brightness temperature.
func (c *Calculator) EmissivePart3x(tb bool) (array.Array, error) {
	c.mu.Lock()
	rb, rt, r := c.radBand, c.radThermal, c.reflectance
	c.mu.Unlock()
	if r == nil {
		c.Log.Warn("nir: EmissivePart3x called before ReflectanceFromTbs")
		return nil, ErrNoReflectance
	}
	e, err := array.Map(func(out []float64, in [][]float64) {
		for i := range out {
			if math.IsNaN(in[2][i]) {
				out[i] = in[0][i]
				continue
			}
			out[i] = in[1][i] * (1 - in[2][i])
		}
	}, r.DType(), rb, rt, r)
	if err != nil {
		return nil, fmt.Errorf("nir: %w", err)
	}
	if !tb {
		return e, nil
	}
	return c.conv.RadianceToTb(e)
}

// DeriveRad39Corr returns the factor correcting the 3.9 µm thermal
// radiance estimated from the 11 µm temperature tb11 for CO2 absorption,
// using the 13.4 µm temperature tb13. Only the "rosenfeld" method is
// supported.
func DeriveRad39Corr(tb11, tb13 array.Array, method string) (array.Array, error) {
	if !strings.EqualFold(method, "rosenfeld") {
		return nil, fmt.Errorf("nir: CO2 correction method %q: %w", method, spectral.ErrUnsupported)
	}
	corr, err := array.Map(func(out []float64, in [][]float64) {
		for i := range out {
			t11, t13 := in[0][i], in[1][i]
			t := t11 - 0.25*(t11-t13)
			out[i] = (t * t * t * t) / (t11 * t11 * t11 * t11)
		}
	}, array.ResultType(tb11, tb13), tb11, tb13)
	if err != nil {
		return nil, fmt.Errorf("nir: %w", err)
	}
	return corr, nil
}
