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

// Package rayleigh estimates the Rayleigh scattering (plus aerosol)
// contribution to visible band reflectances from precomputed lookup tables
// of reflectance as a function of wavelength and viewing geometry.
package rayleigh

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/internal/hash"
)

// Atmospheres are the supported standard atmosphere profiles.
var Atmospheres = []string{
	"subarctic summer",
	"subarctic winter",
	"midlatitude summer",
	"midlatitude winter",
	"tropical",
	"us-standard",
}

// AerosolTypes are the supported aerosol types.
var AerosolTypes = []string{
	"antarctic_aerosol",
	"continental_average_aerosol",
	"continental_clean_aerosol",
	"continental_polluted_aerosol",
	"desert_aerosol",
	"marine_clean_aerosol",
	"marine_polluted_aerosol",
	"marine_tropical_aerosol",
	"rayleigh_only",
	"rural_aerosol",
	"urban_aerosol",
}

// Defaults for the Corrector options.
const (
	DefaultAtmosphere  = "us-standard"
	DefaultAerosolType = "marine_clean_aerosol"
)

// Wavelength range (nm) where the correction is applied.
const (
	MinWavelength = 400.
	MaxWavelength = 800.
)

// Corrector computes Rayleigh reflectances for the bands of one instrument.
type Corrector struct {
	Platform   string
	Instrument string
	Atmosphere string
	Aerosol    string

	// LUTDir holds one directory per aerosol type with a table per atmosphere.
	LUTDir string

	Log logrus.FieldLogger

	src      spectral.Source
	detector string
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithAtmosphere selects the atmosphere profile.
func WithAtmosphere(atm string) Option {
	return func(c *Corrector) { c.Atmosphere = atm }
}

// WithAerosolType selects the aerosol type.
func WithAerosolType(aerosol string) Option {
	return func(c *Corrector) { c.Aerosol = aerosol }
}

// WithLUTDir sets the directory holding the lookup tables.
func WithLUTDir(dir string) Option {
	return func(c *Corrector) { c.LUTDir = dir }
}

// WithDetector selects the detector whose response defines the
// effective wavelength of a band.
func WithDetector(detector string) Option {
	return func(c *Corrector) { c.detector = detector }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Corrector) { c.Log = log }
}

// New returns a corrector for instrument on platform. src provides the band
// responses and is only used when bands are given by name.
func New(src spectral.Source, platform, instrument string, opts ...Option) (*Corrector, error) {
	c := &Corrector{
		Platform:   platform,
		Instrument: instrument,
		Atmosphere: DefaultAtmosphere,
		Aerosol:    DefaultAerosolType,
		LUTDir:     ".",
		Log:        logrus.StandardLogger(),
		src:        src,
		detector:   spectral.DefaultDetector,
	}
	for _, o := range opts {
		o(c)
	}
	c.Atmosphere = strings.ReplaceAll(strings.ToLower(c.Atmosphere), "_", " ")
	if !contains(Atmospheres, c.Atmosphere) {
		return nil, fmt.Errorf("rayleigh: atmosphere %q, want one of %s: %w",
			c.Atmosphere, strings.Join(Atmospheres, ", "), spectral.ErrUnsupported)
	}
	c.Aerosol = strings.ToLower(c.Aerosol)
	if !contains(AerosolTypes, c.Aerosol) {
		return nil, fmt.Errorf("rayleigh: aerosol type %q, want one of %s: %w",
			c.Aerosol, strings.Join(AerosolTypes, ", "), spectral.ErrUnsupported)
	}
	return c, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LUTFile returns the path of the lookup table for the corrector's
// aerosol type and atmosphere.
func (c *Corrector) LUTFile() string {
	name := "rayleigh_lut_" + strings.ReplaceAll(c.Atmosphere, " ", "_") + ".nc"
	return filepath.Join(c.LUTDir, c.Aerosol, name)
}

type lutKey struct {
	Path, Atmosphere, Aerosol string
}

var (
	lutCache     *requestcache.Cache
	lutCacheInit sync.Once
)

// LUT returns the corrector's lookup table. Tables are read once per
// process and shared.
func (c *Corrector) LUT(ctx context.Context) (*LUT, error) {
	lutCacheInit.Do(func() {
		lutCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			return ReadLUTFile(request.(string))
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(16))
	})
	path := c.LUTFile()
	key := hash.Key(lutKey{Path: path, Atmosphere: c.Atmosphere, Aerosol: c.Aerosol})
	result, err := lutCache.NewRequest(ctx, path, key).Result()
	if err != nil {
		return nil, err
	}
	return result.(*LUT), nil
}

// EffectiveWavelength returns the wavelength in nm representing band for
// Rayleigh scattering. A band given by wavelength (µm) is used as is;
// for a named band it is the centroid of the band response weighted by
// λ⁻⁴.
func (c *Corrector) EffectiveWavelength(band spectral.BandID) (float64, error) {
	switch b := band.(type) {
	case spectral.Wavelength:
		return float64(b) * 1000, nil
	case spectral.BandName:
		in, err := c.src.Instrument(c.Platform, c.Instrument)
		if err != nil {
			return 0, fmt.Errorf("rayleigh: %w", err)
		}
		resp, err := in.Response(string(b), c.detector)
		if err != nil {
			return 0, fmt.Errorf("rayleigh: %w", err)
		}
		return resp.CentralWave(func(wl float64) float64 { return math.Pow(wl, -4) }) * 1000, nil
	default:
		return 0, fmt.Errorf("rayleigh: unknown band identifier type %T", band)
	}
}

// clipAnglesInsideCoordinateRange returns angle (degrees) clipped to the
// range of zenith angles whose secant is at most secantMax. NaN angles
// become 0.
func clipAnglesInsideCoordinateRange(angle, secantMax float64) float64 {
	if math.IsNaN(angle) {
		return 0
	}
	limit := math.Acos(1/secantMax) * 180 / math.Pi
	return math.Max(0, math.Min(angle, limit))
}

// GetReflectance returns the Rayleigh reflectance (0-100) for the given sun
// and satellite zenith angles and relative azimuth (degrees). If redband,
// the reflectance (0-100) of a red band, is not nil the correction is
// reduced over bright, likely cloudy, pixels. Bands outside 400-800 nm
// get zeros. The result has the precision and kind of sunz.
func (c *Corrector) GetReflectance(ctx context.Context, sunz, satz, azidiff array.Array, band spectral.BandID, redband array.Array) (array.Array, error) {
	wl, err := c.EffectiveWavelength(band)
	if err != nil {
		return nil, err
	}
	if wl < MinWavelength || wl > MaxWavelength {
		c.Log.WithFields(logrus.Fields{
			"band":       band.String(),
			"wavelength": wl,
		}).Info("rayleigh: effective wavelength outside 400-800 nm; no correction")
		return array.ZerosLike(sunz), nil
	}
	lut, err := c.LUT(ctx)
	if err != nil {
		return nil, err
	}
	g := &grid3{
		x: lut.SunZenithSecant,
		y: lut.AzimuthDifference,
		z: lut.SatZenithSecant,
		v: lut.plane(wl),
	}
	sunSecMax := g.x[len(g.x)-1]
	satSecMax := g.z[len(g.z)-1]

	inputs := []array.Array{sunz, satz, azidiff}
	if redband != nil {
		inputs = append(inputs, redband)
	}
	r, err := array.Map(func(out []float64, in [][]float64) {
		for i := range out {
			sz := clipAnglesInsideCoordinateRange(in[0][i], sunSecMax) * math.Pi / 180
			vz := clipAnglesInsideCoordinateRange(in[1][i], satSecMax) * math.Pi / 180
			v := g.at(1/math.Cos(sz), 180-in[2][i], 1/math.Cos(vz)) * 100
			if len(in) > 3 {
				if rb := in[3][i]; !(rb < 20) {
					v *= math.Max(0, math.Min(1, 1-(rb-20)/80))
				}
			}
			out[i] = math.Max(0, math.Min(100, v))
		}
	}, sunz.DType(), inputs...)
	if err != nil {
		return nil, fmt.Errorf("rayleigh: %w", err)
	}
	return r, nil
}

// ReduceRayleighHighZenith scales rayleigh down at high zenith angles:
// unchanged below threshZen, and reduced linearly to (1-strength) times
// its value at maxZen. Angles are in degrees.
func ReduceRayleighHighZenith(zenith, rayleigh array.Array, threshZen, maxZen, strength float64) (array.Array, error) {
	r, err := array.Map(func(out []float64, in [][]float64) {
		for i := range out {
			z := in[0][i]
			ramp := 0.
			if !(z < threshZen) {
				ramp = (z - threshZen) / (maxZen - threshZen)
			}
			f := math.Max(0, math.Min(1, 1-strength*ramp))
			out[i] = in[1][i] * f
		}
	}, rayleigh.DType(), zenith, rayleigh)
	if err != nil {
		return nil, fmt.Errorf("rayleigh: %w", err)
	}
	return r, nil
}
