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

package solar

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ctessum/unit"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/spatialmodel/spectral"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// ErrNoOverlap is returned when a band response lies entirely outside
// the tabulated range of a solar spectrum.
var ErrNoOverlap = errors.New("solar: response does not overlap the spectrum")

// Default integration steps.
const (
	DefaultDlambda     = 0.0005 // µm
	DefaultDwavenumber = 0.005  // cm⁻¹
)

// grid holds the spectrum and the response resampled onto a common
// uniform axis.
type grid struct {
	irradiance, response []float64
	step                 float64
}

func resample(spec *Spectrum, resp *spectral.Response, step float64) (*grid, error) {
	if resp.Space() == spectral.WavenumberSpace {
		spec = spec.ToWavenumber()
		if !(step > 0) {
			step = DefaultDwavenumber
		}
	} else {
		spec = spec.ToWavelength()
		if !(step > 0) {
			step = DefaultDlambda
		}
	}
	sx, rx := spec.Axis(), resp.Axis()
	start := math.Max(sx[0], rx[0])
	end := math.Min(sx[len(sx)-1], rx[len(rx)-1])
	if !(end > start) {
		return nil, fmt.Errorf("%w: response [%g, %g], spectrum [%g, %g]",
			ErrNoOverlap, rx[0], rx[len(rx)-1], sx[0], sx[len(sx)-1])
	}

	// Fit the spectrum only around the overlap.
	lo := sort.SearchFloat64s(sx, start)
	if lo > 0 {
		lo--
	}
	hi := sort.SearchFloat64s(sx, end) + 1
	if hi > len(sx) {
		hi = len(sx)
	}
	specFit, err := fit(sx[lo:hi], spec.Irradiance[lo:hi])
	if err != nil {
		return nil, fmt.Errorf("solar: fitting spectrum: %w", err)
	}
	respFit, err := fit(rx, resp.Values)
	if err != nil {
		return nil, fmt.Errorf("solar: fitting response: %w", err)
	}

	n := int(math.Round((end-start)/step)) + 1
	if n < 2 {
		n = 2
	}
	g := &grid{
		irradiance: make([]float64, n),
		response:   make([]float64, n),
		step:       (end - start) / float64(n-1),
	}
	for i := 0; i < n; i++ {
		x := start + float64(i)*g.step
		g.irradiance[i] = specFit.Predict(x)
		g.response[i] = respFit.Predict(x)
	}
	return g, nil
}

func fit(x, y []float64) (interp.FittablePredictor, error) {
	var p interp.FittablePredictor = new(interp.NaturalCubic)
	if len(x) < 3 {
		p = new(interp.PiecewiseLinear)
	}
	if err := p.Fit(x, y); err != nil {
		return nil, err
	}
	return p, nil
}

// InbandFlux returns the solar flux in band resp, Σ E·r·Δ, with the
// spectrum and the response resampled by cubic splines onto a uniform
// grid of spacing step over the range where both are defined. The result
// is in W m⁻². A step ≤ 0 selects DefaultDlambda or DefaultDwavenumber
// according to the space of resp.
func InbandFlux(spec *Spectrum, resp *spectral.Response, step float64) (float64, error) {
	g, err := resample(spec, resp, step)
	if err != nil {
		return 0, err
	}
	return floats.Dot(g.irradiance, g.response) * g.step, nil
}

// InbandIrradiance returns the in-band flux divided by the response
// integral on the same grid, the mean irradiance over the band in
// W m⁻² µm⁻¹ (or W m⁻² (cm⁻¹)⁻¹ in wavenumber space).
func InbandIrradiance(spec *Spectrum, resp *spectral.Response, step float64) (float64, error) {
	g, err := resample(spec, resp, step)
	if err != nil {
		return 0, err
	}
	norm := floats.Sum(g.response)
	if norm == 0 {
		return 0, fmt.Errorf("solar: response is zero over the spectrum")
	}
	return floats.Dot(g.irradiance, g.response) / norm, nil
}

// FluxUnit returns flux (W m⁻²) as a dimensioned value.
func FluxUnit(flux float64) *unit.Unit {
	return unit.New(flux, unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -3})
}

// SunEarthDistanceCorrection returns (1 AU / r)², where r is the Sun-Earth
// distance at t. Multiplying an irradiance at 1 AU by it gives the
// irradiance at t.
func SunEarthDistanceCorrection(t time.Time) float64 {
	r := solar.Radius(base.J2000Century(julian.TimeToJD(t)))
	return 1 / (r * r)
}
