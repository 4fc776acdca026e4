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

// Package blackbody evaluates the Planck law and its inverse in wavelength
// (m) or wavenumber (m⁻¹) space.
//
// Numerical edge cases never produce errors: non-positive temperatures and
// radiances give NaN, and overflow propagates as Inf or zero.
package blackbody

import (
	"fmt"
	"math"

	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
)

// Physical constants in SI units.
const (
	H = 6.62606957e-34 // Planck constant, J s
	K = 1.3806488e-23  // Boltzmann constant, J/K
	C = 2.99792458e8   // speed of light, m/s
)

// Radiation constants derived from H, K and C.
const (
	C1 = 2 * H * C * C // W m² sr⁻¹
	C2 = H * C / K     // m K
)

// Radiance returns the spectral radiance of a blackbody at temperature t (K).
// In wavelength space x is a wavelength in m and the result is in
// W m⁻² sr⁻¹ m⁻¹. In wavenumber space x is a wavenumber in m⁻¹ and the
// result is in W m⁻² sr⁻¹ (m⁻¹)⁻¹.
func Radiance(x, t float64, space spectral.Wavespace) float64 {
	if !(t > 0) {
		return math.NaN()
	}
	if space == spectral.WavenumberSpace {
		return C1 * x * x * x / math.Expm1(C2*x/t)
	}
	return C1 / math.Pow(x, 5) / math.Expm1(C2/(x*t))
}

// Temperature returns the brightness temperature (K) of radiance l
// at x, inverting Radiance.
func Temperature(x, l float64, space spectral.Wavespace) float64 {
	if !(l > 0) {
		return math.NaN()
	}
	if space == spectral.WavenumberSpace {
		return C2 * x / math.Log1p(C1*x*x*x/l)
	}
	return C2 / (x * math.Log1p(C1/(l*math.Pow(x, 5))))
}

// RadianceSpectrum returns the radiance at temperature t for each value of axis.
func RadianceSpectrum(axis []float64, t float64, space spectral.Wavespace) []float64 {
	o := make([]float64, len(axis))
	for i, x := range axis {
		o[i] = Radiance(x, t, space)
	}
	return o
}

// RadianceArray returns the radiance for each temperature in t. axis holds
// either a single value used for every element, one value per element of
// t, or one value per row (the leading dimension) of t. The result has the
// precision of t and is deferred if t is deferred.
func RadianceArray(axis []float64, t array.Array, space spectral.Wavespace) (array.Array, error) {
	if err := space.Check(); err != nil {
		return nil, fmt.Errorf("blackbody: %w", err)
	}
	x, err := axisArray(axis, t)
	if err != nil {
		return nil, err
	}
	return array.Map(func(out []float64, in [][]float64) {
		for i := range out {
			out[i] = Radiance(in[0][i], in[1][i], space)
		}
	}, t.DType(), x, t)
}

// TemperatureArray returns the brightness temperature for each radiance in l.
// axis is interpreted as in RadianceArray. The result has the precision of l.
func TemperatureArray(axis []float64, l array.Array, space spectral.Wavespace) (array.Array, error) {
	if err := space.Check(); err != nil {
		return nil, fmt.Errorf("blackbody: %w", err)
	}
	x, err := axisArray(axis, l)
	if err != nil {
		return nil, err
	}
	return array.Map(func(out []float64, in [][]float64) {
		for i := range out {
			out[i] = Temperature(in[0][i], in[1][i], space)
		}
	}, l.DType(), x, l)
}

// axisArray aligns axis with a, rounding it to the precision of a so that
// the computation is not promoted to float64.
func axisArray(axis []float64, a array.Array) (*array.Dense, error) {
	dtype := a.DType()
	shape := a.Shape()
	n := a.Len()
	var data []float64
	switch {
	case len(axis) == 1:
		return array.Full(axis[0], dtype, 1), nil
	case len(axis) == n:
		data = make([]float64, n)
		for i, x := range axis {
			data[i] = dtype.Round(x)
		}
	case len(shape) > 1 && len(axis) == shape[0]:
		data = make([]float64, n)
		row := n / shape[0]
		for i, x := range axis {
			x = dtype.Round(x)
			for j := i * row; j < (i+1)*row; j++ {
				data[j] = x
			}
		}
	default:
		return nil, fmt.Errorf("blackbody: %d axis values cannot be aligned with an array of shape %v", len(axis), shape)
	}
	d := array.New(data, shape...)
	if dtype == array.Float32 {
		d = d.AsType(array.Float32)
	}
	return d, nil
}
