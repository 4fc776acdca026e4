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

package spectral

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
)

// Response is the relative spectral response of one detector of one band.
// Exactly one of Wavelength (µm) and Wavenumber (cm⁻¹) is set; the samples are
// strictly increasing. A Response must not be modified after it is created.
type Response struct {
	Wavelength []float64
	Wavenumber []float64

	// Values holds the unitless response at each axis sample.
	Values []float64

	// CentralWavelength is the response-weighted mean wavelength in µm.
	CentralWavelength float64
}

// NewResponse creates a response from axis samples in the given wave space.
// The samples are sorted and duplicate axis values are removed. If central is
// zero the central wavelength is computed from the curve.
func NewResponse(axis, values []float64, space Wavespace, central float64) (*Response, error) {
	if err := space.Check(); err != nil {
		return nil, fmt.Errorf("spectral: %w", err)
	}
	if len(axis) != len(values) {
		return nil, fmt.Errorf("spectral: axis and response lengths differ: %d != %d", len(axis), len(values))
	}
	if len(axis) < 2 {
		return nil, fmt.Errorf("spectral: a response curve needs at least 2 samples, got %d", len(axis))
	}
	x, y := sortUnique(axis, values)
	if len(x) < 2 {
		return nil, fmt.Errorf("spectral: a response curve needs at least 2 distinct samples")
	}
	r := &Response{Values: y, CentralWavelength: central}
	if space == WavelengthSpace {
		r.Wavelength = x
	} else {
		r.Wavenumber = x
	}
	if central == 0 {
		r.CentralWavelength = r.CentralWave(nil)
	}
	return r, nil
}

type samples struct{ x, y []float64 }

func (s samples) Len() int           { return len(s.x) }
func (s samples) Less(i, j int) bool { return s.x[i] < s.x[j] }
func (s samples) Swap(i, j int) {
	s.x[i], s.x[j] = s.x[j], s.x[i]
	s.y[i], s.y[j] = s.y[j], s.y[i]
}

// sortUnique returns copies of x and y sorted by x with repeated x values dropped.
func sortUnique(x, y []float64) ([]float64, []float64) {
	s := samples{x: append([]float64(nil), x...), y: append([]float64(nil), y...)}
	if !sort.IsSorted(s) {
		sort.Stable(s)
	}
	ox, oy := s.x[:1], s.y[:1]
	for i := 1; i < len(s.x); i++ {
		if s.x[i] == ox[len(ox)-1] {
			continue
		}
		ox = append(ox, s.x[i])
		oy = append(oy, s.y[i])
	}
	return ox, oy
}

// Space returns the wave space the response is tabulated in.
func (r *Response) Space() Wavespace {
	if r.Wavelength != nil {
		return WavelengthSpace
	}
	return WavenumberSpace
}

// Axis returns the axis samples in the response's own wave space and units.
func (r *Response) Axis() []float64 {
	if r.Wavelength != nil {
		return r.Wavelength
	}
	return r.Wavenumber
}

// Integral returns ∫response d(axis) in the response's own units.
func (r *Response) Integral() float64 {
	return trapz(r.Axis(), r.Values)
}

// ToWavenumber returns the response expressed in wavenumber space (cm⁻¹).
func (r *Response) ToWavenumber() *Response {
	if r.Wavenumber != nil {
		return r
	}
	n := len(r.Wavelength)
	o := &Response{
		Wavenumber:        make([]float64, n),
		Values:            make([]float64, n),
		CentralWavelength: r.CentralWavelength,
	}
	for i, wl := range r.Wavelength {
		o.Wavenumber[n-1-i] = 1 / (1e-4 * wl)
		o.Values[n-1-i] = r.Values[i]
	}
	return o
}

// ToWavelength returns the response expressed in wavelength space (µm).
func (r *Response) ToWavelength() *Response {
	if r.Wavelength != nil {
		return r
	}
	n := len(r.Wavenumber)
	o := &Response{
		Wavelength:        make([]float64, n),
		Values:            make([]float64, n),
		CentralWavelength: r.CentralWavelength,
	}
	for i, wn := range r.Wavenumber {
		o.Wavelength[n-1-i] = 1e4 / wn
		o.Values[n-1-i] = r.Values[i]
	}
	return o
}

// CentralWave returns the weighted centroid
// ∫λ·r(λ)·w(λ)dλ / ∫r(λ)·w(λ)dλ in µm. A nil weight means w(λ)=1.
func (r *Response) CentralWave(weight func(wavelength float64) float64) float64 {
	wl := r.ToWavelength()
	num := make([]float64, len(wl.Wavelength))
	den := make([]float64, len(wl.Wavelength))
	for i, x := range wl.Wavelength {
		w := 1.0
		if weight != nil {
			w = weight(x)
		}
		den[i] = wl.Values[i] * w
		num[i] = x * den[i]
	}
	return trapz(wl.Wavelength, num) / trapz(wl.Wavelength, den)
}

func trapz(x, f []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, f)
}
