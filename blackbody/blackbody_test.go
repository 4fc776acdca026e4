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

package blackbody

import (
	"context"
	"math"
	"testing"

	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestRadianceKnownValues(t *testing.T) {
	for _, test := range []struct {
		t, want float64
	}{
		{t: 300, want: 9.573176935e6},
		{t: 301, want: 9.714686576e6},
	} {
		have := Radiance(11e-6, test.t, spectral.WavelengthSpace)
		if different(have, test.want, 1e-7) {
			t.Errorf("Radiance(11µm, %g K): have %.10g, want %.10g", test.t, have, test.want)
		}
	}
}

func TestWavenumberEquivalence(t *testing.T) {
	// B_ν = B_λ·λ² for the same physical wavelength.
	wl := 11e-6
	lwl := Radiance(wl, 290, spectral.WavelengthSpace)
	lwn := Radiance(1/wl, 290, spectral.WavenumberSpace)
	if different(lwn, lwl*wl*wl, 1e-10) {
		t.Errorf("wavenumber radiance %g is not wavelength radiance times λ² (%g)", lwn, lwl*wl*wl)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, space := range []spectral.Wavespace{spectral.WavelengthSpace, spectral.WavenumberSpace} {
		x := 3.75e-6
		if space == spectral.WavenumberSpace {
			x = 1 / x
		}
		for tb := 150.5; tb < 360; tb += 3.7 {
			l := Radiance(x, tb, space)
			if have := Temperature(x, l, space); math.Abs(have-tb) > 1e-6 {
				t.Errorf("%s: round trip of %g K gives %g K", space, tb, have)
			}
		}
	}
}

func TestMonotonic(t *testing.T) {
	prev := 0.
	for tb := 150.; tb <= 360; tb += 0.5 {
		l := Radiance(10.8e-6, tb, spectral.WavelengthSpace)
		if !(l > prev) {
			t.Fatalf("radiance at %g K (%g) is not greater than at the previous temperature (%g)", tb, l, prev)
		}
		prev = l
	}
}

func TestEdgeCases(t *testing.T) {
	for _, v := range []float64{
		Radiance(11e-6, 0, spectral.WavelengthSpace),
		Radiance(11e-6, -10, spectral.WavelengthSpace),
		Radiance(11e-6, math.NaN(), spectral.WavelengthSpace),
		Temperature(11e-6, 0, spectral.WavelengthSpace),
		Temperature(11e-6, -1, spectral.WavenumberSpace),
	} {
		if !math.IsNaN(v) {
			t.Errorf("have %g, want NaN", v)
		}
	}
	if l := Radiance(0.4e-6, 150, spectral.WavelengthSpace); math.IsNaN(l) || l < 0 {
		t.Errorf("radiance deep in the Wien tail should underflow towards 0, have %g", l)
	}
}

func TestRadianceArray(t *testing.T) {
	tb := array.FromFloat32([]float32{200, 250, 300, 350}, 2, 2)
	r, err := RadianceArray([]float64{11e-6}, tb, spectral.WavelengthSpace)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := r.(*array.Dense)
	if !ok || d.DType() != array.Float32 {
		t.Fatalf("have %T %v, want a float32 *array.Dense", r, r.DType())
	}
	if different(d.Data[2], Radiance(float64(float32(11e-6)), 300, spectral.WavelengthSpace), 1e-6) {
		t.Errorf("element 2: have %g", d.Data[2])
	}

	rows, err := RadianceArray([]float64{10e-6, 12e-6}, tb, spectral.WavelengthSpace)
	if err != nil {
		t.Fatal(err)
	}
	rd := rows.(*array.Dense)
	if different(rd.Data[1], Radiance(float64(float32(10e-6)), 250, spectral.WavelengthSpace), 1e-6) ||
		different(rd.Data[3], Radiance(float64(float32(12e-6)), 350, spectral.WavelengthSpace), 1e-6) {
		t.Errorf("per-row axis values were not applied by row: %v", rd.Data)
	}

	if _, err := RadianceArray([]float64{1, 2, 3}, tb, spectral.WavelengthSpace); err == nil {
		t.Error("expected an error for a misaligned axis")
	}
	if _, err := RadianceArray([]float64{1}, tb, "frequency"); err == nil {
		t.Error("expected an error for an unknown wave space")
	}
}

func TestTemperatureArrayDeferred(t *testing.T) {
	l := array.Chunk(array.New([]float64{
		Radiance(11e-6, 220, spectral.WavelengthSpace),
		Radiance(11e-6, 260, spectral.WavelengthSpace),
		Radiance(11e-6, 300, spectral.WavelengthSpace),
	}), 2)
	tb, err := TemperatureArray([]float64{11e-6}, l, spectral.WavelengthSpace)
	if err != nil {
		t.Fatal(err)
	}
	if !array.IsChunked(tb) {
		t.Fatalf("have %T, want a deferred array", tb)
	}
	d, err := array.Compute(context.Background(), tb)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []float64{220, 260, 300} {
		if different(d.Data[i], want, 1e-9) {
			t.Errorf("element %d: have %g, want %g", i, d.Data[i], want)
		}
	}
}
