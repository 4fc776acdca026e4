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

package nir

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/radtb"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func triangle(t *testing.T, center, halfWidth float64) *spectral.Response {
	const n = 51
	wl := make([]float64, n)
	v := make([]float64, n)
	for i := range wl {
		wl[i] = center - halfWidth + 2*halfWidth*float64(i)/(n-1)
		v[i] = 1 - math.Abs(wl[i]-center)/halfWidth
	}
	r, err := spectral.NewResponse(wl, v, spectral.WavelengthSpace, 0)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func testConverter(t *testing.T, center float64) *radtb.Converter {
	c, err := radtb.NewConverterFromResponse("test", "test", "ch3b", triangle(t, center, 0.1))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// radiance returns the band-integrated radiance at tb.
func radiance(t *testing.T, c *radtb.Converter, tb float64) float64 {
	r, err := c.TbToRadiance(array.Scalar(tb), radtb.TbOptions{Integrated: true})
	if err != nil {
		t.Fatal(err)
	}
	return r.Values.(*array.Dense).Data[0]
}

func dense(t *testing.T, a array.Array) *array.Dense {
	d, err := array.Compute(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestReflectanceFromTbs(t *testing.T) {
	conv := testConverter(t, 3.75)
	c, err := NewCalculator(conv)
	if err != nil {
		t.Fatal(err)
	}
	if c.SolarFlux() <= 0 {
		t.Fatalf("solar flux: %g", c.SolarFlux())
	}
	sunz := array.New([]float64{80, 85.1, 80, 80, -1})
	tbBand := array.New([]float64{290, 290, 282, math.NaN(), 290})
	tbThermal := array.New([]float64{282, 282, 282, 282, 282})
	r, err := c.ReflectanceFromTbs(sunz, tbBand, tbThermal, nil)
	if err != nil {
		t.Fatal(err)
	}
	d := dense(t, r)

	lsun := c.SolarFlux() * math.Cos(80*math.Pi/180) / math.Pi
	lb, lt := radiance(t, conv, 290), radiance(t, conv, 282)
	want := (lb - lt) / (lsun - lt)
	if different(d.Data[0], want, 1e-6) {
		t.Errorf("reflectance: have %g, want %g", d.Data[0], want)
	}
	if d.Data[0] <= 0 || d.Data[0] >= 1 {
		t.Errorf("reflectance %g is not in (0, 1)", d.Data[0])
	}
	if !math.IsNaN(d.Data[1]) {
		t.Errorf("sun zenith 85.1°: have %g, want NaN", d.Data[1])
	}
	if math.Abs(d.Data[2]) > 1e-12 {
		t.Errorf("equal temperatures: have %g, want 0", d.Data[2])
	}
	if !math.IsNaN(d.Data[3]) {
		t.Errorf("NaN temperature: have %g, want NaN", d.Data[3])
	}
	if !math.IsNaN(d.Data[4]) {
		t.Errorf("negative sun zenith: have %g, want NaN", d.Data[4])
	}
}

func TestReflectanceReferenceValue(t *testing.T) {
	c, err := NewCalculator(testConverter(t, 3.75), WithSolarFlux(1))
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.ReflectanceFromTbs(array.Scalar(80), array.Scalar(290), array.Scalar(282), nil)
	if err != nil {
		t.Fatal(err)
	}
	// Planck radiances integrated by hand over the 51-point triangle:
	// 0.0289191184 (290 K) and 0.0198758997 (282 K) W m⁻² sr⁻¹.
	const want = 0.25547235700711785
	if have := dense(t, r).Data[0]; different(have, want, 1e-6) {
		t.Errorf("reflectance: have %.10g, want %.10g", have, want)
	}
}

func TestReflectanceChunkedInputs(t *testing.T) {
	c, err := NewCalculator(testConverter(t, 3.75), WithSolarFlux(1))
	if err != nil {
		t.Fatal(err)
	}
	sunz := array.New([]float64{80, 60, 40, 80, 20})
	tbBand := array.New([]float64{290, 295, 300, 285, 310})
	tbThermal := array.New([]float64{282, 282, 290, 280, 300})
	want, err := c.ReflectanceFromTbs(sunz, tbBand, tbThermal, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		name                    string
		sunz, tbBand, tbThermal array.Array
	}{
		{"band_by_2_thermal_by_3", sunz, array.Chunk(tbBand, 2), array.Chunk(tbThermal, 3)},
		{"sunz_by_3_band_by_2", array.Chunk(sunz, 3), array.Chunk(tbBand, 2), tbThermal},
	} {
		t.Run(test.name, func(t *testing.T) {
			r, err := c.ReflectanceFromTbs(test.sunz, test.tbBand, test.tbThermal, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !array.IsChunked(r) {
				t.Fatalf("result is %T, want a deferred array", r)
			}
			have, w := dense(t, r), dense(t, want)
			for i, v := range w.Data {
				if different(have.Data[i], v, 1e-12) {
					t.Errorf("element %d: have %g, want %g", i, have.Data[i], v)
				}
			}
		})
	}
}

func TestMaskingOptions(t *testing.T) {
	conv := testConverter(t, 3.75)
	sunz := array.Scalar(86)
	tbBand, tbThermal := array.Scalar(290), array.Scalar(282)

	c, err := NewCalculator(conv, WithoutMasking())
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.ReflectanceFromTbs(sunz, tbBand, tbThermal, nil)
	if err != nil {
		t.Fatal(err)
	}
	d := dense(t, r)
	// The solar radiance is evaluated at the threshold angle.
	lsun := c.SolarFlux() * math.Cos(85*math.Pi/180) / math.Pi
	lb, lt := radiance(t, conv, 290), radiance(t, conv, 282)
	if different(d.Data[0], (lb-lt)/(lsun-lt), 1e-6) {
		t.Errorf("unmasked reflectance: have %g, want %g", d.Data[0], (lb-lt)/(lsun-lt))
	}

	c, err = NewCalculator(conv, WithMaskingLimit(87), WithSolarFlux(c.SolarFlux()))
	if err != nil {
		t.Fatal(err)
	}
	r, err = c.ReflectanceFromTbs(sunz, tbBand, tbThermal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d := dense(t, r); math.IsNaN(d.Data[0]) {
		t.Error("86° is inside a masking limit of 87°")
	}

	c, err = NewCalculator(conv, WithEpsilon(10))
	if err != nil {
		t.Fatal(err)
	}
	r, err = c.ReflectanceFromTbs(array.Scalar(30), tbBand, tbThermal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d := dense(t, r); !math.IsNaN(d.Data[0]) {
		t.Errorf("denominator below epsilon: have %g, want NaN", d.Data[0])
	}
}

func TestCO2Correction(t *testing.T) {
	if _, err := DeriveRad39Corr(array.Scalar(280), array.Scalar(260), "other"); !errors.Is(err, spectral.ErrUnsupported) {
		t.Errorf("unknown method: have %v, want ErrUnsupported", err)
	}
	corr, err := DeriveRad39Corr(array.Scalar(280), array.Scalar(260), "rosenfeld")
	if err != nil {
		t.Fatal(err)
	}
	want := math.Pow(275./280., 4)
	if have := dense(t, corr).Data[0]; different(have, want, 1e-12) {
		t.Errorf("correction: have %g, want %g", have, want)
	}

	conv := testConverter(t, 3.75)
	c, err := NewCalculator(conv)
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.ReflectanceFromTbs(array.Scalar(60), array.Scalar(290), array.Scalar(280), array.Scalar(260))
	if err != nil {
		t.Fatal(err)
	}
	lsun := c.SolarFlux() * math.Cos(60*math.Pi/180) / math.Pi
	lb, lt := radiance(t, conv, 290), radiance(t, conv, 280)*want
	if have := dense(t, r).Data[0]; different(have, (lb-lt)/(lsun-lt), 1e-6) {
		t.Errorf("corrected reflectance: have %g, want %g", have, (lb-lt)/(lsun-lt))
	}
}

func TestKinds(t *testing.T) {
	c, err := NewCalculator(testConverter(t, 3.75))
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.ReflectanceFromTbs(array.FromFloat32([]float32{70, 75}),
		array.FromFloat32([]float32{290, 295}), array.FromFloat32([]float32{282, 283}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*array.Dense); !ok || r.DType() != array.Float32 {
		t.Errorf("float32 input gave %T %v", r, r.DType())
	}

	lazy, err := c.ReflectanceFromTbs(array.Scalar(70),
		array.Chunk(array.New([]float64{290, 295, 300}), 2), array.Chunk(array.New([]float64{282, 283, 284}), 2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !array.IsChunked(lazy) {
		t.Errorf("deferred input gave %T", lazy)
	}

	masked := array.New([]float64{290, 295}).WithMask([]bool{false, true})
	m, err := c.ReflectanceFromTbs(array.Scalar(70), masked, array.New([]float64{282, 283}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if md := dense(t, m); !md.Masked() || !md.Mask[1] || md.Mask[0] {
		t.Errorf("mask not carried through: %v", md.Mask)
	}

	if _, err := c.ReflectanceFromTbs(array.Scalar(70), array.New([]float64{290, 295}), array.New([]float64{282}), nil); err == nil {
		t.Error("expected an error for temperatures of different shapes")
	}
}

func TestEmissivePart3x(t *testing.T) {
	conv := testConverter(t, 3.75)
	c, err := NewCalculator(conv)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmissivePart3x(true); !errors.Is(err, ErrNoReflectance) {
		t.Errorf("before any reflectance: have %v, want ErrNoReflectance", err)
	}
	r, err := c.ReflectanceFromTbs(array.New([]float64{60, 89}), array.New([]float64{295, 280}), array.New([]float64{285, 285}), nil)
	if err != nil {
		t.Fatal(err)
	}
	rd := dense(t, r)
	e, err := c.EmissivePart3x(false)
	if err != nil {
		t.Fatal(err)
	}
	ed := dense(t, e)
	lt := radiance(t, conv, 285) / conv.Integral()
	if different(ed.Data[0], lt*(1-rd.Data[0]), 1e-9) {
		t.Errorf("emissive radiance: have %g, want %g", ed.Data[0], lt*(1-rd.Data[0]))
	}
	lb := radiance(t, conv, 280) / conv.Integral()
	if different(ed.Data[1], lb, 1e-9) {
		t.Errorf("night side: have %g, want the band radiance %g", ed.Data[1], lb)
	}

	tb, err := c.EmissivePart3x(true)
	if err != nil {
		t.Fatal(err)
	}
	if td := dense(t, tb); math.Abs(td.Data[1]-280) > 0.5 {
		t.Errorf("night side temperature: have %g, want about 280", td.Data[1])
	}
}

func TestUnsupportedBand(t *testing.T) {
	if _, err := NewCalculator(testConverter(t, 10.8)); !errors.Is(err, spectral.ErrUnsupported) {
		t.Errorf("10.8 µm band: have %v, want ErrUnsupported", err)
	}
}

func TestNew(t *testing.T) {
	src := spectral.NewMemorySource(&spectral.Instrument{
		Platform: "NOAA-19", Name: "avhrr-3",
		Bands: []*spectral.Band{{Name: "ch3b", Detectors: map[string]*spectral.Response{"det-1": triangle(t, 3.74, 0.2)}}},
	})
	dir := t.TempDir()
	c, err := New(src, "NOAA-19", "avhrr-3", spectral.Wavelength(3.7), WithLUTDir(dir),
		WithConverterOptions(radtb.WithTbResolution(0.5)))
	if err != nil {
		t.Fatal(err)
	}
	if c.Converter().Band != "ch3b" || c.Converter().TbResolution() != 0.5 {
		t.Errorf("converter: %s %g", c.Converter().Band, c.Converter().TbResolution())
	}
	r, err := c.ReflectanceFromTbs(array.Scalar(50), array.Scalar(300), array.Scalar(290), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v := dense(t, r).Data[0]; math.IsNaN(v) || v <= 0 {
		t.Errorf("reflectance with a lookup table: have %g", v)
	}
}
