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

package rayleigh

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/spectral"
)

// LUT is a table of Rayleigh (plus aerosol) reflectances, a fraction
// between 0 and 1, indexed by wavelength (nm), sun zenith secant,
// relative azimuth (degrees) and satellite zenith secant. Reflectance
// holds the 4-D table flattened in that axis order.
type LUT struct {
	Wavelengths       []float64
	SunZenithSecant   []float64
	AzimuthDifference []float64
	SatZenithSecant   []float64
	Reflectance       []float64
}

// Dims returns the lengths of the table axes.
func (l *LUT) Dims() [4]int {
	return [4]int{len(l.Wavelengths), len(l.SunZenithSecant), len(l.AzimuthDifference), len(l.SatZenithSecant)}
}

// Check returns an error if the table is inconsistent.
func (l *LUT) Check() error {
	d := l.Dims()
	n := 1
	for i, name := range []string{"wavelength", "sun zenith secant", "azimuth difference", "satellite zenith secant"} {
		if d[i] < 2 {
			return fmt.Errorf("rayleigh: LUT %s axis needs at least 2 values, has %d", name, d[i])
		}
		n *= d[i]
	}
	if len(l.Reflectance) != n {
		return fmt.Errorf("rayleigh: LUT has %d reflectances, want %d", len(l.Reflectance), n)
	}
	for _, axis := range [][]float64{l.Wavelengths, l.SunZenithSecant, l.AzimuthDifference, l.SatZenithSecant} {
		for i := 1; i < len(axis); i++ {
			if !(axis[i] > axis[i-1]) {
				return fmt.Errorf("rayleigh: LUT axis is not strictly increasing at %g", axis[i])
			}
		}
	}
	return nil
}

// plane returns the 3-D reflectance table for the given wavelength (nm),
// interpolated linearly between the two bracketing wavelength planes.
func (l *LUT) plane(wavelength float64) []float64 {
	wl := l.Wavelengths
	idx := searchLeft(wl, wavelength)
	if idx == 0 {
		idx = 1
	} else if idx > len(wl)-1 {
		idx = len(wl) - 1
	}
	f := (wl[idx] - wavelength) / (wl[idx] - wl[idx-1])
	d := l.Dims()
	size := d[1] * d[2] * d[3]
	lo := l.Reflectance[(idx-1)*size : idx*size]
	hi := l.Reflectance[idx*size : (idx+1)*size]
	p := make([]float64, size)
	for i := range p {
		p[i] = f*lo[i] + (1-f)*hi[i]
	}
	return p
}

var lutVars = []struct {
	name, dim, units, description string
}{
	{"wavelengths", "wavelength", "nm", "wavelength"},
	{"sun_zenith_secant", "sunsec", "1", "secant of the sun zenith angle"},
	{"azimuth_difference", "azimuth", "degrees", "relative azimuth between sun and satellite"},
	{"satellite_zenith_secant", "satsec", "1", "secant of the satellite zenith angle"},
}

func (l *LUT) axes() [][]float64 {
	return [][]float64{l.Wavelengths, l.SunZenithSecant, l.AzimuthDifference, l.SatZenithSecant}
}

// Write writes the table to w in netCDF format.
func (l *LUT) Write(w cdf.ReaderWriterAt) error {
	if err := l.Check(); err != nil {
		return err
	}
	d := l.Dims()
	dims := make([]string, len(lutVars))
	for i, v := range lutVars {
		dims[i] = v.dim
	}
	h := cdf.NewHeader(dims, d[:])
	h.AddAttribute("", "comment", "Rayleigh scattering reflectance lookup table")
	for _, v := range lutVars {
		h.AddVariable(v.name, []string{v.dim}, []float64{0})
		h.AddAttribute(v.name, "units", v.units)
		h.AddAttribute(v.name, "description", v.description)
	}
	h.AddVariable("reflectance", dims, []float32{0})
	h.AddAttribute("reflectance", "units", "1")
	h.AddAttribute("reflectance", "description", "Rayleigh reflectance fraction")
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("rayleigh: invalid LUT header: %v", errs[0])
	}
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("rayleigh: creating LUT: %w", err)
	}
	for i, axis := range l.axes() {
		wr := f.Writer(lutVars[i].name, []int{0}, []int{len(axis)})
		if _, err := wr.Write(axis); err != nil {
			return fmt.Errorf("rayleigh: writing %s: %w", lutVars[i].name, err)
		}
	}
	data32 := make([]float32, len(l.Reflectance))
	for i, v := range l.Reflectance {
		data32[i] = float32(v)
	}
	wr := f.Writer("reflectance", []int{0, 0, 0, 0}, d[:])
	if _, err := wr.Write(data32); err != nil {
		return fmt.Errorf("rayleigh: writing reflectance: %w", err)
	}
	return nil
}

// ReadLUT reads a table written by Write.
func ReadLUT(r cdf.ReaderWriterAt) (*LUT, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("rayleigh: opening LUT: %w", err)
	}
	l := new(LUT)
	dst := []*[]float64{&l.Wavelengths, &l.SunZenithSecant, &l.AzimuthDifference, &l.SatZenithSecant}
	for i, v := range lutVars {
		dims := f.Header.Lengths(v.name)
		if len(dims) != 1 {
			return nil, fmt.Errorf("rayleigh: LUT has no variable %s", v.name)
		}
		buf := make([]float64, dims[0])
		if _, err := f.Reader(v.name, nil, nil).Read(buf); err != nil {
			return nil, fmt.Errorf("rayleigh: reading %s: %w", v.name, err)
		}
		*dst[i] = buf
	}
	dims := f.Header.Lengths("reflectance")
	if len(dims) != 4 {
		return nil, fmt.Errorf("rayleigh: LUT has no 4-D reflectance variable")
	}
	r32 := make([]float32, dims[0]*dims[1]*dims[2]*dims[3])
	if _, err := f.Reader("reflectance", nil, nil).Read(r32); err != nil {
		return nil, fmt.Errorf("rayleigh: reading reflectance: %w", err)
	}
	l.Reflectance = make([]float64, len(r32))
	for i, v := range r32 {
		l.Reflectance[i] = float64(v)
	}
	if err := l.Check(); err != nil {
		return nil, err
	}
	return l, nil
}

// ReadLUTFile reads the table stored at path. A missing file gives an
// error wrapping spectral.ErrNoData.
func ReadLUTFile(path string) (*LUT, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("rayleigh: LUT %s: %w", path, spectral.ErrNoData)
		}
		return nil, fmt.Errorf("rayleigh: %w", err)
	}
	defer f.Close()
	return ReadLUT(f)
}

// WriteLUTFile writes l to path.
func WriteLUTFile(path string, l *LUT) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rayleigh: %w", err)
	}
	if err := l.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
