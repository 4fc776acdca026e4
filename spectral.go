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

// Package spectral holds the relative spectral response (RSR) data contract
// shared by the radiometric conversion packages: per-band, per-detector
// response curves, band identity resolution, and the Source interface through
// which response data is obtained.
package spectral

import (
	"errors"
	"fmt"
	"strings"
)

// Version is the version of this module.
const Version = "0.4.0"

// Wavespace specifies whether spectral quantities are expressed
// as a function of wavelength or wavenumber.
type Wavespace string

const (
	// WavelengthSpace is wavelength space: µm in response tables, m in SI calculations.
	WavelengthSpace Wavespace = "wavelength"
	// WavenumberSpace is wavenumber space: cm⁻¹ in response tables, m⁻¹ in SI calculations.
	WavenumberSpace Wavespace = "wavenumber"
)

// Check returns an error if w is not a supported wave space.
func (w Wavespace) Check() error {
	if w != WavelengthSpace && w != WavenumberSpace {
		return fmt.Errorf("wave space %q is not %q or %q: %w", string(w), WavelengthSpace, WavenumberSpace, ErrUnsupported)
	}
	return nil
}

// DefaultDetector is the detector used when none is specified.
const DefaultDetector = "det-1"

var (
	// ErrUnsupported is returned when a requested configuration value
	// (aerosol type, atmosphere, wave space, correction method, band or platform)
	// is not supported.
	ErrUnsupported = errors.New("not supported")

	// ErrNoData is returned when no spectral response data or lookup table
	// is available for a request.
	ErrNoData = errors.New("no data available")
)

// AmbiguousBandError is returned when more than one band matches a requested
// wavelength.
type AmbiguousBandError struct {
	Wavelength float64
	Bands      []string
}

func (e *AmbiguousBandError) Error() string {
	return fmt.Sprintf("more than one band found near %g µm: %s", e.Wavelength, strings.Join(e.Bands, ", "))
}

// BandID identifies a band either by name or by approximate wavelength.
// It is implemented by BandName and Wavelength.
type BandID interface {
	bandID()
	String() string
}

// BandName is a sensor-specific or canonical band name, for example "IR3.9" or "M12".
type BandName string

func (BandName) bandID()          {}
func (b BandName) String() string { return string(b) }

// Wavelength is an approximate band wavelength in µm.
type Wavelength float64

func (Wavelength) bandID()          {}
func (w Wavelength) String() string { return fmt.Sprintf("%gµm", float64(w)) }
