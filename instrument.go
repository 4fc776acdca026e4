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
	"math"
	"sort"
	"strings"
	"sync"
)

// Source provides spectral response data. Implementations adapt the
// instrument-specific file formats; the conversion packages only see
// this interface.
type Source interface {
	// Instrument returns the spectral responses of all bands of
	// instrument on platform.
	Instrument(platform, instrument string) (*Instrument, error)
}

// Band holds the responses of the detectors of one band, keyed by detector name.
type Band struct {
	Name      string
	Detectors map[string]*Response
}

// Detector returns the response of the named detector, or of
// DefaultDetector if name is empty.
func (b *Band) Detector(name string) (*Response, error) {
	if name == "" {
		name = DefaultDetector
	}
	r, ok := b.Detectors[name]
	if !ok {
		return nil, fmt.Errorf("spectral: band %s has no detector %s: %w", b.Name, name, ErrNoData)
	}
	return r, nil
}

// reference returns the response used to characterize the band as a whole:
// DefaultDetector if present, else the alphabetically first detector.
func (b *Band) reference() *Response {
	if r, ok := b.Detectors[DefaultDetector]; ok {
		return r
	}
	names := make([]string, 0, len(b.Detectors))
	for n := range b.Detectors {
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return b.Detectors[names[0]]
}

// Instrument holds the spectral responses of one instrument on one platform.
type Instrument struct {
	Platform string
	Name     string
	Bands    []*Band
}

// Band returns the band with the given name, after resolving the name
// through the band alias tables.
func (in *Instrument) Band(name string) (*Band, error) {
	canonical := CanonicalBandName(in.Name, name)
	for _, b := range in.Bands {
		if b.Name == canonical || b.Name == name || CanonicalBandName(in.Name, b.Name) == canonical {
			return b, nil
		}
	}
	return nil, fmt.Errorf("spectral: %s/%s has no band %s: %w", in.Platform, in.Name, name, ErrNoData)
}

// Response returns the response of the given band and detector.
func (in *Instrument) Response(band, detector string) (*Response, error) {
	b, err := in.Band(band)
	if err != nil {
		return nil, err
	}
	return b.Detector(detector)
}

// DefaultEpsilon is the default tolerance in µm for matching a
// wavelength to a band central wavelength.
const DefaultEpsilon = 0.1

// BandsFromWavelength returns the names of the bands whose central wavelength
// lies within epsilon µm of wavelength, ordered by central wavelength.
// No match returns an empty result and no error. More than one match
// returns an *AmbiguousBandError unless multiple is true.
func (in *Instrument) BandsFromWavelength(wavelength, epsilon float64, multiple bool) ([]string, error) {
	limit := math.Min(2-epsilon, epsilon)
	type match struct {
		name string
		cwl  float64
	}
	var found []match
	for _, b := range in.Bands {
		r := b.reference()
		if r == nil {
			continue
		}
		if math.Abs(r.CentralWavelength-wavelength) < limit {
			found = append(found, match{name: CanonicalBandName(in.Name, b.Name), cwl: r.CentralWavelength})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].cwl < found[j].cwl })
	names := make([]string, len(found))
	for i, m := range found {
		names[i] = m.name
	}
	if len(names) > 1 && !multiple {
		return nil, &AmbiguousBandError{Wavelength: wavelength, Bands: names}
	}
	return names, nil
}

// ResolveBand returns the name of the band identified by id. Names are resolved
// through the alias tables; wavelengths are matched within DefaultEpsilon.
func (in *Instrument) ResolveBand(id BandID) (string, error) {
	switch v := id.(type) {
	case BandName:
		b, err := in.Band(string(v))
		if err != nil {
			return "", err
		}
		return b.Name, nil
	case Wavelength:
		names, err := in.BandsFromWavelength(float64(v), DefaultEpsilon, false)
		if err != nil {
			return "", fmt.Errorf("spectral: %s/%s: %w", in.Platform, in.Name, err)
		}
		if len(names) == 0 {
			return "", fmt.Errorf("spectral: %s/%s has no band near %g µm: %w", in.Platform, in.Name, float64(v), ErrNoData)
		}
		b, err := in.Band(names[0])
		if err != nil {
			return "", err
		}
		return b.Name, nil
	default:
		return "", fmt.Errorf("spectral: unknown band identifier type %T", id)
	}
}

// MemorySource is a Source that holds instruments in memory.
type MemorySource struct {
	mu          sync.RWMutex
	instruments map[string]*Instrument
}

// NewMemorySource returns a source holding the given instruments.
func NewMemorySource(instruments ...*Instrument) *MemorySource {
	m := &MemorySource{instruments: make(map[string]*Instrument)}
	for _, in := range instruments {
		m.Add(in)
	}
	return m
}

func sourceKey(platform, instrument string) string {
	return strings.ToLower(platform) + "/" + strings.ToLower(instrument)
}

// Add adds or replaces an instrument.
func (m *MemorySource) Add(in *Instrument) {
	m.mu.Lock()
	m.instruments[sourceKey(in.Platform, in.Name)] = in
	m.mu.Unlock()
}

// Instrument implements Source.
func (m *MemorySource) Instrument(platform, instrument string) (*Instrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.instruments[sourceKey(platform, instrument)]
	if !ok {
		return nil, fmt.Errorf("spectral: no spectral responses for %s %s: %w", platform, instrument, ErrNoData)
	}
	return in, nil
}
