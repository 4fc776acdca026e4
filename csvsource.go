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
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
)

// CSVSource reads spectral responses from long-format CSV files in Dir,
// one file per platform and instrument named
// rsr_<instrument>_<platform>.csv. Each row holds one sample:
//
//	band,detector,wavelength,response[,central_wavelength]
//
// A wavenumber column (cm⁻¹) may be given instead of wavelength (µm).
// An empty detector means DefaultDetector.
type CSVSource struct {
	Dir string

	mu    sync.Mutex
	cache map[string]*Instrument
}

type rsrRecord struct {
	Band              string  `csv:"band"`
	Detector          string  `csv:"detector"`
	Wavelength        float64 `csv:"wavelength"`
	Wavenumber        float64 `csv:"wavenumber"`
	Response          float64 `csv:"response"`
	CentralWavelength float64 `csv:"central_wavelength"`
}

// Filename returns the path of the file holding the responses of
// instrument on platform.
func (s *CSVSource) Filename(platform, instrument string) string {
	clean := func(v string) string {
		return strings.ReplaceAll(strings.TrimSpace(v), " ", "-")
	}
	return filepath.Join(s.Dir, fmt.Sprintf("rsr_%s_%s.csv", clean(instrument), clean(platform)))
}

// Instrument implements Source.
func (s *CSVSource) Instrument(platform, instrument string) (*Instrument, error) {
	key := sourceKey(platform, instrument)
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.cache[key]; ok {
		return in, nil
	}
	in, err := s.read(platform, instrument)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		s.cache = make(map[string]*Instrument)
	}
	s.cache[key] = in
	return in, nil
}

func (s *CSVSource) read(platform, instrument string) (*Instrument, error) {
	fname := s.Filename(platform, instrument)
	f, err := os.Open(fname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("spectral: no spectral responses for %s %s (%s): %w", platform, instrument, fname, ErrNoData)
		}
		return nil, fmt.Errorf("spectral: opening spectral response file: %w", err)
	}
	defer f.Close()

	var records []*rsrRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("spectral: reading %s: %w", fname, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("spectral: %s holds no samples: %w", fname, ErrNoData)
	}

	type curve struct {
		axis, values []float64
		space        Wavespace
		central      float64
	}
	var bandOrder []string
	curves := make(map[string]map[string]*curve)
	detOrder := make(map[string][]string)
	for i, r := range records {
		det := r.Detector
		if det == "" {
			det = DefaultDetector
		}
		if _, ok := curves[r.Band]; !ok {
			curves[r.Band] = make(map[string]*curve)
			bandOrder = append(bandOrder, r.Band)
		}
		c, ok := curves[r.Band][det]
		if !ok {
			c = &curve{space: WavelengthSpace}
			if r.Wavelength == 0 && r.Wavenumber != 0 {
				c.space = WavenumberSpace
			}
			curves[r.Band][det] = c
			detOrder[r.Band] = append(detOrder[r.Band], det)
		}
		x := r.Wavelength
		if c.space == WavenumberSpace {
			x = r.Wavenumber
		}
		if x == 0 {
			return nil, fmt.Errorf("spectral: %s row %d: band %s has no wavelength or wavenumber", fname, i+2, r.Band)
		}
		c.axis = append(c.axis, x)
		c.values = append(c.values, r.Response)
		if r.CentralWavelength != 0 {
			c.central = r.CentralWavelength
		}
	}

	in := &Instrument{Platform: platform, Name: instrument}
	for _, bname := range bandOrder {
		b := &Band{Name: bname, Detectors: make(map[string]*Response)}
		for _, det := range detOrder[bname] {
			c := curves[bname][det]
			resp, err := NewResponse(c.axis, c.values, c.space, c.central)
			if err != nil {
				return nil, fmt.Errorf("spectral: %s band %s detector %s: %w", fname, bname, det, err)
			}
			b.Detectors[det] = resp
		}
		in.Bands = append(in.Bands, b)
	}
	return in, nil
}
