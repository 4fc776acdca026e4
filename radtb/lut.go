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

package radtb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/internal/hash"
)

// LookupTable holds radiances precomputed on a regular temperature grid.
type LookupTable struct {
	TB       []float64
	Radiance []float64

	// Resolution is the temperature step of TB in K.
	Resolution float64

	// Normalized is true if Radiance holds radiances divided by the
	// response integral.
	Normalized bool

	Platform, Instrument, Band, Detector string
	Space                                spectral.Wavespace

	// Fingerprint identifies the response data the table was computed from.
	Fingerprint string
}

// Lookup returns the radiances of the temperatures in tb. Temperatures
// are quantized to the table resolution and clipped to the table range;
// NaN temperatures give NaN.
func (lut *LookupTable) Lookup(tb array.Array) (array.Array, error) {
	if len(lut.TB) == 0 || len(lut.TB) != len(lut.Radiance) {
		return nil, fmt.Errorf("radtb: lookup table is empty or malformed")
	}
	res := lut.Resolution
	start := math.Round(lut.TB[0] / res)
	last := len(lut.Radiance) - 1
	rad := lut.Radiance
	v, err := array.Map(func(out []float64, in [][]float64) {
		for i, t := range in[0] {
			if math.IsNaN(t) {
				out[i] = math.NaN()
				continue
			}
			idx := int(math.Round(t/res) - start)
			if idx < 0 {
				idx = 0
			} else if idx > last {
				idx = last
			}
			out[i] = rad[idx]
		}
	}, tb.DType(), tb)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	return v, nil
}

// Write writes the table to w in netCDF format.
func (lut *LookupTable) Write(w cdf.ReaderWriterAt) error {
	h := cdf.NewHeader([]string{"tb"}, []int{len(lut.TB)})
	h.AddAttribute("", "comment", "Brightness temperature to radiance lookup table")
	for _, a := range [][2]string{
		{"platform", lut.Platform},
		{"instrument", lut.Instrument},
		{"band", lut.Band},
		{"detector", lut.Detector},
		{"wavespace", string(lut.Space)},
		{"rsr_fingerprint", lut.Fingerprint},
	} {
		if a[1] != "" { // empty CHAR attributes are not written
			h.AddAttribute("", a[0], a[1])
		}
	}
	h.AddAttribute("", "tb_resolution", []float64{lut.Resolution})
	normalized := int32(0)
	if lut.Normalized {
		normalized = 1
	}
	h.AddAttribute("", "normalized", []int32{normalized})
	h.AddVariable("tb", []string{"tb"}, []float64{0})
	h.AddAttribute("tb", "units", "K")
	h.AddVariable("radiance", []string{"tb"}, []float64{0})
	h.AddAttribute("radiance", "units", unitOf(lut.Space, !lut.Normalized))
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("radtb: invalid lookup table header: %v", errs[0])
	}
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("radtb: creating lookup table: %w", err)
	}
	for _, v := range []struct {
		name string
		data []float64
	}{{"tb", lut.TB}, {"radiance", lut.Radiance}} {
		wr := f.Writer(v.name, []int{0}, []int{len(v.data)})
		if _, err := wr.Write(v.data); err != nil {
			return fmt.Errorf("radtb: writing lookup table variable %s: %w", v.name, err)
		}
	}
	return nil
}

func unitOf(space spectral.Wavespace, integrated bool) string {
	switch {
	case integrated:
		return UnitIntegrated
	case space == spectral.WavenumberSpace:
		return UnitWavenumber
	default:
		return UnitWavelength
	}
}

// ReadLookupTable reads a table written by Write.
func ReadLookupTable(r cdf.ReaderWriterAt) (*LookupTable, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("radtb: opening lookup table: %w", err)
	}
	lut := new(LookupTable)
	for _, v := range []struct {
		name string
		dst  *[]float64
	}{{"tb", &lut.TB}, {"radiance", &lut.Radiance}} {
		dims := f.Header.Lengths(v.name)
		if len(dims) != 1 || dims[0] < 1 {
			return nil, fmt.Errorf("radtb: lookup table has no variable %s", v.name)
		}
		n := dims[0]
		buf := make([]float64, n)
		if _, err := f.Reader(v.name, nil, nil).Read(buf); err != nil {
			return nil, fmt.Errorf("radtb: reading lookup table variable %s: %w", v.name, err)
		}
		*v.dst = buf
	}
	str := func(name string) string {
		s, _ := f.Header.GetAttribute("", name).(string)
		return s
	}
	lut.Platform = str("platform")
	lut.Instrument = str("instrument")
	lut.Band = str("band")
	lut.Detector = str("detector")
	lut.Space = spectral.Wavespace(str("wavespace"))
	lut.Fingerprint = str("rsr_fingerprint")
	if res, ok := f.Header.GetAttribute("", "tb_resolution").([]float64); ok && len(res) > 0 {
		lut.Resolution = res[0]
	} else if len(lut.TB) > 1 {
		lut.Resolution = lut.TB[1] - lut.TB[0]
	} else {
		lut.Resolution = DefaultTbResolution
	}
	lut.Normalized = true
	if n, ok := f.Header.GetAttribute("", "normalized").([]int32); ok && len(n) > 0 {
		lut.Normalized = n[0] != 0
	}
	return lut, nil
}

// ReadLookupTableFile reads the lookup table stored at path.
func ReadLookupTableFile(path string) (*LookupTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("radtb: lookup table %s: %w", path, spectral.ErrNoData)
		}
		return nil, fmt.Errorf("radtb: %w", err)
	}
	defer f.Close()
	return ReadLookupTable(f)
}

// BuildLookupTable computes the converter's lookup table and writes it to path.
func (c *Converter) BuildLookupTable(ctx context.Context, path string, integrated bool) (*LookupTable, error) {
	lut, err := c.MakeLookupTable(ctx, integrated)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("radtb: %w", err)
		}
	}
	// Write to a temporary file first so readers never see a partial table.
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	if err := lut.Write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("radtb: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	c.Log.WithFields(logrus.Fields{
		"file": path,
		"band": c.Band,
	}).Info("radtb: wrote lookup table")
	return lut, nil
}

// LookupTableFile returns the path in dir of the converter's normalized
// lookup table. The name includes the response fingerprint so that a
// change in the response data leads to a new table, and the temperature
// resolution so that tables of different resolutions coexist.
func (c *Converter) LookupTableFile(dir string) string {
	clean := func(s string) string {
		return strings.NewReplacer(" ", "", "/", "-", "_", "-").Replace(s)
	}
	name := fmt.Sprintf("tb2rad_lut_%s_%s_%s_%s_r%g.nc",
		clean(strings.ToLower(c.Platform)), clean(strings.ToLower(c.Instrument)),
		clean(c.Band), c.Fingerprint(), c.tbResolution)
	return filepath.Join(dir, name)
}

var (
	lutCache     *requestcache.Cache
	lutCacheInit sync.Once
)

type lutRequest struct {
	c    *Converter
	path string
}

// lutKey identifies a cached table.
type lutKey struct {
	Path       string
	Space      spectral.Wavespace
	Resolution float64
}

// LoadOrBuildLookupTable returns the converter's normalized lookup table
// from dir, building and saving it first if it does not exist. Tables are
// kept in memory after the first load.
func (c *Converter) LoadOrBuildLookupTable(ctx context.Context, dir string) (*LookupTable, error) {
	lutCacheInit.Do(func() {
		lutCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(lutRequest)
			return r.c.loadOrBuild(ctx, r.path)
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(64))
	})
	path := c.LookupTableFile(dir)
	key := hash.Key(lutKey{Path: path, Space: c.space, Resolution: c.tbResolution})
	result, err := lutCache.NewRequest(ctx, lutRequest{c: c, path: path}, key).Result()
	if err != nil {
		return nil, err
	}
	return result.(*LookupTable), nil
}

func (c *Converter) loadOrBuild(ctx context.Context, path string) (*LookupTable, error) {
	lut, err := ReadLookupTableFile(path)
	switch {
	case err == nil && lut.Fingerprint == c.Fingerprint() && lut.Normalized &&
		lut.Resolution == c.tbResolution && lut.Space == c.space:
		return lut, nil
	case err == nil:
		c.Log.WithField("file", path).Warn("radtb: lookup table does not match the response data; rebuilding")
	case !errors.Is(err, spectral.ErrNoData):
		return nil, err
	}
	return c.BuildLookupTable(ctx, path, false)
}
