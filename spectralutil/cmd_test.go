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

package spectralutil

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/radtb"
)

// writeRSR writes a response file with triangular bands for NOAA-19
// avhrr-3 into a new directory and returns the directory.
func writeRSR(t *testing.T) string {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("band,detector,wavelength,response\n")
	for _, band := range []struct {
		name              string
		center, halfWidth float64
	}{
		{"ch3b", 3.75, 0.1},
		{"ch4", 10.8, 0.5},
	} {
		const n = 21
		for i := 0; i < n; i++ {
			wl := band.center - band.halfWidth + 2*band.halfWidth*float64(i)/(n-1)
			r := 1 - math.Abs(wl-band.center)/band.halfWidth
			fmt.Fprintf(&b, "%s,,%g,%g\n", band.name, wl, r)
		}
	}
	src := &spectral.CSVSource{Dir: dir}
	if err := os.WriteFile(src.Filename("NOAA-19", "avhrr-3"), []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// configure resets the configuration to its defaults and then applies
// the given values.
func configure(values map[string]interface{}) {
	for _, o := range options {
		Cfg.Set(o.name, o.defaultVal)
	}
	for k, v := range values {
		Cfg.Set(k, v)
	}
}

func run(t *testing.T, args ...string) string {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

// column returns column i of the data lines of out.
func column(t *testing.T, out string, i int) []float64 {
	var o []float64
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Split(line, "\t")
		v, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		o = append(o, v)
	}
	return o
}

func TestVersion(t *testing.T) {
	configure(nil)
	if out := run(t, "version"); !strings.Contains(out, spectral.Version) {
		t.Errorf("version output %q", out)
	}
}

func TestTbRoundTrip(t *testing.T) {
	rsr := writeRSR(t)
	configure(map[string]interface{}{
		"rsr.dir":    rsr,
		"platform":   "NOAA-19",
		"instrument": "avhrr-3",
		"band":       "ch4",
		"values":     []string{"250", "300"},
	})
	rad := column(t, run(t, "tb2rad"), 1)
	if len(rad) != 2 || !(rad[1] > rad[0]) {
		t.Fatalf("radiances: %v", rad)
	}
	Cfg.Set("values", []string{strconv.FormatFloat(rad[0], 'g', -1, 64), strconv.FormatFloat(rad[1], 'g', -1, 64)})
	tb := column(t, run(t, "rad2tb"), 1)
	for i, want := range []float64{250, 300} {
		if math.Abs(tb[i]-want) > 1 {
			t.Errorf("round trip: have %g, want about %g", tb[i], want)
		}
	}

	// A wavelength selects the same band.
	Cfg.Set("band", "10.8")
	Cfg.Set("values", []string{"250", "300"})
	if have := column(t, run(t, "tb2rad"), 1); have[1] != rad[1] {
		t.Errorf("band by wavelength: have %g, want %g", have[1], rad[1])
	}
}

func TestTbToRadianceLUT(t *testing.T) {
	rsr, lutDir := writeRSR(t), t.TempDir()
	configure(map[string]interface{}{
		"rsr.dir":    rsr,
		"platform":   "NOAA-19",
		"instrument": "avhrr-3",
		"band":       "ch4",
		"values":     []string{"280.02"},
	})
	direct := column(t, run(t, "tb2rad"), 1)
	Cfg.Set("lut.dir", lutDir)
	fromLUT := column(t, run(t, "tb2rad"), 1)
	if math.Abs(fromLUT[0]-direct[0])/direct[0] > 1e-3 {
		t.Errorf("lookup table radiance %g, direct %g", fromLUT[0], direct[0])
	}
	files, err := filepath.Glob(filepath.Join(lutDir, "tb2rad_lut_noaa-19_avhrr-3_ch4_*.nc"))
	if err != nil || len(files) != 1 {
		t.Errorf("lookup table files: %v %v", files, err)
	}
}

func TestSeviri(t *testing.T) {
	configure(map[string]interface{}{
		"platform": "Meteosat-10",
		"band":     "IR_108",
		"seviri":   true,
		"values":   []string{"290"},
	})
	have := column(t, run(t, "tb2rad"), 1)
	c, err := radtb.NewSeviriConverter("Meteosat-10", spectral.BandName("IR_108"))
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.TbToRadiance(array.Scalar(290))
	if err != nil {
		t.Fatal(err)
	}
	want := r.Values.(*array.Dense).Data[0]
	if math.Abs(have[0]-want)/want > 1e-9 {
		t.Errorf("have %g, want %g", have[0], want)
	}
}

func TestLUT(t *testing.T) {
	rsr, lutDir := writeRSR(t), t.TempDir()
	configure(map[string]interface{}{
		"rsr.dir":       rsr,
		"platform":      "NOAA-19",
		"instrument":    "avhrr-3",
		"lut.dir":       lutDir,
		"tb.resolution": 0.5,
	})
	out := strings.Fields(run(t, "lut"))
	if len(out) != 2 {
		t.Fatalf("want 2 tables, have %v", out)
	}
	for _, f := range out {
		if _, err := os.Stat(f); err != nil {
			t.Error(err)
		}
	}
}

func TestSolarFlux(t *testing.T) {
	configure(map[string]interface{}{
		"rsr.dir":    writeRSR(t),
		"platform":   "NOAA-19",
		"instrument": "avhrr-3",
		"band":       "ch3b",
		"date":       "2024-01-03",
	})
	out := run(t, "solarflux")
	var flux float64
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) > 1 && f[0] == "flux" {
			flux, _ = strconv.ParseFloat(f[1], 64)
		}
	}
	if !(flux > 0) {
		t.Errorf("flux in output %q", out)
	}
}

func TestNIR(t *testing.T) {
	configure(map[string]interface{}{
		"rsr.dir":    writeRSR(t),
		"platform":   "NOAA-19",
		"instrument": "avhrr-3",
		"band":       "ch3b",
		"sunz":       []string{"60", "88"},
		"tb.band":    []string{"300", "300"},
		"tb.thermal": []string{"290", "290"},
		"emissive":   true,
	})
	out := run(t, "nir")
	r := column(t, out, 0)
	if !(r[0] > 0 && r[0] < 1) {
		t.Errorf("reflectance %g is not in (0, 1)", r[0])
	}
	if !math.IsNaN(r[1]) {
		t.Errorf("sun below the masking limit: have %g, want NaN", r[1])
	}
	if e := column(t, out, 1); math.Abs(e[1]-300) > 1 {
		t.Errorf("night side emissive temperature: have %g, want about 300", e[1])
	}
}

func TestRayleighOutsideRange(t *testing.T) {
	configure(map[string]interface{}{
		"platform":     "NOAA-19",
		"instrument":   "avhrr-3",
		"band":         "1.2",
		"rayleigh.dir": t.TempDir(),
		"sunz":         []string{"30", "40"},
		"satz":         []string{"10"},
		"azidiff":      []string{"100"},
	})
	for _, v := range column(t, run(t, "rayleigh"), 0) {
		if v != 0 {
			t.Errorf("have %g, want 0", v)
		}
	}
}

func TestPlot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "rsr.png")
	configure(map[string]interface{}{
		"rsr.dir":    writeRSR(t),
		"platform":   "NOAA-19",
		"instrument": "avhrr-3",
		"OutputFile": out,
	})
	run(t, "plot")
	if _, err := os.Stat(out); err != nil {
		t.Error(err)
	}
}

func TestMissingConfig(t *testing.T) {
	configure(map[string]interface{}{"values": []string{"290"}})
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	Root.SetArgs([]string{"tb2rad"})
	if err := Root.Execute(); err == nil {
		t.Error("expected an error without a platform")
	}
}
