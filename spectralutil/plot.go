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
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/spectral"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ResponsePlot returns a plot of the responses of the given bands of in
// against wavelength.
func ResponsePlot(in *spectral.Instrument, bands []string, detector string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s", in.Platform, in.Name)
	p.X.Label.Text = "Wavelength (µm)"
	p.Y.Label.Text = "Relative spectral response"
	p.Add(plotter.NewGrid())
	for i, name := range bands {
		r, err := in.Response(name, detector)
		if err != nil {
			return nil, err
		}
		wl := r.ToWavelength()
		xy := make(plotter.XYs, len(wl.Wavelength))
		for j, x := range wl.Wavelength {
			xy[j].X, xy[j].Y = x, wl.Values[j]
		}
		l, err := plotter.NewLine(xy)
		if err != nil {
			return nil, fmt.Errorf("spectral: plotting band %s: %v", name, err)
		}
		l.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(name, l)
	}
	return p, nil
}

// PlotResponses plots the responses of the configured bands into the
// configured output file.
func PlotResponses(cfg *viper.Viper) error {
	p, i, err := platform(cfg)
	if err != nil {
		return err
	}
	in, err := source(cfg).Instrument(p, i)
	if err != nil {
		return err
	}
	pl, err := ResponsePlot(in, bandNames(cfg, in), cfg.GetString("detector"))
	if err != nil {
		return err
	}
	out := os.ExpandEnv(cfg.GetString("OutputFile"))
	if err := pl.Save(8*vg.Inch, 5*vg.Inch, out); err != nil {
		return fmt.Errorf("spectral: saving plot: %v", err)
	}
	return nil
}
