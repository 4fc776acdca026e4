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
	"fmt"
	"math"
	"strings"

	"github.com/spatialmodel/spectral"
	"github.com/spatialmodel/spectral/array"
	"github.com/spatialmodel/spectral/blackbody"
)

// seviriCoefficients holds the central wavenumber (cm⁻¹) and the α and β
// regression coefficients of the SEVIRI IR bands for each Meteosat
// Second Generation satellite.
var seviriCoefficients = map[string]map[string][3]float64{
	"Meteosat-8": {
		"IR3.9":  {2567.330, 0.9956, 3.410},
		"WV6.2":  {1598.103, 0.9962, 2.218},
		"WV7.3":  {1362.081, 0.9991, 0.478},
		"IR8.7":  {1149.069, 0.9996, 0.179},
		"IR9.7":  {1034.343, 0.9999, 0.060},
		"IR10.8": {930.647, 0.9983, 0.625},
		"IR12.0": {839.660, 0.9988, 0.397},
		"IR13.4": {752.387, 0.9981, 0.578},
	},
	"Meteosat-9": {
		"IR3.9":  {2568.832, 0.9954, 3.438},
		"WV6.2":  {1600.548, 0.9963, 2.185},
		"WV7.3":  {1360.330, 0.9991, 0.470},
		"IR8.7":  {1148.620, 0.9996, 0.179},
		"IR9.7":  {1035.289, 0.9999, 0.056},
		"IR10.8": {931.700, 0.9983, 0.640},
		"IR12.0": {836.445, 0.9988, 0.408},
		"IR13.4": {751.792, 0.9981, 0.561},
	},
	"Meteosat-10": {
		"IR3.9":  {2547.771, 0.9915, 2.9002},
		"WV6.2":  {1595.621, 0.9960, 2.0337},
		"WV7.3":  {1360.337, 0.9991, 0.4340},
		"IR8.7":  {1148.130, 0.9996, 0.1714},
		"IR9.7":  {1034.715, 0.9999, 0.0527},
		"IR10.8": {929.842, 0.9983, 0.6084},
		"IR12.0": {838.659, 0.9988, 0.3882},
		"IR13.4": {750.653, 0.9982, 0.5390},
	},
	"Meteosat-11": {
		"IR3.9":  {2555.280, 0.9916, 2.9438},
		"WV6.2":  {1596.080, 0.9959, 2.0780},
		"WV7.3":  {1361.748, 0.9990, 0.4929},
		"IR8.7":  {1147.433, 0.9996, 0.1731},
		"IR9.7":  {1034.851, 0.9998, 0.0597},
		"IR10.8": {931.122, 0.9983, 0.6256},
		"IR12.0": {839.113, 0.9988, 0.4002},
		"IR13.4": {748.585, 0.9981, 0.5635},
	},
}

// SeviriPlatforms returns the platforms supported by SeviriConverter.
func SeviriPlatforms() []string {
	return []string{"Meteosat-8", "Meteosat-9", "Meteosat-10", "Meteosat-11"}
}

// seviriPlatform maps spellings such as "met10" or "meteosat 10"
// to the names in seviriCoefficients.
func seviriPlatform(p string) string {
	s := strings.ToLower(strings.NewReplacer("-", "", " ", "", "_", "").Replace(p))
	s = strings.TrimPrefix(s, "meteosat")
	s = strings.TrimPrefix(s, "met")
	s = strings.TrimPrefix(s, "msg")
	name := "Meteosat-" + s
	if _, ok := seviriCoefficients[name]; ok {
		return name
	}
	return p
}

// SeviriConverter converts between brightness temperature and radiance for
// the SEVIRI IR bands using the closed-form regression published for each
// Meteosat satellite, without any spectral response data.
type SeviriConverter struct {
	Platform string
	Band     string

	nuc         float64 // central wavenumber, m⁻¹
	alpha, beta float64
}

// NewSeviriConverter returns a converter for the named band. Bands
// identified by wavelength are not supported.
func NewSeviriConverter(platform string, band spectral.BandID) (*SeviriConverter, error) {
	name, ok := band.(spectral.BandName)
	if !ok {
		return nil, fmt.Errorf("radtb: SEVIRI bands must be given by name, not %s: %w", band, spectral.ErrUnsupported)
	}
	p := seviriPlatform(platform)
	bands, ok := seviriCoefficients[p]
	if !ok {
		return nil, fmt.Errorf("radtb: platform %q has no SEVIRI coefficients: %w", platform, spectral.ErrUnsupported)
	}
	b := spectral.CanonicalBandName("seviri", string(name))
	coef, ok := bands[b]
	if !ok {
		return nil, fmt.Errorf("radtb: SEVIRI band %q has no coefficients: %w", string(name), spectral.ErrUnsupported)
	}
	return &SeviriConverter{
		Platform: p,
		Band:     b,
		nuc:      coef[0] * 100,
		alpha:    coef[1],
		beta:     coef[2],
	}, nil
}

// TbToRadiance converts brightness temperatures in K to radiances in
// W m⁻² sr⁻¹ (m⁻¹)⁻¹.
func (s *SeviriConverter) TbToRadiance(tb array.Array) (*Radiance, error) {
	nuc, alpha, beta := s.nuc, s.alpha, s.beta
	v, err := array.Map(func(out []float64, in [][]float64) {
		for i, t := range in[0] {
			out[i] = blackbody.C1 * nuc * nuc * nuc / math.Expm1(blackbody.C2*nuc/(alpha*t+beta))
		}
	}, tb.DType(), tb)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	return &Radiance{Values: v, Unit: UnitWavenumber, Scale: 1}, nil
}

// RadianceToTb converts radiances in W m⁻² sr⁻¹ (m⁻¹)⁻¹ to brightness
// temperatures in K.
func (s *SeviriConverter) RadianceToTb(rad array.Array) (array.Array, error) {
	nuc, alpha, beta := s.nuc, s.alpha, s.beta
	v, err := array.Map(func(out []float64, in [][]float64) {
		for i, l := range in[0] {
			if !(l > 0) {
				out[i] = math.NaN()
				continue
			}
			out[i] = blackbody.C2*nuc/(alpha*math.Log1p(blackbody.C1*nuc*nuc*nuc/l)) - beta/alpha
		}
	}, rad.DType(), rad)
	if err != nil {
		return nil, fmt.Errorf("radtb: %w", err)
	}
	return v, nil
}
