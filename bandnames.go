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
	_ "embed"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed bandnames.toml
var bandNamesTOML string

var (
	bandNames     map[string]map[string]string
	bandNamesOnce sync.Once
)

// genericSensor is the alias table used for sensors without their own table.
const genericSensor = "generic"

func loadBandNames() {
	bandNames = make(map[string]map[string]string)
	if _, err := toml.Decode(bandNamesTOML, &bandNames); err != nil {
		panic(err)
	}
}

// BandNames returns the alias table for sensor, or the generic table
// if the sensor has no table of its own. The result must not be modified.
func BandNames(sensor string) map[string]string {
	bandNamesOnce.Do(loadBandNames)
	if t, ok := bandNames[strings.ToLower(sensor)]; ok {
		return t
	}
	return bandNames[genericSensor]
}

// CanonicalBandName maps a sensor-specific band label to the canonical band
// name. Unknown labels are returned unchanged.
func CanonicalBandName(sensor, band string) string {
	if c, ok := BandNames(sensor)[band]; ok {
		return c
	}
	return band
}
