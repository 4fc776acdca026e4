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

// Package hash derives stable keys from in-memory values. Keys identify
// cached lookup tables and the response curves they were built from.
package hash

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"math"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

func write(h hash.Hash, objects []interface{}) {
	var buf [8]byte
	for _, o := range objects {
		switch v := o.(type) {
		case []float64:
			// Raw bits keep NaN payloads and signed zeros distinct.
			binary.LittleEndian.PutUint64(buf[:], uint64(len(v)))
			h.Write(buf[:])
			for _, f := range v {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
				h.Write(buf[:])
			}
		case string:
			fmt.Fprintf(h, "%d:%s", len(v), v)
		default:
			printer.Fprintf(h, "%#v", o)
		}
	}
}

// Key returns a 128-bit hex key for the given objects.
func Key(objects ...interface{}) string {
	h := fnv.New128a()
	write(h, objects)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Fingerprint returns a short hex digest of the given objects, suitable
// for embedding in file names.
func Fingerprint(objects ...interface{}) string {
	h := fnv.New64a()
	write(h, objects)
	return fmt.Sprintf("%016x", h.Sum64())[:8]
}
