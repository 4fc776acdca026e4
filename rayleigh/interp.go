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
	"math"
	"sort"
)

// searchLeft returns the first index i with axis[i] >= x.
func searchLeft(axis []float64, x float64) int {
	return sort.SearchFloat64s(axis, x)
}

// bracket returns the index of the axis cell containing x and the
// fractional position of x within it. Values beyond the axis are clamped
// to its ends.
func bracket(axis []float64, x float64) (int, float64) {
	n := len(axis)
	if x <= axis[0] {
		return 0, 0
	}
	if x >= axis[n-1] {
		return n - 2, 1
	}
	i := searchLeft(axis, x) - 1
	return i, (x - axis[i]) / (axis[i+1] - axis[i])
}

// grid3 is a regular, not necessarily uniform, 3-D grid of values,
// flattened with z varying fastest.
type grid3 struct {
	x, y, z []float64
	v       []float64
}

// at returns the trilinear interpolation of the grid at (x, y, z).
// NaN coordinates give NaN.
func (g *grid3) at(x, y, z float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(z) {
		return math.NaN()
	}
	i, fx := bracket(g.x, x)
	j, fy := bracket(g.y, y)
	k, fz := bracket(g.z, z)
	ny, nz := len(g.y), len(g.z)
	idx := func(a, b, c int) int { return (a*ny+b)*nz + c }
	c00 := g.v[idx(i, j, k)]*(1-fz) + g.v[idx(i, j, k+1)]*fz
	c01 := g.v[idx(i, j+1, k)]*(1-fz) + g.v[idx(i, j+1, k+1)]*fz
	c10 := g.v[idx(i+1, j, k)]*(1-fz) + g.v[idx(i+1, j, k+1)]*fz
	c11 := g.v[idx(i+1, j+1, k)]*(1-fz) + g.v[idx(i+1, j+1, k+1)]*fz
	c0 := c00*(1-fy) + c01*fy
	c1 := c10*(1-fy) + c11*fy
	return c0*(1-fx) + c1*fx
}
