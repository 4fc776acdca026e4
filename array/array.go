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

// Package array provides the numeric arrays the conversion kernels operate on.
// An array is either Dense, held in memory and computed immediately, or
// Chunked, a deferred array split into blocks that are only evaluated when
// Compute is called. Kernels are written once as elementwise functions over
// float64 slices and dispatched by Map according to the kind of its inputs.
package array

import (
	"context"
	"fmt"
	"math"
)

// DType is the floating-point precision of an array's values.
type DType int

const (
	// Float64 is double precision.
	Float64 DType = iota
	// Float32 is single precision. Values are stored as float64 but always
	// hold values representable as float32.
	Float32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// Round rounds v to the precision of d.
func (d DType) Round(v float64) float64 {
	if d == Float32 {
		return float64(float32(v))
	}
	return v
}

// Array is a multi-dimensional array of floating-point values.
type Array interface {
	Shape() []int
	Len() int
	DType() DType
}

// Blocked is implemented by arrays whose evaluation is deferred and
// split into independently computable blocks.
type Blocked interface {
	Array
	Blocks() []Block
}

// Block is one contiguous piece of a Blocked array, covering the flat
// elements [Offset, Offset+Len). Eval must be free of side effects so that
// it can be called more than once and concurrently with other blocks.
type Block struct {
	Offset, Len int
	Eval        func(ctx context.Context) (*Dense, error)
}

// IsChunked reports whether a is a deferred, blocked array.
func IsChunked(a Array) bool {
	_, ok := a.(Blocked)
	return ok
}

func shapeLen(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func copyShape(shape []int) []int {
	return append([]int(nil), shape...)
}

// Dense is an array held in memory. Mask, if not nil, marks invalid
// elements with true.
type Dense struct {
	Data []float64
	Mask []bool

	shape []int
	dtype DType
}

// New returns a float64 Dense array backed by data. If no shape is given
// the array is one-dimensional.
func New(data []float64, shape ...int) *Dense {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	if shapeLen(shape) != len(data) {
		panic(fmt.Errorf("array: shape %v does not match data length %d", shape, len(data)))
	}
	return &Dense{Data: data, shape: copyShape(shape), dtype: Float64}
}

// FromFloat32 returns a float32 Dense array holding a copy of data.
func FromFloat32(data []float32, shape ...int) *Dense {
	d := make([]float64, len(data))
	for i, v := range data {
		d[i] = float64(v)
	}
	a := New(d, shape...)
	a.dtype = Float32
	return a
}

// Scalar returns a one-element float64 array.
func Scalar(v float64) *Dense {
	return New([]float64{v})
}

// Full returns an array of the given shape and precision filled with v.
func Full(v float64, dtype DType, shape ...int) *Dense {
	d := make([]float64, shapeLen(shape))
	v = dtype.Round(v)
	if v != 0 {
		for i := range d {
			d[i] = v
		}
	}
	a := New(d, shape...)
	a.dtype = dtype
	return a
}

// AsType returns a copy of a converted to precision dtype.
func (a *Dense) AsType(dtype DType) *Dense {
	o := &Dense{Data: make([]float64, len(a.Data)), shape: copyShape(a.shape), dtype: dtype}
	for i, v := range a.Data {
		o.Data[i] = dtype.Round(v)
	}
	if a.Mask != nil {
		o.Mask = append([]bool(nil), a.Mask...)
	}
	return o
}

// WithMask sets the mask of a and returns a.
func (a *Dense) WithMask(mask []bool) *Dense {
	if mask != nil && len(mask) != len(a.Data) {
		panic(fmt.Errorf("array: mask length %d does not match data length %d", len(mask), len(a.Data)))
	}
	a.Mask = mask
	return a
}

// Shape implements Array.
func (a *Dense) Shape() []int { return copyShape(a.shape) }

// Len implements Array.
func (a *Dense) Len() int { return len(a.Data) }

// DType implements Array.
func (a *Dense) DType() DType { return a.dtype }

// At returns the value of flat element i.
func (a *Dense) At(i int) float64 { return a.Data[i] }

// Masked reports whether a carries a mask.
func (a *Dense) Masked() bool { return a.Mask != nil }

// Valid reports whether flat element i is unmasked and not NaN.
func (a *Dense) Valid(i int) bool {
	if a.Mask != nil && a.Mask[i] {
		return false
	}
	return !math.IsNaN(a.Data[i])
}

// Float32s returns the values of a as float32.
func (a *Dense) Float32s() []float32 {
	o := make([]float32, len(a.Data))
	for i, v := range a.Data {
		o[i] = float32(v)
	}
	return o
}

// slice returns a view of the flat elements [off, off+n).
func (a *Dense) slice(off, n int) *Dense {
	o := &Dense{Data: a.Data[off : off+n], shape: []int{n}, dtype: a.dtype}
	if a.Mask != nil {
		o.Mask = a.Mask[off : off+n]
	}
	return o
}

// broadcast returns a length-n array repeating the single element of a.
func (a *Dense) broadcast(n int) *Dense {
	if len(a.Data) == n {
		return a
	}
	o := &Dense{Data: make([]float64, n), shape: []int{n}, dtype: a.dtype}
	for i := range o.Data {
		o.Data[i] = a.Data[0]
	}
	if a.Mask != nil {
		o.Mask = make([]bool, n)
		for i := range o.Mask {
			o.Mask[i] = a.Mask[0]
		}
	}
	return o
}

// Compute returns a as a Dense array, evaluating it if it is deferred.
func Compute(ctx context.Context, a Array) (*Dense, error) {
	switch v := a.(type) {
	case *Dense:
		return v, nil
	case *Chunked:
		return v.Compute(ctx)
	case Blocked:
		return Lazy(v.Shape(), v.DType(), v.Blocks()).Compute(ctx)
	default:
		return nil, fmt.Errorf("array: unsupported array type %T", a)
	}
}
