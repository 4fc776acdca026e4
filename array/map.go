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

package array

import (
	"context"
	"fmt"
	"math"
)

// Kernel computes out elementwise from the aligned input slices in.
// All slices have the same length.
type Kernel func(out []float64, in [][]float64)

// ResultType returns the precision of a computation combining the
// given arrays: Float32 if all of them are Float32, else Float64.
func ResultType(inputs ...Array) DType {
	if len(inputs) == 0 {
		return Float64
	}
	for _, a := range inputs {
		if a.DType() != Float32 {
			return Float64
		}
	}
	return Float32
}

// Map applies k elementwise to inputs and returns an array of precision
// dtype. Inputs with a single element are broadcast. If all inputs are
// Dense the result is computed immediately and is Dense. If any input is
// deferred the result is deferred, with the block layout of the first
// deferred input, and nothing is evaluated until the result is computed.
// Deferred inputs chunked differently are re-aligned to that layout.
//
// The result is masked wherever any input is masked, and also wherever
// the kernel returns NaN if any input carries a mask.
func Map(k Kernel, dtype DType, inputs ...Array) (Array, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("array: Map needs at least one input")
	}
	n := 1
	var shape []int
	for _, a := range inputs {
		if a.Len() != 1 {
			if n != 1 && a.Len() != n {
				return nil, fmt.Errorf("array: cannot combine arrays of shapes %v and %v", shape, a.Shape())
			}
			n = a.Len()
			if shape == nil {
				shape = a.Shape()
			}
		}
	}
	if shape == nil {
		shape = inputs[0].Shape()
	}

	// The output takes the block layout of the first deferred input.
	// Deferred inputs with other layouts are re-aligned block by block.
	var layout []Block
	aligned := make([]bool, len(inputs))
	for i, a := range inputs {
		b, ok := a.(Blocked)
		if !ok || a.Len() != n {
			continue
		}
		if layout == nil {
			layout = b.Blocks()
		}
		aligned[i] = sameLayout(layout, b.Blocks())
	}

	if layout == nil {
		ins := make([]*Dense, len(inputs))
		for i, a := range inputs {
			d, err := Compute(context.Background(), a)
			if err != nil {
				return nil, err
			}
			ins[i] = d
		}
		out := apply(k, dtype, ins, n)
		out.shape = copyShape(shape)
		return out, nil
	}

	blocks := make([]Block, len(layout))
	for bi, lb := range layout {
		bi, lb := bi, lb
		blocks[bi] = Block{
			Offset: lb.Offset,
			Len:    lb.Len,
			Eval: func(ctx context.Context) (*Dense, error) {
				ins := make([]*Dense, len(inputs))
				for i, a := range inputs {
					d, err := blockOf(ctx, a, aligned[i], bi, lb, n)
					if err != nil {
						return nil, err
					}
					ins[i] = d
				}
				return apply(k, dtype, ins, lb.Len), nil
			},
		}
	}
	return Lazy(shape, dtype, blocks), nil
}

func sameLayout(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Offset != b[i].Offset || a[i].Len != b[i].Len {
			return false
		}
	}
	return true
}

// blockOf returns the part of a aligned with block lb, the bi'th block of
// the output layout. aligned reports whether a deferred a shares that layout.
func blockOf(ctx context.Context, a Array, aligned bool, bi int, lb Block, n int) (*Dense, error) {
	if a.Len() == 1 && n != 1 {
		d, err := Compute(ctx, a)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	switch v := a.(type) {
	case *Dense:
		return v.slice(lb.Offset, lb.Len), nil
	case Blocked:
		if aligned {
			return v.Blocks()[bi].Eval(ctx)
		}
		return gather(ctx, v.Blocks(), a.DType(), lb.Offset, lb.Len)
	default:
		return nil, fmt.Errorf("array: unsupported array type %T", a)
	}
}

// gather assembles elements [off, off+n) from the blocks that overlap
// them, evaluating only those blocks.
func gather(ctx context.Context, blocks []Block, dtype DType, off, n int) (*Dense, error) {
	o := &Dense{Data: make([]float64, 0, n), shape: []int{n}, dtype: dtype}
	for _, b := range blocks {
		lo, hi := max(b.Offset, off), min(b.Offset+b.Len, off+n)
		if lo >= hi {
			continue
		}
		d, err := b.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if d.Mask != nil && o.Mask == nil {
			o.Mask = make([]bool, len(o.Data), n)
		}
		o.Data = append(o.Data, d.Data[lo-b.Offset:hi-b.Offset]...)
		if o.Mask == nil {
			continue
		}
		if d.Mask != nil {
			o.Mask = append(o.Mask, d.Mask[lo-b.Offset:hi-b.Offset]...)
		} else {
			o.Mask = append(o.Mask, make([]bool, hi-lo)...)
		}
	}
	if len(o.Data) != n {
		return nil, fmt.Errorf("array: blocks cover %d of elements [%d, %d)", len(o.Data), off, off+n)
	}
	return o, nil
}

func apply(k Kernel, dtype DType, ins []*Dense, n int) *Dense {
	in := make([][]float64, len(ins))
	var masked bool
	for i, d := range ins {
		d = d.broadcast(n)
		ins[i] = d
		in[i] = d.Data
		masked = masked || d.Mask != nil
	}
	out := &Dense{Data: make([]float64, n), shape: []int{n}, dtype: dtype}
	k(out.Data, in)
	if dtype == Float32 {
		for i, v := range out.Data {
			out.Data[i] = float64(float32(v))
		}
	}
	if masked {
		out.Mask = make([]bool, n)
		for _, d := range ins {
			if d.Mask == nil {
				continue
			}
			for i, m := range d.Mask {
				out.Mask[i] = out.Mask[i] || m
			}
		}
		for i, v := range out.Data {
			if math.IsNaN(v) {
				out.Mask[i] = true
			}
		}
	}
	return out
}

// Reshape returns a with a new shape holding the same number of elements.
func Reshape(a Array, shape ...int) (Array, error) {
	if shapeLen(shape) != a.Len() {
		return nil, fmt.Errorf("array: cannot reshape %v to %v", a.Shape(), shape)
	}
	switch v := a.(type) {
	case *Dense:
		o := *v
		o.shape = copyShape(shape)
		return &o, nil
	case Blocked:
		return Lazy(shape, v.DType(), v.Blocks()), nil
	default:
		return nil, fmt.Errorf("array: unsupported array type %T", a)
	}
}
