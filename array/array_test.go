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
	"math"
	"sync/atomic"
	"testing"
)

func add(out []float64, in [][]float64) {
	for i := range out {
		out[i] = in[0][i] + in[1][i]
	}
}

func TestMapDense(t *testing.T) {
	a := New([]float64{1, 2, 3, 4}, 2, 2)
	b := Scalar(10)
	r, err := Map(add, ResultType(a, b), a, b)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := r.(*Dense)
	if !ok {
		t.Fatalf("result is %T, want *Dense", r)
	}
	want := []float64{11, 12, 13, 14}
	for i, v := range d.Data {
		if v != want[i] {
			t.Errorf("element %d: have %g, want %g", i, v, want[i])
		}
	}
	if s := d.Shape(); len(s) != 2 || s[0] != 2 || s[1] != 2 {
		t.Errorf("shape: have %v, want [2 2]", s)
	}
}

func TestMapShapeMismatch(t *testing.T) {
	_, err := Map(add, Float64, New([]float64{1, 2}), New([]float64{1, 2, 3}))
	if err == nil {
		t.Error("expected an error combining arrays of different lengths")
	}
}

func TestMapFloat32(t *testing.T) {
	a := FromFloat32([]float32{0.1, 0.2})
	r, err := Map(func(out []float64, in [][]float64) {
		for i := range out {
			out[i] = in[0][i] / 3
		}
	}, ResultType(a), a)
	if err != nil {
		t.Fatal(err)
	}
	if r.DType() != Float32 {
		t.Fatalf("dtype: have %v, want float32", r.DType())
	}
	d := r.(*Dense)
	for i, v := range d.Data {
		if v != float64(float32(v)) {
			t.Errorf("element %d (%v) is not representable as float32", i, v)
		}
	}
}

// countingArray returns a deferred array whose blocks count evaluations.
func countingArray(data []float64, size int, count *int32) *Chunked {
	src := Chunk(New(data), size)
	blocks := src.Blocks()
	counted := make([]Block, len(blocks))
	for i, b := range blocks {
		b := b
		counted[i] = Block{Offset: b.Offset, Len: b.Len, Eval: func(ctx context.Context) (*Dense, error) {
			atomic.AddInt32(count, 1)
			return b.Eval(ctx)
		}}
	}
	return Lazy(src.Shape(), Float64, counted)
}

func TestMapDeferred(t *testing.T) {
	var count int32
	a := countingArray([]float64{1, 2, 3, 4, 5}, 2, &count)
	r, err := Map(add, Float64, a, New([]float64{1, 1, 1, 1, 1}))
	if err != nil {
		t.Fatal(err)
	}
	if !IsChunked(r) {
		t.Fatalf("result is %T, want a deferred array", r)
	}
	if count != 0 {
		t.Fatalf("Map evaluated %d blocks", count)
	}
	if n := len(r.(Blocked).Blocks()); n != 3 {
		t.Errorf("blocks: have %d, want 3", n)
	}
	d, err := Compute(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("Compute evaluated %d blocks, want 3", count)
	}
	for i, v := range d.Data {
		if v != float64(i+2) {
			t.Errorf("element %d: have %g, want %d", i, v, i+2)
		}
	}
}

func TestMapLayoutMismatch(t *testing.T) {
	var count int32
	a := Chunk(New([]float64{1, 2, 3, 4, 5, 6, 7}), 2)
	b := countingArray([]float64{10, 20, 30, 40, 50, 60, 70}, 3, &count)
	r, err := Map(add, Float64, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !IsChunked(r) {
		t.Fatalf("result is %T, want a deferred array", r)
	}
	if count != 0 {
		t.Fatalf("Map evaluated %d blocks", count)
	}
	if n := len(r.(Blocked).Blocks()); n != 4 {
		t.Errorf("blocks: have %d, want the 4 blocks of the first input", n)
	}
	d, err := Compute(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range d.Data {
		if want := float64(11 * (i + 1)); v != want {
			t.Errorf("element %d: have %g, want %g", i, v, want)
		}
	}
}

func TestMapLayoutMismatchMask(t *testing.T) {
	m := New([]float64{1, 2, 3, 4, 5}).WithMask([]bool{false, false, false, true, false})
	a := Chunk(New([]float64{1, 1, 1, 1, 1}), 2)
	r, err := Map(add, Float64, a, Chunk(m, 3))
	if err != nil {
		t.Fatal(err)
	}
	d, err := Compute(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []bool{false, false, false, true, false} {
		if d.Valid(i) == want {
			t.Errorf("element %d: masked %v, want %v", i, !d.Valid(i), want)
		}
	}
	if d.Data[4] != 6 {
		t.Errorf("last element: have %g, want 6", d.Data[4])
	}
}

func TestZerosLike(t *testing.T) {
	var count int32
	a := countingArray([]float64{1, 2, 3}, 2, &count)
	z := ZerosLike(a)
	if !IsChunked(z) {
		t.Fatalf("ZerosLike of a deferred array is %T", z)
	}
	d, err := Compute(context.Background(), z)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("ZerosLike evaluated its input %d times", count)
	}
	for i, v := range d.Data {
		if v != 0 {
			t.Errorf("element %d: have %g, want 0", i, v)
		}
	}

	e := ZerosLike(FromFloat32([]float32{1, 2}))
	if IsChunked(e) || e.DType() != Float32 || e.Len() != 2 {
		t.Errorf("ZerosLike of a dense float32 array: %T %v %d", e, e.DType(), e.Len())
	}
}

func TestMask(t *testing.T) {
	a := New([]float64{1, 2, 3}).WithMask([]bool{false, true, false})
	r, err := Map(func(out []float64, in [][]float64) {
		for i := range out {
			out[i] = in[0][i]
			if in[0][i] == 3 {
				out[i] = math.NaN()
			}
		}
	}, Float64, a)
	if err != nil {
		t.Fatal(err)
	}
	d := r.(*Dense)
	want := []bool{false, true, true}
	for i, m := range d.Mask {
		if m != want[i] {
			t.Errorf("mask %d: have %v, want %v", i, m, want[i])
		}
	}
	if d.Valid(0) != true || d.Valid(1) != false {
		t.Error("Valid does not follow the mask")
	}
}

func TestReshape(t *testing.T) {
	r, err := Reshape(Chunk(New(make([]float64, 6)), 4), 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if s := r.Shape(); s[0] != 2 || s[1] != 3 {
		t.Errorf("shape: have %v", s)
	}
	if _, err := Reshape(New(make([]float64, 6)), 4); err == nil {
		t.Error("expected an error reshaping to a different size")
	}
}
