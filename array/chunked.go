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
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Chunked is a deferred array made of blocks. Creating a Chunked array or
// deriving one from another with Map does not evaluate any block.
type Chunked struct {
	shape  []int
	dtype  DType
	blocks []Block
}

// Lazy returns a deferred array with the given shape, precision and blocks.
// The blocks must cover the flat elements of the array in order.
func Lazy(shape []int, dtype DType, blocks []Block) *Chunked {
	off := 0
	for i, b := range blocks {
		if b.Offset != off {
			panic(fmt.Errorf("array: block %d starts at %d, want %d", i, b.Offset, off))
		}
		off += b.Len
	}
	if off != shapeLen(shape) {
		panic(fmt.Errorf("array: blocks cover %d elements but shape %v has %d", off, shape, shapeLen(shape)))
	}
	return &Chunked{shape: copyShape(shape), dtype: dtype, blocks: blocks}
}

// Chunk returns a deferred view of a split into blocks of at most size
// elements.
func Chunk(a *Dense, size int) *Chunked {
	if size < 1 {
		size = 1
	}
	var blocks []Block
	for off := 0; off < a.Len(); off += size {
		n := size
		if off+n > a.Len() {
			n = a.Len() - off
		}
		off, n := off, n
		blocks = append(blocks, Block{
			Offset: off,
			Len:    n,
			Eval: func(context.Context) (*Dense, error) {
				return a.slice(off, n), nil
			},
		})
	}
	return Lazy(a.shape, a.dtype, blocks)
}

// Shape implements Array.
func (c *Chunked) Shape() []int { return copyShape(c.shape) }

// Len implements Array.
func (c *Chunked) Len() int { return shapeLen(c.shape) }

// DType implements Array.
func (c *Chunked) DType() DType { return c.dtype }

// Blocks implements Blocked.
func (c *Chunked) Blocks() []Block { return c.blocks }

// Compute evaluates all blocks, at most GOMAXPROCS at a time, and
// assembles the result.
func (c *Chunked) Compute(ctx context.Context) (*Dense, error) {
	out := &Dense{Data: make([]float64, c.Len()), shape: copyShape(c.shape), dtype: c.dtype}
	results := make([]*Dense, len(c.blocks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(-1))
	for i, b := range c.blocks {
		i, b := i, b
		g.Go(func() error {
			d, err := b.Eval(ctx)
			if err != nil {
				return err
			}
			if d.Len() != b.Len {
				return fmt.Errorf("array: block at offset %d returned %d elements, want %d", b.Offset, d.Len(), b.Len)
			}
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, b := range c.blocks {
		d := results[i]
		for j, v := range d.Data {
			out.Data[b.Offset+j] = c.dtype.Round(v)
		}
		if d.Mask != nil {
			if out.Mask == nil {
				out.Mask = make([]bool, out.Len())
			}
			copy(out.Mask[b.Offset:], d.Mask)
		}
	}
	return out, nil
}

// ZerosLike returns an array of zeros with the shape, precision and kind
// of a. If a is deferred the result is deferred as well, and evaluating it
// does not evaluate a.
func ZerosLike(a Array) Array {
	b, ok := a.(Blocked)
	if !ok {
		return Full(0, a.DType(), a.Shape()...)
	}
	src := b.Blocks()
	blocks := make([]Block, len(src))
	dtype := a.DType()
	for i, blk := range src {
		n := blk.Len
		blocks[i] = Block{
			Offset: blk.Offset,
			Len:    n,
			Eval: func(context.Context) (*Dense, error) {
				return Full(0, dtype, n), nil
			},
		}
	}
	return Lazy(a.Shape(), dtype, blocks)
}
