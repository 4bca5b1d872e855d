package arena

import (
	"fmt"
	"unsafe"
)

// Pool is a typed bump allocator.
//
// Elements are handed out from a list of blocks. When the current block is
// exhausted the pool moves to the next block that is large enough, allocating
// a new one (GrowthFactor times the previous size) only when none is left.
// Elements are never freed individually: Reset and Rewind zero everything that
// was handed out and move the cursor back, keeping the blocks for reuse.
type Pool[T any] struct {
	blocks [][]T
	cur    int // index of the block being filled
	pos    int // next free element in blocks[cur]
	next   int // size of the next block to allocate

	elemSize uintptr
	owner    *Arena
	index    int // position in owner.pools
}

// poolMark is the cursor of a pool at the time a Mark was taken.
type poolMark struct {
	cur int
	pos int
}

// resettable is the type-erased view of a Pool held by its Arena.
type resettable interface {
	reset()
	mark() poolMark
	rewind(m poolMark)
	stats() (blocks int, reserved, used uintptr)
}

func newPool[T any](owner *Arena) *Pool[T] {
	var zero T
	p := &Pool[T]{
		elemSize: unsafe.Sizeof(zero),
		owner:    owner,
		index:    len(owner.pools),
	}
	p.blocks = append(p.blocks, p.allocBlock(owner.cfg.InitialBlock))
	p.next = p.nextSize(owner.cfg.InitialBlock)
	return p
}

// Alloc returns a pointer to a zeroed element.
func (p *Pool[T]) Alloc() *T {
	if p.pos == len(p.blocks[p.cur]) {
		p.moveToNextBlock(1)
	}
	x := &p.blocks[p.cur][p.pos]
	p.pos++
	return x
}

// AllocSlice returns n contiguous zeroed elements.
// The returned slice has cap == len so appends never spill into the pool.
func (p *Pool[T]) AllocSlice(n int) []T {
	if n <= 0 {
		return nil
	}
	if len(p.blocks[p.cur])-p.pos < n {
		p.moveToNextBlock(n)
	}
	s := p.blocks[p.cur][p.pos : p.pos+n : p.pos+n]
	p.pos += n
	return s
}

// Len returns the number of element slots consumed since the last reset,
// including block tails skipped by contiguous requests.
func (p *Pool[T]) Len() int {
	n := p.pos
	for i := 0; i < p.cur; i++ {
		n += len(p.blocks[i])
	}
	return n
}

// each visits elements in allocation order starting at from. Block tails
// skipped by contiguous requests are visited too; they are always zero.
func (p *Pool[T]) each(from poolMark, f func(*T)) {
	for b := from.cur; b <= p.cur; b++ {
		start, end := 0, len(p.blocks[b])
		if b == from.cur {
			start = from.pos
		}
		if b == p.cur {
			end = p.pos
		}
		for i := start; i < end; i++ {
			f(&p.blocks[b][i])
		}
	}
}

// Each calls f on every element handed out since the last reset.
func (p *Pool[T]) Each(f func(*T)) {
	p.each(poolMark{}, f)
}

// EachSince calls f on every element handed out after m was taken.
func (p *Pool[T]) EachSince(m Mark, f func(*T)) {
	p.each(m.forPool(p.index), f)
}

func (p *Pool[T]) moveToNextBlock(n int) {
	p.cur++
	for p.cur < len(p.blocks) && len(p.blocks[p.cur]) < n {
		p.cur++
	}
	if p.cur == len(p.blocks) {
		size := max(p.next, n)
		p.blocks = append(p.blocks, p.allocBlock(size))
		p.next = p.nextSize(size)
	}
	p.pos = 0
}

func (p *Pool[T]) allocBlock(n int) []T {
	p.owner.reserve(uintptr(n) * p.elemSize)
	return make([]T, n)
}

func (p *Pool[T]) nextSize(size int) int {
	next := int(float64(size) * p.owner.cfg.GrowthFactor)
	if next <= size {
		next = size + 1
	}
	return next
}

func (p *Pool[T]) reset() {
	p.rewind(poolMark{})
}

func (p *Pool[T]) mark() poolMark {
	return poolMark{cur: p.cur, pos: p.pos}
}

func (p *Pool[T]) rewind(m poolMark) {
	if m.cur > p.cur || (m.cur == p.cur && m.pos > p.pos) {
		panic(fmt.Sprintf("arena: rewind to mark (%d,%d) ahead of cursor (%d,%d)", m.cur, m.pos, p.cur, p.pos))
	}
	for b := m.cur; b <= p.cur; b++ {
		start, end := 0, len(p.blocks[b])
		if b == m.cur {
			start = m.pos
		}
		if b == p.cur {
			end = p.pos
		}
		clear(p.blocks[b][start:end])
	}
	p.cur, p.pos = m.cur, m.pos
}

func (p *Pool[T]) stats() (blocks int, reserved, used uintptr) {
	for _, b := range p.blocks {
		reserved += uintptr(len(b)) * p.elemSize
	}
	return len(p.blocks), reserved, uintptr(p.Len()) * p.elemSize
}

// Owns reports whether x points at an element handed out by p since the last
// reset. Memory reused after a reset is indistinguishable from a fresh element.
func (p *Pool[T]) Owns(x *T) bool {
	if x == nil || p.elemSize == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(x))
	for b := 0; b <= p.cur; b++ {
		blk := p.blocks[b]
		if len(blk) == 0 {
			continue
		}
		base := uintptr(unsafe.Pointer(&blk[0]))
		end := base + uintptr(len(blk))*p.elemSize
		if addr < base || addr >= end {
			continue
		}
		if b < p.cur {
			return true
		}
		return (addr-base)/p.elemSize < uintptr(p.pos)
	}
	return false
}
