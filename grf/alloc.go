package grf

import "sort"

// chunk is a half-open byte range [offset, offset+length) of unused space.
// The trailing chunk represents the open-ended tail of the file and has
// tail set instead of a finite length.
type chunk struct {
	offset uint64
	length uint64
	tail   bool
}

func (c chunk) end() uint64 {
	return c.offset + c.length
}

// freeList is a free-space allocator: a sorted, non-overlapping sequence of
// chunks, adjacent finite chunks coalesced, always ending in one open-ended
// tail chunk (which finite chunks are never merged into). It is the
// leaf dependency of the Entry Index and Payload Writer: first-fit, no
// splitting thresholds, no defragmentation, matching the format's
// append-heavy, occasional-overwrite workload.
type freeList struct {
	chunks []chunk // sorted by offset; chunks[len-1].tail is always true
}

// newFreeList creates an allocator whose entire span [start, +inf) is free.
func newFreeList(start uint64) *freeList {
	return &freeList{chunks: []chunk{{offset: start, tail: true}}}
}

// alloc finds the leftmost chunk with capacity >= n and returns its start
// offset, shrinking (or removing) that chunk. The trailing tail chunk can
// always grow to satisfy an allocation, so this only fails if the chunk
// list was left in an invalid state by a prior allocator error.
func (f *freeList) alloc(n uint64) (uint64, error) {
	for i := range f.chunks {
		c := &f.chunks[i]
		if c.tail {
			off := c.offset
			c.offset += n
			return off, nil
		}
		if c.length >= n {
			off := c.offset
			c.offset += n
			c.length -= n
			if c.length == 0 {
				f.chunks = append(f.chunks[:i], f.chunks[i+1:]...)
			}
			return off, nil
		}
	}
	return 0, ErrAllocator
}

// free returns [offset, offset+n) to the pool, coalescing with an
// immediately-adjacent predecessor and/or successor chunk. It is an error
// for the freed range to overlap an existing free chunk (including the
// open tail, which already represents free space). A freed range that ends
// exactly where the open tail begins is kept as its own finite chunk; it is
// not merged into the tail.
func (f *freeList) free(offset, n uint64) error {
	if n == 0 {
		return nil
	}
	end := offset + n

	idx := sort.Search(len(f.chunks), func(i int) bool {
		return f.chunks[i].offset >= offset
	})

	if idx > 0 {
		prev := f.chunks[idx-1]
		if prev.tail || prev.end() > offset {
			return ErrAllocator
		}
	}
	if idx < len(f.chunks) && f.chunks[idx].offset < end {
		return ErrAllocator
	}

	mergeLeft := idx > 0 && !f.chunks[idx-1].tail && f.chunks[idx-1].end() == offset
	mergeRight := idx < len(f.chunks) && !f.chunks[idx].tail && f.chunks[idx].offset == end

	switch {
	case mergeLeft && mergeRight:
		f.chunks[idx-1].length += n + f.chunks[idx].length
		f.chunks = append(f.chunks[:idx], f.chunks[idx+1:]...)
	case mergeLeft:
		f.chunks[idx-1].length += n
	case mergeRight:
		f.chunks[idx].offset = offset
		f.chunks[idx].length += n
	default:
		f.chunks = append(f.chunks, chunk{})
		copy(f.chunks[idx+1:], f.chunks[idx:])
		f.chunks[idx] = chunk{offset: offset, length: n}
	}
	return nil
}

// realloc resizes the allocation at [oldOffset, oldOffset+oldSize) to
// newSize, preferring to keep oldOffset stable. Shrinking always keeps the
// offset. Growing tries an in-place extension into an immediately
// following free chunk before falling back to free-then-alloc, which is a
// permitted form of fragmentation (no compaction is performed).
func (f *freeList) realloc(oldOffset, oldSize, newSize uint64) (uint64, error) {
	if newSize <= oldSize {
		if freed := oldSize - newSize; freed > 0 {
			if err := f.free(oldOffset+newSize, freed); err != nil {
				return 0, err
			}
		}
		return oldOffset, nil
	}

	grow := newSize - oldSize
	end := oldOffset + oldSize
	for i := range f.chunks {
		c := &f.chunks[i]
		if c.offset != end {
			continue
		}
		if c.tail {
			c.offset += grow
			return oldOffset, nil
		}
		if c.length >= grow {
			c.offset += grow
			c.length -= grow
			if c.length == 0 {
				f.chunks = append(f.chunks[:i], f.chunks[i+1:]...)
			}
			return oldOffset, nil
		}
		break
	}

	if err := f.free(oldOffset, oldSize); err != nil {
		return 0, err
	}
	return f.alloc(newSize)
}
