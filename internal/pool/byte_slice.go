// Package pool holds sync.Pool backed buffers shared by the parser.
package pool

import "sync"

const defaultByteSliceCapacity = 64

type ByteSlicePool struct {
	pool sync.Pool
}

var byteSlicePool = &ByteSlicePool{
	pool: sync.Pool{
		New: func() any {
			b := make([]byte, 0, defaultByteSliceCapacity)
			return &b
		},
	},
}

// ByteSlice returns the shared byte slice pool.
func ByteSlice() *ByteSlicePool {
	return byteSlicePool
}

// Get returns an empty slice with at least the default capacity.
func (p *ByteSlicePool) Get() []byte {
	return p.GetCapacity(defaultByteSliceCapacity)
}

// GetCapacity returns an empty slice with at least n bytes of capacity.
func (p *ByteSlicePool) GetCapacity(n int) []byte {
	bp := p.pool.Get().(*[]byte)
	b := (*bp)[:0]
	if cap(b) < n {
		b = make([]byte, 0, n)
	}
	return b
}

func (p *ByteSlicePool) Put(b []byte) {
	// Oversized buffers are left to the garbage collector.
	if cap(b) > 64*1024 {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}
