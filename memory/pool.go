// Package memory provides pooled buffers for the canonical encoders.
//
// Canonical encoding runs on every transaction signature check and every
// value hash, so the encoders draw scratch buffers from shared pools
// instead of allocating per call.
package memory

import (
	"bytes"
	"sync"
)

// Default pool sizes.
const (
	// SmallBufferSize is the default size for small buffers (4KB). Value
	// encodings and transaction encodings almost always fit here.
	SmallBufferSize = 4 * 1024

	// MediumBufferSize is the default size for medium buffers (64KB).
	// Block encodings typically fit here.
	MediumBufferSize = 64 * 1024

	// LargeBufferSize is the default size for large buffers (1MB).
	LargeBufferSize = 1024 * 1024
)

// BufferPool manages a pool of reusable byte buffers.
type BufferPool struct {
	pool        sync.Pool
	defaultSize int
}

// NewBufferPool creates a new buffer pool with the specified default size.
func NewBufferPool(defaultSize int) *BufferPool {
	if defaultSize <= 0 {
		defaultSize = SmallBufferSize
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, defaultSize))
			},
		},
		defaultSize: defaultSize,
	}
}

// Get returns a buffer from the pool.
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put returns a buffer to the pool after resetting it.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()
	// Only return to pool if it hasn't grown too large
	if buf.Cap() <= p.defaultSize*4 {
		p.pool.Put(buf)
	}
}

// Global pools for the encoders.
var (
	// SmallBufferPool is a global pool for small buffers (4KB).
	SmallBufferPool = NewBufferPool(SmallBufferSize)

	// MediumBufferPool is a global pool for medium buffers (64KB).
	MediumBufferPool = NewBufferPool(MediumBufferSize)

	// LargeBufferPool is a global pool for large buffers (1MB).
	LargeBufferPool = NewBufferPool(LargeBufferSize)
)

// GetBuffer returns a buffer from the appropriate pool based on size hint.
func GetBuffer(sizeHint int) *bytes.Buffer {
	if sizeHint <= SmallBufferSize {
		return SmallBufferPool.Get()
	}
	if sizeHint <= MediumBufferSize {
		return MediumBufferPool.Get()
	}
	return LargeBufferPool.Get()
}

// PutBuffer returns a buffer to the appropriate pool.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	cap := buf.Cap()
	if cap <= SmallBufferSize*4 {
		SmallBufferPool.Put(buf)
	} else if cap <= MediumBufferSize*4 {
		MediumBufferPool.Put(buf)
	} else {
		LargeBufferPool.Put(buf)
	}
}
