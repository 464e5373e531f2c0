package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferPool_Basic(t *testing.T) {
	pool := NewBufferPool(1024)

	buf := pool.Get()
	require.NotNil(t, buf)
	require.Equal(t, 0, buf.Len())
	require.GreaterOrEqual(t, buf.Cap(), 1024)

	buf.WriteString("canonical bytes")
	require.Equal(t, 15, buf.Len())

	pool.Put(buf)

	buf2 := pool.Get()
	require.NotNil(t, buf2)
	require.Equal(t, 0, buf2.Len()) // Should be reset
}

func TestBufferPool_NilPut(t *testing.T) {
	pool := NewBufferPool(1024)
	pool.Put(nil) // Should not panic
}

func TestBufferPool_DefaultSize(t *testing.T) {
	pool := NewBufferPool(0)
	buf := pool.Get()
	require.GreaterOrEqual(t, buf.Cap(), SmallBufferSize)
}

func TestBufferPool_OversizedNotPooled(t *testing.T) {
	pool := NewBufferPool(64)
	buf := pool.Get()
	buf.Write(make([]byte, 64*8))
	pool.Put(buf) // Grown past the cap; silently dropped
}

func TestGetBuffer_SizeHints(t *testing.T) {
	small := GetBuffer(100)
	require.GreaterOrEqual(t, small.Cap(), 100)
	PutBuffer(small)

	medium := GetBuffer(SmallBufferSize + 1)
	require.GreaterOrEqual(t, medium.Cap(), SmallBufferSize+1)
	PutBuffer(medium)

	large := GetBuffer(MediumBufferSize + 1)
	require.GreaterOrEqual(t, large.Cap(), MediumBufferSize+1)
	PutBuffer(large)
}

func TestBufferPool_Concurrent(t *testing.T) {
	pool := NewBufferPool(256)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := pool.Get()
				buf.WriteString("x")
				pool.Put(buf)
			}
		}()
	}
	wg.Wait()
}

func TestPutBuffer_Nil(t *testing.T) {
	PutBuffer(nil) // Should not panic
}
