package probe

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// DefaultMaxStringSize caps the read buffer for a stored string.
const DefaultMaxStringSize = 1 << 20

// minClassShift is the smallest pooled buffer, 64 bytes.
const minClassShift = 6

// errTooLarge is returned when a buffer above the pool limit is requested.
var errTooLarge = errors.New("requested buffer exceeds limit")

// BufferPool hands out read buffers.
type BufferPool interface {
	// Get returns a zeroed buffer of exactly n bytes.
	Get(n int) ([]byte, error)
	// Put returns a buffer obtained from Get.
	Put(buf []byte)
}

// sizeClassPool keeps one sync.Pool per power-of-two size class.
type sizeClassPool struct {
	// limit is the largest buffer Get will hand out.
	limit int
	// classes holds pools for 64 B up to the class covering limit.
	classes []sync.Pool
}

// newSizeClassPool creates a pool for buffers up to limit bytes.
func newSizeClassPool(limit int) *sizeClassPool {
	if limit <= 0 {
		limit = DefaultMaxStringSize
	}

	n := classOf(limit) + 1

	return &sizeClassPool{
		limit:   limit,
		classes: make([]sync.Pool, n),
	}
}

// classOf returns the size-class index for n bytes.
func classOf(n int) int {
	if n <= 1<<minClassShift {
		return 0
	}

	return bits.Len(uint(n-1)) - minClassShift
}

func (p *sizeClassPool) Get(n int) ([]byte, error) {
	if n <= 0 || n > p.limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", errTooLarge, n, p.limit)
	}

	class := classOf(n)

	if v, ok := p.classes[class].Get().(*[]byte); ok {
		buf := (*v)[:n]
		clear(buf)

		return buf, nil
	}

	return make([]byte, n, 1<<(class+minClassShift)), nil
}

func (p *sizeClassPool) Put(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}

	class := classOf(c)
	if class >= len(p.classes) || c != 1<<(class+minClassShift) {
		return
	}

	buf = buf[:0]
	p.classes[class].Put(&buf)
}
