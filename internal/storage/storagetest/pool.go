package storagetest

import "fmt"

// Pool is a counting buffer pool that journals releases into its Library.
type Pool struct {
	lib *Library
}

// Pool returns a buffer pool bound to l.
func (l *Library) Pool() *Pool {
	return &Pool{lib: l}
}

// Get hands out a fresh buffer of n bytes unless OpBufferGet is failing.
func (p *Pool) Get(n int) ([]byte, error) {
	p.lib.mu.Lock()
	defer p.lib.mu.Unlock()

	if err := p.lib.enter(OpBufferGet); err != nil {
		return nil, fmt.Errorf("allocate %d bytes: %w", n, err)
	}

	p.lib.acquire(KindBuffer)

	return make([]byte, n), nil
}

// Put releases a buffer obtained from Get.
func (p *Pool) Put(_ []byte) {
	closed := false
	_ = p.lib.release(KindBuffer, &closed)
}
