package gather

import "sync"

// tapeWriter accumulates variable-length cell payloads from concurrently
// running column goroutines into one shared buffer (spec §4.3: "all
// columns share a single tape to minimize allocations"). Growth is
// amortized via append's own geometric doubling.
type tapeWriter struct {
	mu  sync.Mutex
	buf []byte
}

func (t *tapeWriter) append(b []byte) (offset uint32, length uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	offset = uint32(len(t.buf))
	t.buf = append(t.buf, b...)
	return offset, uint32(len(b))
}
