package bundle

import "sync"

// exportOutputLimit bounds how much build tool output is kept for error
// messages.
const exportOutputLimit = 16 * 1024

// tailBuffer keeps the last size bytes written to it.
type tailBuffer struct {
	mu   sync.Mutex
	buf  []byte
	pos  int
	full bool
}

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{buf: make([]byte, size)}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, size := len(p), len(t.buf)
	if n == 0 {
		return 0, nil
	}
	if n >= size {
		copy(t.buf, p[n-size:])
		t.pos, t.full = 0, true
		return n, nil
	}
	written := copy(t.buf[t.pos:], p)
	if written < n {
		copy(t.buf, p[written:])
		t.full = true
	}
	t.pos = (t.pos + n) % size
	if t.pos == 0 {
		t.full = true
	}
	return n, nil
}

// String returns the retained output, oldest byte first.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return string(t.buf[:t.pos])
	}
	out := make([]byte, 0, len(t.buf))
	out = append(out, t.buf[t.pos:]...)
	out = append(out, t.buf[:t.pos]...)
	return string(out)
}
