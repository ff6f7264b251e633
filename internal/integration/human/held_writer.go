package human

import (
	"bytes"
	"io"
	"sync"
)

// heldWriter passes writes through to w, except while held: then they are
// buffered and written out on the final release. Safe for concurrent use.
type heldWriter struct {
	mu   sync.Mutex
	w    io.Writer
	held int
	buf  bytes.Buffer
}

func (h *heldWriter) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held > 0 {
		return h.buf.Write(p)
	}
	return h.w.Write(p)
}

func (h *heldWriter) hold() {
	h.mu.Lock()
	h.held++
	h.mu.Unlock()
}

func (h *heldWriter) release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held > 0 {
		h.held--
	}
	if h.held > 0 || h.buf.Len() == 0 {
		return nil
	}
	_, err := h.buf.WriteTo(h.w)
	return err
}
