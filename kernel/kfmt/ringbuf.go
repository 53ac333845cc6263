package kfmt

import "io"

// ringBufferSize is large enough to hold a full 80x25 text screen. It must be
// a power of 2.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize bytes written to it. Once
// full, each write discards the oldest bytes.
type ringBuffer struct {
	buffer [ringBufferSize]byte

	// head is the index of the oldest byte; count is the number of
	// buffered bytes.
	head, count int
}

// Write appends p to the buffer, overwriting the oldest data if needed. It
// never fails.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[(rb.head+rb.count)&(ringBufferSize-1)] = b
		if rb.count == ringBufferSize {
			rb.head = (rb.head + 1) & (ringBufferSize - 1)
			continue
		}
		rb.count++
	}

	return len(p), nil
}

// Read drains up to len(p) bytes into p. It returns io.EOF once the buffer is
// empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.count == 0 {
		return 0, io.EOF
	}

	n := 0
	for ; n < len(p) && rb.count > 0; n++ {
		p[n] = rb.buffer[rb.head]
		rb.head = (rb.head + 1) & (ringBufferSize - 1)
		rb.count--
	}

	return n, nil
}
