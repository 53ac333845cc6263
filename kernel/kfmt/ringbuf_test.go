package kfmt

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	expStr := "the big brown fox jumped over the lazy dog"

	t.Run("read/write", func(t *testing.T) {
		var rb ringBuffer
		n, err := rb.Write([]byte(expStr))
		if err != nil {
			t.Fatal(err)
		}

		if n != len(expStr) {
			t.Fatalf("expected to write %d bytes; wrote %d", len(expStr), n)
		}

		if got := readByteByByte(&rb); got != expStr {
			t.Fatalf("expected to read %q; got %q", expStr, got)
		}

		if _, err = rb.Read(make([]byte, 1)); err != io.EOF {
			t.Fatalf("expected io.EOF after draining the buffer; got %v", err)
		}
	})

	t.Run("wrap around", func(t *testing.T) {
		var rb ringBuffer
		rb.head = ringBufferSize - 2

		if _, err := rb.Write([]byte(expStr)); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, &rb); err != nil {
			t.Fatal(err)
		}

		if got := buf.String(); got != expStr {
			t.Fatalf("expected to read %q; got %q", expStr, got)
		}
	})

	t.Run("overflow keeps most recent data", func(t *testing.T) {
		var rb ringBuffer
		input := strings.Repeat("a", ringBufferSize) + expStr

		if _, err := rb.Write([]byte(input)); err != nil {
			t.Fatal(err)
		}

		if rb.count != ringBufferSize {
			t.Fatalf("expected buffer to be full (%d bytes); got %d", ringBufferSize, rb.count)
		}

		got := readByteByByte(&rb)
		if exp := input[len(input)-ringBufferSize:]; got != exp {
			t.Fatalf("expected to read the last %d bytes written", ringBufferSize)
		}
	})
}

func readByteByByte(r io.Reader) string {
	var (
		buf bytes.Buffer
		b   = make([]byte, 1)
	)
	for {
		if _, err := r.Read(b); err == io.EOF {
			break
		}

		buf.Write(b)
	}
	return buf.String()
}
