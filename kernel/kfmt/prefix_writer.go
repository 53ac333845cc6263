package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to. A nil Sink sends output to
	// the same place as Printf.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	midLine bool
}

// Write writes p to the sink, emitting the prefix before the first byte of
// every line. The injected prefix is not included in the returned count.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written, lineStart int

	for i := 0; i < len(p); i++ {
		if !w.midLine {
			doWrite(w.Sink, w.Prefix)
			w.midLine = true
		}

		if p[i] != '\n' {
			continue
		}

		n, err := w.write(p[lineStart : i+1])
		written += n
		if err != nil {
			return written, err
		}
		w.midLine = false
		lineStart = i + 1
	}

	if lineStart < len(p) {
		n, err := w.write(p[lineStart:])
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func (w *PrefixWriter) write(p []byte) (int, error) {
	if w.Sink == nil {
		return earlyPrintBuffer.Write(p)
	}
	return w.Sink.Write(p)
}
