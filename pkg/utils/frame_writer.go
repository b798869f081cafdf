package utils

import (
	"bytes"
	"io"
	"sync"
)

// clearScreen moves the cursor home and erases the display.
const clearScreen = "\033[H\033[2J"

// FrameWriter collects one screen of output and replaces the terminal
// contents with it in a single write, so redraws do not flicker.
// Safe for concurrent use.
type FrameWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends data to the pending frame.
func (f *FrameWriter) Write(p []byte) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Write(p)
}

// Flush clears the screen on w, writes the pending frame and starts a new
// one. An empty frame still clears the screen.
func (f *FrameWriter) Flush(w io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]byte, 0, len(clearScreen)+f.buf.Len())
	out = append(out, clearScreen...)
	out = append(out, f.buf.Bytes()...)
	f.buf.Reset()

	_, err := w.Write(out)
	return err
}

// Discard drops the pending frame.
func (f *FrameWriter) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf.Reset()
}
