// File: core/buffer/buffer.go
// Package buffer implements the fixed-capacity byte buffers exchanged between
// the reactor, the transports and application sockets.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

// Buffer is a fixed-capacity byte region with a read cursor and a write cursor.
// Bytes between the cursors are readable; bytes after the write cursor are
// writable. Buffers are not safe for concurrent use; the reactor hands a given
// buffer to at most one goroutine at a time.
type Buffer struct {
	buf []byte
	r   int
	w   int
}

// New allocates a buffer with the given capacity.
func New(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, capacity)}
}

// Wrap returns a buffer over p whose contents are all readable.
func Wrap(p []byte) *Buffer {
	return &Buffer{buf: p, w: len(p)}
}

// Bytes returns the readable region. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.buf[b.r:b.w] }

// Writable returns the free region after the write cursor.
func (b *Buffer) Writable() []byte { return b.buf[b.w:] }

// Len returns the number of readable bytes.
func (b *Buffer) Len() int { return b.w - b.r }

// Available returns the number of bytes that can still be written.
func (b *Buffer) Available() int { return len(b.buf) - b.w }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Advance marks n bytes after the write cursor as written.
func (b *Buffer) Advance(n int) {
	if n < 0 || b.w+n > len(b.buf) {
		panic("buffer: advance out of range")
	}
	b.w += n
}

// Consume marks n readable bytes as read.
func (b *Buffer) Consume(n int) {
	if n < 0 || b.r+n > b.w {
		panic("buffer: consume out of range")
	}
	b.r += n
}

// Compact moves the readable bytes to the front of the buffer.
func (b *Buffer) Compact() {
	if b.r == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.r:b.w])
	b.r, b.w = 0, n
}

// Reset discards all content.
func (b *Buffer) Reset() {
	b.r, b.w = 0, 0
}

// Settle resets an exhausted buffer and compacts a partially consumed one.
func (b *Buffer) Settle() {
	if b.r == b.w {
		b.Reset()
	} else {
		b.Compact()
	}
}

// Write copies as much of p as fits and returns the number of bytes copied.
// It never returns an error; a short count means the buffer is full.
func (b *Buffer) Write(p []byte) (int, error) {
	n := copy(b.buf[b.w:], p)
	b.w += n
	return n, nil
}

// Read copies readable bytes into p and consumes them.
func (b *Buffer) Read(p []byte) (int, error) {
	n := copy(p, b.buf[b.r:b.w])
	b.r += n
	return n, nil
}
