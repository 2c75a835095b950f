package buffer

import (
	"bytes"
	"testing"
)

func TestBufferCursors(t *testing.T) {
	b := New(8)
	n := copy(b.Writable(), "abcdef")
	b.Advance(n)
	if b.Len() != 6 || b.Available() != 2 {
		t.Fatalf("Len=%d Available=%d", b.Len(), b.Available())
	}
	b.Consume(4)
	if !bytes.Equal(b.Bytes(), []byte("ef")) {
		t.Fatalf("Bytes() = %q", b.Bytes())
	}
	b.Settle()
	if b.Available() != 6 || !bytes.Equal(b.Bytes(), []byte("ef")) {
		t.Fatalf("after Settle: Available=%d Bytes=%q", b.Available(), b.Bytes())
	}
	b.Consume(2)
	b.Settle()
	if b.Len() != 0 || b.Available() != 8 {
		t.Fatalf("exhausted buffer not reset: Len=%d Available=%d", b.Len(), b.Available())
	}
}

func TestBufferWriteShort(t *testing.T) {
	b := New(4)
	n, err := b.Write([]byte("hello"))
	if err != nil || n != 4 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	p := make([]byte, 2)
	if n, _ := b.Read(p); n != 2 || string(p) != "he" {
		t.Fatalf("Read = %d %q", n, p)
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d", b.Len())
	}
}

func TestBufferWrap(t *testing.T) {
	b := Wrap([]byte("xyz"))
	if b.Len() != 3 || b.Available() != 0 || b.Cap() != 3 {
		t.Fatalf("Wrap: Len=%d Available=%d Cap=%d", b.Len(), b.Available(), b.Cap())
	}
}

func TestBufferAdvancePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Advance beyond capacity should panic")
		}
	}()
	New(2).Advance(3)
}
