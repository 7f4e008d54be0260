package transport

import (
	"bytes"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)
	if err := w.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.WriteFrame([]byte("world")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewFrameReader(&buf)
	first, err := r.ReadFrame()
	if err != nil || string(first) != "hello" {
		t.Fatalf("expected hello, got %q err=%v", first, err)
	}
	second, err := r.ReadFrame()
	if err != nil || string(second) != "world" {
		t.Fatalf("expected world, got %q err=%v", second, err)
	}
	if _, err := r.ReadFrame(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestWriteFrameRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)
	if err := w.WriteFrame(nil); err != ErrMessageEmpty {
		t.Fatalf("expected ErrMessageEmpty, got %v", err)
	}
}

func TestReadFrameDetectsTruncation(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)
	if err := w.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	truncated := buf.Bytes()[:LengthPrefixSize+2]

	r := NewFrameReader(bytes.NewReader(truncated))
	if _, err := r.ReadFrame(); err != ErrFrameTruncated {
		t.Fatalf("expected ErrFrameTruncated, got %v", err)
	}
}

func TestWriteFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)
	big := make([]byte, DefaultMaxMessageSize+1)
	if err := w.WriteFrame(big); err == nil {
		t.Fatal("expected error for oversized frame")
	}
}
