package hci

import (
	"io"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSocketCloseTwice(t *testing.T) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[1])
	s := &Socket{fd: fds[0], path: "pipe", closed: make(chan struct{})}

	// A pipe has no power control, so the first close reports it.
	if err := s.Close(); err == nil {
		t.Error("Close on a non-controller fd did not report the power-off failure")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if _, err := s.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Read after Close = %v, want %v", err, io.EOF)
	}
}
