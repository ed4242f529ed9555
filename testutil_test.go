package bytestore

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func must2[T1, T2 any](v1 T1, v2 T2, err error) (T1, T2) {
	if err != nil {
		panic(err)
	}
	return v1, v2
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

type logWriter struct{ t testing.TB }

func (c *logWriter) Write(buf []byte) (int, error) {
	msg := string(buf)
	origLen := len(msg)
	msg = strings.TrimSuffix(msg, "\n")
	c.t.Log(msg)
	return origLen, nil
}

func testLogger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
	}))
}

// readAll returns a copy of the whole content of b.
func readAll(t testing.TB, b Backend) []byte {
	t.Helper()
	data, err := b.Read(0, b.Len())
	if err != nil {
		t.Fatalf("Read(0, %d) failed: %v", b.Len(), err)
	}
	return append([]byte(nil), data...)
}

// faultyBackend fails Resize past maxLen (when set) and every Read once
// readErr is set.
type faultyBackend struct {
	Backend
	maxLen  int
	readErr error
}

func (b *faultyBackend) Resize(n int) error {
	if b.maxLen > 0 && n > b.maxLen {
		return fmt.Errorf("%w: %d bytes requested, limit is %d", ErrAllocationFailed, n, b.maxLen)
	}
	return b.Backend.Resize(n)
}

func (b *faultyBackend) Read(off, n int) ([]byte, error) {
	if b.readErr != nil {
		return nil, b.readErr
	}
	return b.Backend.Read(off, n)
}
