package gateways

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

// fileChecksum returns the hex SHA-256 of a file on disk
func fileChecksum(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // G304: test file under t.TempDir
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestDigestWriter(t *testing.T) {
	var buf bytes.Buffer
	dw := newDigestWriter(&buf)

	if _, err := dw.Write([]byte("hello ")); err != nil {
		t.Fatal(err)
	}
	if _, err := dw.Write([]byte("world")); err != nil {
		t.Fatal(err)
	}

	// sha256("hello world")
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got := dw.Sum(); got != want {
		t.Errorf("Sum() = %s, want %s", got, want)
	}
	if buf.String() != "hello world" {
		t.Errorf("underlying writer got %q", buf.String())
	}
}

func TestDigestWriter_MatchesFileOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	f, err := os.Create(path) //nolint:gosec // G304: test file under t.TempDir
	if err != nil {
		t.Fatal(err)
	}
	dw := newDigestWriter(f)
	if _, readErr, writeErr := copyChunks(dw, bytes.NewReader(bytes.Repeat([]byte("ab"), 5000)), 333); readErr != nil || writeErr != nil {
		t.Fatalf("copyChunks() = %v, %v", readErr, writeErr)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if got, want := dw.Sum(), fileChecksum(t, path); got != want {
		t.Errorf("Sum() = %s, file checksum = %s", got, want)
	}
}
