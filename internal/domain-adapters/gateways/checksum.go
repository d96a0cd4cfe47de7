package gateways

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// digestWriter hashes everything successfully written through it
type digestWriter struct {
	w io.Writer
	h hash.Hash
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{w: w, h: sha256.New()}
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	//nolint:errcheck // hash.Hash writes never fail
	d.h.Write(p[:n])
	return n, err
}

// Sum returns the hex SHA-256 of the bytes written so far
func (d *digestWriter) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
