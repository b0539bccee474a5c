// Package hash provides content digests for evaluation inputs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	gohash "hash"
	"io"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short truncates a hex digest to n characters.
func Short(digest string, n int) string {
	if n <= 0 || n > len(digest) {
		return digest
	}
	return digest[:n]
}

// DigestReader hashes everything read through it.
type DigestReader struct {
	r io.Reader
	h gohash.Hash
	n int64
}

// NewDigestReader wraps r so the bytes consumed by a parser are hashed on the way through.
func NewDigestReader(r io.Reader) *DigestReader {
	h := sha256.New()
	return &DigestReader{r: io.TeeReader(r, h), h: h}
}

// Read implements io.Reader.
func (d *DigestReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	d.n += int64(n)
	return n, err
}

// Sum returns the hex SHA256 of the bytes read so far.
func (d *DigestReader) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Size returns the number of bytes read so far.
func (d *DigestReader) Size() int64 {
	return d.n
}
