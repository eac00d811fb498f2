// Package digest computes streaming file checksums with a selectable algorithm.
package digest

import (
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"os"
)

// ChunkSize is the size of the read buffer; memory use does not depend on input size.
const ChunkSize = 1024

// Computer wraps one hash instance. It is not safe for concurrent use.
type Computer struct {
	algo Algorithm
	h    hash.Hash
	buf  []byte
	sum  []byte
}

// New returns a Computer for the named algorithm.
func New(name string) (*Computer, error) {
	a, ok := Lookup(name)
	if !ok {
		return nil, &UnsupportedAlgorithmError{Name: name}
	}
	return &Computer{
		algo: a,
		h:    a.New(),
		buf:  make([]byte, ChunkSize),
	}, nil
}

// Name returns the canonical algorithm name.
func (c *Computer) Name() string { return c.algo.Name }

// Size returns the digest length in bytes.
func (c *Computer) Size() int { return c.h.Size() }

// ComputeOverStream hashes r until EOF and returns the lowercase hex digest.
// r is not closed.
func (c *Computer) ComputeOverStream(r io.Reader) (string, error) {
	sum, _, err := c.compute(r)
	return sum, err
}

// ComputeFile opens path, hashes its content and closes it again.
func (c *Computer) ComputeFile(path string) (string, error) {
	sum, _, err := c.computeFile(path)
	return sum, err
}

func (c *Computer) computeFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, &FileAccessError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	sum, n, err := c.compute(f)
	if err != nil {
		var ioErr *IOFailure
		if errors.As(err, &ioErr) {
			ioErr.Path = path
		}
		return "", n, err
	}
	return sum, n, nil
}

// compute resets the hash state first so nothing carries over from a previous stream.
func (c *Computer) compute(r io.Reader) (string, int64, error) {
	c.h.Reset()

	var total int64
	for {
		n, err := r.Read(c.buf)
		if n > 0 {
			// hash.Hash.Write never returns an error.
			_, _ = c.h.Write(c.buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", total, &IOFailure{Err: err}
		}
	}

	c.sum = c.h.Sum(c.sum[:0])
	return hex.EncodeToString(c.sum), total, nil
}

// FileSum computes the checksum of a file with a fresh Computer and returns:
//   - the hex-encoded digest
//   - the file size in bytes
func FileSum(algorithm, path string) (sum string, size int64, err error) {
	c, err := New(algorithm)
	if err != nil {
		return "", 0, err
	}
	return c.computeFile(path)
}
