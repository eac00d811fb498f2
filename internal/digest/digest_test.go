package digest_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chapsvision-dev/treesum/internal/digest"
)

var lowerHex = regexp.MustCompile(`^[0-9a-f]+$`)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

func TestNew_unsupported(t *testing.T) {
	t.Parallel()

	c, err := digest.New("NOPE-512")

	require.Error(t, err)
	assert.Nil(t, c)
	var ua *digest.UnsupportedAlgorithmError
	require.ErrorAs(t, err, &ua)
	assert.Equal(t, "NOPE-512", ua.Name)
	assert.Contains(t, err.Error(), "NOPE-512")
}

func TestNew_case_insensitive_and_aliases(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"md5", "Md5", " MD5 "} {
		c, err := digest.New(name)
		require.NoError(t, err, name)
		assert.Equal(t, "MD5", c.Name())
	}
	for _, name := range []string{"sha256", "SHA-256", "sha-256"} {
		c, err := digest.New(name)
		require.NoError(t, err, name)
		assert.Equal(t, "SHA-256", c.Name())
	}
	c, err := digest.New("sha")
	require.NoError(t, err)
	assert.Equal(t, "SHA-1", c.Name())
}

func TestComputeOverStream_known_vectors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		algo, in, want string
	}{
		{"MD5", "", "d41d8cd98f00b204e9800998ecf8427e"},
		{"MD5", "hello", "5d41402abc4b2a76b9719d911017c592"},
		{"SHA-1", "", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"SHA-256", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"SHA3-256", "", "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"},
		{"BLAKE2b-256", "", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
		{"BLAKE3", "", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}
	for _, tc := range cases {
		c, err := digest.New(tc.algo)
		require.NoError(t, err)

		got, err := c.ComputeOverStream(strings.NewReader(tc.in))

		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s(%q)", tc.algo, tc.in)
	}
}

func TestComputeOverStream_chunk_boundaries(t *testing.T) {
	t.Parallel()

	sizes := []int{0, 1, digest.ChunkSize - 1, digest.ChunkSize, digest.ChunkSize + 1, 3*digest.ChunkSize + 7}
	md, err := digest.New("MD5")
	require.NoError(t, err)
	sh, err := digest.New("SHA-256")
	require.NoError(t, err)

	for _, n := range sizes {
		data := pattern(n)
		wantMD5 := md5.Sum(data)
		wantSHA := sha256.Sum256(data)

		got, err := md.ComputeOverStream(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(wantMD5[:]), got, "md5 size %d", n)

		got, err = sh.ComputeOverStream(iotest.OneByteReader(bytes.NewReader(data)))
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(wantSHA[:]), got, "sha-256 size %d", n)

		got, err = sh.ComputeOverStream(iotest.DataErrReader(bytes.NewReader(data)))
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(wantSHA[:]), got, "sha-256 data+EOF size %d", n)
	}
}

func TestComputeOverStream_deterministic_and_no_state_leak(t *testing.T) {
	t.Parallel()

	c, err := digest.New("SHA-256")
	require.NoError(t, err)

	first, err := c.ComputeOverStream(strings.NewReader("hello"))
	require.NoError(t, err)
	_, err = c.ComputeOverStream(strings.NewReader("something else entirely"))
	require.NoError(t, err)
	again, err := c.ComputeOverStream(strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, first, again)
	want := sha256.Sum256([]byte("hello"))
	assert.Equal(t, hex.EncodeToString(want[:]), again)
}

func TestComputeOverStream_read_failure(t *testing.T) {
	t.Parallel()

	c, err := digest.New("MD5")
	require.NoError(t, err)
	boom := errors.New("disk on fire")

	_, err = c.ComputeOverStream(iotest.ErrReader(boom))

	var ioErr *digest.IOFailure
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, ioErr.Path)

	// the computer stays usable after a failed stream
	got, err := c.ComputeOverStream(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", got)
}

func TestHexShape_all_algorithms(t *testing.T) {
	t.Parallel()

	names := digest.Algorithms()
	require.NotEmpty(t, names)
	for _, name := range names {
		c, err := digest.New(name)
		require.NoError(t, err, name)
		a, ok := digest.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, a.Size, c.Size(), name)

		got, err := c.ComputeOverStream(bytes.NewReader(pattern(2*digest.ChunkSize + 3)))
		require.NoError(t, err, name)
		assert.Len(t, got, 2*c.Size(), name)
		assert.Zero(t, len(got)%2, name)
		assert.Regexp(t, lowerHex, got, name)
	}
}

func TestAlgorithms_sorted_and_canonical(t *testing.T) {
	t.Parallel()

	names := digest.Algorithms()

	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "MD5")
	assert.Contains(t, names, "SHA-512/256")
	assert.Contains(t, names, "BLAKE3")
	assert.NotContains(t, names, "SHA256")
}

func TestComputeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	c, err := digest.New("MD5")
	require.NoError(t, err)

	got, err := c.ComputeFile(path)

	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", got)
}

func TestComputeFile_missing(t *testing.T) {
	t.Parallel()

	c, err := digest.New("MD5")
	require.NoError(t, err)
	missing := filepath.Join(t.TempDir(), "gone.bin")

	_, err = c.ComputeFile(missing)

	var fa *digest.FileAccessError
	require.ErrorAs(t, err, &fa)
	assert.Equal(t, missing, fa.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blob")
	data := pattern(5000)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	sum, size, err := digest.FileSum("SHA-256", path)

	require.NoError(t, err)
	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), sum)
	assert.Equal(t, int64(5000), size)

	_, _, err = digest.FileSum("bogus", path)
	var ua *digest.UnsupportedAlgorithmError
	assert.ErrorAs(t, err, &ua)
}

func TestComputeFile_read_failure_carries_path(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("reading a directory handle only fails predictably on linux")
	}
	t.Parallel()

	c, err := digest.New("SHA-256")
	require.NoError(t, err)
	dir := t.TempDir()

	_, err = c.ComputeFile(dir)

	var ioErr *digest.IOFailure
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, dir, ioErr.Path)
	assert.Contains(t, err.Error(), dir)

	_, _, err = digest.FileSum("MD5", dir)
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, dir, ioErr.Path)
}
