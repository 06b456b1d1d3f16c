// Package identity computes content-derived identifiers for local video
// files. The identifier is the only thing the server ever sees: the video
// bytes themselves stay on the client machine.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	// SampleSize is the window read from each sampled region of a large file.
	SampleSize = 1 << 20 // 1 MiB

	// FullHashLimit is the largest file hashed in full. Anything bigger is
	// identified by a sampled digest so multi-gigabyte recordings never have
	// to be read end to end.
	FullHashLimit = 3 * SampleSize
)

// FromReaderAt returns the lowercase hex SHA-256 identity for size bytes of
// content. Files at or below FullHashLimit are hashed whole. Larger files are
// hashed as a single message built from the decimal byte length, the first
// 1 MiB, the 1 MiB centered on the middle of the file, and the last 1 MiB,
// in that order. Two large files that agree on size and all three sampled
// windows collide; that risk is accepted in exchange for constant read cost.
//
// The digest depends only on content, never on filename, path, or machine.
func FromReaderAt(r io.ReaderAt, size int64) (string, error) {
	if size < 0 {
		return "", fmt.Errorf("identity: negative size %d", size)
	}

	h := sha256.New()

	if size <= FullHashLimit {
		if err := copySection(h, r, 0, size); err != nil {
			return "", fmt.Errorf("identity: read content: %w", err)
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	h.Write([]byte(strconv.FormatInt(size, 10)))

	middle := size/2 - SampleSize/2
	sections := [][2]int64{
		{0, SampleSize},
		{middle, SampleSize},
		{size - SampleSize, SampleSize},
	}
	for _, s := range sections {
		if err := copySection(h, r, s[0], s[1]); err != nil {
			return "", fmt.Errorf("identity: read sample at %d: %w", s[0], err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FromFile hashes the file at path. The returned identity is stable across
// renames and copies of the same bytes.
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("identity: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("identity: stat %s: %w", path, err)
	}

	return FromReaderAt(f, info.Size())
}

// FromBytes hashes an in-memory byte slice.
func FromBytes(b []byte) string {
	// Cannot fail: bytes.NewReader satisfies every read in full.
	id, _ := FromReaderAt(byteReaderAt(b), int64(len(b)))
	return id
}

// Valid reports whether s has the shape of an identity: 64 lowercase hex
// characters.
func Valid(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func copySection(dst io.Writer, r io.ReaderAt, off, n int64) error {
	copied, err := io.Copy(dst, io.NewSectionReader(r, off, n))
	if err != nil {
		return err
	}
	if copied < n {
		return fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, copied, n)
	}
	return nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
