package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// blockSize is the read buffer used while streaming the source.
const blockSize = 32 * 1024

// Sum computes the hex SHA-256 digest of the stream. The source is read in
// fixed-size blocks so large documents never need a second in-memory copy.
func Sum(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("hashing source: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
