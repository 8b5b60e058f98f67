// Package fingerprint computes content fingerprints for deduplication.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/Laisky/errors/v2"
)

// Hash returns the SHA-256 digest of content as lowercase hex.
//
// Equal content always yields an equal fingerprint, regardless of the
// file name or path it was submitted under.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through SHA-256 and returns the digest as
// lowercase hex. Only fails if reading from r fails.
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", errors.Wrap(err, "read content")
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
