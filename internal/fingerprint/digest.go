package fingerprint

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
)

// Size is the byte length of a Digest.
const Size = sha256.Size

// HexLen is the length of a Digest rendered as hex text.
const HexLen = 2 * Size

// Digest is a single node of the hash tree: a leaf (one chunk) or an internal
// node (two children). The root digest is the fingerprint.
type Digest [Size]byte

// Sum returns the SHA-256 digest of data.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// Hex renders the digest as 64 lowercase hex characters.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

// Multihash renders the digest as a base58 sha2-256 multihash, the form used
// by content-addressed metadata URIs.
func (d Digest) Multihash() (string, error) {
	encoded, err := multihash.Encode(d[:], multihash.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("encode multihash: %w", err)
	}
	return base58.Encode(encoded), nil
}

// ParseDigest parses a hex digest in either case. Surrounding whitespace is
// ignored; anything other than exactly 64 hex characters is rejected.
func ParseDigest(value string) (Digest, error) {
	var d Digest
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != HexLen {
		return d, fmt.Errorf("digest must be %d hex characters, got %d", HexLen, len(trimmed))
	}
	if _, err := hex.Decode(d[:], []byte(trimmed)); err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	return d, nil
}

// Matches reports whether a freshly computed digest equals a stored one.
// Comparison is exact over the decoded bytes, so hex case does not matter.
// A malformed value on either side never matches.
func Matches(computed, stored string) bool {
	a, err := ParseDigest(computed)
	if err != nil {
		return false
	}
	b, err := ParseDigest(stored)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// MultihashFromHex converts a hex digest into its base58 multihash form.
func MultihashFromHex(value string) (string, error) {
	d, err := ParseDigest(value)
	if err != nil {
		return "", err
	}
	return d.Multihash()
}
