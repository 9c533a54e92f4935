package ownership

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrInvalidAddress marks a wallet address that is malformed or fails its
// mixed-case checksum.
var ErrInvalidAddress = errors.New("invalid wallet address")

const addressHexLen = 40

// Address is a wallet address in canonical lowercase form ("0x" followed by
// 40 hex characters).
type Address string

// ParseAddress validates a wallet address. All-lowercase and all-uppercase
// hex is accepted as is; mixed case must satisfy the EIP-55 checksum, which
// catches most transcription errors.
func ParseAddress(value string) (Address, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != 2+addressHexLen || !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return "", fmt.Errorf("%w: %q: want 0x followed by %d hex characters", ErrInvalidAddress, value, addressHexLen)
	}
	body := trimmed[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidAddress, value, err)
	}
	lower := strings.ToLower(body)
	if body != lower && body != strings.ToUpper(body) {
		if want := checksum(lower); body != want {
			return "", fmt.Errorf("%w: %q: checksum mismatch (expected 0x%s)", ErrInvalidAddress, value, want)
		}
	}
	return Address("0x" + lower), nil
}

// MustParseAddress is ParseAddress for constants in tests and fixtures.
func MustParseAddress(value string) Address {
	addr, err := ParseAddress(value)
	if err != nil {
		panic(err)
	}
	return addr
}

// UnmarshalJSON accepts any case so addresses returned by the registry
// compare equal to parsed ones. Values that do not parse are kept trimmed.
func (a *Address) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("wallet address: %w", err)
	}
	if parsed, err := ParseAddress(raw); err == nil {
		*a = parsed
		return nil
	}
	*a = Address(strings.TrimSpace(raw))
	return nil
}

func (a Address) String() string {
	return string(a)
}

// Checksum renders the address in EIP-55 mixed case.
func (a Address) Checksum() string {
	if len(a) != 2+addressHexLen {
		return string(a)
	}
	return "0x" + checksum(strings.ToLower(string(a[2:])))
}

// Short renders the address as 0x1234…abcd for tables.
func (a Address) Short() string {
	if len(a) != 2+addressHexLen {
		return string(a)
	}
	return string(a[:6]) + "…" + string(a[len(a)-4:])
}

func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := h.Sum(nil)

	out := []byte(lowerHex)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
