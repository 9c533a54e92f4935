package fingerprint

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextEncodings lists the names accepted by DecodeText.
var TextEncodings = []string{"utf-8", "utf-16le", "utf-16be", "utf-16", "latin1"}

// DecodeText converts a text payload in the named encoding into a Go string
// ready for the text fingerprint path. The text is never normalized: two
// payloads that decode to different characters must keep different digests.
// An empty name means UTF-8.
func DecodeText(data []byte, name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")

	var decoder *encoding.Decoder
	switch normalized {
	case "", "utf-8", "utf8":
		out, _, err := transform.Bytes(encoding.UTF8Validator, data)
		if err != nil {
			return "", encodingError("decode utf-8", err)
		}
		return string(out), nil
	case "utf-16le":
		decoder = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case "utf-16be":
		decoder = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case "utf-16":
		decoder = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case "latin1", "latin-1", "iso-8859-1":
		decoder = charmap.ISO8859_1.NewDecoder()
	default:
		return "", encodingError(fmt.Sprintf("unsupported encoding %q (supported: %s)", name, strings.Join(TextEncodings, ", ")), nil)
	}

	if strings.HasPrefix(normalized, "utf-16") && len(data)%2 != 0 {
		return "", encodingError(fmt.Sprintf("%s payload has odd length %d", normalized, len(data)), nil)
	}
	out, err := decoder.Bytes(data)
	if err != nil {
		return "", encodingError("decode "+normalized, err)
	}
	return string(out), nil
}
