package fingerprint

import (
	"strings"
	"testing"
)

func TestParseDigest(t *testing.T) {
	d, err := ParseDigest("  " + strings.ToUpper(emptySHA256) + "\n")
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if d.Hex() != emptySHA256 {
		t.Fatalf("hex = %s, want %s", d.Hex(), emptySHA256)
	}

	for _, bad := range []string{"", "abc", emptySHA256 + "0", strings.Repeat("g", HexLen), "0x" + emptySHA256[2:]} {
		if _, err := ParseDigest(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestMatches(t *testing.T) {
	const hello = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	cases := []struct {
		name     string
		computed string
		stored   string
		want     bool
	}{
		{"identical", hello, hello, true},
		{"case-insensitive", hello, strings.ToUpper(hello), true},
		{"different", hello, emptySHA256, false},
		{"truncated stored", hello, hello[:63], false},
		{"malformed computed", "not-a-digest", hello, false},
		{"both empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(tc.computed, tc.stored); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMultihash(t *testing.T) {
	cases := map[string]string{
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824": "QmRN6wdp1S2A5EtjW9A3M1vKSBuQQGcgvuhoMUoEz4iiT5",
		emptySHA256: "QmdfTbBqBPQ7VNxZEYEj14VmRuZBkqFbiwReogJgS1zR1n",
	}
	for hexDigest, want := range cases {
		got, err := MultihashFromHex(hexDigest)
		if err != nil {
			t.Fatalf("MultihashFromHex(%s): %v", hexDigest, err)
		}
		if got != want {
			t.Fatalf("multihash = %s, want %s", got, want)
		}
	}
	if _, err := MultihashFromHex("zz"); err == nil {
		t.Fatal("expected error for malformed digest")
	}
}
