package draft

import (
	"testing"

	"worldip/internal/ownership"
)

func TestReady(t *testing.T) {
	owner := ownership.MustParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	cases := []struct {
		name  string
		draft *Draft
		ok    bool
	}{
		{"complete", &Draft{Fingerprint: "ab", Shares: ownership.Sole(owner)}, true},
		{"nil", nil, false},
		{"no fingerprint", &Draft{Shares: ownership.Sole(owner)}, false},
		{"partial shares", &Draft{Fingerprint: "ab", Shares: ownership.Shares{{Address: owner, Percentage: 60}}}, false},
		{"submitted", &Draft{Fingerprint: "ab", Shares: ownership.Sole(owner), Status: StatusSubmitted}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Ready()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDisplayHelpers(t *testing.T) {
	d := &Draft{ID: "0123456789abcdef", InputKind: "text"}
	if d.ShortID() != "01234567" {
		t.Fatalf("ShortID = %s", d.ShortID())
	}
	if d.DisplayName() != "(text)" {
		t.Fatalf("DisplayName = %s", d.DisplayName())
	}
	d.FileName = "song.mp3"
	if d.DisplayName() != "song.mp3" {
		t.Fatalf("DisplayName = %s", d.DisplayName())
	}
}
