package ownership

import (
	"errors"
	"testing"
)

var (
	alice = MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob   = MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	carol = MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

func TestSoleOwnershipIsComplete(t *testing.T) {
	shares := Sole(alice)
	if err := shares.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if shares.Total() != FullOwnership {
		t.Fatalf("total = %d", shares.Total())
	}
}

func TestAddRejectsOverAllocation(t *testing.T) {
	var shares Shares
	if err := shares.Add(Share{Address: alice, Percentage: 70}); err != nil {
		t.Fatalf("Add alice: %v", err)
	}
	if err := shares.Add(Share{Address: bob, Percentage: 40}); !errors.Is(err, ErrOverAllocated) {
		t.Fatalf("expected ErrOverAllocated, got %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("rejected share was stored: %v", shares)
	}
	if err := shares.Add(Share{Address: alice, Percentage: 10}); !errors.Is(err, ErrDuplicateOwner) {
		t.Fatalf("expected ErrDuplicateOwner, got %v", err)
	}
	for _, pct := range []int{0, -5, 101} {
		if err := shares.Add(Share{Address: carol, Percentage: pct}); !errors.Is(err, ErrInvalidPercentage) {
			t.Fatalf("pct %d: expected ErrInvalidPercentage, got %v", pct, err)
		}
	}
}

func TestUpdateChecksNewTotal(t *testing.T) {
	shares := Shares{{Address: alice, Percentage: 60}, {Address: bob, Percentage: 40}}
	if err := shares.Update(bob, 50); !errors.Is(err, ErrOverAllocated) {
		t.Fatalf("expected ErrOverAllocated, got %v", err)
	}
	if err := shares.Update(alice, 50); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if shares[0].Percentage != 50 || shares.Total() != 90 {
		t.Fatalf("unexpected shares after update: %v", shares)
	}
	if err := shares.Update(carol, 10); !errors.Is(err, ErrUnknownOwner) {
		t.Fatalf("expected ErrUnknownOwner, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	shares := Shares{{Address: alice, Percentage: 60}, {Address: bob, Percentage: 40}}
	shares.Remove(alice)
	shares.Remove(carol)
	if len(shares) != 1 || shares[0].Address != bob {
		t.Fatalf("unexpected shares: %v", shares)
	}
}

func TestWithPrimaryAssignsRemainder(t *testing.T) {
	shares, err := WithPrimary(alice, []Share{{Address: bob, Percentage: 30}, {Address: carol, Percentage: 20}})
	if err != nil {
		t.Fatalf("WithPrimary: %v", err)
	}
	if len(shares) != 3 || shares[2].Address != alice || shares[2].Percentage != 50 {
		t.Fatalf("unexpected shares: %v", shares)
	}
	if err := shares.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	full, err := WithPrimary(alice, []Share{{Address: bob, Percentage: 100}, {Address: alice, Percentage: 5}})
	if err != nil {
		t.Fatalf("WithPrimary full: %v", err)
	}
	if full.Contains(alice) {
		t.Fatalf("primary with nothing remaining should be omitted: %v", full)
	}

	if _, err := WithPrimary(alice, []Share{{Address: bob, Percentage: 60}, {Address: carol, Percentage: 50}}); !errors.Is(err, ErrOverAllocated) {
		t.Fatalf("expected ErrOverAllocated, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		shares Shares
		want   error
	}{
		{"empty", nil, ErrNoOwners},
		{"under", Shares{{Address: alice, Percentage: 90}}, ErrIncomplete},
		{"over", Shares{{Address: alice, Percentage: 90}, {Address: bob, Percentage: 20}}, ErrOverAllocated},
		{"duplicate", Shares{{Address: alice, Percentage: 50}, {Address: alice, Percentage: 50}}, ErrDuplicateOwner},
		{"zero", Shares{{Address: alice, Percentage: 100}, {Address: bob, Percentage: 0}}, ErrInvalidPercentage},
		{"no address", Shares{{Percentage: 100}}, ErrInvalidAddress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.shares.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseShare(t *testing.T) {
	share, err := ParseShare("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359=25%")
	if err != nil {
		t.Fatalf("ParseShare: %v", err)
	}
	if share.Address != bob || share.Percentage != 25 {
		t.Fatalf("unexpected share: %+v", share)
	}
	for _, bad := range []string{"nope", bob.String() + "=abc", bob.String() + "=0", "0x1=10"} {
		if _, err := ParseShare(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
