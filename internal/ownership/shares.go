package ownership

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// FullOwnership is the total every submitted share set must reach.
const FullOwnership = 100

var (
	ErrOverAllocated     = errors.New("total share percentage cannot exceed 100%")
	ErrInvalidPercentage = errors.New("share percentage must be between 1 and 100")
	ErrDuplicateOwner    = errors.New("owner already listed")
	ErrUnknownOwner      = errors.New("owner not listed")
	ErrIncomplete        = errors.New("shares must total exactly 100%")
	ErrNoOwners          = errors.New("at least one owner is required")
)

// Share is one owner's percentage of a registered work.
type Share struct {
	Address    Address `json:"walletAddress"`
	Percentage int     `json:"percentage"`
}

// Shares is an ordered owner list. The running total never exceeds 100.
type Shares []Share

// Sole returns shares granting addr full ownership.
func Sole(addr Address) Shares {
	return Shares{{Address: addr, Percentage: FullOwnership}}
}

// WithPrimary lists others first and gives primary whatever remains of 100.
// An entry for primary inside others is ignored. The primary is left out
// when nothing remains for it.
func WithPrimary(primary Address, others []Share) (Shares, error) {
	var out Shares
	for _, s := range others {
		if s.Address == primary {
			continue
		}
		if err := out.Add(s); err != nil {
			return nil, err
		}
	}
	if remaining := FullOwnership - out.Total(); remaining > 0 {
		out = append(out, Share{Address: primary, Percentage: remaining})
	}
	return out, nil
}

// Total returns the sum of all percentages.
func (s Shares) Total() int {
	total := 0
	for _, share := range s {
		total += share.Percentage
	}
	return total
}

func (s Shares) index(addr Address) int {
	return slices.IndexFunc(s, func(share Share) bool { return share.Address == addr })
}

// Contains reports whether addr holds a share.
func (s Shares) Contains(addr Address) bool {
	return s.index(addr) >= 0
}

// Add appends a share, rejecting duplicates and totals above 100.
func (s *Shares) Add(share Share) error {
	if err := checkShare(share); err != nil {
		return err
	}
	if s.index(share.Address) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateOwner, share.Address)
	}
	if total := s.Total() + share.Percentage; total > FullOwnership {
		return fmt.Errorf("%w: adding %d%% for %s gives %d%%", ErrOverAllocated, share.Percentage, share.Address, total)
	}
	*s = append(*s, share)
	return nil
}

// Remove drops addr's share. Removing an absent owner is a no-op.
func (s *Shares) Remove(addr Address) {
	*s = slices.DeleteFunc(*s, func(share Share) bool { return share.Address == addr })
}

// Update changes addr's percentage in place.
func (s *Shares) Update(addr Address, percentage int) error {
	idx := s.index(addr)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownOwner, addr)
	}
	if err := checkShare(Share{Address: addr, Percentage: percentage}); err != nil {
		return err
	}
	if total := s.Total() - (*s)[idx].Percentage + percentage; total > FullOwnership {
		return fmt.Errorf("%w: %d%% for %s gives %d%%", ErrOverAllocated, percentage, addr, total)
	}
	(*s)[idx].Percentage = percentage
	return nil
}

// Validate checks a share set is ready for submission: every entry is well
// formed, owners are unique and the total is exactly 100.
func (s Shares) Validate() error {
	if len(s) == 0 {
		return ErrNoOwners
	}
	seen := make(map[Address]struct{}, len(s))
	for _, share := range s {
		if err := checkShare(share); err != nil {
			return err
		}
		if _, dup := seen[share.Address]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOwner, share.Address)
		}
		seen[share.Address] = struct{}{}
	}
	switch total := s.Total(); {
	case total > FullOwnership:
		return fmt.Errorf("%w: total is %d%%", ErrOverAllocated, total)
	case total != FullOwnership:
		return fmt.Errorf("%w: total is %d%%", ErrIncomplete, total)
	}
	return nil
}

func (s Shares) String() string {
	parts := make([]string, 0, len(s))
	for _, share := range s {
		parts = append(parts, fmt.Sprintf("%s=%d%%", share.Address, share.Percentage))
	}
	return strings.Join(parts, ", ")
}

// ParseShare parses "ADDRESS=PERCENT" as accepted on the command line. A
// trailing percent sign is allowed.
func ParseShare(value string) (Share, error) {
	addrPart, pctPart, ok := strings.Cut(value, "=")
	if !ok {
		return Share{}, fmt.Errorf("share %q: want ADDRESS=PERCENT", value)
	}
	addr, err := ParseAddress(addrPart)
	if err != nil {
		return Share{}, err
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(pctPart), "%"))
	if err != nil {
		return Share{}, fmt.Errorf("share %q: %w", value, ErrInvalidPercentage)
	}
	share := Share{Address: addr, Percentage: pct}
	if err := checkShare(share); err != nil {
		return Share{}, err
	}
	return share, nil
}

func checkShare(share Share) error {
	if share.Address == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if share.Percentage <= 0 || share.Percentage > FullOwnership {
		return fmt.Errorf("%w: got %d for %s", ErrInvalidPercentage, share.Percentage, share.Address)
	}
	return nil
}
