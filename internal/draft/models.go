package draft

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"worldip/internal/ownership"
)

// Status describes where a draft is in its lifecycle.
type Status string

const (
	StatusOpen      Status = "open"
	StatusSubmitted Status = "submitted"
)

// Draft is a registration being prepared for submission.
type Draft struct {
	ID              string
	Owner           ownership.Address
	Fingerprint     string
	InputKind       string
	FileName        string
	FileFormat      string
	SizeBytes       int64
	Description     string
	MetadataURI     string
	Shares          ownership.Shares
	Status          Status
	CertificateID   string
	TransactionHash string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Editable reports whether the draft may still change.
func (d *Draft) Editable() bool {
	return d != nil && d.Status != StatusSubmitted
}

// Ready checks that the draft can be submitted.
func (d *Draft) Ready() error {
	if d == nil {
		return errors.New("draft is nil")
	}
	if !d.Editable() {
		return ErrSubmitted
	}
	if strings.TrimSpace(d.Fingerprint) == "" {
		return errors.New("draft has no fingerprint")
	}
	if err := d.Shares.Validate(); err != nil {
		return fmt.Errorf("ownership: %w", err)
	}
	return nil
}

// DisplayName returns the file name, or a placeholder for text drafts.
func (d *Draft) DisplayName() string {
	if d == nil {
		return ""
	}
	if d.FileName != "" {
		return d.FileName
	}
	if d.InputKind != "" {
		return "(" + d.InputKind + ")"
	}
	return "-"
}

// ShortID returns the first eight characters of the id.
func (d *Draft) ShortID() string {
	if d == nil {
		return ""
	}
	if len(d.ID) > 8 {
		return d.ID[:8]
	}
	return d.ID
}
