package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"worldip/internal/config"
	"worldip/internal/draft"
	"worldip/internal/fingerprint"
	"worldip/internal/ownership"
	"worldip/internal/services"
	"worldip/internal/testsupport"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestStartRegistrationText(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry())
	d, err := svc.StartRegistration(context.Background(), alice, fingerprint.Text("hello"), Metadata{Description: " poem "})
	if err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	if d.Fingerprint != sha256Hex("hello") {
		t.Fatalf("fingerprint = %s", d.Fingerprint)
	}
	if d.FileFormat != "txt" || d.InputKind != "text" || d.Description != "poem" {
		t.Fatalf("unexpected draft metadata %#v", d)
	}
	if d.MetadataURI != config.MetadataURINone {
		t.Fatalf("metadata uri = %q", d.MetadataURI)
	}
	if len(d.Shares) != 1 || d.Shares[0].Address != alice || d.Shares[0].Percentage != 100 {
		t.Fatalf("expected sole ownership, got %v", d.Shares)
	}
}

func TestStartRegistrationFileUsesConfiguredChunkSize(t *testing.T) {
	svc, cfg := newTestService(t, newFakeRegistry(), testsupport.WithChunkSize(4))
	path := filepath.Join(testsupport.BaseDir(cfg), "work.PDF")
	testsupport.WritePattern(t, path, 10)

	in, err := fingerprint.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer in.Close()
	d, err := svc.StartRegistration(context.Background(), alice, in, Metadata{})
	if err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}

	data := testsupport.Pattern(10)
	leaves := []fingerprint.Digest{fingerprint.Sum(data[0:4]), fingerprint.Sum(data[4:8]), fingerprint.Sum(data[8:10])}
	if want := fingerprint.Reduce(leaves).Hex(); d.Fingerprint != want {
		t.Fatalf("fingerprint = %s, want %s", d.Fingerprint, want)
	}
	if d.FileName != "work.PDF" || d.FileFormat != ".pdf" || d.SizeBytes != 10 {
		t.Fatalf("unexpected file metadata %#v", d)
	}
}

func TestStartRegistrationMultihashMetadata(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry(), testsupport.WithMetadataURI(config.MetadataURIMultihash))
	d, err := svc.StartRegistration(context.Background(), alice, fingerprint.Text("hello"), Metadata{})
	if err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	want, err := fingerprint.MultihashFromHex(sha256Hex("hello"))
	if err != nil {
		t.Fatalf("MultihashFromHex: %v", err)
	}
	if d.MetadataURI != "mh:"+want || !strings.HasPrefix(d.MetadataURI, "mh:Qm") {
		t.Fatalf("metadata uri = %q", d.MetadataURI)
	}
}

func TestStartRegistrationRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry())
	_, err := svc.StartRegistration(context.Background(), "", fingerprint.Text("x"), Metadata{})
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStartRegistrationPropagatesEncodingError(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry())
	_, err := svc.StartRegistration(context.Background(), alice, fingerprint.Text("\xff"), Metadata{})
	if !errors.Is(err, fingerprint.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
	drafts, _ := svc.Drafts(context.Background(), "")
	if len(drafts) != 0 {
		t.Fatalf("draft stored despite failure: %v", drafts)
	}
}

func TestSetShares(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry())
	ctx := context.Background()
	d, err := svc.StartRegistration(ctx, alice, fingerprint.Text("song"), Metadata{})
	if err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}

	over := ownership.Shares{{Address: alice, Percentage: 70}, {Address: bob, Percentage: 40}}
	if _, err := svc.SetShares(ctx, d.ID, over); !errors.Is(err, services.ErrValidation) || !errors.Is(err, ownership.ErrOverAllocated) {
		t.Fatalf("expected over-allocation validation error, got %v", err)
	}

	partial := ownership.Shares{{Address: alice, Percentage: 60}}
	updated, err := svc.SetShares(ctx, d.ShortID(), partial)
	if err != nil {
		t.Fatalf("SetShares partial: %v", err)
	}
	if updated.Shares.Total() != 60 {
		t.Fatalf("total = %d", updated.Shares.Total())
	}
}

func TestSubmitRegistersAndFreezesDraft(t *testing.T) {
	reg := newFakeRegistry()
	svc, _ := newTestService(t, reg)
	ctx := context.Background()
	d, err := svc.StartRegistration(ctx, alice, fingerprint.Text("song"), Metadata{Description: "demo"})
	if err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	shares, _ := ownership.WithPrimary(alice, []ownership.Share{{Address: bob, Percentage: 25}})
	if _, err := svc.SetShares(ctx, d.ID, shares); err != nil {
		t.Fatalf("SetShares: %v", err)
	}

	sub, err := svc.Submit(ctx, d.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.CertificateID != "1" || sub.Transaction != "0xtx1" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if sub.Draft.Status != draft.StatusSubmitted || sub.Draft.CertificateID != "1" {
		t.Fatalf("draft not frozen: %#v", sub.Draft)
	}
	if len(reg.created) != 1 {
		t.Fatalf("create called %d times", len(reg.created))
	}
	req := reg.created[0]
	if req.FileHash != sha256Hex("song") || req.MetadataURI != "NA" || req.Description != "demo" || req.FileFormat != "txt" {
		t.Fatalf("unexpected create request %+v", req)
	}
	if req.Owners.Total() != 100 || !req.Owners.Contains(bob) {
		t.Fatalf("owners = %v", req.Owners)
	}

	if _, err := svc.Submit(ctx, d.ID); !errors.Is(err, services.ErrValidation) || !errors.Is(err, draft.ErrSubmitted) {
		t.Fatalf("second submit: %v", err)
	}
	if _, err := svc.SetShares(ctx, d.ID, ownership.Sole(bob)); !errors.Is(err, draft.ErrSubmitted) {
		t.Fatalf("edit after submit: %v", err)
	}
	if len(reg.created) != 1 {
		t.Fatal("resubmission reached the registry")
	}
}

func TestSubmitRequiresCompleteShares(t *testing.T) {
	reg := newFakeRegistry()
	svc, _ := newTestService(t, reg)
	ctx := context.Background()
	d, _ := svc.StartRegistration(ctx, alice, fingerprint.Text("song"), Metadata{})
	if _, err := svc.SetShares(ctx, d.ID, ownership.Shares{{Address: alice, Percentage: 50}}); err != nil {
		t.Fatalf("SetShares: %v", err)
	}
	if _, err := svc.Submit(ctx, d.ID); !errors.Is(err, ownership.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if len(reg.created) != 0 {
		t.Fatal("incomplete draft reached the registry")
	}
}

func TestSubmitFailureLeavesDraftOpen(t *testing.T) {
	reg := newFakeRegistry()
	reg.createErr = services.Wrap(services.ErrRemote, "registry", "create", "boom", nil)
	svc, _ := newTestService(t, reg)
	ctx := context.Background()
	d, _ := svc.StartRegistration(ctx, alice, fingerprint.Text("song"), Metadata{})

	if _, err := svc.Submit(ctx, d.ID); !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
	reloaded, err := svc.Draft(ctx, d.ID)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if reloaded.Status != draft.StatusOpen {
		t.Fatalf("draft status = %s", reloaded.Status)
	}
}

func TestSubmitWithoutRegistry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := New(cfg, testsupport.MustOpenDraftStore(t, cfg), nil)
	if _, err := svc.Submit(context.Background(), "x"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestDraftLookupErrors(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry())
	if _, err := svc.Draft(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDescribeAndDelete(t *testing.T) {
	svc, _ := newTestService(t, newFakeRegistry())
	ctx := context.Background()
	d, _ := svc.StartRegistration(ctx, alice, fingerprint.Text("song"), Metadata{})
	described, err := svc.Describe(ctx, d.ID, "  final mix ")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if described.Description != "final mix" {
		t.Fatalf("description = %q", described.Description)
	}
	if err := svc.DeleteDraft(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDraft: %v", err)
	}
	if _, err := svc.Draft(ctx, d.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("draft survived delete: %v", err)
	}
}
