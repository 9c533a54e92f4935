package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"worldip/internal/draft"
	"worldip/internal/fingerprint"
	"worldip/internal/logging"
	"worldip/internal/ownership"
	"worldip/internal/registry"
	"worldip/internal/services"
)

// Metadata is the descriptive information entered with a new work.
type Metadata struct {
	Description string
	// FileFormat overrides the format derived from the input.
	FileFormat string
}

// Submission is the outcome of a successful Submit.
type Submission struct {
	Draft         *draft.Draft
	CertificateID registry.CertificateID
	Transaction   string
	Message       string
}

// StartRegistration fingerprints in and stores an open draft solely owned by
// owner.
func (s *Service) StartRegistration(ctx context.Context, owner ownership.Address, in fingerprint.Input, meta Metadata) (*draft.Draft, error) {
	if err := s.requireDrafts("start registration"); err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, services.Wrap(services.ErrUnauthorized, "workflow", "start registration", "sign in before registering", nil)
	}
	digest, err := s.Fingerprint(ctx, in)
	if err != nil {
		return nil, err
	}
	metadataURI, err := s.MetadataURI(digest)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(meta.Description)
	if description == "" {
		description = strings.TrimSpace(s.cfg.Registration.DefaultDescription)
	}
	d, err := s.drafts.Create(ctx, &draft.Draft{
		Owner:       owner,
		Fingerprint: digest.Hex(),
		InputKind:   in.Kind.String(),
		FileName:    in.Name(),
		FileFormat:  fileFormat(in, meta.FileFormat),
		SizeBytes:   in.Size(),
		Description: description,
		MetadataURI: metadataURI,
		Shares:      ownership.Sole(owner),
	})
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	ctx = services.WithDraftID(ctx, d.ID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("draft created",
		logging.String(logging.FieldEventType, "draft_created"),
		logging.String("fingerprint", d.Fingerprint),
		logging.String("file", d.DisplayName()),
	)
	s.warnIfAlreadyRegistered(ctx, d)
	return d, nil
}

// fileFormat mirrors the web client: ".ext" for files and "txt" for text.
func fileFormat(in fingerprint.Input, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	if in.Kind == fingerprint.KindText {
		return "txt"
	}
	return in.Format()
}

func (s *Service) warnIfAlreadyRegistered(ctx context.Context, d *draft.Draft) {
	matches, err := s.drafts.FindByFingerprint(ctx, d.Fingerprint)
	if err != nil {
		return
	}
	for _, other := range matches {
		if other.ID == d.ID || other.Status != draft.StatusSubmitted {
			continue
		}
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "content already registered from this machine", "duplicate_content",
			logging.String(logging.FieldCertificateID, other.CertificateID),
			logging.String(logging.FieldErrorHint, "run 'worldip update' to record a new revision instead"),
			logging.String(logging.FieldImpact, "the registry may reject the duplicate"),
		)
		return
	}
}

// Draft resolves a draft by id or unique id prefix.
func (s *Service) Draft(ctx context.Context, id string) (*draft.Draft, error) {
	if err := s.requireDrafts("load draft"); err != nil {
		return nil, err
	}
	d, err := s.drafts.Resolve(ctx, id)
	if errors.Is(err, draft.ErrAmbiguous) {
		return nil, services.Wrap(services.ErrValidation, "workflow", "load draft", "", err)
	}
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "load draft", fmt.Sprintf("no draft %q", id), nil)
	}
	return d, nil
}

// SetShares replaces a draft's ownership split. The split may be incomplete
// while editing but never above 100%; Submit requires exactly 100%.
func (s *Service) SetShares(ctx context.Context, draftID string, shares ownership.Shares) (*draft.Draft, error) {
	d, err := s.Draft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if !d.Editable() {
		return nil, services.Wrap(services.ErrValidation, "workflow", "set shares", "", fmt.Errorf("%w (certificate %s)", draft.ErrSubmitted, d.CertificateID))
	}
	var checked ownership.Shares
	for _, share := range shares {
		if err := checked.Add(share); err != nil {
			return nil, services.Wrap(services.ErrValidation, "workflow", "set shares", "", err)
		}
	}
	d.Shares = checked
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, s.draftError("set shares", err)
	}
	logging.WithContext(services.WithDraftID(ctx, d.ID), s.logger).Info("draft ownership updated",
		logging.String("shares", d.Shares.String()),
		logging.Int("total", d.Shares.Total()),
	)
	return d, nil
}

// Describe changes a draft's description.
func (s *Service) Describe(ctx context.Context, draftID, description string) (*draft.Draft, error) {
	d, err := s.Draft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	d.Description = strings.TrimSpace(description)
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, s.draftError("describe", err)
	}
	return d, nil
}

// DeleteDraft removes a draft.
func (s *Service) DeleteDraft(ctx context.Context, draftID string) error {
	d, err := s.Draft(ctx, draftID)
	if err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, d.ID); err != nil {
		return s.draftError("delete draft", err)
	}
	return nil
}

// Drafts lists the drafts owned by owner, or every draft when owner is empty.
func (s *Service) Drafts(ctx context.Context, owner ownership.Address) ([]*draft.Draft, error) {
	if err := s.requireDrafts("list drafts"); err != nil {
		return nil, err
	}
	return s.drafts.List(ctx, owner)
}

// Submit registers a draft with the registry and marks it submitted.
func (s *Service) Submit(ctx context.Context, draftID string) (*Submission, error) {
	if err := s.requireRegistry("submit"); err != nil {
		return nil, err
	}
	d, err := s.Draft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := d.Ready(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "submit", "draft "+d.ShortID(), err)
	}

	ctx = services.WithDraftID(ctx, d.ID)
	logger := logging.WithContext(ctx, s.logger)
	resp, err := s.registry.CreateCertificate(ctx, registry.CreateRequest{
		FileHash:    d.Fingerprint,
		MetadataURI: d.MetadataURI,
		Description: d.Description,
		FileFormat:  d.FileFormat,
		Owners:      d.Shares,
	})
	if err != nil {
		logging.ErrorWithContext(logger, "certificate registration failed", "register_failed", logging.Error(err))
		return nil, err
	}

	if err := s.drafts.MarkSubmitted(ctx, d.ID, resp.CertificateID.String(), resp.Transaction); err != nil {
		logging.ErrorWithContext(logger, "certificate registered but draft not updated", "draft_persist_failed",
			logging.String(logging.FieldCertificateID, resp.CertificateID.String()),
			logging.String(logging.FieldErrorHint, "note the certificate id; the draft still shows as open"),
			logging.Error(err),
		)
		return nil, fmt.Errorf("certificate %s registered but draft not marked submitted: %w", resp.CertificateID, err)
	}
	submitted, err := s.drafts.Get(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	logger.Info("certificate registered",
		logging.String(logging.FieldEventType, "certificate_registered"),
		logging.String(logging.FieldCertificateID, resp.CertificateID.String()),
		logging.String("transaction", resp.Transaction),
	)
	return &Submission{
		Draft:         submitted,
		CertificateID: resp.CertificateID,
		Transaction:   resp.Transaction,
		Message:       resp.Message,
	}, nil
}

func (s *Service) draftError(op string, err error) error {
	switch {
	case errors.Is(err, draft.ErrSubmitted):
		return services.Wrap(services.ErrValidation, "workflow", op, "", err)
	case errors.Is(err, draft.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "workflow", op, "", err)
	default:
		return err
	}
}
