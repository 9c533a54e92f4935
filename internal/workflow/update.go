package workflow

import (
	"context"
	"strings"

	"worldip/internal/fingerprint"
	"worldip/internal/logging"
	"worldip/internal/registry"
	"worldip/internal/services"
)

// UpdateResult is the outcome of recording a new revision.
type UpdateResult struct {
	CertificateID registry.CertificateID
	Fingerprint   string
	MetadataURI   string
	Description   string
	Transaction   string
	Revision      registry.Revision
}

// Update fingerprints the new content and records it as the certificate's
// latest revision. An empty description keeps the current one. Content
// identical to the current revision is rejected.
func (s *Service) Update(ctx context.Context, id registry.CertificateID, in fingerprint.Input, description string) (*UpdateResult, error) {
	if err := s.requireRegistry("update"); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "update", "certificate id is required", nil)
	}
	cert, err := s.registry.GetCertificate(ctx, id)
	if err != nil {
		return nil, err
	}

	digest, err := s.Fingerprint(ctx, in)
	if err != nil {
		return nil, err
	}
	if fingerprint.Matches(digest.Hex(), cert.LatestFileHash()) {
		return nil, services.Wrap(services.ErrValidation, "workflow", "update", "content is identical to the current revision", nil)
	}
	metadataURI, err := s.MetadataURI(digest)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = cert.Description
	}

	resp, err := s.registry.UpdateCertificate(ctx, registry.UpdateRequest{
		CertificateID:      id,
		UpdatedFileHash:    digest.Hex(),
		UpdatedMetadataURI: metadataURI,
		UpdatedDescription: description,
	})
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("certificate updated",
		logging.String(logging.FieldEventType, "certificate_updated"),
		logging.String(logging.FieldCertificateID, id.String()),
		logging.String("fingerprint", digest.Hex()),
		logging.String("transaction", resp.Transaction),
	)
	return &UpdateResult{
		CertificateID: id,
		Fingerprint:   digest.Hex(),
		MetadataURI:   metadataURI,
		Description:   description,
		Transaction:   resp.Transaction,
		Revision:      resp.UpdateEntry,
	}, nil
}
