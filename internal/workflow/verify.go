package workflow

import (
	"context"

	"worldip/internal/fingerprint"
	"worldip/internal/logging"
	"worldip/internal/registry"
	"worldip/internal/services"
)

// VerifyResult compares freshly computed content with a registered
// fingerprint. Match is true only against the current revision.
type VerifyResult struct {
	CertificateID registry.CertificateID
	Computed      string
	Expected      string
	Match         bool
	// MatchedRevision is the index into the certificate history (0 is the
	// original registration) that the content equals, or -1. When Match is
	// false and MatchedRevision >= 0 the content is an earlier version.
	MatchedRevision int
	Revisions       int
	Certificate     *registry.Certificate
}

// EarlierVersion reports whether the content matches a superseded revision.
func (r VerifyResult) EarlierVersion() bool {
	return !r.Match && r.MatchedRevision >= 0
}

// Verify fetches the certificate and checks in against its current revision.
func (s *Service) Verify(ctx context.Context, id registry.CertificateID, in fingerprint.Input) (VerifyResult, error) {
	if err := s.requireRegistry("verify"); err != nil {
		return VerifyResult{}, err
	}
	if id == "" {
		return VerifyResult{}, services.Wrap(services.ErrValidation, "workflow", "verify", "certificate id is required", nil)
	}
	cert, err := s.registry.GetCertificate(ctx, id)
	if err != nil {
		return VerifyResult{}, err
	}
	digest, err := s.Fingerprint(ctx, in)
	if err != nil {
		return VerifyResult{}, err
	}

	history := cert.History()
	result := VerifyResult{
		CertificateID:   id,
		Computed:        digest.Hex(),
		Expected:        cert.LatestFileHash(),
		MatchedRevision: -1,
		Revisions:       len(history),
		Certificate:     cert,
	}
	result.Match = fingerprint.Matches(result.Computed, result.Expected)
	for i := len(history) - 1; i >= 0; i-- {
		if fingerprint.Matches(result.Computed, history[i]) {
			result.MatchedRevision = i
			break
		}
	}
	s.logVerification(ctx, result)
	return result, nil
}

// VerifyDigest checks in against a stored digest without contacting the
// registry. A malformed stored digest is reported as a validation error
// rather than a silent mismatch.
func (s *Service) VerifyDigest(ctx context.Context, stored string, in fingerprint.Input) (VerifyResult, error) {
	if _, err := fingerprint.ParseDigest(stored); err != nil {
		return VerifyResult{}, services.Wrap(services.ErrValidation, "workflow", "verify", "expected digest", err)
	}
	digest, err := s.Fingerprint(ctx, in)
	if err != nil {
		return VerifyResult{}, err
	}
	result := VerifyResult{
		Computed:        digest.Hex(),
		Expected:        stored,
		MatchedRevision: -1,
		Revisions:       1,
	}
	result.Match = fingerprint.Matches(result.Computed, stored)
	if result.Match {
		result.MatchedRevision = 0
	}
	s.logVerification(ctx, result)
	return result, nil
}

func (s *Service) logVerification(ctx context.Context, result VerifyResult) {
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{
		logging.String(logging.FieldCertificateID, result.CertificateID.String()),
		logging.String("computed", result.Computed),
		logging.String("expected", result.Expected),
	}
	if result.Match {
		logger.Info("verification passed", logging.Args(append(attrs, logging.String(logging.FieldEventType, "verify_match"))...)...)
		return
	}
	attrs = append(attrs,
		logging.Int("matched_revision", result.MatchedRevision),
		logging.String(logging.FieldErrorHint, "check that the file is the registered version and byte-for-byte unchanged"),
		logging.String(logging.FieldImpact, "content does not prove ownership of this certificate"),
	)
	logging.WarnWithContext(logger, "verification failed", "verify_mismatch", attrs...)
}
