package workflow

import (
	"context"
	"errors"
	"log/slog"

	"worldip/internal/config"
	"worldip/internal/draft"
	"worldip/internal/fingerprint"
	"worldip/internal/logging"
	"worldip/internal/registry"
	"worldip/internal/services"
)

// Registry is the part of the registry client the workflows call.
type Registry interface {
	CreateCertificate(ctx context.Context, req registry.CreateRequest) (registry.CreateResponse, error)
	UpdateCertificate(ctx context.Context, req registry.UpdateRequest) (registry.UpdateResponse, error)
	GetCertificate(ctx context.Context, id registry.CertificateID) (*registry.Certificate, error)
}

// Service coordinates fingerprinting, drafts and registry calls.
type Service struct {
	cfg      *config.Config
	drafts   *draft.Store
	registry Registry
	engine   *fingerprint.Engine
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used by the workflows and the fingerprint engine.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logging.NewComponentLogger(logger, "workflow")
	}
}

// WithLegacyLeadingChunk overrides the configured legacy digest layout.
func WithLegacyLeadingChunk(enabled bool) Option {
	return func(s *Service) {
		cfg := *s.cfg
		cfg.Fingerprint.LegacyLeadingChunk = enabled
		s.cfg = &cfg
	}
}

// New constructs a Service. drafts and reg may be nil for callers that only
// fingerprint or verify offline; the flows needing them report a
// configuration error.
func New(cfg *config.Config, drafts *draft.Store, reg Registry, opts ...Option) *Service {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	s := &Service{
		cfg:      cfg,
		drafts:   drafts,
		registry: reg,
		logger:   logging.NewComponentLogger(nil, "workflow"),
		sampler:  logging.NewProgressSampler(10),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.newEngine()
	return s
}

func (s *Service) newEngine() *fingerprint.Engine {
	fp := s.cfg.Fingerprint
	return fingerprint.New(
		fingerprint.WithChunkSize(fp.ChunkSize),
		fingerprint.WithWorkers(fp.Workers),
		fingerprint.WithLegacyLeadingChunk(fp.LegacyLeadingChunk),
		fingerprint.WithLogger(logging.NewComponentLogger(s.logger, "fingerprint")),
		fingerprint.WithProgress(s.logProgress),
	)
}

func (s *Service) logProgress(p fingerprint.Progress) {
	if p.TotalBytes <= 0 {
		return
	}
	percent := float64(p.BytesRead) / float64(p.TotalBytes) * 100
	if !s.sampler.ShouldLog(percent, "fingerprint") {
		return
	}
	s.logger.Debug("fingerprint progress",
		logging.Int("chunk", p.Chunk),
		logging.Int("chunks", p.Chunks),
		logging.Int64("bytes_read", p.BytesRead),
		logging.Int64("total_bytes", p.TotalBytes),
	)
}

// Fingerprint computes the digest of in with the configured engine and
// fingerprint timeout.
func (s *Service) Fingerprint(ctx context.Context, in fingerprint.Input) (fingerprint.Digest, error) {
	s.sampler.Reset()
	timeout := s.cfg.FingerprintTimeout()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	digest, err := s.engine.Digest(ctx, in)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fingerprint.Digest{}, services.Wrap(services.ErrTimeout, "workflow", "fingerprint", "fingerprint timed out", err)
		}
		return fingerprint.Digest{}, err
	}
	logging.WithContext(ctx, s.logger).Debug("fingerprint computed",
		logging.String("kind", in.Kind.String()),
		logging.String("name", in.Name()),
		logging.Int64("size", in.Size()),
		logging.String("digest", digest.Hex()),
	)
	return digest, nil
}

// ChunkSize returns the chunk size the engine hashes with.
func (s *Service) ChunkSize() int {
	return s.engine.ChunkSize()
}

// MetadataURI returns the metadata URI registered alongside digest: "NA", as
// the earlier web client always sent, or "mh:" plus the base58 multihash.
func (s *Service) MetadataURI(digest fingerprint.Digest) (string, error) {
	if !s.cfg.UseMultihashMetadata() {
		return config.MetadataURINone, nil
	}
	mh, err := digest.Multihash()
	if err != nil {
		return "", err
	}
	return "mh:" + mh, nil
}

func (s *Service) requireDrafts(op string) error {
	if s.drafts == nil {
		return services.Wrap(services.ErrConfiguration, "workflow", op, "draft store unavailable", nil)
	}
	return nil
}

func (s *Service) requireRegistry(op string) error {
	if s.registry == nil {
		return services.Wrap(services.ErrConfiguration, "workflow", op, "registry client unavailable", nil)
	}
	return nil
}
