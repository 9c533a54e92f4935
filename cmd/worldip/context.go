package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"worldip/internal/config"
	"worldip/internal/draft"
	"worldip/internal/logging"
	"worldip/internal/registry"
	"worldip/internal/services"
	"worldip/internal/session"
	"worldip/internal/workflow"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	stderr io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *slog.Logger
	drafts *draft.Store
	client *registry.Client
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
		stderr:        os.Stderr,
	}
}

// bind stamps the command path and a fresh correlation id onto the command
// context so every log line and registry request of this run share them.
func (c *commandContext) bind(cmd *cobra.Command) {
	c.stderr = cmd.ErrOrStderr()
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	base = services.WithCommand(base, cmd.CommandPath())
	cmd.SetContext(services.EnsureRequestID(base))
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if err := c.applyLogOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "ensure directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyLogOverrides(cfg *config.Config) error {
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		if _, err := logging.ParseLevel(*c.logLevelFlag); err != nil {
			return usageError{err: err}
		}
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
	}
	if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
		format := strings.ToLower(strings.TrimSpace(*c.logFormatFlag))
		if format != "console" && format != "json" {
			return usageErrorf("log format: unsupported value %q", *c.logFormatFlag)
		}
		cfg.Logging.Format = format
	}
	return nil
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	logger, err := logging.NewFromConfig(c.configValue(), c.stderr)
	if err != nil {
		logger = logging.NewNop()
	}
	c.logger = logger
	return logger
}

func (c *commandContext) draftStore() (*draft.Store, error) {
	if c.drafts != nil {
		return c.drafts, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := draft.Open(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "draft", "open store", cfg.DraftDBPath(), err)
	}
	c.drafts = store
	return store, nil
}

func (c *commandContext) registryClient() (*registry.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPI(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "configure", "", err)
	}
	client, err := registry.New(registry.Config{
		BaseURL:   cfg.API.BaseURL,
		Token:     cfg.API.Token,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.APITimeout(),
	}, registry.WithLogger(c.log()))
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

func (c *commandContext) sessionStore() (*session.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return session.NewStore(cfg.SessionPath()), nil
}

// identity returns the signed-in identity or an unauthorized error that
// tells the user how to sign in.
func (c *commandContext) identity(ctx context.Context) (session.Identity, error) {
	store, err := c.sessionStore()
	if err != nil {
		return session.Identity{}, err
	}
	id, err := store.Load(ctx)
	if errors.Is(err, session.ErrNotSignedIn) {
		return session.Identity{}, services.Wrap(services.ErrUnauthorized, "session", "load", "run 'worldip login --address 0x…' first", nil)
	}
	return id, err
}

// serviceOptions selects which collaborators a workflow service needs.
type serviceOptions struct {
	drafts   bool
	registry bool
	legacy   *bool
}

func (c *commandContext) service(opts serviceOptions) (*workflow.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var store *draft.Store
	if opts.drafts {
		if store, err = c.draftStore(); err != nil {
			return nil, err
		}
	}
	var reg workflow.Registry
	if opts.registry {
		client, err := c.registryClient()
		if err != nil {
			return nil, err
		}
		reg = client
	}
	wfOpts := []workflow.Option{workflow.WithLogger(c.log())}
	if opts.legacy != nil {
		wfOpts = append(wfOpts, workflow.WithLegacyLeadingChunk(*opts.legacy))
	}
	return workflow.New(cfg, store, reg, wfOpts...), nil
}

func (c *commandContext) close() error {
	if c.drafts == nil {
		return nil
	}
	err := c.drafts.Close()
	c.drafts = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
