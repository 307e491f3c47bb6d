package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"indian-airlines-ivr/internal/apierrors"
	authHandler "indian-airlines-ivr/internal/auth/handler"
	authProcessor "indian-airlines-ivr/internal/auth/processor"
	"indian-airlines-ivr/internal/clients/openai"
	"indian-airlines-ivr/internal/clients/redis"
	"indian-airlines-ivr/internal/clients/twilio"
	"indian-airlines-ivr/internal/config"
	manifestHandler "indian-airlines-ivr/internal/manifest/handler"
	manifestProcessor "indian-airlines-ivr/internal/manifest/processor"
	"indian-airlines-ivr/internal/observability"
	"indian-airlines-ivr/internal/ratelimit"
	"indian-airlines-ivr/internal/readiness"
	"indian-airlines-ivr/internal/scheduler"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	Logger *observability.Logger

	// Clients
	Redis  *redis.Client
	OpenAI *openai.Client
	Twilio *twilio.Client

	Readiness         *readiness.Manager
	ManifestProcessor *manifestProcessor.ManifestProcessor
	ValidateLimiter   *ratelimit.Service
	Scheduler         *scheduler.Scheduler

	// Handlers
	AuthHandler     authHandler.Handler
	ManifestHandler manifestHandler.Handler
}

// Initialize sets up all application dependencies. Integrations without
// credentials are left nil and reported as not configured on /ready.
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}
	apierrors.SetLogger(logger)

	var err error
	deps.Redis, err = redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	deps.OpenAI, err = openai.NewClient(cfg.Services.OpenAIAPIKey, cfg.Services.OpenAIModel, logger)
	if err != nil {
		if !errors.Is(err, openai.ErrMissingAPIKey) {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		logger.Warn(ctx, "OpenAI API key not set, skipping client initialization")
	}

	deps.Twilio, err = twilio.NewClient(cfg.Services.TwilioAccountSID, cfg.Services.TwilioAuthToken, logger)
	if err != nil {
		if !errors.Is(err, twilio.ErrMissingCredentials) {
			return nil, fmt.Errorf("failed to create twilio client: %w", err)
		}
		logger.Warn(ctx, "Twilio credentials not set, skipping client initialization")
	}

	// A nil *redis.Client must not be stored in the cache interfaces.
	var (
		readinessCache readiness.Cache
		reportCache    manifestProcessor.ReportCache
	)
	if deps.Redis.IsEnabled() {
		readinessCache = deps.Redis
		reportCache = deps.Redis
	}

	var source fs.FS
	if cfg.Manifest.SourceRoot != "" {
		source = os.DirFS(cfg.Manifest.SourceRoot)
	}
	deps.ManifestProcessor, err = manifestProcessor.New(manifestProcessor.Config{
		ManifestPath:     cfg.Manifest.Path,
		Source:           source,
		Releases:         cfg.Manifest.MaintainedReleases,
		CacheTTL:         cfg.Manifest.ReportCacheTTL,
		MaxDocumentBytes: cfg.Server.MaxUploadBytes,
	}, reportCache, logger)
	if err != nil {
		_ = deps.Redis.Close()
		return nil, err
	}
	deps.ManifestHandler = manifestHandler.New(deps.ManifestProcessor, cfg.Server.MaxUploadBytes, logger)
	deps.ValidateLimiter = ratelimit.NewService(deps.Redis, cfg.RateLimit.ValidatePerMinute, logger)

	deps.Readiness = readiness.NewManager(readiness.Config{
		Version:      deps.ManifestProcessor.Version(),
		CheckTimeout: cfg.Readiness.CheckTimeout,
		CacheTTL:     cfg.Readiness.CacheTTL,
	}, readinessCache, logger)
	deps.Readiness.Register(deps.Redis, deps.OpenAI, deps.Twilio)

	deps.Scheduler = scheduler.New(logger)
	deps.Scheduler.Register(
		scheduler.NewReportRefreshJob(deps.ManifestProcessor, cfg.Manifest.ReportRefreshInterval),
		scheduler.NewReadinessProbeJob(deps.Readiness, cfg.Readiness.ProbeInterval),
	)

	authProc := authProcessor.New(cfg.Auth.JWTSecret, logger)
	if !authProc.Enabled() {
		logger.Warn(ctx, "JWT_SECRET not set, operator routes will reject every request")
	}
	deps.AuthHandler = authHandler.New(authProc, logger)

	return deps, nil
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup() {
	if err := d.Redis.Close(); err != nil {
		d.Logger.Error(context.Background(), "failed to close redis client", err)
	}
}
