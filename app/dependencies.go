package app

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/phantask/auth-service/auth"
	"github.com/phantask/auth-service/config"
	"github.com/phantask/auth-service/handlers"
	"github.com/phantask/auth-service/middleware"
	"github.com/phantask/auth-service/repositories"
	"github.com/phantask/auth-service/repositories/postgres"
	"github.com/phantask/auth-service/services"
	"github.com/phantask/auth-service/services/ratelimit"
	"github.com/phantask/auth-service/tokens"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager

	// Tokens
	Codec     *tokens.Codec
	Validator *tokens.Validator

	// Services
	AuthService  *services.AuthService
	LoginLimiter ratelimit.Limiter

	// HTTP
	TrustedProxies []netip.Prefix
	authHandler    *auth.Handler
	UserHandler    *handlers.UserHandler
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
	LoginThrottle  *middleware.LoginThrottle
}

// AuthHandler returns the auth handler for route wiring (implements handlers.AuthDeps)
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.wire(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesWithRepositories wires everything above the storage layer
// onto the given repositories. No database connection is opened.
func NewDependenciesWithRepositories(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Users:     users,
		TxManager: txMgr,
	}

	if err := deps.wire(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}
	return deps, nil
}

func (d *Dependencies) wire(ctx context.Context, cfg *config.Config) error {
	proxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	d.TrustedProxies = proxies

	if err := d.initTokens(cfg); err != nil {
		return fmt.Errorf("failed to initialize tokens: %w", err)
	}

	if err := d.initLimiter(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize login limiter: %w", err)
	}

	d.initAuth(cfg)

	if err := d.bootstrapAdmin(ctx, cfg); err != nil {
		return fmt.Errorf("failed to bootstrap admin account: %w", err)
	}
	return nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.Database.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initTokens builds the codec and validator from the signing key; a bad key is fatal
func (d *Dependencies) initTokens(cfg *config.Config) error {
	tokenCfg := tokens.Config{
		Secret:     cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}

	codec, err := tokens.NewCodec(tokenCfg)
	if err != nil {
		return err
	}
	validator, err := tokens.NewValidator(tokenCfg)
	if err != nil {
		return err
	}

	d.Codec = codec
	d.Validator = validator
	d.Logger.Info("token codec initialized",
		zap.Duration("access_ttl", codec.AccessTTL()),
		zap.Duration("refresh_ttl", codec.RefreshTTL()))
	return nil
}

// initLimiter selects Redis when configured, otherwise a per-process limiter
func (d *Dependencies) initLimiter(ctx context.Context, cfg *config.Config) error {
	rl := cfg.RateLimit
	if !rl.Redis.Enabled() {
		d.LoginLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: rl.MaxKeys})
		d.Logger.Info("login limiter using process memory",
			zap.Int("limit", rl.LoginLimit),
			zap.Duration("window", rl.LoginWindow))
		return nil
	}

	opts, err := ratelimit.RedisOptions(rl.Redis.Addr, rl.Redis.Password, rl.Redis.DB)
	if err != nil {
		return err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	d.Redis = client
	d.LoginLimiter = ratelimit.NewRedisLimiter(client, rl.Redis.Prefix, nil)
	d.Logger.Info("login limiter using redis",
		zap.String("addr", rl.Redis.Addr),
		zap.Int("limit", rl.LoginLimit),
		zap.Duration("window", rl.LoginWindow))
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.AuthService = services.NewAuthService(
		d.Users,
		d.TxManager,
		services.NewBcryptHasher(cfg.Auth.BcryptCost),
		d.Codec,
		d.Validator,
		services.AuthServiceConfig{StudentTempPassword: cfg.Auth.StudentTempPassword},
		d.Logger,
	)

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Validator, d.Users, d.Logger)
	d.LoginThrottle = middleware.NewLoginThrottle(d.LoginLimiter, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow, d.Logger)
	d.authHandler = auth.NewHandler(d.AuthService, handlers.HandleServiceError, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.AuthService, d.Logger)

	var dbCheck handlers.CheckFunc
	if d.DB != nil {
		dbCheck = d.DB.HealthCheck
	}
	d.HealthHandler = handlers.NewHealthHandler(dbCheck, d.Logger)
	if d.Redis != nil {
		client := d.Redis
		d.HealthHandler.AddCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	d.Logger.Info("auth handler initialized")
}

// bootstrapAdmin ensures the configured ADMIN account exists
func (d *Dependencies) bootstrapAdmin(ctx context.Context, cfg *config.Config) error {
	username := cfg.Auth.BootstrapAdminUsername
	if username == "" || cfg.Auth.BootstrapAdminPassword == "" {
		return nil
	}

	created, err := d.AuthService.EnsureAdmin(ctx, username, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	if created {
		d.Logger.Info("bootstrap admin account created", zap.String("username", username))
	}
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
