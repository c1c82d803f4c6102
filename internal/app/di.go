// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/healthsync/tokenvault/internal/config"
	cryptoService "github.com/healthsync/tokenvault/internal/crypto/service"
	cryptoUsecase "github.com/healthsync/tokenvault/internal/crypto/usecase"
	"github.com/healthsync/tokenvault/internal/database"
	integrationRepository "github.com/healthsync/tokenvault/internal/integration/repository"
	"github.com/healthsync/tokenvault/internal/metrics"

	keyRepository "github.com/healthsync/tokenvault/internal/crypto/repository"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Repositories
	keyRepo         cryptoUsecase.KeyRepository
	integrationRepo cryptoUsecase.IntegrationRepository

	// Services
	codec     cryptoService.Codec
	keySource cryptoService.KeySource

	// Use Cases
	rotationUseCase cryptoUsecase.RotationUseCase

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	keyRepoInit         sync.Once
	integrationRepoInit sync.Once
	codecInit           sync.Once
	keySourceInit       sync.Once
	rotationInit        sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry/Prometheus metrics provider.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// Returns the no-op implementation when metrics are disabled in configuration.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}

		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}

		businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// KeyRepository returns the key registry repository instance.
func (c *Container) KeyRepository() (cryptoUsecase.KeyRepository, error) {
	c.keyRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["keyRepo"] = fmt.Errorf("failed to get database for key repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.keyRepo = keyRepository.NewMySQLKeyRepository(db)
		case "postgres":
			c.keyRepo = keyRepository.NewPostgreSQLKeyRepository(db)
		default:
			c.initErrors["keyRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["keyRepo"]; exists {
		return nil, storedErr
	}
	return c.keyRepo, nil
}

// IntegrationRepository returns the integration repository instance.
func (c *Container) IntegrationRepository() (cryptoUsecase.IntegrationRepository, error) {
	c.integrationRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["integrationRepo"] = fmt.Errorf(
				"failed to get database for integration repository: %w", err,
			)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.integrationRepo = integrationRepository.NewMySQLIntegrationRepository(db)
		case "postgres":
			c.integrationRepo = integrationRepository.NewPostgreSQLIntegrationRepository(db)
		default:
			c.initErrors["integrationRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["integrationRepo"]; exists {
		return nil, storedErr
	}
	return c.integrationRepo, nil
}

// Codec returns the envelope codec.
func (c *Container) Codec() cryptoService.Codec {
	c.codecInit.Do(func() {
		c.codec = cryptoService.NewEnvelopeCodec(cryptoService.NewAEADManager())
	})
	return c.codec
}

// KeySource returns the key source selected by configuration: the explicit
// config value ("env") or a gocloud.dev secrets keeper ("keeper").
func (c *Container) KeySource() (cryptoService.KeySource, error) {
	c.keySourceInit.Do(func() {
		switch c.config.KeySourceProvider {
		case "keeper":
			c.keySource = cryptoService.NewKeeperKeySource(
				c.config.KeyKeeperURI,
				c.config.EncryptionKeyCiphertext,
			)
		case "env":
			c.keySource = cryptoService.NewEnvKeySource(c.config.EncryptionKey)
		default:
			c.initErrors["keySource"] = fmt.Errorf(
				"unsupported key source provider: %s", c.config.KeySourceProvider,
			)
		}
	})
	if storedErr, exists := c.initErrors["keySource"]; exists {
		return nil, storedErr
	}
	return c.keySource, nil
}

// RotationUseCase returns the key rotation use case with all its dependencies.
func (c *Container) RotationUseCase() (cryptoUsecase.RotationUseCase, error) {
	c.rotationInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["rotationUseCase"] = fmt.Errorf("failed to get tx manager for rotation: %w", err)
			return
		}

		keyRepo, err := c.KeyRepository()
		if err != nil {
			c.initErrors["rotationUseCase"] = fmt.Errorf("failed to get key repository for rotation: %w", err)
			return
		}

		integrationRepo, err := c.IntegrationRepository()
		if err != nil {
			c.initErrors["rotationUseCase"] = fmt.Errorf(
				"failed to get integration repository for rotation: %w", err,
			)
			return
		}

		keySource, err := c.KeySource()
		if err != nil {
			c.initErrors["rotationUseCase"] = fmt.Errorf("failed to get key source for rotation: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["rotationUseCase"] = fmt.Errorf("failed to get business metrics for rotation: %w", err)
			return
		}

		useCaseConfig := cryptoUsecase.Config{
			BatchSize:        uint(c.config.RotationBatchSize),
			BatchesPerSecond: c.config.RotationBatchesPerSec,
		}

		c.rotationUseCase = cryptoUsecase.NewRotationUseCase(
			useCaseConfig,
			txManager,
			keyRepo,
			integrationRepo,
			c.Codec(),
			keySource,
			c.Logger(),
			businessMetrics,
		)
	})
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
