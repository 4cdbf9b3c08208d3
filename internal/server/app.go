// Package server wires the fittrack components together and runs the HTTP
// API until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrijs2005/fittrack/internal/cryptox"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/auth"
	"github.com/dmitrijs2005/fittrack/internal/server/config"
	"github.com/dmitrijs2005/fittrack/internal/server/guard"
	"github.com/dmitrijs2005/fittrack/internal/server/httpapi"
	"github.com/dmitrijs2005/fittrack/internal/server/identity"
	"github.com/dmitrijs2005/fittrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fittrack/internal/server/services"
	"github.com/dmitrijs2005/fittrack/internal/server/storage"
	"github.com/dmitrijs2005/fittrack/internal/server/telemetry"
)

const serviceName = "fittrack"

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	server  *httpapi.Server
	limiter *httpapi.RateLimiter
}

// NewApp validates c and builds every component. The token secret and field
// key are consumed here once and never reloaded.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(os.Stdout, c.Mode, c.LogLevel)

	tokens, err := auth.NewTokenAuthority([]byte(c.JWTSecret), c.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("token authority: %w", err)
	}
	cipher, err := cryptox.NewFieldCipher(c.EncryptionKey, c.EncryptionKeyMinLength)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	avatars, err := storage.NewAvatarStore(ctx, storage.Settings{
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
		PresignTTL:   c.S3PresignTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("avatar store: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	errs := httpapi.NewErrorResponder(c.IsProduction(), logger)
	g := guard.New(tokens, identity.NewResolver(rm.Users(db), logger), errs.Write, logger)
	limiter := httpapi.NewRateLimiter(c.RateLimitRPS, c.RateLimitBurst)

	h := httpapi.NewHandler(httpapi.Options{
		Auth:         services.NewAuthService(db, rm, tokens, logger),
		Profiles:     services.NewProfileService(db, rm, cipher, avatars, logger),
		Exercises:    services.NewExerciseService(db, rm, logger),
		Guard:        g,
		Errors:       errs,
		Limiter:      limiter,
		Log:          logger,
		TokenTTL:     tokens.TTL(),
		CookieSecure: c.CookieSecure,
	})

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		server:  httpapi.NewServer(c.HTTPAddr, otelhttp.NewHandler(h.Routes(), serviceName), logger),
		limiter: limiter,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal or ctx cancellation, then shuts the
// HTTP server down, flushes traces and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "mode", app.config.Mode)
	app.initSignalHandler(cancelFunc)

	shutdownTracing := telemetry.Setup(ctx, telemetry.Settings{
		ServiceName: serviceName,
		Endpoint:    app.config.OTLPEndpoint,
		Insecure:    app.config.OTLPInsecure,
	}, app.logger)

	go app.limiter.Cleanup(ctx, time.Minute, 10*time.Minute)

	runErr := app.server.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "http server error", "error", runErr)
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		app.logger.Warn(ctx, "telemetry shutdown error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	return runErr
}
