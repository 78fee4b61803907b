// Package server wires the metadata server: database, object storage,
// event publisher, the HTTP API and the gRPC health service, and runs them
// until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/server/config"
	"github.com/dmitrijs2005/mediadrop/internal/server/events"
	grpcserver "github.com/dmitrijs2005/mediadrop/internal/server/grpc"
	"github.com/dmitrijs2005/mediadrop/internal/server/httpapi"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediadrop/internal/server/services"
	"github.com/dmitrijs2005/mediadrop/internal/server/storage"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	publisher events.Publisher
	server    *httpapi.HTTPServer
	health    *grpcserver.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := storage.New(ctx, storage.Options{
		Endpoint:   c.S3BaseEndpoint,
		Region:     c.S3Region,
		AccessKey:  c.S3AccessKey,
		SecretKey:  c.S3SecretKey,
		Bucket:     c.S3Bucket,
		PresignTTL: c.PresignTTL,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	created, err := store.EnsureBucket(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bucket %q: %w", store.Bucket(), err)
	}
	if created {
		logger.Info(ctx, "bucket created", "bucket", store.Bucket())
	}

	pub := events.New(c.KafkaBrokers, c.KafkaTopic, logger)

	us := services.NewUploadService(db, rm, store, c.MaxUploadBytes, logger)
	rs := services.NewRecordService(db, rm, store, pub, logger)
	srv := httpapi.NewHTTPServer(c.HTTPAddr, logger, us, rs, db.PingContext, c.ShutdownTimeout,
		httpapi.WithCORS(c.CORSOrigins))

	app := &App{config: c, logger: logger, db: db, publisher: pub, server: srv}
	if c.GRPCAddr != "" {
		app.health = grpcserver.NewGRPCServer(c.GRPCAddr, logger, db.PingContext, grpcserver.DefaultCheckInterval)
	}
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and gRPC health until ctx is cancelled, a signal
// arrives or either server fails, then releases the database and the
// publisher.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	serve := func(name string, run func(context.Context) error) {
		defer wg.Done()
		if err := run(ctx); err != nil {
			app.logger.Error(ctx, name, "error", err)
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			mu.Unlock()
		}
		// one server going down takes the other with it
		cancelFunc()
	}

	wg.Add(1)
	go serve("http server", app.server.Run)
	if app.health != nil {
		wg.Add(1)
		go serve("grpc server", app.health.Run)
	}
	wg.Wait()
	err := errors.Join(errs...)

	if cerr := app.publisher.Close(); cerr != nil {
		app.logger.Error(ctx, "close publisher", "error", cerr)
	}
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "close db", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
