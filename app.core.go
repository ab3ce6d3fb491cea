package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	redisClient    *redis.Client
	cleanups       []func()
	queueConsumers []func(context.Context) error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs("./config.yml", "./config.env", GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// ensure the logs folder exists and Setup the logging module.
	err = os.MkdirAll(config.LogFolder, 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, clock)
	app := &App{
		logger: logger,
		config: config,
		cleanups: []func(){
			func() {
				if err := flusher(); err != nil {
					fmt.Println("error during flushing of logs: ", err)
				}
			},
			func() {
				if err := logWriter.Close(); err != nil {
					fmt.Println("error during closing of log file: ", err)
				}
			},
		},
	}

	// Setup the catalog store with its default dataset.
	bookStorage, err := NewMemoryBookStorage(logger, DefaultSeedBooks()...)
	if err != nil {
		app.Clean()
		return nil, fmt.Errorf("failed to seed the catalog: %s", err)
	}

	// Setup the optional journal made of a redis queue and a boltDB archive.
	var queue Queuer
	var archive BookArchive
	if config.Journal.Enabled {
		queue, archive, err = app.setupJournal()
		if err != nil {
			app.Clean()
			return nil, err
		}
	}

	ids := NewIDsHandler()
	catalogService := NewCatalogService(logger, clock, ids, bookStorage, queue)
	apiService, err := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		ids,
		catalogService,
	)
	if err != nil {
		app.Clean()
		return nil, fmt.Errorf("failed to setup api handler: %s", err)
	}
	if archive != nil {
		apiService.WithArchive(archive)
	}

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	// Build the map of middlewares stacks.
	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()

	// Configure the endpoints with their handlers and middlewares.
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	// Wrap the router with the default http timeout handler.
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	// Build the api server definition.
	app.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}

	return app, nil
}

// setupJournal connects to redis and boltDB then registers the
// archiving consumer and the related cleanups.
func (app *App) setupJournal() (Queuer, BookArchive, error) {
	redisClient, err := GetRedisClient(app.config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis server: %s", err)
	}
	app.redisClient = redisClient

	if err = os.MkdirAll(filepath.Dir(app.config.BoltDB.FilePath), 0o700); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("failed to create boltDB folder: %s", err)
	}
	boltDBClient, err := GetBoltDBClient(app.config)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("failed to connect to boltDB server: %s", err)
	}
	archive := NewBoltBookArchive(app.logger, &app.config.BoltDB, boltDBClient)
	app.cleanups = append([]func(){func() {
		if err := archive.Close(); err != nil {
			app.logger.Error("failed to close boltDB archive", zap.Error(err))
		}
	}}, app.cleanups...)

	queue := NewRedisQueue(redisClient)
	boltDBConsumer := NewBoltDBConsumer(app.logger, queue, archive)
	app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
		return boltDBConsumer.Consume(ctx, BookAddedQueue)
	})
	return queue, archive, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
		)
		err := app.server.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch err {
		case nil, http.ErrServerClosed:
			app.logger.Info("api server graceful shutdown succeeded")
		case context.DeadlineExceeded:
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		if app.redisClient != nil {
			_ = app.redisClient.Close()
		}
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
