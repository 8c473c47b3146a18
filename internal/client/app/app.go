// Package app assembles the client core and runs it behind the terminal
// front-end: it opens the local cache and the secure store, builds the REST
// client with its token-refreshing transport, starts the background workers
// and the session gate, and hands the terminal to the REPL.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/fieldmate/internal/client/blobstore"
	"github.com/dmitrijs2005/fieldmate/internal/client/cli"
	"github.com/dmitrijs2005/fieldmate/internal/client/client"
	"github.com/dmitrijs2005/fieldmate/internal/client/config"
	"github.com/dmitrijs2005/fieldmate/internal/client/metrics"
	"github.com/dmitrijs2005/fieldmate/internal/client/reporting"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/documents"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/jobs"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/locations"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/notifications"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/syncstate"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/timeentries"
	"github.com/dmitrijs2005/fieldmate/internal/client/securestore"
	"github.com/dmitrijs2005/fieldmate/internal/client/services"
	"github.com/dmitrijs2005/fieldmate/internal/client/session"
	"github.com/dmitrijs2005/fieldmate/internal/client/tracking"
	"github.com/dmitrijs2005/fieldmate/internal/client/updates"
	"github.com/dmitrijs2005/fieldmate/internal/client/workers"
	"github.com/dmitrijs2005/fieldmate/internal/cryptox"
	"github.com/dmitrijs2005/fieldmate/internal/filex"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// storeKeySalt binds a configured device secret to this application.
const storeKeySalt = "fieldmate/secure-store/v1"

type App struct {
	config  *config.Config
	logger  logging.Logger
	closers []io.Closer

	db        *sql.DB
	store     *securestore.Store
	online    *workers.OnlineWatcher
	scheduler *workers.Scheduler
	gate      *session.Gate
	cli       *cli.App
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	app := &App{config: c}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	if _, err := filex.EnsureDir(c.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	logger, err := app.openLogger()
	if err != nil {
		return nil, err
	}
	app.logger = logger

	key, err := storeKey(c)
	if err != nil {
		return nil, fmt.Errorf("store key: %w", err)
	}
	db, err := client.InitDatabase(ctx, c.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	store, err := securestore.Open(ctx, db, key, logger.With("component", "securestore"))
	if err != nil {
		return nil, fmt.Errorf("secure store: %w", err)
	}
	app.store = store
	if err := session.LockOnLaunch(ctx, store); err != nil {
		return nil, fmt.Errorf("lock on launch: %w", err)
	}

	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if c.MetricsEnabled {
		reg := prometheus.NewRegistry()
		registerer, gatherer = reg, reg
	}
	m := metrics.NewWorkerMetrics(registerer)

	bus := session.NewBus()
	plain := &http.Client{Timeout: c.RequestTimeout}
	authed := &http.Client{Timeout: c.RequestTimeout}
	rest := client.NewRESTClient(c.ServerURL, c.APIKey, plain, authed)
	authed.Transport = client.NewAuthenticator(nil, store, rest, bus, logger.With("component", "authenticator"))

	reporter := reporting.NewHTTPReporter(c.ErrorReportURL, c.APIKey, c.AppVersion, plain, userIDs{store}, logger)

	var blobs services.BlobStore
	if c.DocumentBucket != "" {
		s3, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:    c.DocumentBucket,
			Region:    c.DocumentRegion,
			Endpoint:  c.DocumentEndpoint,
			PublicURL: c.DocumentPublicURL,
		}, plain)
		if err != nil {
			logger.Warn(ctx, "document storage disabled", "error", err)
		} else {
			blobs = s3
		}
	}

	runs := syncstate.NewSQLiteRepository(db)
	queue := services.NewLocationQueue(rest, locations.NewSQLiteRepository(db), services.QueueConfig{
		BatchSize:   c.LocationBatchSize,
		Cap:         c.LocationQueueCap,
		MaxAttempts: c.LocationMaxAttempts,
	}, logger)

	auth := services.NewAuthService(rest, store, logger, queue, runs)
	jobSvc := services.NewJobService(rest, jobs.NewSQLiteRepository(db), store, logger)
	entrySvc := services.NewTimeEntryService(rest, timeentries.NewSQLiteRepository(db), store, reporter, logger)
	notifSvc := services.NewNotificationService(rest, notifications.NewSQLiteRepository(db), store, logger)
	docSvc := services.NewDocumentService(rest, documents.NewSQLiteRepository(db), blobs,
		filepath.Join(c.DataDir, "documents"), logger)
	tracker := tracking.NewTracker(queue, store, c.MinDistanceMeters, logger)

	app.online = workers.NewOnlineWatcher(rest, c.OnlineCheckInterval, logger, m)
	app.scheduler = workers.NewScheduler(logger.With("component", "workers"), m, app.online)
	app.scheduler.RecordRuns(runs)

	var checker cli.UpdateChecker
	if c.UpdateManifestURL != "" {
		checker = updates.NewChecker(c.UpdateManifestURL, plain)
	}

	app.cli = cli.NewApp(cli.Deps{
		Auth:           auth,
		Jobs:           jobSvc,
		TimeEntries:    entrySvc,
		Notifications:  notifSvc,
		Documents:      docSvc,
		Locations:      queue,
		Tracker:        tracker,
		Scheduler:      app.scheduler,
		Updates:        checker,
		Net:            app.online,
		Session:        store,
		Runs:           runs,
		Metrics:        gatherer,
		AppVersionCode: c.AppVersionCode,
		DownloadDir:    c.DataDir,
	})
	app.gate = session.NewGate(store, bus, app.cli, nil, logger.With("component", "gate"))
	app.cli.SetGate(app.gate)

	app.scheduler.Every(c.NotificationPollInterval, workers.NewNotificationPoller(notifSvc, app.cli), true)
	app.scheduler.Every(c.LocationFlushInterval, workers.NewLocationFlusher(queue, store, m), true)
	app.scheduler.Every(c.ReconcileInterval, workers.NewReconciler(
		workers.Step{Name: "time_entries.sync", Run: entrySvc.Sync},
		workers.Step{Name: "documents.sync", Run: docSvc.Sync},
		workers.Step{Name: "time_entries.refresh", Run: entrySvc.Refresh},
		workers.Step{Name: "jobs.refresh", Run: jobSvc.Refresh},
		workers.Step{Name: "notifications.refresh", Run: notifSvc.Refresh},
		workers.Step{Name: "profile.refresh", Run: auth.RefreshProfile},
	), true)

	ok = true
	return app, nil
}

func (app *App) openLogger() (logging.Logger, error) {
	c := app.config
	if c.LogFile == "-" {
		return logging.New(c.LogFormat, c.LogLevel, os.Stderr), nil
	}
	f, err := os.OpenFile(c.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	app.closers = append(app.closers, f)
	return logging.New(c.LogFormat, c.LogLevel, f), nil
}

func storeKey(c *config.Config) ([]byte, error) {
	if c.DeviceSecret != "" {
		return cryptox.DeriveStoreKey([]byte(c.DeviceSecret), []byte(storeKeySalt)), nil
	}
	return cryptox.LoadOrCreateKey(c.StoreKeyPath())
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the background loops and blocks in the REPL. Leaving the REPL
// or a termination signal stops everything.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", app.config.AppVersion)
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.gate.Run(gctx) })
	g.Go(func() error { return app.online.Run(gctx) })
	g.Go(func() error { return app.scheduler.Run(gctx) })
	g.Go(func() error {
		kickOnReconnect(gctx, app.online.Subscribe(gctx), app.scheduler)
		return nil
	})

	go func() {
		app.cli.Root(ctx)
		cancelFunc()
	}()

	<-ctx.Done()
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, "background loop stopped", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}

// Close releases the database and the log file.
func (app *App) Close() error {
	var err error
	for i := len(app.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, app.closers[i].Close())
	}
	app.closers = nil
	return err
}

type kicker interface {
	Kick(name string) bool
}

// kickOnReconnect runs the reconcile and location workers as soon as the
// backend becomes reachable again.
func kickOnReconnect(ctx context.Context, modes <-chan workers.Mode, k kicker) {
	prev := workers.ModeOffline
	for {
		select {
		case <-ctx.Done():
			return
		case mode, ok := <-modes:
			if !ok {
				return
			}
			if mode == workers.ModeOnline && prev != workers.ModeOnline {
				k.Kick(workers.ReconcileJob)
				k.Kick(workers.LocationsJob)
			}
			prev = mode
		}
	}
}

// userIDs adapts the credential store for error reports.
type userIDs struct {
	store *securestore.Store
}

func (u userIDs) UserID(context.Context) (string, error) {
	return u.store.UserID(), nil
}
