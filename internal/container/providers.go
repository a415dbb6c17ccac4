// Package container wires the invoice service together and owns the
// lifecycle of its components.
package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/application/dispatcher"
	"github.com/garyjia/invoice-desk/internal/application/port"
	"github.com/garyjia/invoice-desk/internal/application/service"
	"github.com/garyjia/invoice-desk/internal/config"
	"github.com/garyjia/invoice-desk/internal/infrastructure/document"
	"github.com/garyjia/invoice-desk/internal/infrastructure/messaging"
	"github.com/garyjia/invoice-desk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/invoice-desk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/invoice-desk/internal/infrastructure/storage"
	"github.com/garyjia/invoice-desk/internal/infrastructure/worker"
	"github.com/garyjia/invoice-desk/internal/report"
	"github.com/garyjia/invoice-desk/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.Transactor
	Invoices       port.InvoiceRepository
}

// ProvideDatabase opens the database, applies pending migrations and builds
// the repositories on top of it.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(cfg.Path, logger).RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewTransactor(db.DB, sqlite.RetryPolicy{
			Attempts: cfg.BusyRetries,
			Backoff:  cfg.BusyBackoff,
		}, logger),
		Invoices:       repository.NewInvoiceRepository(db.DB, logger),
	}, nil
}

// StorageBundle holds document storage components.
type StorageBundle struct {
	FileStorage port.FileStorage
	Inspector   port.DocumentInspector
}

// ProvideStorage creates the document store and the upload inspector.
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("storage base dir is required")
	}

	return &StorageBundle{
		FileStorage: storage.NewLocalFileStorage(cfg.BaseDir, logger),
		Inspector:   document.NewInspector(logger),
	}, nil
}

// EventsBundle holds the in-process dispatcher and the broker behind it.
type EventsBundle struct {
	Dispatcher *dispatcher.Dispatcher
	Broker     port.EventPublisher
}

// ProvideEvents builds the event dispatcher. Every event is written to the
// audit log; when messaging is enabled it is also forwarded to the broker.
func ProvideEvents(cfg *config.MessagingConfig, logger *zap.Logger) (*EventsBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("messaging config is required")
	}

	var broker port.EventPublisher = messaging.NopPublisher{}
	if cfg.Enabled {
		p, err := messaging.NewAMQPPublisher(messaging.Config{
			URL:            cfg.URL,
			Exchange:       cfg.Exchange,
			PublishTimeout: cfg.PublishTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect publisher: %w", err)
		}
		broker = p
	} else {
		logger.Info("Broker publishing disabled")
	}

	d := dispatcher.New(NewLoggerAdapter(logger.Named("events")))
	d.Subscribe("audit-log", dispatcher.AuditLog(NewLoggerAdapter(logger.Named("audit"))))
	if cfg.Enabled {
		d.Subscribe("broker", dispatcher.ForwardTo(broker))
	}

	return &EventsBundle{Dispatcher: d, Broker: broker}, nil
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Storage   *config.StorageConfig
	Database  *DatabaseBundle
	Files     *StorageBundle
	Publisher port.EventPublisher
	Logger    *zap.Logger
}

// ProvideInvoiceService creates the invoice service.
func ProvideInvoiceService(deps *ServiceDeps) (service.InvoiceService, error) {
	if deps == nil || deps.Database == nil || deps.Files == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return service.NewInvoiceService(
		service.InvoiceServiceConfig{MaxUploadBytes: deps.Storage.MaxUploadBytes},
		deps.Database.Invoices,
		deps.Database.TransactionMgr,
		deps.Files.FileStorage,
		deps.Files.Inspector,
		deps.Publisher,
		NewLoggerAdapter(deps.Logger),
	), nil
}

// ProvideWorkers registers the background workers. Nothing is started here.
func ProvideWorkers(
	cfg *config.Config,
	invoices service.InvoiceService,
	publisher port.EventPublisher,
	logger *zap.Logger,
) (*worker.WorkerManager, error) {
	if invoices == nil {
		return nil, fmt.Errorf("invoice service is required")
	}

	manager := worker.NewWorkerManager(logger)
	if cfg.Scheduler.Enabled {
		manager.Register(worker.NewMonthlyExportWorker(
			worker.MonthlyExportConfig{
				Schedule:  cfg.Scheduler.ExportCron,
				OutputDir: cfg.Report.OutputDir,
			},
			invoices,
			&report.XLSXRenderer{},
			publisher,
			logger.Named("export"),
		))
	}
	return manager, nil
}
