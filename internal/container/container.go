package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/application/service"
	"github.com/garyjia/invoice-desk/internal/config"
	"github.com/garyjia/invoice-desk/internal/infrastructure/worker"
)

// Container owns every long-lived component. Start initializes them in
// dependency order and Close tears them down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	database  *DatabaseBundle
	files     *StorageBundle
	events    *EventsBundle
	invoices  service.InvoiceService
	workers   *worker.WorkerManager

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database, migrations and repositories
// 2. Document storage
// 3. Event dispatcher and broker
// 4. Application services
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	db, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.database = db
	c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))

	files, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.files = files
	c.logger.Info("Storage initialized", zap.String("base_dir", c.config.Storage.BaseDir))

	events, err := ProvideEvents(&c.config.Messaging, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize events: %w", err)
	}
	c.events = events

	invoices, err := ProvideInvoiceService(&ServiceDeps{
		Storage:   &c.config.Storage,
		Database:  c.database,
		Files:     c.files,
		Publisher: c.events.Dispatcher,
		Logger:    c.logger,
	})
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.invoices = invoices
	c.logger.Info("Application services initialized")

	workers, err := ProvideWorkers(c.config, c.invoices, c.events.Dispatcher, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	if err := workers.StartAll(ctx); err != nil {
		c.teardown()
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.workers = workers
	c.logger.Info("Workers started", zap.Int("count", workers.GetWorkerCount()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialized so far
func (c *Container) teardown() []error {
	var errs []error

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}

	if c.events != nil {
		if err := c.events.Dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		if err := c.events.Broker.Close(); err != nil {
			c.logger.Error("Failed to close broker publisher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close broker: %w", err))
		}
		c.events = nil
	}

	if c.database != nil {
		if err := c.database.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.database = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.database == nil:
		set("database", false, "not initialized")
	default:
		if err := c.database.DB.Ping(); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.workers == nil {
		set("workers", false, "not initialized")
	} else {
		set("workers", c.workers.IsRunning(), fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()))
	}

	if c.invoices == nil {
		set("services", false, "not initialized")
	} else {
		set("services", true, "")
	}

	return status
}

// HealthCheck reports Health in the shape the HTTP layer expects
func (c *Container) HealthCheck() (bool, interface{}) {
	h := c.Health()
	return h.Overall, h.Components
}

// InvoiceService returns the invoice service. Nil before Start.
func (c *Container) InvoiceService() service.InvoiceService {
	return c.invoices
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// LoggerAdapter adapts zap.Logger to the key/value Logger interfaces of the
// service and HTTP layers.
type LoggerAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter wraps logger
func NewLoggerAdapter(logger *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: logger}
}

func (a *LoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *LoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
