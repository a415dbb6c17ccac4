package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/internal/domain/event"
	"github.com/garyjia/invoice-desk/internal/report"
)

// InvoiceLister loads one month of invoices
type InvoiceLister interface {
	ListByMonth(ctx context.Context, month entity.Month) ([]*entity.Invoice, error)
}

// Publisher announces finished exports
type Publisher interface {
	Publish(ctx context.Context, e *event.Event) error
}

// MonthlyExportConfig configures MonthlyExportWorker
type MonthlyExportConfig struct {
	// Schedule is a six-field cron expression with seconds
	Schedule  string
	OutputDir string
}

// MonthlyExportWorker writes the previous month's report on a cron schedule
type MonthlyExportWorker struct {
	cfg       MonthlyExportConfig
	invoices  InvoiceLister
	renderer  report.Renderer
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewMonthlyExportWorker creates the export worker. publisher may be nil.
func NewMonthlyExportWorker(
	cfg MonthlyExportConfig,
	invoices InvoiceLister,
	renderer report.Renderer,
	publisher Publisher,
	logger *zap.Logger,
) *MonthlyExportWorker {
	return &MonthlyExportWorker{
		cfg:       cfg,
		invoices:  invoices,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (w *MonthlyExportWorker) Name() string {
	return "monthly-export"
}

// Start schedules the export job. Jobs run with ctx until Stop.
func (w *MonthlyExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil {
		return fmt.Errorf("%s already started", w.Name())
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(w.cfg.Schedule, func() {
		month := entity.MonthOf(w.now()).Previous()
		if _, err := w.Export(ctx, month); err != nil {
			w.logger.Error("Monthly export failed",
				zap.String("month", month.String()),
				zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", w.cfg.Schedule, err)
	}

	c.Start()
	w.cron = c
	w.logger.Info("Monthly export scheduled",
		zap.String("schedule", w.cfg.Schedule),
		zap.String("output_dir", w.cfg.OutputDir))
	return nil
}

// Stop waits for a running export to finish
func (w *MonthlyExportWorker) Stop() error {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()

	if c == nil {
		return nil
	}
	<-c.Stop().Done()
	return nil
}

// Export renders the report of month into the output directory and returns
// the written path
func (w *MonthlyExportWorker) Export(ctx context.Context, month entity.Month) (string, error) {
	invoices, err := w.invoices.ListByMonth(ctx, month)
	if err != nil {
		return "", fmt.Errorf("list invoices: %w", err)
	}

	entries := make([]report.Entry, 0, len(invoices))
	for _, inv := range invoices {
		entries = append(entries, report.Entry{
			Date:        inv.Date,
			Category:    entity.NormalizeCategory(inv.Category),
			Description: inv.Description,
			Value:       inv.Value,
		})
	}
	doc := report.Build(month.String(), "", entries, entity.SumByCategory(invoices).Total())

	if err := os.MkdirAll(w.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.cfg.OutputDir, month.String()+"_"+w.renderer.FileName())

	if err := writeAtomic(path, func(f *os.File) error { return w.renderer.Render(f, doc) }); err != nil {
		return "", err
	}

	w.logger.Info("Monthly report exported",
		zap.String("month", month.String()),
		zap.Int("invoices", len(invoices)),
		zap.String("path", path))

	if w.publisher != nil {
		e := event.NewEvent(event.TypeReportExported, "", month.String(), map[string]interface{}{
			"path":     path,
			"invoices": len(invoices),
		})
		if err := w.publisher.Publish(ctx, e); err != nil {
			w.logger.Error("Failed to publish export event", zap.Error(err))
		}
	}

	return path, nil
}

func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("render report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}
