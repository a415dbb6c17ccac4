// Command invoicectl lists, uploads and deletes invoices and renders monthly
// reports against a running invoice desk server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/invoice-desk/internal/client"
	"github.com/garyjia/invoice-desk/internal/config"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/internal/report"
	"github.com/garyjia/invoice-desk/internal/view"
	"github.com/garyjia/invoice-desk/pkg/api"
	"github.com/garyjia/invoice-desk/pkg/utils"
)

const usage = `usage: invoicectl <command> [flags]

commands:
  list    -month MM [-category C]
  upload  -file F -amount A -category C [-description D] [-date YYYY-MM-DD]
  delete  -month MM -id ID -yes
  report  -month MM [-category C] [-format pdf|xlsx] [-out DIR] [-logo PNG]
  months

environment: INVOICE_API_URL, INVOICE_TOKEN, INVOICE_YEAR (also read from .env)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "list":
		err = app.list(ctx, args)
	case "upload":
		err = app.upload(ctx, args)
	case "delete":
		err = app.delete(ctx, args)
	case "report":
		err = app.report(ctx, args)
	case "months":
		app.months()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		os.Exit(1)
	}
}

// terminal is the view.Shell of the command line
type terminal struct {
	out io.Writer
}

func (t terminal) Notify(level view.Level, msg string) {
	fmt.Fprintf(t.out, "[%s] %s\n", level, msg)
}

func (t terminal) NavigateAfter(route string, delay time.Duration) {
	if route == view.RouteLogin {
		fmt.Fprintln(t.out, "Set a valid INVOICE_TOKEN and try again.")
	}
}

type app struct {
	api    *client.Client
	state  *view.AppState
	shell  terminal
	cfg    *config.ClientConfig
	logger *zap.Logger
}

func newApp(ctx context.Context, cfg *config.ClientConfig, logger *zap.Logger) (*app, error) {
	c, err := client.New(client.Config{BaseURL: cfg.BaseURL, Token: cfg.Token, Timeout: cfg.Timeout}, logger)
	if err != nil {
		return nil, err
	}

	session, err := c.Session(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return nil, fmt.Errorf("%s", view.MsgSessionExpired)
		}
		return nil, fmt.Errorf("failed to reach %s: %w", cfg.BaseURL, err)
	}

	return &app{
		api:    c,
		state:  view.NewAppState(entity.Role(session.Role)),
		shell:  terminal{out: os.Stderr},
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (a *app) monthView() *view.MonthView {
	return view.NewMonthView(view.Config{Year: a.cfg.Year}, a.api, a.state, a.shell, a.logger)
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	month := fs.String("month", "", "month 01-12")
	category := fs.String("category", "", "category filter")
	fs.Parse(args)

	v := a.monthView()
	v.SelectCategory(*category)

	// The listing and the server-side summary are independent reads.
	var summary *api.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return v.SelectMonth(gctx, *month)
	})
	g.Go(func() error {
		s, err := a.api.Summary(gctx, fmt.Sprintf("%04d-%s", a.cfg.Year, *month))
		if err != nil {
			a.logger.Debug("Summary unavailable", zap.Error(err))
			return nil
		}
		summary = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s %d\n\n", view.MonthLabel(*month), a.cfg.Year)
	fmt.Fprintln(w, "ID\tFECHA\tCATEGORÍA\tDESCRIPCIÓN\tVALOR\tUSUARIO")
	for _, inv := range v.Filtered() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inv.ID, inv.DisplayDate(), inv.Category, inv.Description, inv.DisplayValue(), inv.UserName)
	}
	fmt.Fprintf(w, "\t\t\tTotal\t$%s\t\n", v.Total().StringFixed(2))
	w.Flush()

	if summary != nil && len(summary.Totals) > 0 {
		cats := make([]string, 0, len(summary.Totals))
		for cat := range summary.Totals {
			cats = append(cats, cat)
		}
		sort.Strings(cats)

		fmt.Println()
		sw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, cat := range cats {
			fmt.Fprintf(sw, "%s\t$%s\n", cat, summary.Totals[cat].StringFixed(2))
		}
		sw.Flush()
	}
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "invoice document (pdf or image)")
	amount := fs.String("amount", "", "amount, comma or dot decimals")
	category := fs.String("category", "", "one of: "+strings.Join(entity.Categories, ", "))
	description := fs.String("description", "", "free text")
	date := fs.String("date", "", "invoice date YYYY-MM-DD, defaults to today")
	fs.Parse(args)

	form := view.NewUploadForm(time.Now())
	form.Amount = *amount
	form.Category = *category
	form.Description = *description
	if *date != "" {
		form.Date = *date
	}
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
			return err
		}
		form.FileName = filepath.Base(*file)
		form.File = data
	}

	created, err := view.NewUploader(a.api, a.state, a.shell, a.logger).Submit(ctx, form)
	if err != nil {
		return err
	}
	fmt.Println(created.InvoiceId)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	month := fs.String("month", "", "month 01-12 the invoice belongs to")
	id := fs.String("id", "", "invoice id")
	yes := fs.Bool("yes", false, "confirm the deletion")
	fs.Parse(args)

	v := a.monthView()
	if err := v.SelectMonth(ctx, *month); err != nil {
		return err
	}
	link, err := v.ViewLink(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invoice %s not found in %s\n", *id, view.MonthLabel(*month))
		return err
	}

	if err := v.StageDelete(*id, link); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot delete: %v\n", err)
		return err
	}
	if !*yes {
		v.CancelDelete()
		fmt.Fprintln(os.Stderr, "Deletion not confirmed, pass -yes to delete.")
		return nil
	}
	return v.ConfirmDelete(ctx)
}

func (a *app) report(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	month := fs.String("month", "", "month 01-12")
	category := fs.String("category", "", "category filter")
	format := fs.String("format", "pdf", "pdf or xlsx")
	out := fs.String("out", ".", "output directory")
	logo := fs.String("logo", "", "optional logo image for the PDF")
	fs.Parse(args)

	var renderer report.Renderer
	switch *format {
	case "pdf":
		renderer = &report.PDFRenderer{LogoPath: *logo}
	case "xlsx":
		renderer = &report.XLSXRenderer{}
	default:
		err := fmt.Errorf("unknown format %q", *format)
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	v := a.monthView()
	v.SelectCategory(*category)
	if err := v.SelectMonth(ctx, *month); err != nil {
		return err
	}

	path := filepath.Join(*out, renderer.FileName())
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", path, err)
		return err
	}
	defer f.Close()

	if err := renderer.Render(f, v.Report()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
		return err
	}
	fmt.Println(path)
	return nil
}

func (a *app) months() {
	for _, o := range view.MonthOptions(a.cfg.Year, time.Now()) {
		mark := ""
		if o.Disabled {
			mark = " (no disponible)"
		}
		fmt.Printf("%s  %s%s\n", o.Value, o.Label, mark)
	}
}
