package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"budget/internal/auth"
	"budget/internal/config"
	"budget/internal/core"
	apphttp "budget/internal/http"
	"budget/internal/importer"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/sheets"
	"budget/internal/sheets/google"
	"budget/internal/storage"
)

// Commands lists every budget subcommand.
var Commands = []subcommands.Command{
	&serveCmd{},
	&migrateCmd{},
	&hashPasswordCmd{},
	&importCSVCmd{},
	&exportSheetsCmd{},
}

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the web application" }
func (*serveCmd) Usage() string {
	return `budget serve

  Migrates the database and serves the web UI on $PORT until SIGINT or
  SIGTERM, then drains in-flight requests.
`
}
func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (*serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, ok := bootstrap((*config.Config).ValidateServe, os.Stdout)
	if !ok {
		return subcommands.ExitFailure
	}

	store, err := OpenStore(ctx, logger, cfg)
	if err != nil {
		return subcommands.ExitFailure
	}
	defer store.Close()

	publisher, err := NewPublisher(cfg)
	if err != nil {
		logger.LogError(ctx, "Failed to initialize event publisher", err, log.OpStartup,
			log.NewFields().WithComponent(log.ComponentEvents).With("backend", cfg.EventsBackend))
		return subcommands.ExitFailure
	}
	ledger := services.NewLedgerService(store, publisher, logger)
	defer ledger.Close()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Currency:           cfg.Currency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Verifier:           auth.NewPasswordVerifier(cfg.AdminPasswordHash),
		Sessions:           auth.NewManager(store, cfg.SessionTTL, cfg.SessionCookieSecure),
		Logger:             logger,
	}, store, ledger, services.NewReportService(store))
	if err != nil {
		logger.LogError(ctx, "Failed to create server", err, log.OpStartup, nil)
		return subcommands.ExitFailure
	}

	done := GracefulShutdown(ctx, logger, ShutdownTimeout, srv.Shutdown)

	logger.Info("Starting budget server",
		"port", cfg.Port,
		"events_backend", cfg.EventsBackend,
		"dialect", store.Dialect())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return subcommands.ExitFailure
	}

	<-done
	logger.Info("Server stopped gracefully")
	return subcommands.ExitSuccess
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `budget migrate

  Applies every pending migration to $DATABASE_URL and prints the schema
  version.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, ok := bootstrap(nil, os.Stderr)
	if !ok {
		return subcommands.ExitFailure
	}
	target, err := storage.ParseTarget(cfg.DatabaseURL)
	if err == nil {
		err = ensureDir(target)
	}
	if err == nil {
		err = storage.RunMigrations(target)
	}
	if err != nil {
		logger.LogError(ctx, "Migration failed", err, "migrate", log.NewFields().WithComponent(log.ComponentStorage))
		return subcommands.ExitFailure
	}
	version, dirty, err := storage.SchemaVersion(target)
	if err != nil {
		logger.LogError(ctx, "Failed to read schema version", err, "migrate", nil)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s schema at version %d (dirty=%t)\n", target.Dialect, version, dirty)
	return subcommands.ExitSuccess
}

type hashPasswordCmd struct {
	password string
	in       io.Reader
	out      io.Writer
}

func (*hashPasswordCmd) Name() string     { return "hash-password" }
func (*hashPasswordCmd) Synopsis() string { return "print a bcrypt hash for ADMIN_PASSWORD_HASH" }
func (*hashPasswordCmd) Usage() string {
	return `budget hash-password [-password <password>]

  Hashes the password given with -password, or the first line of standard
  input, and prints the hash.
`
}

func (c *hashPasswordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.password, "password", "", "Password to hash. Read from stdin when omitted.")
}

func (c *hashPasswordCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in, out := c.in, c.out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	password := c.password
	if password == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(os.Stderr, "read password: %v\n", err)
			return subcommands.ExitFailure
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		return subcommands.ExitUsageError
	}
	fmt.Fprintln(out, hash)
	return subcommands.ExitSuccess
}

type importCSVCmd struct {
	file     string
	category string
	dryRun   bool
	out      io.Writer
}

func (*importCSVCmd) Name() string     { return "import-csv" }
func (*importCSVCmd) Synopsis() string { return "import transactions from a bank CSV export" }
func (*importCSVCmd) Usage() string {
	return `budget import-csv -file <export.csv> [-category <category>] [-dry-run]

  Scans the file for date, description and amount columns, resolves every
  row and commits the valid ones in a single transaction. Amounts keep the
  sign they have in the file.
`
}

func (c *importCSVCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "CSV file to import.")
	f.StringVar(&c.category, "category", importer.DefaultCategory, "Category applied to every imported row.")
	f.BoolVar(&c.dryRun, "dry-run", false, "Print the resolved rows without writing them.")
}

func (c *importCSVCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "import-csv: -file is required")
		return subcommands.ExitUsageError
	}
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	f, err := os.Open(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import-csv: %v\n", err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	rows, err := importer.Scan(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import-csv: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.dryRun {
		txs, failed := importer.ResolveAll(rows, time.Now(), c.category)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tCATEGORY")
		for _, t := range txs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Date, t.Description, t.Amount, t.Category)
		}
		_ = tw.Flush()
		reportFailures(out, failed)
		fmt.Fprintf(out, "dry run: %d rows would be imported, %d rejected\n", len(txs), len(failed))
		return subcommands.ExitSuccess
	}

	cfg, logger, ok := bootstrap(nil, os.Stderr)
	if !ok {
		return subcommands.ExitFailure
	}
	store, err := OpenStore(ctx, logger, cfg)
	if err != nil {
		return subcommands.ExitFailure
	}
	defer store.Close()

	publisher, err := NewPublisher(cfg)
	if err != nil {
		logger.LogError(ctx, "Failed to initialize event publisher", err, log.OpStartup, nil)
		return subcommands.ExitFailure
	}
	ledger := services.NewLedgerService(store, publisher, logger)
	defer ledger.Close()

	result, err := ledger.ImportTransactions(ctx, rows, c.category)
	if err != nil {
		logger.LogError(ctx, "Import failed", err, log.OpImport, nil)
		return subcommands.ExitFailure
	}
	reportFailures(out, result.Failed)
	fmt.Fprintf(out, "imported %d rows, %d rejected\n", len(result.Imported), len(result.Failed))
	return subcommands.ExitSuccess
}

func reportFailures(out io.Writer, failed []importer.RowError) {
	for _, f := range failed {
		fmt.Fprintf(out, "skipped %v\n", f)
	}
}

type exportSheetsCmd struct {
	from, to string
}

func (*exportSheetsCmd) Name() string     { return "export-sheets" }
func (*exportSheetsCmd) Synopsis() string { return "overwrite the configured Google Sheet with the ledger" }
func (*exportSheetsCmd) Usage() string {
	return `budget export-sheets [-from YYYY-MM-DD] [-to YYYY-MM-DD]

  Replaces the contents of $GOOGLE_SHEET_NAME in $GOOGLE_SPREADSHEET_ID with
  the transactions dated within the range, newest first. Both ends are
  inclusive and default to the whole ledger.
`
}
func (c *exportSheetsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First date to export (YYYY-MM-DD).")
	f.StringVar(&c.to, "to", "", "Last date to export (YYYY-MM-DD).")
}

func (c *exportSheetsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := parsePeriod(c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export-sheets: %v\n", err)
		return subcommands.ExitUsageError
	}

	cfg, logger, ok := bootstrap(func(c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		return c.ValidateSheets()
	}, os.Stderr)
	if !ok {
		return subcommands.ExitFailure
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := cfg.ServiceAccountCredentials()
	if err != nil {
		logger.LogError(ctx, "Failed to load service account", err, log.OpExport, nil)
		return subcommands.ExitFailure
	}
	client, err := google.New(ctx, creds, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.LogError(ctx, "Failed to create Sheets client", err, log.OpExport, nil)
		return subcommands.ExitFailure
	}

	store, err := OpenStore(ctx, logger, cfg)
	if err != nil {
		return subcommands.ExitFailure
	}
	defer store.Close()

	n, err := exportLedger(ctx, store, client, period)
	if err != nil {
		logger.LogError(ctx, "Export failed", err, log.OpExport, nil)
		return subcommands.ExitFailure
	}
	logger.InfoContext(ctx, "Ledger exported", log.FieldOperation, log.OpExport, log.FieldCount, n)
	fmt.Printf("wrote %d rows (header included) to %s\n", n, cfg.GoogleSheetName)
	return subcommands.ExitSuccess
}

// period is an inclusive date range. A zero end is open.
type period struct {
	from, to core.Date
}

func parsePeriod(from, to string) (period, error) {
	var p period
	var err error
	if from != "" {
		if p.from, err = core.ParseDate(from); err != nil {
			return period{}, fmt.Errorf("-from %q: %w", from, err)
		}
	}
	if to != "" {
		if p.to, err = core.ParseDate(to); err != nil {
			return period{}, fmt.Errorf("-to %q: %w", to, err)
		}
	}
	if !p.from.IsZero() && !p.to.IsZero() && p.to.Before(p.from.Time) {
		return period{}, fmt.Errorf("-to %s is before -from %s", p.to, p.from)
	}
	return p, nil
}

func exportLedger(ctx context.Context, store *storage.Store, w sheets.LedgerWriter, p period) (int, error) {
	var txs []core.Transaction
	var err error
	if p.from.IsZero() && p.to.IsZero() {
		txs, err = store.ListTransactions(ctx)
	} else {
		from, to := p.from, p.to
		if from.IsZero() {
			from = core.NewDate(1900, 1, 1)
		}
		if to.IsZero() {
			to = core.NewDate(9999, 12, 31)
		}
		txs, err = store.ListTransactionsBetween(ctx, from, to)
	}
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	return w.WriteLedger(ctx, txs)
}
