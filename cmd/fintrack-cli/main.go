package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

type Params struct {
	Action      string `descr:"What to do" alts:"add,list,range,clear,export,import" strict:"true" positional:"true"`
	File        string `descr:"Ledger CSV file (defaults to CSV_FILE)" optional:"true"`
	Date        string `descr:"Transaction date, DD-MM-YYYY (add)" optional:"true"`
	Amount      string `descr:"Transaction amount (add)" optional:"true"`
	Category    string `descr:"Transaction category (add)" optional:"true"`
	Description string `descr:"Transaction description (add)" optional:"true"`
	Start       string `descr:"Range start, DD-MM-YYYY (range)" optional:"true"`
	End         string `descr:"Range end, DD-MM-YYYY (range)" optional:"true"`
	Out         string `descr:"Workbook to write (export)" optional:"true"`
	In          string `descr:"YAML file to read (import)" optional:"true"`
	Summary     bool   `descr:"Also print per-category totals (list, range)" optional:"true"`
	LogLevel    string `descr:"Log level" alts:"debug,info,warn,error" default:"warn"`
}

func main() {
	boa.NewCmdT[Params]("fintrack-cli").
		WithShort("Manage the fintrack ledger from the command line").
		WithLong("Adds, lists, filters, clears, exports and imports transactions in the fintrack CSV ledger. " +
			"When AMQP_URL is set, writes are published like they are from the HTTP API.").
		WithRunFunc(func(params *Params) {
			cli.LoadEnvFile()
			logger := cli.SetupLoggerTo(os.Stderr, params.LogLevel).
				With(applog.FieldComponent, applog.ComponentCLI)
			cfg := config.Load()

			file := params.File
			if file == "" {
				file = cfg.CSVFile
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := backend.NewFactory(logger).CreateBackend(ctx, backend.Config{
				Type:         backend.CSVBackend,
				CSVFile:      file,
				AMQPURL:      cfg.AMQPURL,
				AMQPExchange: cfg.AMQPExchange,
				AMQPQueue:    cfg.AMQPQueue,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
				os.Exit(1)
			}

			runErr := run(ctx, res.Service, params, os.Stdout)
			if err := res.Cleanup(); err != nil {
				logger.Warn("Cleanup failed", "error", err)
			}
			if runErr != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
				os.Exit(1)
			}
		}).
		Run()
}

func run(ctx context.Context, ledger store.Store, p *Params, w io.Writer) error {
	switch p.Action {
	case "add":
		tx, err := transactionFromParams(p)
		if err != nil {
			return err
		}
		if err := ledger.Append(ctx, tx); err != nil {
			return err
		}
		fmt.Fprintln(w, "Transaction added successfully")
		return nil

	case "list":
		items, err := ledger.ListAll(ctx)
		if errors.Is(err, core.ErrNotFound) {
			fmt.Fprintln(w, "No transactions found")
			return nil
		}
		if err != nil {
			return err
		}
		printItems(w, items, p.Summary)
		return nil

	case "range":
		if p.Start == "" || p.End == "" {
			return fmt.Errorf("%w: --start and --end are required", core.ErrBadInput)
		}
		items, err := ledger.ListByDateRange(ctx, p.Start, p.End)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(w, "No transactions found in the given date range")
			return nil
		}
		printItems(w, items, p.Summary)
		return nil

	case "clear":
		if err := ledger.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "All transactions deleted successfully")
		return nil

	case "export":
		if p.Out == "" {
			return fmt.Errorf("%w: --out is required", core.ErrBadInput)
		}
		items, err := ledger.ListAll(ctx)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
		if err := report.ExportXLSX(p.Out, items); err != nil {
			return err
		}
		fmt.Fprintf(w, "Exported %d transactions to %s\n", len(items), p.Out)
		return nil

	case "import":
		if p.In == "" {
			return fmt.Errorf("%w: --in is required", core.ErrBadInput)
		}
		f, err := os.Open(p.In)
		if err != nil {
			return err
		}
		defer f.Close()

		items, err := report.ReadYAML(f)
		if err != nil {
			return err
		}
		for i, tx := range items {
			if err := ledger.Append(ctx, tx); err != nil {
				return fmt.Errorf("import stopped after %d of %d: %w", i, len(items), err)
			}
		}
		fmt.Fprintf(w, "Imported %d transactions\n", len(items))
		return nil
	}
	return fmt.Errorf("%w: unknown action %q", core.ErrBadInput, p.Action)
}

func transactionFromParams(p *Params) (core.Transaction, error) {
	if p.Date == "" {
		return core.Transaction{}, fmt.Errorf("%w: --date is required", core.ErrBadInput)
	}
	amount, err := core.ParseLocalAmount(p.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        p.Date,
		Amount:      amount,
		Category:    p.Category,
		Description: p.Description,
	}, nil
}

func printItems(w io.Writer, items []core.Transaction, summary bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No transactions recorded.")
		return
	}
	report.WriteTable(w, items)
	if summary {
		fmt.Fprintln(w)
		report.WriteSummary(w, items)
	}
}
