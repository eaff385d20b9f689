package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fahrzeugdaten/internal/export"
	"fahrzeugdaten/internal/format"
	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/platform/config"
	"fahrzeugdaten/internal/platform/logger"
	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/search"
	"fahrzeugdaten/internal/store/sqlite"
	"fahrzeugdaten/internal/tracer"
	domerrors "fahrzeugdaten/pkg/domain-errors"
)

const searchTimeout = 10 * time.Second

// main looks up one type-approval code and prints its datasheet.
// Exit codes: 0 on success (a missing code is still a successful,
// empty lookup), 1 on a missing or unreadable store, 2 on usage error.
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()

	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print the record as JSON")
	lang := fs.String("lang", cfg.DefaultLanguage, "output language (en, de, fr, it)")
	dbPath := fs.String("db", cfg.DatabasePath, "path to the record database")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] <TG-Code>\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	code := fs.Arg(0)

	log := logger.New()
	translator, err := i18n.New()
	if err != nil {
		fmt.Fprintln(stderr, "loading translations failed:", err)
		return 1
	}

	st := sqlite.New(*dbPath)
	defer st.Close()

	m := metrics.NewWith(prometheus.NewRegistry())
	searchSvc := search.NewService(st, log, m, tracer.NewNoop())

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	rec, err := searchSvc.Lookup(ctx, code)
	if err != nil {
		// An unknown code is an empty result, not a failure.
		if domerrors.HasCode(err, domerrors.CodeNotFound) {
			fmt.Fprintf(stdout, "no data found for TG-Code %s\n", code)
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 1
	}

	exporter := export.New(format.New(translator), translator)
	if *asJSON {
		err = exporter.JSON(stdout, rec, *lang)
	} else {
		err = exporter.Text(stdout, rec, *lang)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
