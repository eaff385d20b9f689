package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fahrzeugdaten/internal/fetch"
	"fahrzeugdaten/internal/importer"
	"fahrzeugdaten/internal/platform/config"
	"fahrzeugdaten/internal/platform/logger"
	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/store/sqlite"
	"fahrzeugdaten/internal/tracer"
)

// main checks the upstream file for updates, downloads it and replaces the
// local record database. Exit codes: 0 success or already current, 1 failure,
// 2 usage error.
func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	force := flag.Bool("force", false, "import even when the local data is current")
	dbPath := flag.String("db", cfg.DatabasePath, "path to the record database")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 0 {
		flag.Usage()
		return 2
	}

	log := logger.New()
	st := sqlite.New(*dbPath)
	defer st.Close()

	m := metrics.NewWith(prometheus.NewRegistry())
	fetchClient := fetch.NewClient(&http.Client{}, cfg.SourceURL,
		cfg.CheckTimeout, cfg.DownloadTimeout, log, m, tracer.NewNoop())
	imp := importer.New(fetchClient, st, cfg.SourcePath(), log, m, tracer.NewNoop())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DownloadTimeout+time.Minute)
	defer cancel()

	result, err := imp.Refresh(ctx, *force)
	if err != nil {
		if result != nil && result.Status != "" {
			fmt.Fprintln(os.Stderr, "update check:", result.Status)
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if !result.Imported {
		fmt.Println("local data is current, nothing to do")
		return 0
	}

	fmt.Printf("imported %d records (%d rows read, %d skipped) in %s\n",
		result.Summary.RowsImported,
		result.Summary.RowsRead,
		result.Summary.RowsSkipped,
		result.Summary.Duration.Round(time.Millisecond))
	return 0
}
