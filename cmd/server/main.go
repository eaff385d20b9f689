package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"fahrzeugdaten/internal/export"
	"fahrzeugdaten/internal/fetch"
	"fahrzeugdaten/internal/format"
	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/importer"
	"fahrzeugdaten/internal/platform/config"
	"fahrzeugdaten/internal/platform/health"
	"fahrzeugdaten/internal/platform/httpserver"
	"fahrzeugdaten/internal/platform/logger"
	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/search"
	"fahrzeugdaten/internal/store/sqlite"
	"fahrzeugdaten/internal/tracer"
	httptransport "fahrzeugdaten/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing fahrzeugdaten server",
		"addr", cfg.Addr,
		"db_path", cfg.DatabasePath,
		"source_url", cfg.SourceURL,
	)

	translator, err := i18n.New()
	if err != nil {
		log.Error("loading translations failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	tr := tracer.NewOTel()

	st := sqlite.New(cfg.DatabasePath)
	defer st.Close()

	fetchClient := fetch.NewClient(&http.Client{}, cfg.SourceURL,
		cfg.CheckTimeout, cfg.DownloadTimeout, log, m, tr)
	imp := importer.New(fetchClient, st, cfg.SourcePath(), log, m, tr)
	searchSvc := search.NewService(st, log, m, tr)

	formatter := format.New(translator)
	exporter := export.New(formatter, translator)

	healthHandler := health.New()
	healthHandler.RegisterCheck("store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return st.Ping(ctx)
	})

	handler := httptransport.New(searchSvc, imp, formatter, exporter, translator, cfg.DefaultLanguage, log)
	router := httptransport.NewRouter(handler, healthHandler, cfg.AdminToken, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
