package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nurpe/proposals/internal/config"
	"github.com/nurpe/proposals/internal/db"
	"github.com/nurpe/proposals/internal/excel"
	httphandler "github.com/nurpe/proposals/internal/http"
	"github.com/nurpe/proposals/internal/logger"
	"github.com/nurpe/proposals/internal/pdf"
	"github.com/nurpe/proposals/internal/repository"
	"github.com/nurpe/proposals/internal/service"
	"github.com/nurpe/proposals/internal/templates"
)

const (
	Version = "0.1.0"
	appName = "proposals-service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Proposal builder API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.New(cfg.Environment, cfg.LogLevel), nil
}

func migrate() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		return fmt.Errorf("migrate requires STORAGE_DRIVER=%s", config.StoragePostgres)
	}

	database, err := db.New(cfg, log)
	if err != nil {
		return err
	}
	return db.Migrate(database, log)
}

func newRepository(cfg *config.Config, log zerolog.Logger) (repository.ProposalRepository, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		log.Info().Msg("using in-memory proposal store")
		return repository.NewMemoryProposalRepository(), nil
	}

	database, err := db.New(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, log); err != nil {
		return nil, err
	}
	return repository.NewPostgresProposalRepository(database), nil
}

func serve() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	proposalRepo, err := newRepository(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to init proposal store")
		return err
	}

	catalog, err := templates.Builtin()
	if err != nil {
		log.Error().Err(err).Msg("failed to load proposal templates")
		return err
	}

	pdfGenerator, err := pdf.NewGenerator(cfg.Proposals.Currency)
	if err != nil {
		log.Error().Err(err).Msg("failed to init pdf generator")
		return err
	}

	proposalService := service.NewProposalService(
		proposalRepo,
		pdfGenerator,
		excel.NewGenerator(),
		catalog,
		cfg,
		log,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := httphandler.NewHandler(proposalService, log)
	router := httphandler.NewRouter(handler, cfg, log, registry)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("storage", cfg.Storage.Driver).Msg("starting proposals service")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
