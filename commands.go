package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sjsage522/shopcollagebot/config"
	"sjsage522/shopcollagebot/internal/catalog"
	"sjsage522/shopcollagebot/logger"
	"sjsage522/shopcollagebot/services/keepalive"
	"sjsage522/shopcollagebot/services/publisher"
	"sjsage522/shopcollagebot/services/worker"
)

const (
	triggerCommand = "command"
	triggerCLI     = "cli"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "shopbot",
		Short:         "Posts the daily item shop as image collages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newPostCommand(),
		newCollageCommand(),
		newPricesCommand(),
	)
	return root
}

// loadConfig loads the configuration and exits on validation errors
func loadConfig(offline bool) *config.Config {
	log := logger.Default

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	validate := cfg.Validate
	if offline {
		validate = cfg.ValidateOffline
	}
	if err := validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the daily schedule and the keep-alive endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Default
			cfg := loadConfig(false)

			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			services, err := initializeServices(cfg, nil)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize services")
			}
			defer services.Cleanup()

			w, err := worker.NewWorker(services.Runner, cfg.ScheduleCron, loc)
			if err != nil {
				return err
			}

			log.Info().
				Str("environment", cfg.Environment).
				Str("platform", cfg.DeliveryPlatform).
				Str("schedule", cfg.ScheduleCron).
				Str("timezone", cfg.ScheduleTimezone).
				Msg("Starting application")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return keepalive.NewServer(cfg.KeepAliveAddr, cfg.KeepAliveMessage).Run(ctx)
			})
			g.Go(func() error {
				return w.Start(ctx)
			})
			g.Go(func() error {
				return services.Listen(ctx, func(ctx context.Context) error {
					_, err := services.Runner.RunPass(ctx, triggerCommand)
					return err
				})
			})

			err = g.Wait()
			log.Info().Msg("Shutting down gracefully...")
			return err
		},
	}
}

func newPostCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "post",
		Short: "Run one dispatch pass now and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(false)

			services, err := initializeServices(cfg, nil)
			if err != nil {
				return err
			}
			defer services.Cleanup()

			_, err = services.Runner.RunPass(cmd.Context(), triggerCLI)
			return err
		},
	}
}

func newCollageCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "collage",
		Short: "Scrape the shop and write the collages to a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(true)

			dir, err := publisher.NewDirPublisher(outDir)
			if err != nil {
				return err
			}

			services, err := initializeServices(cfg, dir)
			if err != nil {
				return err
			}
			defer services.Cleanup()

			report, err := services.Runner.RunPass(cmd.Context(), triggerCLI)
			if err != nil {
				return err
			}
			logger.Default.Info().
				Str("dir", outDir).
				Int("items", report.Items).
				Int("collages", report.Sent).
				Msg("Collages written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "collages", "directory to write the collages to")
	return cmd
}

func newPricesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Print the price list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(true)

			cat := catalog.Default()
			if cfg.PriceCatalogFile != "" {
				loaded, err := catalog.Load(cfg.PriceCatalogFile)
				if err != nil {
					return err
				}
				cat = loaded
			}

			renderPrices(cmd, cat)
			return nil
		},
	}
}

func renderPrices(cmd *cobra.Command, cat *catalog.Catalog) {
	// the header goes above the table; a table title would wrap at the column width
	fmt.Fprintln(cmd.OutOrStdout(), cat.Header)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"#", "Bundle", "Preis"})
	for i, e := range cat.Entries {
		t.AppendRow(table.Row{i + 1, e.Key(), e.Value()})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
