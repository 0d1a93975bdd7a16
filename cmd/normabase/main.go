// normabase ingests legal documents into the corpus database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/normabase/normabase/engine/infra/blob"
	"github.com/normabase/normabase/engine/infra/store"
	"github.com/normabase/normabase/engine/pipeline"
	"github.com/normabase/normabase/pkg/config"
	"github.com/normabase/normabase/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "normabase",
		Short:         "Legal corpus ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newIngestCmd())
	return root
}

// setup loads configuration and binds a logger into a signal-aware context.
func setup(cmd *cobra.Command) (context.Context, context.CancelFunc, *config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(cfg.Log.Level)
	logCfg.JSON = cfg.Log.JSON
	log := logger.NewLogger(logCfg)
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return logger.ContextWith(ctx, log), cancel, cfg, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel, cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			if err := store.ApplyMigrationsWithLock(ctx, cfg.Database.DSN()); err != nil {
				return err
			}
			logger.FromContext(ctx).Info("migrations applied")
			return nil
		},
	}
}

func newIngestCmd() *cobra.Command {
	var (
		dryRun bool
		prefix string
		filter string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "ingest [blob...]",
		Short: "Ingest documents from the blob store",
		Long: "Ingest the named blobs, or when none are given, every " +
			"ingestible blob under --prefix.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			st, err := store.NewStore(ctx, &store.Config{
				DSN:      cfg.Database.DSN(),
				MaxConns: cfg.Database.MaxConns,
			})
			if err != nil {
				return err
			}
			defer st.Close(ctx)
			blobs, err := blob.NewGetter(ctx, cfg.Blob.Driver, cfg.Blob.Root)
			if err != nil {
				return err
			}
			defer blobs.Close()
			p := pipeline.New(
				blobs,
				store.NewDocumentRepo(st.Pool()),
				store.NewRelationRepo(st.Pool()),
				pipeline.Options{
					DryRun:           dryRun,
					Jurisdiction:     cfg.Ingest.Jurisdiction,
					MaxChunkChars:    cfg.Ingest.MaxChunkChars,
					FallbackMinChars: cfg.Ingest.FallbackMinChars,
					Workers:          cfg.Ingest.Workers,
				},
			)
			if len(args) > 0 {
				failed := 0
				for _, name := range args {
					if outcome := p.ProcessOne(ctx, name); outcome.Status == pipeline.StatusError {
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d documents failed", failed, len(args))
				}
				return nil
			}
			report, err := p.ProcessBatch(ctx, prefix, filter, limit)
			if err != nil {
				return err
			}
			if report.Errors > 0 {
				return fmt.Errorf("%d of %d documents failed", report.Errors, report.Total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract and chunk without writing to the database")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only process blobs under this key prefix")
	cmd.Flags().StringVar(&filter, "filter", "", "only process blob names containing this substring")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many documents (0 = all)")
	return cmd
}
