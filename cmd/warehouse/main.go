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

	"warehouse/internal/config"
	"warehouse/internal/domain"
	"warehouse/internal/infra/auth/oidc"
	"warehouse/internal/infra/db"
	httpinfra "warehouse/internal/infra/http"
	"warehouse/internal/infra/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.FromEnv()
	root := &cobra.Command{
		Use:           "warehouse",
		Short:         "Warehouse inventory and order API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json or console)")

	root.AddCommand(newServeCommand(&cfg), newMigrateCommand(&cfg), newTokenCommand(&cfg))
	return root
}

func newServeCommand(cfg *config.Config) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := db.NewStore(*cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to init store: %w", err)
			}
			defer func() { _ = store.Close() }()
			if migrate && store.Enabled() {
				if err := store.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := httpinfra.NewServer(*cfg, store, logger)
			if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server exited", zap.Error(err))
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	return cmd
}

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if cfg.PostgresDSN == "" {
				return errors.New("POSTGRES_DSN is required")
			}
			store, err := db.NewStore(*cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("schema migrated")
			return nil
		},
	}
}

// newTokenCommand mints shared-secret tokens for local development.
func newTokenCommand(cfg *config.Config) *cobra.Command {
	var (
		subject string
		email   string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an HS256 token signed with JWT_HMAC_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			now := time.Now()
			tok, err := oidc.IssueHS256(*cfg, domain.IdentityClaim{
				SubjectID: subject,
				Email:     email,
				IssuedAt:  now,
				ExpiresAt: now.Add(ttl),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject id (account id)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
