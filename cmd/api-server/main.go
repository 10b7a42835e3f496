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

	"github.com/libertypfc/Hockeybot-sub000/db"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/pkg/conf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "api-server",
		Short:         "Hockey league roster and salary cap engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding conf.yaml")

	load := func() (conf.Config, error) {
		cfg, err := conf.Load(configDir)
		if err != nil {
			return cfg, err
		}
		initLogger(cfg.Log)
		return cfg, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			gdb, err := db.Open(cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			log.Info().Msg("database migrated")
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the maintenance jobs once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			for _, res := range app.Scheduler.RunOnce(cmd.Context()) {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s changed=%d took=%s %s\n", res.JobName, res.Changed, res.Duration, res.Error)
			}
			return nil
		},
	}

	var actor auth.Actor
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an actor token (bootstrap the first administrator)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			token, err := app.Auth.GenerateToken(actor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&actor.ID, "id", "", "actor id (chat user id)")
	tokenCmd.Flags().StringVar(&actor.TeamID, "team", "", "team the actor manages")
	tokenCmd.Flags().BoolVar(&actor.Admin, "admin", false, "league administrator")
	_ = tokenCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, tokenCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("api-server failed")
		os.Exit(1)
	}
}

func initLogger(cfg conf.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func serve(ctx context.Context, cfg conf.Config) error {
	app, err := newApp(cfg)
	if err != nil {
		return err
	}

	go app.Scheduler.Start(ctx)
	go app.broadcast(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.R,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Postgres.Driver).Msg("api-server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
