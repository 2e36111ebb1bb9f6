package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/config"
	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/core/datasets"
	"github.com/JonMunkholm/dataclean/internal/logging"
	"github.com/JonMunkholm/dataclean/internal/pipeline"
	"github.com/JonMunkholm/dataclean/internal/store"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	logFile io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var ruleFile string

	root := &cobra.Command{
		Use:           "dataclean",
		Short:         "Consistency and duplicate cleaning for public-health datasets",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(ruleFile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logFile != nil {
				return a.logFile.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&ruleFile, "rules", "", "YAML rule file overriding dataset definitions (default $CLEAN_RULE_FILE)")

	root.AddCommand(newRunCmd(a), newServeCmd(a), newDatasetsCmd(a))
	return root
}

// setup loads .env and configuration, installs logging and applies the
// rule file.
func (a *app) setup(ruleFile string) error {
	// Overload lets .env win over variables already set in the shell.
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	a.logFile = closer

	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Debug("loaded .env file")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	if ruleFile == "" {
		ruleFile = cfg.Cleaning.RuleFile
	}
	if ruleFile != "" {
		keys, err := datasets.LoadRuleFile(ruleFile)
		if err != nil {
			return err
		}
		slog.Info("rule file applied", "path", ruleFile, "datasets", keys)
	}
	return nil
}

func (a *app) settings() core.Settings {
	return core.Settings{InconsistencyThreshold: a.cfg.Cleaning.InconsistencyThreshold}
}

func (a *app) paths() pipeline.Paths {
	return pipeline.Paths{
		OutputDir:     a.cfg.Cleaning.OutputDir,
		QuarantineDir: a.cfg.Cleaning.QuarantineDir,
		LogDir:        a.cfg.Cleaning.LogDir,
	}
}

// openStore connects to PostgreSQL when DATABASE_URL is set and falls back
// to the embedded bbolt file otherwise.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if !a.cfg.Database.Enabled() {
		st, err := store.OpenBolt(a.cfg.Storage.BoltPath)
		if err != nil {
			return nil, err
		}
		slog.Info("using embedded run store", "path", a.cfg.Storage.BoltPath)
		return st, nil
	}

	poolConfig, err := pgxpool.ParseConfig(a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(a.cfg.Database.MaxConns)
	poolConfig.MinConns = int32(a.cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = a.cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = a.cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	st := store.NewPostgresStore(pool)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	if u, err := url.Parse(a.cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return st, nil
}
