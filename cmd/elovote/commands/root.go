// Package commands holds the elovote command line.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	repository "github.com/okian/elovote/internal/adapters/repository"
	"github.com/okian/elovote/internal/config"
	"github.com/okian/elovote/pkg/logger"
	"github.com/spf13/cobra"
)

// options shared by every subcommand.
type rootOptions struct {
	configFile string
	backend    string
	logLevel   string

	cfg *config.Config
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "elovote",
		Short:         "Pairwise voting with Elo ratings",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overrides "+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "store backend: memory, file, sqlite or postgres")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		serveCmd(opts),
		seedCmd(opts),
		leaderboardCmd(opts),
		voteCmd(opts),
		simCmd(opts),
	)
	return root
}

// load reads configuration and initializes logging.
func (o *rootOptions) load(ctx context.Context) error {
	if o.configFile != "" {
		if err := os.Setenv(config.EnvConfigFile, o.configFile); err != nil {
			return fmt.Errorf("set %s: %w", config.EnvConfigFile, err)
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if o.backend != "" {
		cfg.StoreBackend = o.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(os.Stderr)); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) storeConfig() repository.Config {
	return repository.Config{
		Backend:     o.cfg.StoreBackend,
		FilePath:    o.cfg.StoreFilePath,
		SQLitePath:  o.cfg.SQLitePath,
		PostgresDSN: o.cfg.PostgresDSN,
	}
}

// openStore opens the configured backend for a one-shot command.
func (o *rootOptions) openStore(ctx context.Context) (repository.Backend, error) {
	b, err := repository.Open(ctx, o.storeConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", o.cfg.StoreBackend, err)
	}
	return b, nil
}

func (o *rootOptions) storeTimeout() time.Duration {
	return o.cfg.StoreTimeout()
}
