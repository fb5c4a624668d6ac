package main

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"idstat/domain/stats"
	"idstat/internal"
	"idstat/internal/config"
	"idstat/internal/container"
)

const rootLongDescription = `idstat tests whether identifier metrics differ between programming
languages and application domains.

Observations come from a spreadsheet (--input) or from the observations view
of a Postgres database (--database-url). Results are stored in memory, in
Postgres or in a local Badger directory (--storage).`

// appState carries state shared by every subcommand of one invocation.
type appState struct {
	configFile string
	v          *viper.Viper
	cfg        *config.Config
	logger     *internal.Logger
}

func newRootCmd() *cobra.Command {
	state := &appState{}

	cmd := &cobra.Command{
		Use:           "idstat",
		Short:         "Nonparametric significance tests for identifier metrics",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.load(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd, state)

	cmd.AddCommand(
		newStudyCmd(state),
		newANOVACmd(state),
		newDeviationCmd(state),
		newNormalityCmd(state),
		newReportCmd(state),
		newExportCmd(state),
		newMetricsCmd(state),
		newPlanCmd(state),
	)
	return cmd
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"alpha":            "analysis.alpha",
	"min-sample":       "analysis.min_sample",
	"seed":             "analysis.seed",
	"plan":             "analysis.plan_file",
	"workers":          "workers.count",
	"input":            "input.file",
	"sheet":            "input.sheet",
	"database-url":     "database.url",
	"storage":          "storage.backend",
	"badger-dir":       "storage.badger_dir",
	"log-level":        "logging.level",
	"log-file":         "logging.file",
	"metrics-textfile": "metrics.textfile_path",
}

func configureRootFlags(cmd *cobra.Command, state *appState) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&state.configFile, "config", "c", "", "config file (default ./idstat.yaml when present)")
	flags.Float64("alpha", stats.DefaultAlpha, "significance level")
	flags.Int("min-sample", stats.DefaultMinSample, "minimum observations per compared group")
	flags.Int64("seed", 42, "base seed for sampling")
	flags.String("plan", "", "study plan YAML file")
	flags.IntP("workers", "w", 0, "worker goroutines (0 = one per CPU)")
	flags.StringP("input", "i", "", "xlsx or csv file with observations")
	flags.String("sheet", "", "workbook sheet (default first sheet)")
	flags.String("database-url", "", "Postgres connection string")
	flags.String("storage", "memory", "run store: memory, postgres or badger")
	flags.String("badger-dir", "", "directory of the badger run store")
	flags.String("log-level", "info", "error, warn, info, debug or trace")
	flags.String("log-file", "", "also write JSON logs to this rotated file")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")
}

// bindFlags wires changed flags over config and environment values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag for config key %q not found", key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func (s *appState) load(flags *pflag.FlagSet) error {
	_ = godotenv.Load()

	v, err := config.NewViper(s.configFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, flags); err != nil {
		return err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	s.v = v
	s.cfg = cfg
	s.logger = internal.NewLoggerWithFile(internal.ParseLogLevel(cfg.Logging.Level), internal.LogFileConfig{
		Filename:   cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	return nil
}

// withContainer builds the dependency container, runs fn and shuts the
// container down.
func (s *appState) withContainer(cmd *cobra.Command, fn func(c *container.Container) error) (err error) {
	c, err := container.New(cmd.Context(), s.cfg, s.logger)
	defer func() {
		if c == nil {
			return
		}
		if shutdownErr := c.Shutdown(cmd.Context()); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()
	if err != nil {
		return err
	}
	return fn(c)
}

// withSource is withContainer for commands that draw samples.
func (s *appState) withSource(cmd *cobra.Command, fn func(c *container.Container) error) error {
	return s.withContainer(cmd, func(c *container.Container) error {
		if err := c.RequireSource(); err != nil {
			return err
		}
		return fn(c)
	})
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
