package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/nhle/advisor-tasks/internal/commands"
	"github.com/nhle/advisor-tasks/internal/logging"
	"github.com/nhle/advisor-tasks/internal/model"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		app       = &commands.App{}
		reporter  = commands.NewReporter(os.Stderr)
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "taskctl",
		Usage:     "Manage advisor tasks",
		UsageText: "taskctl [global options] command [command options]",
		Description: `taskctl lists, filters and changes the tasks of an advisory tenant.

It talks to a local SQLite database or to a remote task API (backend.kind),
and can serve either of them over HTTP with 'taskctl serve'.`,
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TASKCTL_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stdout for serve, discarded otherwise)",
				Sources:     cli.EnvVars("TASKCTL_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TASKCTL_CONFIG"),
				Value:       model.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "tenant",
				Aliases:     []string{"t"},
				Usage:       "tenant to operate on",
				Sources:     cli.EnvVars("TASKCTL_TENANT"),
				Destination: &flags.Tenant,
			},
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "task store: sqlite or http",
				Sources:     cli.EnvVars("TASKCTL_BACKEND"),
				Destination: &flags.Backend,
			},
			&cli.StringFlag{
				Name:        "base-url",
				Usage:       "task API root for the http backend",
				Sources:     cli.EnvVars("TASKCTL_BASE_URL"),
				Destination: &flags.BaseURL,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "SQLite database path for the sqlite backend",
				Sources:     cli.EnvVars("TASKCTL_DB"),
				Destination: &flags.DBPath,
			},
			&cli.StringFlag{
				Name:        "token",
				Usage:       "API token (overrides the keyring)",
				Sources:     cli.EnvVars("TASKCTL_TOKEN"),
				Destination: &flags.Token,
			},
			&cli.StringFlag{
				Name:        "where",
				Aliases:     []string{"w"},
				Usage:       "filter query, e.g. \"status=late&category=<key>&take=20\"",
				Sources:     cli.EnvVars("TASKCTL_WHERE"),
				Destination: &flags.Where,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := model.LoadConfig(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Apply(cfg)
			if err := cfg.Validate(); err != nil {
				return ctx, fmt.Errorf("invalid configuration: %w", err)
			}

			logFile := cfg.Log.File
			if logFile == "" && c.Args().First() != "serve" {
				logFile = os.DevNull
			}
			logger, closer, err := logging.New(cfg.Log.Level, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			opened, err := commands.OpenApp(ctx, cfg, flags.Where, logger)
			if err != nil {
				return ctx, err
			}
			*app = *opened

			app.Bus.Subscribe(reporter.Notify)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if err := app.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close store")
				return err
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = commands.NewTasksCmd(flags, app).Register(root)
	root = commands.NewCategoriesCmd(flags, app).Register(root)
	root = commands.NewCountsCmd(flags, app).Register(root)
	root = commands.NewTokenCmd(flags, app).Register(root)
	root = commands.NewServeCmd(flags, app).Register(root)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		reporter.Report(err)
		exitCode = 1
	}

	os.Exit(exitCode)
}
