package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/nhle/advisor-tasks/internal/logging"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/poller"
	"github.com/nhle/advisor-tasks/internal/server"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	flags *Flags
	app   *App

	addr  string
	token string
}

// NewServeCmd creates a new serve command.
func NewServeCmd(flags *Flags, app *App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the task API",
		UsageText: "taskctl serve [--addr HOST:PORT] [--token T]",
		Description: `Serves the configured backend over HTTP. The count views of the tenant
are cached and served under /summary; they are refreshed every
cache.refresh_interval_sec seconds.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (defaults to server.addr)",
				Sources:     cli.EnvVars("TASKCTL_SERVER_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "token",
				Usage:       "require this Bearer token on every API request",
				Sources:     cli.EnvVars("TASKCTL_SERVER_TOKEN"),
				Destination: &cmd.token,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	addr := cmd.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	log := logging.Component("serve")
	cmd.app.Bus.Subscribe(func(n model.Notification) {
		log.Info().Str("level", n.Level).Str("op", n.Op).Msg(n.Message)
	})

	opts := []server.Option{
		server.WithLogger(logging.Component("server")),
		server.WithSummary(cmd.app.Engine),
	}
	if cfg.Backend.Kind == model.BackendSQLite {
		opts = append(opts, server.WithExportDir(cfg.Backend.ExportDir))
	}
	if cmd.token != "" {
		opts = append(opts, server.WithToken(cmd.token))
	}

	srv := server.New(cmd.app.Store, opts...)
	if err := srv.Start(addr); err != nil {
		return err
	}

	p := poller.New(cmd.app.Engine.Protocol(), cfg.Cache.RefreshInterval(), logging.Component("poller"))
	p.Register(cfg.Tenant, cmd.app.Engine.Warm)
	p.Start()

	_, _ = fmt.Fprintf(c.Root().Writer, "Serving %s on http://%s\n", cfg.Tenant, srv.Addr())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case status := <-p.Results():
			if status.State == poller.RefreshError {
				log.Warn().Err(status.Error).Str("tenant", status.Tenant).Msg("refresh failed")
			}
		case <-ctx.Done():
			p.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}
