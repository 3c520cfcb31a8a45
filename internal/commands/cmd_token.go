package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nhle/advisor-tasks/internal/theme"
)

type TokenCmd struct {
	flags *Flags
	app   *App
}

// NewTokenCmd creates a new token command.
func NewTokenCmd(flags *Flags, app *App) *TokenCmd {
	return &TokenCmd{flags: flags, app: app}
}

// Register adds the token command to the application.
func (cmd *TokenCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "token",
		Usage: "Manage the API token of the tenant",
		Description: `The token is kept in the system keyring under "api-token:<tenant>" and is
sent as a Bearer token by the http backend. backend.token in the config
file takes precedence.`,
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store the API token",
				UsageText: "taskctl [--tenant T] token set <token>",
				Action:    cmd.runSet,
			},
			{
				Name:      "delete",
				Usage:     "Remove the stored API token",
				UsageText: "taskctl [--tenant T] token delete",
				Action:    cmd.runDelete,
			},
		},
	})
	return app
}

func (cmd *TokenCmd) runSet(_ context.Context, c *cli.Command) error {
	token := c.Args().First()
	if token == "" {
		return errors.New("token is required")
	}

	tokens, err := cmd.app.TokenStore()
	if err != nil {
		return err
	}
	tenant := cmd.app.Config.Tenant
	if err := tokens.SetToken(tenant, token); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, theme.SuccessStyle.Render("Stored api token for "+tenant))
	return nil
}

func (cmd *TokenCmd) runDelete(_ context.Context, c *cli.Command) error {
	tokens, err := cmd.app.TokenStore()
	if err != nil {
		return err
	}
	tenant := cmd.app.Config.Tenant
	if err := tokens.DeleteToken(tenant); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, theme.SuccessStyle.Render("Removed api token for "+tenant))
	return nil
}
