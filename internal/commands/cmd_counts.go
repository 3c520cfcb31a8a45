package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/theme"
)

type CountsCmd struct {
	flags *Flags
	app   *App
}

// NewCountsCmd creates a new counts command.
func NewCountsCmd(flags *Flags, app *App) *CountsCmd {
	return &CountsCmd{flags: flags, app: app}
}

// Register adds the counts command to the application.
func (cmd *CountsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "counts",
		Usage:     "Show task counts by status, category and manager",
		UsageText: "taskctl [--where QUERY] counts",
		Description: `Each dimension is counted under the filter with that dimension removed,
so the numbers show what selecting a bucket would yield.`,
		Action: cmd.run,
	})
	return app
}

func (cmd *CountsCmd) run(ctx context.Context, c *cli.Command) error {
	eng := cmd.app.Engine
	if _, err := eng.Categories(ctx); err != nil {
		return err
	}

	snap := eng.Counts(ctx)
	out := c.Root().Writer

	writeSection(out, "Status", snap.Status, func(a model.Aggregate) string {
		return theme.StatusBadge(model.Status(a.Value))
	})
	_, _ = fmt.Fprintln(out)
	writeSection(out, "Categories", snap.Categories, func(a model.Aggregate) string {
		return a.Label
	})
	_, _ = fmt.Fprintln(out)
	writeSection(out, "Managers", snap.Managers, func(a model.Aggregate) string {
		if a.Label != "" {
			return a.Label
		}
		return a.Value
	})
	return nil
}
