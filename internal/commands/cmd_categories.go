package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/nhle/advisor-tasks/internal/theme"
)

type CategoriesCmd struct {
	flags *Flags
	app   *App

	isDefault bool
}

// NewCategoriesCmd creates a new categories command.
func NewCategoriesCmd(flags *Flags, app *App) *CategoriesCmd {
	return &CategoriesCmd{flags: flags, app: app}
}

// Register adds the categories command to the application.
func (cmd *CategoriesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "categories",
		Usage: "Manage the tenant's task categories",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List categories",
				UsageText: "taskctl categories list",
				Action:    cmd.runList,
			},
			{
				Name:      "create",
				Usage:     "Create a category",
				UsageText: "taskctl categories create <name> [--default]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "default",
						Usage:       "make this the tenant's default category",
						Destination: &cmd.isDefault,
					},
				},
				Action: cmd.runCreate,
			},
		},
	})
	return app
}

func (cmd *CategoriesCmd) runList(ctx context.Context, c *cli.Command) error {
	cats, err := cmd.app.Engine.Categories(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if len(cats) == 0 {
		_, _ = fmt.Fprintln(out, theme.HelpStyle.Render("No categories"))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tNAME\tDEFAULT")
	for _, cat := range cats {
		def := ""
		if cat.Default {
			def = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", cat.Key, cmd.app.Engine.CategoryLabel(cat.Key), def)
	}
	return w.Flush()
}

func (cmd *CategoriesCmd) runCreate(ctx context.Context, c *cli.Command) error {
	eng := cmd.app.Engine
	dialog := eng.CategoryDialog()
	if err := eng.OpenCategoryDialog(); err != nil {
		return err
	}
	defer dialog.Close()

	if err := dialog.SetName(c.Args().First()); err != nil {
		return err
	}
	if err := dialog.SetDefault(cmd.isDefault); err != nil {
		return err
	}

	res, err := eng.SubmitCategory(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if res.NoOp {
		_, _ = fmt.Fprintln(out, theme.HelpStyle.Render("Nothing to submit: the name is empty"))
		return nil
	}
	_, _ = fmt.Fprintln(out, theme.SuccessStyle.Render("Created category "+res.Category.Key))
	return nil
}
