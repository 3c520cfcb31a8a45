package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/session"
	"github.com/nhle/advisor-tasks/internal/theme"
)

type TasksCmd struct {
	flags *Flags
	app   *App
}

// NewTasksCmd creates a new tasks command.
func NewTasksCmd(flags *Flags, app *App) *TasksCmd {
	return &TasksCmd{flags: flags, app: app}
}

// Register adds the tasks command to the application.
func (cmd *TasksCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "tasks",
		Usage: "List, inspect and change tasks",
		Description: `Task commands operate on the tenant selected with --tenant.

The list starts from the global --where filter query and is narrowed by the
list flags, e.g. 'taskctl --where "status=late" tasks list --take 20'.`,
		Commands: []*cli.Command{
			cmd.listCmd(),
			cmd.showCmd(),
			cmd.createCmd(),
			cmd.updateCmd(),
			cmd.completeCmd(),
			cmd.customerCmd(),
			cmd.exportCmd(),
		},
	})
	return app
}

func (cmd *TasksCmd) listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List tasks matching the filter",
		UsageText: "taskctl tasks list [--status S] [--category KEY | --uncategorized] [--manager ID] [--contract N] [--page N] [--take N]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "all, in_progress, late or completed"},
			&cli.StringFlag{Name: "category", Usage: "category key"},
			&cli.BoolFlag{Name: "uncategorized", Usage: "only tasks without a category"},
			&cli.StringFlag{Name: "manager", Usage: "assigned manager id"},
			&cli.StringFlag{Name: "contract", Usage: "contract number"},
			&cli.IntFlag{Name: "page", Usage: "page number (1-based)"},
			&cli.IntFlag{Name: "take", Usage: "page size"},
		},
		Action: cmd.runList,
	}
}

func (cmd *TasksCmd) runList(ctx context.Context, c *cli.Command) error {
	if err := cmd.applyFilter(c); err != nil {
		return err
	}

	eng := cmd.app.Engine
	if _, err := eng.Categories(ctx); err != nil {
		return err
	}
	page, err := eng.Tasks(ctx)
	if err != nil && page.Rows == nil {
		return err
	}

	out := c.Root().Writer
	f := eng.Filter()
	if len(page.Rows) == 0 {
		_, _ = fmt.Fprintln(out, theme.HelpStyle.Render("No tasks found"))
	} else {
		writeRows(out, page.Rows)
	}

	footer := fmt.Sprintf("%s · page %d · %d of %d tasks", theme.StatusLabel(f.Status), f.Page, len(page.Rows), page.Count)
	if page.Stale {
		footer += " · stale"
	}
	_, _ = fmt.Fprintln(out, theme.HelpStyle.Render(footer))
	return nil
}

// applyFilter narrows the filter location with the list flags. Toggle
// actions are only issued when the value differs from the current one.
func (cmd *TasksCmd) applyFilter(c *cli.Command) error {
	eng := cmd.app.Engine

	if c.IsSet("status") {
		status := model.Status(c.String("status"))
		if eng.Filter().Status != status {
			if err := eng.SelectStatus(status); err != nil {
				return err
			}
		}
	}

	switch {
	case c.Bool("uncategorized"):
		if cur := eng.Filter().Category; cur == nil || *cur != "" {
			eng.SelectCategory("")
		}
	case c.IsSet("category"):
		key := c.String("category")
		if cur := eng.Filter().Category; cur == nil || *cur != key {
			eng.SelectCategory(key)
		}
	}

	if c.IsSet("manager") {
		id := c.String("manager")
		if cur := eng.Filter().Manager; cur == nil || *cur != id {
			eng.SelectManager(id)
		}
	}
	if c.IsSet("contract") {
		eng.SetContractNumber(c.String("contract"))
	}
	if c.IsSet("take") {
		if err := eng.SetTake(c.Int("take")); err != nil {
			return err
		}
	}
	if c.IsSet("page") {
		if err := eng.SetPage(c.Int("page")); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *TasksCmd) showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one task",
		UsageText: "taskctl tasks show <id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return errors.New("task id is required")
			}

			eng := cmd.app.Engine
			if _, err := eng.Categories(ctx); err != nil {
				return err
			}
			eng.SelectTask(id)
			task, err := eng.Detail(ctx)
			if err != nil {
				return err
			}
			if task == nil {
				return fmt.Errorf("task %s not found", id)
			}

			writeTask(c.Root().Writer, task, model.Classify(*task, timeNow()).Status(), eng.TaskCategoryLabel(*task))
			return nil
		},
	}
}

func draftFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "task title"},
		&cli.StringFlag{Name: "content", Usage: "task description"},
		&cli.StringFlag{Name: "category", Usage: "category key (empty for none)"},
		&cli.StringFlag{Name: "contract", Usage: "contract number"},
		&cli.StringFlag{Name: "schedule", Usage: "due date (YYYY-MM-DD, \"YYYY-MM-DD HH:MM\" or RFC3339)"},
		&cli.StringFlag{Name: "customer", Usage: "customer id"},
		&cli.StringFlag{Name: "company", Usage: "company id"},
		&cli.StringFlag{Name: "manager", Usage: "assigned manager id"},
		&cli.StringFlag{Name: "related", Usage: "related entity as TYPE/ID (empty for none)"},
	}
}

// editDraft copies the draft flags that were set onto the open dialog.
func (cmd *TasksCmd) editDraft(c *cli.Command) error {
	var parseErr error
	err := cmd.app.Engine.EditDraft(func(d *session.Draft) {
		if c.IsSet("title") {
			d.Title = c.String("title")
		}
		if c.IsSet("content") {
			d.Content = c.String("content")
		}
		if c.IsSet("category") {
			d.Category = optionalString(c.String("category"))
		}
		if c.IsSet("contract") {
			d.ContractNumber = c.String("contract")
		}
		if c.IsSet("schedule") {
			t, err := parseSchedule(c.String("schedule"))
			if err != nil {
				parseErr = err
				return
			}
			d.Schedule = t
		}
		if c.IsSet("customer") {
			d.CustomerID = optionalString(c.String("customer"))
		}
		if c.IsSet("company") {
			d.CompanyID = optionalString(c.String("company"))
		}
		if c.IsSet("manager") {
			d.ManagerID = optionalString(c.String("manager"))
		}
		if c.IsSet("related") {
			ref, err := parseRelated(c.String("related"))
			if err != nil {
				parseErr = err
				return
			}
			d.EntityRelated = ref
		}
	})
	if err != nil {
		return err
	}
	return parseErr
}

func (cmd *TasksCmd) submit(ctx context.Context, c *cli.Command, verb string) error {
	res, err := cmd.app.Engine.SubmitTask(ctx, nil)
	if err != nil {
		return err
	}
	out := c.Root().Writer
	if res.NoOp {
		_, _ = fmt.Fprintln(out, theme.HelpStyle.Render("Nothing to submit: the title is empty"))
		return nil
	}
	_, _ = fmt.Fprintln(out, theme.SuccessStyle.Render(fmt.Sprintf("%s task %s", verb, res.Task.ID)))
	return nil
}

func (cmd *TasksCmd) createCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a task",
		UsageText: "taskctl tasks create --title T [--schedule DATE] [--category KEY] ...",
		Flags:     draftFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			eng := cmd.app.Engine
			if err := eng.OpenCreate(); err != nil {
				return err
			}
			defer eng.CloseDialog()

			if err := cmd.editDraft(c); err != nil {
				return err
			}
			return cmd.submit(ctx, c, "Created")
		},
	}
}

func (cmd *TasksCmd) updateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change a task",
		UsageText: "taskctl tasks update <id> [--title T] [--schedule DATE] ...",
		Flags:     draftFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return errors.New("task id is required")
			}

			eng := cmd.app.Engine
			if err := eng.OpenEdit(ctx, id); err != nil {
				return err
			}
			defer eng.CloseDialog()

			if err := cmd.editDraft(c); err != nil {
				return err
			}
			return cmd.submit(ctx, c, "Updated")
		},
	}
}

func (cmd *TasksCmd) completeCmd() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Mark a task completed",
		UsageText: "taskctl tasks complete <id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return errors.New("task id is required")
			}
			task, err := cmd.app.Engine.CompleteTask(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.Root().Writer, theme.SuccessStyle.Render("Completed task "+task.ID))
			return nil
		},
	}
}

func (cmd *TasksCmd) customerCmd() *cli.Command {
	return &cli.Command{
		Name:      "customer",
		Usage:     "List every task of a customer",
		UsageText: "taskctl tasks customer <customer-id>",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return errors.New("customer id is required")
			}

			eng := cmd.app.Engine
			if _, err := eng.Categories(ctx); err != nil {
				return err
			}
			rows, err := eng.CustomerTasks(ctx, id)
			if err != nil && rows == nil {
				return err
			}

			out := c.Root().Writer
			if len(rows) == 0 {
				_, _ = fmt.Fprintln(out, theme.HelpStyle.Render("No tasks found"))
				return nil
			}
			writeRows(out, rows)
			return nil
		},
	}
}

func (cmd *TasksCmd) exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export tasks as CSV",
		UsageText: "taskctl tasks export [--customer ID]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "customer", Usage: "only export tasks of this customer"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var customer *string
			if c.IsSet("customer") {
				customer = optionalString(c.String("customer"))
			}
			url, err := cmd.app.Engine.Export(ctx, customer)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.Root().Writer, url)
			return nil
		},
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseRelated(s string) (*model.EntityRef, error) {
	if s == "" {
		return nil, nil
	}
	typ, id, ok := strings.Cut(s, "/")
	if !ok || typ == "" || id == "" {
		return nil, fmt.Errorf("related entity %q: want TYPE/ID", s)
	}
	return &model.EntityRef{Type: typ, ID: id}, nil
}
