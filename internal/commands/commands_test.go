package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/nhle/advisor-tasks/internal/credential"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
	"github.com/nhle/advisor-tasks/internal/store"
	"github.com/nhle/advisor-tasks/internal/testutil"
)

func newTestApp(t *testing.T, where string) (*App, *store.SQLiteStore) {
	t.Helper()

	s := testutil.NewTestStore(t)
	cfg := model.DefaultAppConfig()
	cfg.Tenant = testutil.Tenant

	app, err := NewApp(cfg, s, where, zerolog.Nop())
	require.NoError(t, err)
	app.Tokens = credential.NewStore(keyring.NewArrayKeyring(nil))
	return app, s
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := &cli.Command{
		Name:      "taskctl",
		Writer:    &buf,
		ErrWriter: &buf,
	}
	flags := &Flags{}
	root = NewTasksCmd(flags, app).Register(root)
	root = NewCategoriesCmd(flags, app).Register(root)
	root = NewCountsCmd(flags, app).Register(root)
	root = NewTokenCmd(flags, app).Register(root)

	err := root.Run(context.Background(), append([]string{"taskctl"}, args...))
	return buf.String(), err
}

func TestTasksCreateAndList(t *testing.T) {
	app, _ := newTestApp(t, "")

	out, err := run(t, app, "tasks", "create", "--title", "Call client", "--schedule", "2099-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Created task")

	out, err = run(t, app, "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Call client")
	assert.Contains(t, out, "1 of 1 tasks")
}

func TestTasksCreate_EmptyTitleIsNoOp(t *testing.T) {
	app, s := newTestApp(t, "")

	out, err := run(t, app, "tasks", "create", "--schedule", "2099-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to submit")

	res, err := s.CompanyTaskSearch(context.Background(), testutil.Tenant, remote.Query{})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
}

func TestTasksList_StatusFlagAndWhere(t *testing.T) {
	app, s := newTestApp(t, "status=late")

	testutil.MustTask(t, s, model.TaskInput{Title: "Overdue", Schedule: time.Now().Add(-time.Hour)})
	testutil.MustTask(t, s, model.TaskInput{Title: "Upcoming", Schedule: time.Now().Add(time.Hour)})

	out, err := run(t, app, "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Overdue")
	assert.NotContains(t, out, "Upcoming")

	// Repeating the status of --where keeps it selected.
	out, err = run(t, app, "tasks", "list", "--status", "late")
	require.NoError(t, err)
	assert.Contains(t, out, "Overdue")
	assert.NotContains(t, out, "Upcoming")

	out, err = run(t, app, "tasks", "list", "--status", "in_progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Upcoming")
	assert.NotContains(t, out, "Overdue")

	_, err = run(t, app, "tasks", "list", "--status", "someday")
	assert.Error(t, err)
}

func TestTasksShowUpdateComplete(t *testing.T) {
	app, s := newTestApp(t, "")
	task := testutil.MustTask(t, s, model.TaskInput{Title: "Draft plan", Schedule: time.Now().Add(time.Hour)})

	out, err := run(t, app, "tasks", "update", task.ID, "--title", "Final plan", "--contract", "C-42", "--related", "document/doc-7")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated task "+task.ID)

	out, err = run(t, app, "tasks", "show", task.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Final plan")
	assert.Contains(t, out, "C-42")
	assert.Contains(t, out, "document/doc-7")

	out, err = run(t, app, "tasks", "complete", task.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Completed task "+task.ID)

	got, err := s.FetchSingleTask(context.Background(), testutil.Tenant, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "Final plan", got.Title)
	require.NotNil(t, got.EntityRelated)
	assert.Equal(t, "doc-7", got.EntityRelated.ID)

	_, err = run(t, app, "tasks", "update", task.ID, "--related", "document")
	assert.Error(t, err)

	_, err = run(t, app, "tasks", "show", "missing")
	assert.Error(t, err)
}

func TestTasksCustomerAndExport(t *testing.T) {
	app, s := newTestApp(t, "")
	customer := "cust-9"
	testutil.MustTask(t, s, model.TaskInput{Title: "Renewal", Schedule: time.Now(), CustomerID: &customer})
	testutil.MustTask(t, s, model.TaskInput{Title: "Other", Schedule: time.Now()})

	out, err := run(t, app, "tasks", "customer", customer)
	require.NoError(t, err)
	assert.Contains(t, out, "Renewal")
	assert.NotContains(t, out, "Other")

	out, err = run(t, app, "tasks", "export", "--customer", customer)
	require.NoError(t, err)
	assert.Contains(t, out, ".csv")
}

func TestCategoriesAndCounts(t *testing.T) {
	app, s := newTestApp(t, "")

	out, err := run(t, app, "categories", "create", "Compliance", "--default")
	require.NoError(t, err)
	assert.Contains(t, out, "Created category")

	out, err = run(t, app, "categories", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to submit")

	out, err = run(t, app, "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Compliance")
	assert.Contains(t, out, "yes")

	testutil.MustTask(t, s, model.TaskInput{Title: "Loose", Schedule: time.Now().Add(-time.Hour)})

	out, err = run(t, app, "counts")
	require.NoError(t, err)
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "Categories")
	assert.Contains(t, out, "Compliance")
	assert.Contains(t, out, "Managers")
}

func TestTokenSetAndDelete(t *testing.T) {
	app, _ := newTestApp(t, "")

	_, err := run(t, app, "token", "set", "secret")
	require.NoError(t, err)

	got, err := app.Tokens.Token(testutil.Tenant)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	_, err = run(t, app, "token", "delete")
	require.NoError(t, err)
	_, err = app.Tokens.Token(testutil.Tenant)
	assert.ErrorIs(t, err, credential.ErrNoToken)

	_, err = run(t, app, "token", "set")
	assert.Error(t, err)
}

func TestFlagsApply(t *testing.T) {
	cfg := model.DefaultAppConfig()
	f := &Flags{Tenant: "globex", Backend: model.BackendHTTP, BaseURL: "http://api", Token: "tok"}
	f.Apply(cfg)

	assert.Equal(t, "globex", cfg.Tenant)
	assert.Equal(t, model.BackendHTTP, cfg.Backend.Kind)
	assert.Equal(t, "http://api", cfg.Backend.BaseURL)
	assert.Equal(t, "tok", cfg.Backend.Token)
	assert.Equal(t, model.DefaultAppConfig().Backend.DBPath, cfg.Backend.DBPath)
}

func TestParseSchedule(t *testing.T) {
	for _, in := range []string{"2030-05-01", "2030-05-01 09:30", "2030-05-01T09:30:00Z"} {
		t.Run(in, func(t *testing.T) {
			got, err := parseSchedule(in)
			require.NoError(t, err)
			assert.Equal(t, 2030, got.Year())
		})
	}

	_, err := parseSchedule("next week")
	assert.Error(t, err)
}

func TestReporter_FailedMutationPrintedOnce(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := testutil.NewRecordingStore(s)
	cfg := model.DefaultAppConfig()
	cfg.Tenant = testutil.Tenant
	app, err := NewApp(cfg, rec, "", zerolog.Nop())
	require.NoError(t, err)

	var stderr bytes.Buffer
	reporter := NewReporter(&stderr)
	app.Bus.Subscribe(reporter.Notify)

	task := testutil.MustTask(t, s, model.TaskInput{Title: "Call", Schedule: time.Now()})
	rec.FailWith(testutil.OpCompleteTask, &remote.Error{Op: "completeTask", Status: 502, Err: errors.New("bad gateway")})

	_, err = run(t, app, "tasks", "complete", task.ID)
	require.Error(t, err)
	assert.True(t, reporter.Reported(err))

	reporter.Report(err)
	assert.Equal(t, 1, strings.Count(stderr.String(), "bad gateway"), stderr.String())

	reporter.Report(errors.New("config missing"))
	assert.Contains(t, stderr.String(), "config missing")
}
