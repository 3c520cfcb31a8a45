package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/advisor-tasks/internal/engine"
	"github.com/nhle/advisor-tasks/internal/filter"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/notify"
	"github.com/nhle/advisor-tasks/internal/remote"
	"github.com/nhle/advisor-tasks/internal/server"
	"github.com/nhle/advisor-tasks/internal/store"
	"github.com/nhle/advisor-tasks/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func tenantURL(p string) string {
	return server.APIPrefix + "/" + testutil.Tenant + p
}

func TestServer_TaskLifecycle(t *testing.T) {
	s := testutil.NewTestStore(t)
	h := server.New(s).Handler()

	code, env := do(t, h, http.MethodPost, tenantURL("/tasks"), model.TaskInput{
		Title:    "Call back",
		Schedule: time.Now().Add(48 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	require.True(t, env.Success)

	var created model.Task
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Call back", created.Title)

	code, env = do(t, h, http.MethodGet, tenantURL("/tasks/"+created.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var fetched model.Task
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	code, env = do(t, h, http.MethodPut, tenantURL("/tasks/"+created.ID), model.TaskInput{
		Title:    "Call back tomorrow",
		Schedule: created.Schedule,
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = do(t, h, http.MethodPost, tenantURL("/tasks/"+created.ID+"/complete"), nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var completed model.Task
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	assert.True(t, completed.Completed)
	assert.Equal(t, "Call back tomorrow", completed.Title)

	code, env = do(t, h, http.MethodGet, tenantURL("/tasks?status=completed&page=1&take=10"), nil)
	require.Equal(t, http.StatusOK, code)
	var res remote.SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.Count)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, created.ID, res.Tasks[0].ID)
}

func TestServer_Counts(t *testing.T) {
	s := testutil.NewTestStore(t)
	h := server.New(s).Handler()

	cat := testutil.MustCategory(t, s, "Follow-up")
	testutil.MustTask(t, s, model.TaskInput{Category: &cat, Schedule: time.Now().Add(time.Hour)})
	testutil.MustTask(t, s, model.TaskInput{Schedule: time.Now().Add(-time.Hour)})

	code, env := do(t, h, http.MethodGet, tenantURL("/tasks/counts/status"), nil)
	require.Equal(t, http.StatusOK, code)
	var byStatus []model.Aggregate
	require.NoError(t, json.Unmarshal(env.Data, &byStatus))
	assert.NotEmpty(t, byStatus)

	code, env = do(t, h, http.MethodGet, tenantURL("/tasks/counts/categories"), nil)
	require.Equal(t, http.StatusOK, code)
	var byCategory []model.Aggregate
	require.NoError(t, json.Unmarshal(env.Data, &byCategory))
	assert.NotEmpty(t, byCategory)

	code, _ = do(t, h, http.MethodGet, tenantURL("/tasks/counts/managers"), nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, h, http.MethodGet, tenantURL("/tasks/by-type"), nil)
	require.Equal(t, http.StatusOK, code)
	var breakdown remote.TypeBreakdown
	require.NoError(t, json.Unmarshal(env.Data, &breakdown))
	assert.NotEmpty(t, breakdown.Categories)
}

func TestServer_Categories(t *testing.T) {
	s := testutil.NewTestStore(t)
	h := server.New(s).Handler()

	code, env := do(t, h, http.MethodGet, tenantURL("/categories"), nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(env.Data))

	code, env = do(t, h, http.MethodPost, tenantURL("/categories"), model.CategoryInput{Name: "Review"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = do(t, h, http.MethodGet, tenantURL("/categories"), nil)
	require.Equal(t, http.StatusOK, code)
	var cats []model.Category
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	require.Len(t, cats, 1)
	assert.Equal(t, "Review", cats[0].Name)
}

func TestServer_Errors(t *testing.T) {
	s := testutil.NewTestStore(t)
	h := server.New(s).Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"unknown task", http.MethodGet, tenantURL("/tasks/missing"), nil, http.StatusNotFound},
		{"unknown tenant", http.MethodGet, server.APIPrefix + "/nobody/categories", nil, http.StatusNotFound},
		{"bad status", http.MethodGet, tenantURL("/tasks?status=soon"), nil, http.StatusBadRequest},
		{"bad take", http.MethodGet, tenantURL("/tasks?take=-1"), nil, http.StatusBadRequest},
		{"empty title", http.MethodPost, tenantURL("/tasks"), model.TaskInput{Schedule: time.Now()}, http.StatusBadRequest},
		{"empty category", http.MethodPost, tenantURL("/categories"), model.CategoryInput{}, http.StatusBadRequest},
		{"complete unknown", http.MethodPost, tenantURL("/tasks/missing/complete"), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestServer_ExportAndDownload(t *testing.T) {
	dir := t.TempDir()
	s := testutil.NewTestStore(t, store.WithExports(dir, "http://tasks.local"))
	h := server.New(s, server.WithExportDir(dir)).Handler()

	testutil.MustTask(t, s, model.TaskInput{Title: "Export me", Schedule: time.Now()})

	code, env := do(t, h, http.MethodPost, tenantURL("/exports"), server.ExportRequest{})
	require.Equal(t, http.StatusOK, code, env.Error)
	var resp server.ExportResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Contains(t, resp.URL, "http://tasks.local/exports/")

	req := httptest.NewRequest(http.MethodGet, server.ExportsPrefix+"/"+path.Base(resp.URL), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Export me")

	req = httptest.NewRequest(http.MethodGet, server.ExportsPrefix+"/missing.csv", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Token(t *testing.T) {
	s := testutil.NewTestStore(t)
	h := server.New(s, server.WithToken("secret")).Handler()

	code, env := do(t, h, http.MethodGet, tenantURL("/categories"), nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	req := httptest.NewRequest(http.MethodGet, tenantURL("/categories"), nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", remote.ErrNotFound, http.StatusNotFound},
		{"invalid", remote.ErrInvalidInput, http.StatusBadRequest},
		{"remote status", &remote.Error{Op: "search", Status: http.StatusBadGateway, Err: errors.New("x")}, http.StatusBadGateway},
		{"remote transport", &remote.Error{Op: "search", Err: errors.New("x")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, server.StatusCode(tt.err))
		})
	}
}

func TestServer_StoreFailure(t *testing.T) {
	rec := testutil.NewRecordingStore(testutil.NewTestStore(t))
	rec.FailWith(testutil.OpSearch, errors.New("disk gone"))
	h := server.New(rec).Handler()

	code, env := do(t, h, http.MethodGet, tenantURL("/tasks"), nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "disk gone", env.Error)
	assert.Equal(t, 1, rec.Calls(testutil.OpSearch))
}

func TestServer_SummaryServesRefreshWindow(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := testutil.NewRecordingStore(s)

	cfg := model.DefaultAppConfig()
	cfg.Tenant = testutil.Tenant
	eng, err := engine.New(*cfg, rec, filter.NewHistory(""), notify.NewBus(zerolog.Nop(), 0), zerolog.Nop())
	require.NoError(t, err)

	h := server.New(s, server.WithSummary(eng)).Handler()
	testutil.MustTask(t, s, model.TaskInput{Title: "Overdue", Schedule: time.Now().Add(-time.Hour)})

	total := func() int {
		t.Helper()
		code, env := do(t, h, http.MethodGet, tenantURL("/summary"), nil)
		require.Equal(t, http.StatusOK, code, env.Error)

		var sum server.Summary
		require.NoError(t, json.Unmarshal(env.Data, &sum))
		assert.Empty(t, sum.Status.Error)
		for _, agg := range sum.Status.Items {
			if agg.Value == string(model.StatusAll) {
				return agg.Count
			}
		}
		t.Fatalf("no %q bucket in %+v", model.StatusAll, sum.Status.Items)
		return 0
	}

	assert.Equal(t, 1, total())

	// Writes through the API do not reach the cached counts until the
	// refresh window passes.
	code, env := do(t, h, http.MethodPost, tenantURL("/tasks"), model.TaskInput{Title: "Later", Schedule: time.Now().Add(time.Hour)})
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.Equal(t, 1, total())
	assert.Equal(t, 1, rec.Calls(testutil.OpCountByStatus))

	eng.Protocol().RefreshWindow(testutil.Tenant)
	assert.Equal(t, 2, total())
	assert.Equal(t, 2, rec.Calls(testutil.OpCountByStatus))

	code, _ = do(t, h, http.MethodGet, server.APIPrefix+"/globex/summary", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
