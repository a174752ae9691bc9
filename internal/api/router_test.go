package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/fanout/internal/api/controllers"
	"github.com/datallboy/fanout/internal/app"
	"github.com/datallboy/fanout/internal/domain"
	"github.com/datallboy/fanout/internal/engine"
	"github.com/datallboy/fanout/internal/infra/config"
	"github.com/datallboy/fanout/internal/infra/metrics"
	"github.com/datallboy/fanout/internal/store"
	"github.com/datallboy/fanout/internal/transfer"
)

type stubRuns struct {
	started   []domain.TransferUnit
	overwrite bool
	startErr  error
	runs      map[string]*domain.Run
}

func (s *stubRuns) Start(_ context.Context, units []domain.TransferUnit, workers int, overwrite bool) (*domain.Run, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.started = units
	s.overwrite = overwrite
	return &domain.Run{ID: "run-1", Status: domain.StatusRunning, Units: len(units), Workers: len(units)}, nil
}

func (s *stubRuns) Get(_ context.Context, id string) (*domain.Run, error) {
	if run, ok := s.runs[id]; ok {
		return run, nil
	}
	return nil, domain.ErrRunNotFound
}

func (s *stubRuns) List(context.Context, int) ([]*domain.Run, error) {
	var out []*domain.Run
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out, nil
}

func newEcho(t *testing.T, runs controllers.RunService, overwrite bool) (*echo.Echo, *app.Context) {
	t.Helper()
	appCtx := app.NewContext(&config.Config{Workers: 2, Overwrite: overwrite}, nil)
	appCtx.Metrics = metrics.New("fanout")
	e := echo.New()
	RegisterRoutes(e, appCtx, runs)
	return e, appCtx
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	runs := &stubRuns{}
	e, _ := newEcho(t, runs, true)

	rec := do(e, http.MethodPost, "/api/runs",
		`{"units":[{"source":"http://example.com/a.jpg","destination":"/tmp/a.jpg"}]}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp controllers.CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, domain.StatusRunning, resp.Status)

	require.Len(t, runs.started, 1)
	assert.True(t, runs.overwrite, "overwrite defaults to the configured value")
}

func TestCreateRunOverwriteFromBody(t *testing.T) {
	runs := &stubRuns{}
	e, _ := newEcho(t, runs, true)

	rec := do(e, http.MethodPost, "/api/runs", `{"units":[],"overwrite":false}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, runs.overwrite)
}

func TestCreateRunRejectsBadInput(t *testing.T) {
	e, _ := newEcho(t, &stubRuns{}, false)

	for name, body := range map[string]string{
		"not json":        `{"units":`,
		"missing dest":    `{"units":[{"source":"http://example.com/a"}]}`,
		"negative worker": `{"units":[],"workers":-1}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/runs", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateRunRejectsNonJSONBody(t *testing.T) {
	runs := &stubRuns{}
	e, _ := newEcho(t, runs, false)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader("source,destination"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
	assert.Nil(t, runs.started)
}

func TestCreateRunStartFailure(t *testing.T) {
	e, _ := newEcho(t, &stubRuns{startErr: errors.New("disk full")}, false)

	rec := do(e, http.MethodPost, "/api/runs", `{"units":[]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk full")
}

func TestGetRun(t *testing.T) {
	runs := &stubRuns{runs: map[string]*domain.Run{
		"abc": {ID: "abc", Status: domain.StatusCompleted, Totals: domain.RunResult{OK: 3}},
	}}
	e, _ := newEcho(t, runs, false)

	rec := do(e, http.MethodGet, "/api/runs/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var run domain.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, 3, run.Totals.OK)

	rec = do(e, http.MethodGet, "/api/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns(t *testing.T) {
	e, _ := newEcho(t, &stubRuns{}, false)

	rec := do(e, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e, appCtx := newEcho(t, &stubRuns{}, false)
	appCtx.Metrics.RecordTransfer(domain.OutcomeSkipped, 0, time.Millisecond)

	rec := do(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fanout_transfers_total{outcome="skipped"} 1`)
}

func TestRunEndToEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.jpg", []byte("aaaa"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/src/b.jpg", []byte("bb"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/dst/b.jpg", []byte("old"), 0644))

	appCtx := app.NewContext(&config.Config{Workers: 2}, nil)
	appCtx.Metrics = metrics.New("fanout")
	appCtx.Store = store.NewMemoryStore()
	appCtx.Downloader = transfer.NewDownloader(fs, transfer.NewFileFetcher(fs), 0)
	manager := engine.NewRunManager(appCtx)

	e := echo.New()
	RegisterRoutes(e, appCtx, manager)

	rec := do(e, http.MethodPost, "/api/runs", `{"units":[
		{"source":"file:///src/a.jpg","destination":"/dst/a.jpg"},
		{"source":"/src/b.jpg","destination":"/dst/b.jpg"},
		{"source":"/src/missing.jpg","destination":"/dst/c.jpg"}
	]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created controllers.CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	_, err := manager.Wait(context.Background(), created.ID)
	require.NoError(t, err)

	rec = do(e, http.MethodGet, "/api/runs/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var run domain.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, domain.StatusCompleted, run.Status)
	assert.Equal(t, domain.RunResult{OK: 1, Skipped: 1, Failed: 1}, run.Totals)

	data, err := afero.ReadFile(fs, "/dst/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "aaaa", string(data))
}
