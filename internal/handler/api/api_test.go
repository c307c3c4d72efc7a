package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SigForge/internal/domain/models"
	pkghttp "SigForge/pkg/http"
	"SigForge/pkg/logger"
	"SigForge/internal/usecase"
)

type fakeSignalStore struct {
	signals    map[string]models.CandidateSignal
	selections map[string][]models.SelectionRecord
}

func (s *fakeSignalStore) InsertSignals(_ context.Context, _ []models.CandidateSignal) error {
	return nil
}

func (s *fakeSignalStore) SignalByID(_ context.Context, id string) (models.CandidateSignal, error) {
	sig, ok := s.signals[id]
	if !ok {
		return models.CandidateSignal{}, models.ErrNotFound
	}
	return sig, nil
}

func (s *fakeSignalStore) SignalsSince(_ context.Context, _ time.Time) ([]models.CandidateSignal, error) {
	return nil, nil
}

func (s *fakeSignalStore) ReplaceSelections(_ context.Context, key string, records []models.SelectionRecord) error {
	s.selections[key] = records
	return nil
}

func (s *fakeSignalStore) SelectionsByPeriod(_ context.Context, key string) ([]models.SelectionRecord, error) {
	return s.selections[key], nil
}

func (s *fakeSignalStore) SelectionsOn(_ context.Context, _ string) ([]models.SelectionRecord, error) {
	return nil, nil
}

type fakeBacktestStore struct {
	runs   map[string]models.BacktestRun
	trades map[string][]models.BacktestTrade
}

func (s *fakeBacktestStore) CreateRun(_ context.Context, run models.BacktestRun) error {
	s.runs[run.ID] = run
	return nil
}

func (s *fakeBacktestStore) UpdateRun(_ context.Context, run models.BacktestRun) error {
	s.runs[run.ID] = run
	return nil
}

func (s *fakeBacktestStore) RunByID(_ context.Context, id string) (models.BacktestRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return models.BacktestRun{}, models.ErrNotFound
	}
	return run, nil
}

func (s *fakeBacktestStore) InsertTrades(_ context.Context, _ []models.BacktestTrade) error {
	return nil
}

func (s *fakeBacktestStore) TradesByRun(_ context.Context, id string) ([]models.BacktestTrade, error) {
	return s.trades[id], nil
}

type fakeQueue struct {
	published []string
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, _ interface{}) error {
	q.published = append(q.published, msgType)
	return nil
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) pkghttp.APIResponse {
	t.Helper()
	var resp pkghttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthWithoutDependencies(t *testing.T) {
	e := echo.New()
	NewHealthHandler(nil, nil).RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["service"])
	assert.Equal(t, "ok", status["clickhouse"])
	assert.Equal(t, "ok", status["redis"])
}

func TestListSelections(t *testing.T) {
	store := &fakeSignalStore{
		signals: map[string]models.CandidateSignal{},
		selections: map[string][]models.SelectionRecord{
			"2026-03-10T14": {
				{PeriodKey: "2026-03-10T14", Rank: 1, Symbol: "BTCUSDT", QualityScore: 0.9},
				{PeriodKey: "2026-03-10T14", Rank: 2, Symbol: "ETHUSDT", QualityScore: 0.8},
			},
		},
	}
	e := echo.New()
	NewSignalHandler(store, logger.Nop()).RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/selections?period=2026-03-10T14", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusOK, resp.Status)

	rec = doRequest(e, http.MethodGet, "/api/selections?period=yesterday", "")
	resp = decodeResponse(t, rec)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	rec = doRequest(e, http.MethodGet, "/api/selections", "")
	resp = decodeResponse(t, rec)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestGetSignal(t *testing.T) {
	store := &fakeSignalStore{
		signals: map[string]models.CandidateSignal{
			"BTCUSDT-20260310T14": {ID: "BTCUSDT-20260310T14", Symbol: "BTCUSDT", Direction: models.DirectionLong},
		},
		selections: map[string][]models.SelectionRecord{},
	}
	e := echo.New()
	NewSignalHandler(store, logger.Nop()).RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/signals/BTCUSDT-20260310T14", "")
	resp := decodeResponse(t, rec)
	assert.Equal(t, http.StatusOK, resp.Status)

	rec = doRequest(e, http.MethodGet, "/api/signals/missing", "")
	resp = decodeResponse(t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestCreateBacktest(t *testing.T) {
	store := &fakeBacktestStore{
		runs:   map[string]models.BacktestRun{},
		trades: map[string][]models.BacktestTrade{},
	}
	q := &fakeQueue{}
	e := echo.New()
	NewBacktestHandler(store, q, logger.Nop()).RegisterRoutes(e)

	body := `{"symbol":"BTCUSDT","from":"2026-01-01T00:00:00Z","to":"2026-02-01T00:00:00Z"}`
	rec := doRequest(e, http.MethodPost, "/api/backtests", body)
	resp := decodeResponse(t, rec)
	require.Equal(t, http.StatusCreated, resp.Status)

	require.Len(t, store.runs, 1)
	for _, run := range store.runs {
		assert.Equal(t, models.BacktestPending, run.Status)
		assert.Equal(t, 10000.0, run.InitialCapital) // default applied
		assert.Equal(t, models.FillFail, run.Config.FillPolicy)
	}
	require.Equal(t, []string{usecase.BacktestMessageType}, q.published)
}

func TestCreateBacktestValidation(t *testing.T) {
	store := &fakeBacktestStore{
		runs:   map[string]models.BacktestRun{},
		trades: map[string][]models.BacktestTrade{},
	}
	e := echo.New()
	NewBacktestHandler(store, &fakeQueue{}, logger.Nop()).RegisterRoutes(e)

	cases := []string{
		`{"from":"2026-01-01T00:00:00Z","to":"2026-02-01T00:00:00Z"}`,           // missing symbol
		`{"symbol":"BTCUSDT","from":"notatime","to":"2026-02-01T00:00:00Z"}`,    // bad from
		`{"symbol":"BTCUSDT","from":"2026-02-01T00:00:00Z","to":"2026-01-01T00:00:00Z"}`, // inverted range
		`{"symbol":"BTCUSDT","from":"2026-01-01T00:00:00Z","to":"2026-02-01T00:00:00Z","fill_policy":"interpolate"}`,
	}
	for _, body := range cases {
		rec := doRequest(e, http.MethodPost, "/api/backtests", body)
		resp := decodeResponse(t, rec)
		assert.Equal(t, http.StatusBadRequest, resp.Status, "body: %s", body)
		assert.Empty(t, store.runs)
	}
}

func TestGetBacktest(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	store := &fakeBacktestStore{
		runs: map[string]models.BacktestRun{
			"bt-1": {ID: "bt-1", Symbol: "BTCUSDT", Status: models.BacktestCompleted, CreatedAt: now},
		},
		trades: map[string][]models.BacktestTrade{
			"bt-1": {{RunID: "bt-1", Seq: 1, Direction: models.DirectionLong, ExitReason: models.ExitTarget}},
		},
	}
	e := echo.New()
	NewBacktestHandler(store, &fakeQueue{}, logger.Nop()).RegisterRoutes(e)

	rec := doRequest(e, http.MethodGet, "/api/backtests/bt-1", "")
	resp := decodeResponse(t, rec)
	require.Equal(t, http.StatusOK, resp.Status)

	rec = doRequest(e, http.MethodGet, "/api/backtests/missing", "")
	resp = decodeResponse(t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
