package calculate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"oee-tracker/internal/formula"
	"oee-tracker/internal/storage"
)

type MockMachineCalculator struct {
	mock.Mock
}

func (m *MockMachineCalculator) CalculateForMachine(ctx context.Context, machineID int64, date time.Time) (storage.DailyOeeMetric, error) {
	args := m.Called(ctx, machineID, date)
	return args.Get(0).(storage.DailyOeeMetric), args.Error(1)
}

type fixedScores struct {
	got formula.Config
}

func (f *fixedScores) CalculateOee(_ formula.Variables, cfg formula.Config) formula.Scores {
	f.got = cfg
	return formula.Scores{Availability: 90, Performance: 80, Quality: 100, Oee: 72}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/api/oee/machines/{machineID}/calculate", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCalculateMachineDay_Success(t *testing.T) {
	calc := new(MockMachineCalculator)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	calc.On("CalculateForMachine", mock.Anything, int64(7), date).
		Return(storage.DailyOeeMetric{MachineID: 7, Date: date, OeeScore: 80}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/oee/machines/7/calculate?date=2026-03-10", nil)
	rr := serve(CalculateMachineDay(discard(), calc, time.UTC), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got storage.DailyOeeMetric
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.MachineID)
	assert.Equal(t, 80.0, got.OeeScore)
	calc.AssertExpectations(t)
}

func TestCalculateMachineDay_BadInput(t *testing.T) {
	calc := new(MockMachineCalculator)

	for _, target := range []string{
		"/api/oee/machines/abc/calculate",
		"/api/oee/machines/0/calculate",
		"/api/oee/machines/7/calculate?date=10.03.2026",
	} {
		rr := serve(CalculateMachineDay(discard(), calc, time.UTC), httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
	calc.AssertNotCalled(t, "CalculateForMachine", mock.Anything, mock.Anything, mock.Anything)
}

func TestCalculateMachineDay_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown machine", storage.ErrNotFound, http.StatusNotFound},
		{"storage failure", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := new(MockMachineCalculator)
			calc.On("CalculateForMachine", mock.Anything, int64(3), mock.Anything).
				Return(storage.DailyOeeMetric{}, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/oee/machines/3/calculate?date=2026-03-10", nil)
			rr := serve(CalculateMachineDay(discard(), calc, time.UTC), req)

			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestQuickOee_UsesConfiguredFormulas(t *testing.T) {
	calc := &fixedScores{}
	cfg := formula.DefaultConfig()
	cfg.ExcludeBreaks = false

	body := `{"variables":{"run_time":3600,"planned_production_time":4000}}`
	req := httptest.NewRequest(http.MethodPost, "/api/oee/quick", strings.NewReader(body))
	rr := httptest.NewRecorder()

	QuickOee(discard(), calc, formula.StaticConfig(cfg))(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got formula.Scores
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 72.0, got.Oee)
	assert.False(t, calc.got.ExcludeBreaks)
}

func TestQuickOee_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/oee/quick", strings.NewReader("{"))
	rr := httptest.NewRecorder()

	QuickOee(discard(), &fixedScores{}, formula.StaticConfig(formula.DefaultConfig()))(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
