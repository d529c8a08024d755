package get

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"oee-tracker/internal/shift"
	"oee-tracker/internal/storage"
)

type MockShiftResolver struct {
	mock.Mock
}

func (m *MockShiftResolver) Current(ctx context.Context, machineID int64, at time.Time) (shift.Context, bool, error) {
	args := m.Called(ctx, machineID, at)
	return args.Get(0).(shift.Context), args.Bool(1), args.Error(2)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCurrentShift_Active(t *testing.T) {
	resolver := new(MockShiftResolver)
	at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	sc := shift.Context{
		Shift:          storage.ShiftDefinition{ID: 3, Name: "Night"},
		ProductionDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Overnight:      true,
	}
	resolver.On("Current", mock.Anything, int64(2), mock.MatchedBy(func(t time.Time) bool { return t.Equal(at) })).
		Return(sc, true, nil)

	rr := httptest.NewRecorder()
	CurrentShift(discard(), resolver)(rr, httptest.NewRequest(http.MethodGet, "/api/shifts/current?machine_id=2&at=2026-03-10T23:30:00Z", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got CurrentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Active)
	require.NotNil(t, got.Shift)
	assert.Equal(t, "Night", got.Shift.Shift.Name)
	assert.True(t, got.Shift.Overnight)
}

func TestCurrentShift_NoShift(t *testing.T) {
	resolver := new(MockShiftResolver)
	resolver.On("Current", mock.Anything, int64(2), mock.Anything).Return(shift.Context{}, false, nil)

	rr := httptest.NewRecorder()
	CurrentShift(discard(), resolver)(rr, httptest.NewRequest(http.MethodGet, "/api/shifts/current?machine_id=2", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"active":false}`, rr.Body.String())
}

func TestCurrentShift_BadInput(t *testing.T) {
	resolver := new(MockShiftResolver)

	for _, target := range []string{
		"/api/shifts/current",
		"/api/shifts/current?machine_id=x",
		"/api/shifts/current?machine_id=2&at=yesterday",
	} {
		rr := httptest.NewRecorder()
		CurrentShift(discard(), resolver)(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestCurrentShift_Errors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		resolver := new(MockShiftResolver)
		resolver.On("Current", mock.Anything, int64(2), mock.Anything).Return(shift.Context{}, false, tt.err)

		rr := httptest.NewRecorder()
		CurrentShift(discard(), resolver)(rr, httptest.NewRequest(http.MethodGet, "/api/shifts/current?machine_id=2", nil))
		assert.Equal(t, tt.code, rr.Code)
	}
}
