package acknowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

	"oee-tracker/internal/service/alerts"
	"oee-tracker/internal/storage"
)

type MockAcknowledger struct {
	mock.Mock
}

func (m *MockAcknowledger) Acknowledge(ctx context.Context, alertID, userID int64) (storage.Alert, error) {
	args := m.Called(ctx, alertID, userID)
	return args.Get(0).(storage.Alert), args.Error(1)
}

func serve(ack Acknowledger, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/api/alerts/{id}/acknowledge", AcknowledgeAlert(slog.New(slog.NewTextHandler(io.Discard, nil)), ack))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return rr
}

func TestAcknowledgeAlert_Success(t *testing.T) {
	ack := new(MockAcknowledger)
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	user := int64(9)
	ack.On("Acknowledge", mock.Anything, int64(15), int64(9)).
		Return(storage.Alert{ID: 15, AcknowledgedAt: &at, AcknowledgedBy: &user}, nil)

	rr := serve(ack, "/api/alerts/15/acknowledge", `{"user_id":9}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got storage.Alert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(15), got.ID)
	require.NotNil(t, got.AcknowledgedBy)
	assert.Equal(t, int64(9), *got.AcknowledgedBy)
}

func TestAcknowledgeAlert_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"missing", fmt.Errorf("op: %w", alerts.ErrAlertNotFound), http.StatusNotFound},
		{"resolved", fmt.Errorf("op: %w", alerts.ErrAlertResolved), http.StatusConflict},
		{"storage", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := new(MockAcknowledger)
			ack.On("Acknowledge", mock.Anything, int64(15), int64(9)).Return(storage.Alert{}, tt.err)

			rr := serve(ack, "/api/alerts/15/acknowledge", `{"user_id":9}`)

			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestAcknowledgeAlert_BadInput(t *testing.T) {
	ack := new(MockAcknowledger)

	assert.Equal(t, http.StatusBadRequest, serve(ack, "/api/alerts/x/acknowledge", `{"user_id":9}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(ack, "/api/alerts/15/acknowledge", `{}`).Code)
	ack.AssertNotCalled(t, "Acknowledge", mock.Anything, mock.Anything, mock.Anything)
}
