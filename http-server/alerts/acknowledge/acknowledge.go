package acknowledge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"oee-tracker/internal/service/alerts"
	"oee-tracker/internal/storage"
)

type Acknowledger interface {
	Acknowledge(ctx context.Context, alertID, userID int64) (storage.Alert, error)
}

type Request struct {
	UserID int64 `json:"user_id"`
}

func AcknowledgeAlert(log *slog.Logger, ack Acknowledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.alerts.AcknowledgeAlert"

		alertID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || alertID <= 0 {
			http.Error(w, "Invalid alert id", http.StatusBadRequest)
			return
		}

		var req Request
		if err := render.DecodeJSON(r.Body, &req); err != nil || req.UserID <= 0 {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		alert, err := ack.Acknowledge(ctx, alertID, req.UserID)
		switch {
		case errors.Is(err, alerts.ErrAlertNotFound):
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		case errors.Is(err, alerts.ErrAlertResolved):
			http.Error(w, "Alert already resolved", http.StatusConflict)
			return
		case err != nil:
			log.With(
				slog.String("op", op),
				slog.Int64("alert_id", alertID),
				slog.String("error", err.Error()),
			).Error("Failed to acknowledge alert")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, alert)
	}
}
