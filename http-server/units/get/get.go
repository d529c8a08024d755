package get

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

type UnitConverter interface {
	ToBaseUnit(quantity float64, code string) float64
	Convert(quantity float64, from, to string) (float64, error)
	Category(code string) (string, bool)
}

type ConvertResponse struct {
	Quantity     float64  `json:"quantity"`
	Unit         string   `json:"unit"`
	BaseQuantity float64  `json:"base_quantity"`
	Category     string   `json:"category,omitempty"`
	Known        bool     `json:"known"`
	To           string   `json:"to,omitempty"`
	Converted    *float64 `json:"converted,omitempty"`
}

// ConvertUnit normalizes ?quantity= in ?unit= to its base unit. With ?to= it also converts
// between two units of the same category.
func ConvertUnit(converter UnitConverter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		unit := q.Get("unit")
		quantity, err := strconv.ParseFloat(q.Get("quantity"), 64)
		if err != nil || unit == "" {
			http.Error(w, "Query parameters 'quantity' and 'unit' are required", http.StatusBadRequest)
			return
		}

		category, known := converter.Category(unit)
		resp := ConvertResponse{
			Quantity:     quantity,
			Unit:         unit,
			BaseQuantity: converter.ToBaseUnit(quantity, unit),
			Category:     category,
			Known:        known,
		}

		if to := q.Get("to"); to != "" {
			converted, err := converter.Convert(quantity, unit, to)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			resp.To = to
			resp.Converted = &converted
		}

		render.JSON(w, r, resp)
	}
}
