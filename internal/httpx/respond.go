package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopdhq/shopd/internal/ledger"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeLedgerError maps the ledger error taxonomy onto HTTP status codes:
// bad input 400, missing order/product 404, stock conflicts and illegal
// transitions 409, anything else an opaque 500.
func writeLedgerError(w http.ResponseWriter, err error) {
	var ve *ledger.ValidationError
	if errors.As(err, &ve) {
		writeErr(w, http.StatusBadRequest, ve.Msg)
		return
	}

	var ise *ledger.InsufficientStockError
	if errors.As(err, &ise) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient stock",
			"shortages": ise.Shortages,
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrOrderNotFound), errors.Is(err, ledger.ErrProductNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidTransition):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
