package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError marks malformed input; handlers map it to HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type StockShortage struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// InsufficientStockError reports every offending product of a rejected
// placement. The caller can adjust quantities and retry.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	ids := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		ids = append(ids, s.ProductID)
	}
	return "insufficient stock: " + strings.Join(ids, ", ")
}
