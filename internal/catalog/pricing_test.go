package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountedCents(t *testing.T) {
	tests := []struct {
		name    string
		price   int64
		percent int
		want    int64
	}{
		{"10 percent off", 1000, 10, 900},
		{"half off odd price", 999, 50, 500}, // 499.5 rounds half-up
		{"one percent of small price", 99, 1, 98},
		{"full discount", 1000, 100, 0},
		{"zero percent leaves price", 1000, 0, 1000},
		{"negative percent leaves price", 1000, -5, 1000},
		{"over 100 leaves price", 1000, 150, 1000},
		{"zero price", 0, 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiscountedCents(tt.price, tt.percent))
		})
	}
}
