package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name      string
		stock     int64
		threshold *int64
		want      bool
	}{
		{"no threshold", -50, nil, false},
		{"above", 11, i64(10), false},
		{"equal", 10, i64(10), true},
		{"below", 3, i64(10), true},
		{"negative stock", -1, i64(0), true},
		{"zero threshold zero stock", 0, i64(0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAlert(tt.stock, tt.threshold))
		})
	}
}

func TestLowStockAlert_Message(t *testing.T) {
	a := LowStockAlert{ShopID: "shop-1", ProductID: "p-1", Name: "Milk", SKU: "MLK-1", Stock: 7, Threshold: 10}

	assert.Equal(t, "Low stock alert: Milk", a.Subject())
	assert.Equal(t,
		"Low stock alert for Milk (SKU: MLK-1) in shop shop-1.\nCurrent stock: 7\nReorder threshold: 10",
		a.Body())
}
