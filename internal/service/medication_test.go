package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caredose/medadmin-backend/pkg/model"
)

func TestAdjustStock_Validation(t *testing.T) {
	// Validation happens before any data access
	svc := &MedicationService{}
	ctx := context.Background()

	tests := []struct {
		name string
		adj  StockAdjustment
	}{
		{
			name: "zero quantity",
			adj:  StockAdjustment{Category: model.StockFromPharmacy, Quantity: 0},
		},
		{
			name: "negative quantity for named category",
			adj:  StockAdjustment{Category: model.StockLost, Quantity: -2},
		},
		{
			name: "administered only enters through dispense",
			adj:  StockAdjustment{Category: model.StockAdministered, Quantity: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AdjustStock(ctx, "med-1", tt.adj)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}
