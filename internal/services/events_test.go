package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleOrderEvent(t *testing.T) {
	body, err := json.Marshal(services.OrderEvent{
		Type:       services.EventOrderPaid,
		OrderID:    "o1",
		UserID:     "u1",
		TotalPrice: decimal.RequireFromString("253.00"),
		Items:      3,
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.NoError(t, services.HandleOrderEvent(context.Background(), services.EventOrderPaid, body))
	assert.Error(t, services.HandleOrderEvent(context.Background(), services.EventOrderPaid, []byte("{not json")))
	assert.Error(t, services.HandleOrderEvent(context.Background(), services.EventOrderPaid, []byte(`{"type":"order.paid"}`)))
}
