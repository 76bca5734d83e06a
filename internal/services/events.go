package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// HandleOrderEvent decodes an order event received from the broker and records it in the log.
func HandleOrderEvent(_ context.Context, routingKey string, body []byte) error {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", routingKey, err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("%s event without order id", routingKey)
	}

	log.Info().
		Str("event", routingKey).
		Str("order_id", event.OrderID).
		Str("user_id", event.UserID).
		Str("total", event.TotalPrice.String()).
		Int("items", event.Items).
		Time("occurred_at", event.OccurredAt).
		Msg("order event received")
	return nil
}
