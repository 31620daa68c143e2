package order

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/entity"
)

// EventType names an order lifecycle event on the bus.
type EventType string

const (
	EventCreated       EventType = "order.created"
	EventUpdated       EventType = "order.updated"
	EventCancelled     EventType = "order.cancelled"
	EventStatusChanged EventType = "order.status_changed"
)

// Event is the payload published for every order write.
type Event struct {
	Type           EventType     `json:"type"`
	ID             string        `json:"id"`
	User           string        `json:"user"`
	Status         entity.Status `json:"status"`
	PreviousStatus entity.Status `json:"previousStatus,omitempty"`
	TotalAmount    string        `json:"totalAmount"`
	OccurredAt     time.Time     `json:"occurredAt"`
}

func newEvent(kind EventType, order *entity.Order, previous entity.Status) Event {
	return Event{
		Type:           kind,
		ID:             order.ID,
		User:           order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount.StringFixed(2),
		OccurredAt:     order.UpdatedAt,
	}
}

// EventKey is the bus key for events of one order.
func EventKey(orderID string) []byte {
	return []byte("order-" + orderID)
}

// publish is best effort; the write already committed.
func (s *Service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, EventKey(event.ID), payload); err != nil {
		s.logger.Error("publish order event",
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.ID),
			zap.Error(err),
		)
	}
}
