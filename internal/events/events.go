// Package events carries change notifications from the services to live
// subscribers (admin order board, cart badges, catalog views).
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrders   = "orders"
	TopicProducts = "products"
)

// CartTopic is the per-user cart channel.
func CartTopic(userID uuid.UUID) string {
	return "carts." + userID.String()
}

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderDeleted       = "order.deleted"
	TypeProductCreated     = "product.created"
	TypeProductUpdated     = "product.updated"
	TypeProductDeleted     = "product.deleted"
	TypeCartChanged        = "cart.changed"
)

var ErrClosed = errors.New("event bus closed")

type Event struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// New builds an event with data encoded as JSON.
func New(topic, eventType, id string, data interface{}) (Event, error) {
	event := Event{Topic: topic, Type: eventType, ID: id, At: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		event.Data = raw
	}
	return event, nil
}

type Bus interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe delivers events for the given topics until ctx is done or
	// the bus is closed, then closes the returned channel.
	Subscribe(ctx context.Context, topics ...string) (<-chan Event, error)
	Close() error
}
