// internal/services/publish.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/events"
)

// publish sends a change notification. Delivery is best effort: the write it
// describes has already been committed, so failures are only logged.
func publish(ctx context.Context, bus events.Bus, topic, eventType, id string, data interface{}) {
	if bus == nil {
		return
	}

	event, err := events.New(topic, eventType, id, data)
	if err == nil {
		err = bus.Publish(ctx, event)
	}
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"topic": topic,
			"type":  eventType,
			"id":    id,
		}).Warn("Failed to publish event")
	}
}
