package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, OrderStatusDelivered.Terminal())
	assert.False(t, OrderStatus("lost").Valid())
}

func TestOrderItemsCloneIsDeep(t *testing.T) {
	provider := uuid.New()
	items := OrderItems{{ProductID: uuid.New(), ProviderID: &provider, Name: "Camisa", Quantity: 1, Images: []string{"a.jpg"}}}

	clone := items.Clone()
	clone[0].Images[0] = "b.jpg"
	*clone[0].ProviderID = uuid.New()

	assert.Equal(t, "a.jpg", items[0].Images[0])
	assert.Equal(t, provider, *items[0].ProviderID)
}

func TestOrderItemOmitsAbsentFields(t *testing.T) {
	raw, err := json.Marshal(OrderItem{ProductID: uuid.New(), Name: "Gorra", Price: 10, Quantity: 2})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"size", "color", "provider_id", "images"} {
		assert.NotContains(t, fields, key)
	}
}

func TestQuantitiesByProduct(t *testing.T) {
	id := uuid.New()
	items := OrderItems{{ProductID: id, Quantity: 2, Size: "M"}, {ProductID: id, Quantity: 1, Size: "L"}}
	assert.Equal(t, 3, items.QuantitiesByProduct()[id])
}

func TestCartKey(t *testing.T) {
	id := uuid.MustParse("6f1c1d5e-0000-4000-8000-000000000001")
	assert.Equal(t, id.String()+"-M-", CartKey(id, "M", ""))
	assert.Equal(t, id.String()+"--", CartKey(id, "", ""))
}

func TestProductTypeRequirements(t *testing.T) {
	assert.False(t, ProductTypeNoVariant.RequiresSize())
	assert.True(t, ProductTypeSizeOnly.RequiresSize())
	assert.False(t, ProductTypeSizeOnly.RequiresColor())
	assert.True(t, ProductTypeSizeAndColor.RequiresColor())
	assert.False(t, ProductType("otro").Valid())
}
