package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEventTypeAcceptsBothCasings(t *testing.T) {
	cases := map[string]EventType{
		"OrderCreated":       EventOrderCreated,
		"ORDER_CREATED":      EventOrderCreated,
		"NewOrder":           EventOrderCreated,
		"OrderStatusChanged": EventOrderStatusChanged,
		"ORDER_CANCELLED":    EventOrderCancelled,
		"ProductApproved":    EventProductApproved,
		"PRODUCT_REJECTED":   EventProductRejected,
		"INVENTORY_UPDATED":  EventInventoryUpdated,
		"PriceUpdated":       EventPriceUpdated,
		"SHIPMENT_CREATED":   EventShipmentCreated,
		"ReturnInitiated":    EventReturnInitiated,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseEventType(input), "input %q", input)
	}
}

func TestParseEventTypeUnknownIsUnsupported(t *testing.T) {
	assert.Equal(t, EventUnsupported, ParseEventType("SomethingElse"))
	assert.Equal(t, EventUnsupported, ParseEventType(""))
}

func TestLocalStatusIDMapping(t *testing.T) {
	assert.Equal(t, 1, LocalStatusID("Created"))
	assert.Equal(t, 2, LocalStatusID("Approved"))
	assert.Equal(t, 2, LocalStatusID("Picking"))
	assert.Equal(t, 3, LocalStatusID("Shipped"))
	assert.Equal(t, 5, LocalStatusID("Delivered"))
	assert.Equal(t, 7, LocalStatusID("Cancelled"))
	assert.Equal(t, 11, LocalStatusID("Return Initiated"))

	// Unknown marketplace statuses fall back to the initial status.
	assert.Equal(t, 1, LocalStatusID("UnknownStatus"))
}
