package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateListing         OutboxAggregateType = "listing"
	AggregatePurchaseRequest OutboxAggregateType = "purchase_request"
	AggregateSaleRecord      OutboxAggregateType = "sale_record"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateListing,
	AggregatePurchaseRequest,
	AggregateSaleRecord,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventListingCreated          OutboxEventType = "listing_created"
	EventPurchaseRequestCreated  OutboxEventType = "purchase_request_created"
	EventPurchaseRequestResolved OutboxEventType = "purchase_request_resolved"
	EventSaleConfirmed           OutboxEventType = "sale_confirmed"
)

var validEventTypes = []OutboxEventType{
	EventListingCreated,
	EventPurchaseRequestCreated,
	EventPurchaseRequestResolved,
	EventSaleConfirmed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
