package enums

import "fmt"

// PurchaseRequestStatus tracks the lifecycle of a purchase request.
// pending_confirmation is the only non-terminal state; confirmed,
// rejected and cancelled admit no further transitions.
type PurchaseRequestStatus string

const (
	PurchaseRequestStatusPending   PurchaseRequestStatus = "pending_confirmation"
	PurchaseRequestStatusConfirmed PurchaseRequestStatus = "confirmed"
	PurchaseRequestStatusRejected  PurchaseRequestStatus = "rejected"
	PurchaseRequestStatusCancelled PurchaseRequestStatus = "cancelled"
)

var validPurchaseRequestStatuses = []PurchaseRequestStatus{
	PurchaseRequestStatusPending,
	PurchaseRequestStatusConfirmed,
	PurchaseRequestStatusRejected,
	PurchaseRequestStatusCancelled,
}

// String implements fmt.Stringer.
func (s PurchaseRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseRequestStatus.
func (s PurchaseRequestStatus) IsValid() bool {
	for _, candidate := range validPurchaseRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s PurchaseRequestStatus) IsTerminal() bool {
	switch s {
	case PurchaseRequestStatusConfirmed, PurchaseRequestStatusRejected, PurchaseRequestStatusCancelled:
		return true
	default:
		return false
	}
}

// CountsTowardCommitment reports whether requests in this status consume
// listing availability (pending and confirmed do; terminal-negative do not).
func (s PurchaseRequestStatus) CountsTowardCommitment() bool {
	switch s {
	case PurchaseRequestStatusPending, PurchaseRequestStatusConfirmed:
		return true
	default:
		return false
	}
}

// ParsePurchaseRequestStatus converts raw input into a PurchaseRequestStatus.
func ParsePurchaseRequestStatus(value string) (PurchaseRequestStatus, error) {
	for _, candidate := range validPurchaseRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase request status %q", value)
}
