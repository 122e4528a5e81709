package enums

import "fmt"

// BidStatus tracks a negotiation's lifecycle. Approved and Rejected are
// terminal; CounterOffered waits on the bidder to accept or decline.
type BidStatus string

const (
	BidStatusPending        BidStatus = "pending"
	BidStatusApproved       BidStatus = "approved"
	BidStatusRejected       BidStatus = "rejected"
	BidStatusCounterOffered BidStatus = "counter_offered"
)

var validBidStatuses = []BidStatus{
	BidStatusPending,
	BidStatusApproved,
	BidStatusRejected,
	BidStatusCounterOffered,
}

// String implements fmt.Stringer.
func (b BidStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BidStatus.
func (b BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (b BidStatus) IsTerminal() bool {
	return b == BidStatusApproved || b == BidStatusRejected
}

// ParseBidStatus converts raw input into a BidStatus.
func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}
