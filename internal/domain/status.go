package domain

import "time"

// DeriveStatus computes an auction's lifecycle status from its time
// window. The completed check runs first: a window that has fully
// elapsed is COMPLETED even if startTime is also in the future due to
// bad data. CANCELLED is a terminal override set elsewhere and is
// never derived.
func DeriveStatus(now, startTime, endTime time.Time) AuctionStatus {
	if endTime.Before(now) {
		return StatusCompleted
	}
	if startTime.After(now) {
		return StatusUpcoming
	}
	return StatusOngoing
}
