package parking

import "time"

// BilledHours converts an elapsed stay into billable hours: partial hours
// round up, and every stay bills at least one hour. Negative elapsed time
// (clock skew) clamps to zero before rounding.
func BilledHours(entry, exit time.Time) int64 {
	elapsed := exit.Sub(entry)
	if elapsed < 0 {
		elapsed = 0
	}
	hours := int64((elapsed + time.Hour - 1) / time.Hour)
	if hours < 1 {
		hours = 1
	}
	return hours
}

// ComputeFee is the billing engine: a pure function of entry time, exit time
// and the hourly rate in effect at entry. Repeated calls with the same
// inputs always return the same amount.
func ComputeFee(entry, exit time.Time, ratePerHour int64) int64 {
	return BilledHours(entry, exit) * ratePerHour
}
