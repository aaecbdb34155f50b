// Package utils provides small time-formatting helpers shared across the
// gateway.
package utils //nolint:revive // utils is a common and acceptable package name

import (
	"strconv"
	"time"
)

// GetUTCString formats a time.Time as YYYYMMDDHHmm.
func GetUTCString(t time.Time) string {
	return t.UTC().Format("200601021504")
}

// maxReasonableEpoch is Jan 1, 3000 UTC as a Unix timestamp; anything beyond
// it is treated as garbage rather than a timestamp.
const maxReasonableEpoch = 32_503_680_000

// MinutesToGMT formats a timezone offset given in minutes as "GMT+N"/"GMT-N"
// (hours, floor-divided, matching Python's `//`). minutes == nil yields nil.
func MinutesToGMT(minutes *int) *string {
	if minutes == nil {
		return nil
	}
	hours := floorDiv60(*minutes)
	var s string
	if hours >= 0 {
		s = "GMT+" + strconv.Itoa(hours)
	} else {
		s = "GMT" + strconv.Itoa(hours)
	}
	return &s
}

// floorDiv60 divides by 60 rounding toward negative infinity, unlike Go's
// native truncating-toward-zero division.
func floorDiv60(m int) int {
	q := m / 60
	if m%60 != 0 && m < 0 {
		q--
	}
	return q
}

// EpochToLocal converts a Unix epoch timestamp to local time. epoch == 0 or
// outside [0, maxReasonableEpoch] yields a zero time and ok=false.
func EpochToLocal(epoch int64) (t time.Time, ok bool) {
	if epoch == 0 || epoch < 0 || epoch > maxReasonableEpoch {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0).Local(), true
}
