package engine

import "time"

const (
	// secondsCeiling sits just past year 2033. Seconds-since-epoch values
	// beyond it are assumed to be millisecond encodings.
	secondsCeiling = 2_000_000_000
	daySeconds     = 86_400
)

// NormalizeTimestamp coerces a raw transaction timestamp into plausible
// unix seconds. Millisecond encodings are divided down; values more than a
// day in the future are treated as suspected milliseconds and corrected
// only when the correction lands them in range. Non-positive input
// normalizes to 0, which downstream windowing and formatting skip.
func NormalizeTimestamp(ts int64) int64 {
	if ts <= 0 {
		return 0
	}

	horizon := time.Now().Unix() + daySeconds
	switch {
	case ts > secondsCeiling:
		ts /= 1000
	case ts > horizon:
		if corrected := ts / 1000; corrected > 0 && corrected <= horizon {
			ts = corrected
		}
	}

	if ts <= 0 {
		return 0
	}
	return ts
}
