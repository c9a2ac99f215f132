package feed

import "time"

// Score combines a creation instant with a bonus into the single feed
// ordering key: milliseconds since epoch plus the bonus.
//
// Because the millisecond term grows with real time, the bonus is a
// recency credit rather than an absolute priority: an entry with bonus X
// ranks exactly as if it had been created X ms later than it was, and
// plain recency overtakes any bonus once the elapsed gap exceeds it. That
// semantic is intentional and must not be "fixed".
func Score(at time.Time, bonus int64) float64 {
	return float64(at.UnixMilli() + bonus)
}
