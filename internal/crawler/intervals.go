package crawler

import (
	"time"

	"github.com/waybackcrawl/waybackcrawl/internal/config"
)

// Interval is one change-count sub-interval: the inclusive date range
// [From, To] and the bucket key it is reported under.
type Interval struct {
	From time.Time
	To   time.Time
	Key  string
}

// Partition splits [start, end] into consecutive sub-intervals stepping at
// the frequency. Intervals are contiguous and non-overlapping at day
// resolution: each interval ends the day before the next one starts, and the
// final interval is truncated at end, so the union covers [start, end]
// exactly. Intervals are keyed by the bucket of their start date.
func Partition(start, end time.Time, frequency config.Frequency) []Interval {
	var intervals []Interval
	for cur := start; !cur.After(end); cur = frequency.Next(cur) {
		next := frequency.Next(cur)
		to := next.AddDate(0, 0, -1)
		if to.After(end) {
			to = end
		}
		intervals = append(intervals, Interval{
			From: cur,
			To:   to,
			Key:  frequency.BucketKey(cur),
		})
	}
	return intervals
}
