package config

import "time"

// Frequency is the snapshot collection granularity. It drives three things
// that must stay in sync: the CDX collapse precision, the digest
// deduplication bucket key, and the change-count sub-interval step.
type Frequency string

// Supported frequencies.
const (
	FrequencyDaily    Frequency = "daily"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAnnually Frequency = "annually"
)

// ParseFrequency converts a CLI flag value into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

// Valid reports whether the frequency is one of the supported values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyMonthly, FrequencyAnnually:
		return true
	}
	return false
}

// Collapse returns the CDX collapse filter for the frequency. The value asks
// the index to pre-deduplicate captures whose timestamps share the first N
// digits: 8 digits is one capture per day, 6 per month, 4 per year.
func (f Frequency) Collapse() string {
	switch f {
	case FrequencyDaily:
		return "timestamp:8"
	case FrequencyMonthly:
		return "timestamp:6"
	default:
		return "timestamp:4"
	}
}

// BucketLayout returns the time layout that truncates a capture time to the
// frequency's precision. Two captures share a bucket exactly when their
// formatted timestamps are equal.
func (f Frequency) BucketLayout() string {
	switch f {
	case FrequencyDaily:
		return "2006-01-02"
	case FrequencyMonthly:
		return "2006-01"
	default:
		return "2006"
	}
}

// BucketKey formats t at the frequency's precision.
func (f Frequency) BucketKey(t time.Time) string {
	return t.Format(f.BucketLayout())
}

// Next returns the start of the bucket following the one containing t,
// stepping by one day, month, or year. time.AddDate normalizes overflow, so
// monthly steps from Jan 31 land in March; callers that need calendar-exact
// boundaries should pass bucket starts, which Partition does.
func (f Frequency) Next(t time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(1, 0, 0)
	}
}
