package cdx

import (
	"github.com/waybackcrawl/waybackcrawl/internal/config"
	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// Deduplicator suppresses index records whose content digest was already
// seen in the same time bucket. It is stateful across one URL's pass and is
// not safe for concurrent use; each URL task owns its own instance.
//
// Records must be offered in index delivery order (chronological ascending).
// "First capture per bucket" is only well-defined relative to that order.
type Deduplicator struct {
	// frequency determines the bucket precision (day, month, or year).
	frequency config.Frequency

	// seen maps bucket keys to the digests already kept in that bucket.
	seen model.SeenDigests
}

// NewDeduplicator creates a Deduplicator for one URL's pass.
func NewDeduplicator(frequency config.Frequency) *Deduplicator {
	return &Deduplicator{
		frequency: frequency,
		seen:      make(model.SeenDigests),
	}
}

// Keep reports whether the record is the first occurrence of its digest in
// its time bucket and records the digest as seen. A record with a malformed
// capture timestamp returns an error; the bucket cannot be derived.
func (d *Deduplicator) Keep(rec model.IndexRecord) (bool, error) {
	capturedAt, err := rec.Time()
	if err != nil {
		return false, err
	}
	bucket := d.frequency.BucketKey(capturedAt)
	return !d.seen.Add(bucket, rec.Digest), nil
}

// Seen returns the digests accumulated so far, keyed by bucket. The map is
// live: it keeps growing as Keep is called.
func (d *Deduplicator) Seen() model.SeenDigests {
	return d.seen
}
