package engine

import (
	"time"

	"gorm.io/gorm"
)

// Options configures an Engine. Zero values fall back to UTC reporting time,
// the Daily+Monthly dedup set and the wall clock.
type Options struct {
	// Location is the reporting timezone used for all bucket arithmetic.
	Location *time.Location
	// DedupFrequencies is the set of frequencies guarded by the unique
	// dispensation constraint. The source schema pins Daily and Monthly;
	// whether excluding Weekly and Twice Daily is policy or oversight is an
	// open product question, so the set is configuration, not code.
	DedupFrequencies []Frequency
	// Now is the clock. Tests pin it to a fixed instant.
	Now func() time.Time
}

// Engine computes and persists enrollment progress counters and dispensation
// due classifications. All reads and the single counters write go through the
// gorm connection handed in at construction.
type Engine struct {
	db    *gorm.DB
	loc   *time.Location
	dedup map[Frequency]bool
	now   func() time.Time
}

func New(db *gorm.DB, opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	freqs := opts.DedupFrequencies
	if freqs == nil {
		freqs = []Frequency{FrequencyDaily, FrequencyMonthly}
	}
	dedup := make(map[Frequency]bool, len(freqs))
	for _, f := range freqs {
		dedup[f] = true
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{db: db, loc: loc, dedup: dedup, now: now}
}

// Deduplicated reports whether f is in the configured dedup frequency set.
func (e *Engine) Deduplicated(f Frequency) bool {
	return e.dedup[f]
}

// Location returns the reporting timezone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// today returns the current date truncated to midnight in the reporting
// timezone.
func (e *Engine) today() time.Time {
	return dateOnly(e.now(), e.loc)
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// pct computes a whole-percent rate, flooring the quotient. Returns 0 when
// the denominator is 0 so empty windows never divide by zero.
func pct(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(100 * n / d)
}
