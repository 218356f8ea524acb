package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/wellpath/medtrack/model"
)

// DueStatus classifies a patient+medication pair's next dispensation.
type DueStatus string

const (
	StatusOnTime   DueStatus = "on_time"
	StatusDueToday DueStatus = "due_today"
	StatusOverdue  DueStatus = "overdue"
)

// Classification is the due/adherence picture for one patient+medication
// pair over an enrollment's active window.
type Classification struct {
	LastDispensedBucket *time.Time `json:"last_dispensed_bucket"`
	NextDueBucket       time.Time  `json:"next_due_bucket"`
	Status              DueStatus  `json:"status"`
	AdherenceRate       float64    `json:"adherence_rate"`
	ExpectedBuckets     int        `json:"expected_buckets"`
	MatchedBuckets      int        `json:"matched_buckets"`
}

// Classify enumerates the expected buckets for the pair inside the window
// and matches each against recorded dispensations.
//
// Matching: deduplicated frequencies match on the stored canonical bucket
// start (the unique index guarantees at most one row). Lax frequencies match
// any row whose dispensedAt falls inside the bucket span; when several rows
// land in one bucket the earliest dispensedAt is the satisfying event and
// the rest are informational.
//
// Status: a fully elapsed unmatched bucket makes the pair overdue; an
// unmatched current bucket whose span is still open makes it due today;
// otherwise it is on time.
func (e *Engine) Classify(ctx context.Context, patientID, medicationID uint, f Frequency, win Window) (Classification, error) {
	if win.Empty() {
		return Classification{Status: StatusOnTime, NextDueBucket: f.BucketStart(win.From, e.loc)}, nil
	}

	buckets := BucketsIn(f, win.From, win.To, e.loc)
	if len(buckets) == 0 {
		return Classification{Status: StatusOnTime, NextDueBucket: f.BucketStart(win.From, e.loc)}, nil
	}

	spanFrom := buckets[0]
	spanTo := f.NextBucket(buckets[len(buckets)-1])

	var rows []model.Dispensation
	err := e.db.WithContext(ctx).
		Where("patient_id = ? AND medication_id = ? AND frequency = ?", patientID, medicationID, string(f)).
		Where("dispensed_at >= ? AND dispensed_at < ?", spanFrom, spanTo).
		Order("dispensed_at ASC").
		Find(&rows).Error
	if err != nil {
		return Classification{}, fmt.Errorf("list dispensations for patient %d medication %d: %w", patientID, medicationID, err)
	}

	matched := make(map[time.Time]bool, len(rows))
	if e.dedup[f] {
		for _, row := range rows {
			matched[f.BucketStart(row.BucketStartAt, e.loc)] = true
		}
	} else {
		// Rows are ordered by dispensedAt, so the first hit per bucket is
		// the earliest event; later rows change nothing.
		for _, row := range rows {
			matched[f.BucketStart(row.DispensedAt, e.loc)] = true
		}
	}

	now := e.now().In(e.loc)
	out := Classification{ExpectedBuckets: len(buckets), Status: StatusOnTime}
	nextDueSet := false

	for _, b := range buckets {
		if matched[b] {
			out.MatchedBuckets++
			last := b
			out.LastDispensedBucket = &last
			continue
		}
		if !nextDueSet {
			out.NextDueBucket = b
			nextDueSet = true
		}
		if !f.NextBucket(b).After(now) {
			out.Status = StatusOverdue
		} else if out.Status != StatusOverdue && !b.After(now) {
			out.Status = StatusDueToday
		}
	}
	if !nextDueSet {
		// Every expected bucket is matched; the next due bucket is the one
		// after the window's last.
		out.NextDueBucket = f.NextBucket(buckets[len(buckets)-1])
	}

	out.AdherenceRate = pct(out.MatchedBuckets, out.ExpectedBuckets)
	return out, nil
}

// medicationPair is a distinct (medication, frequency) seen in a patient's
// dispensation history for a program.
type medicationPair struct {
	MedicationID uint
	Frequency    string
}

func (e *Engine) medicationPairs(ctx context.Context, patientID, programID uint) ([]medicationPair, error) {
	var pairs []medicationPair
	err := e.db.WithContext(ctx).
		Model(&model.Dispensation{}).
		Distinct("medication_id", "frequency").
		Where("patient_id = ? AND program_id = ?", patientID, programID).
		Find(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("list medication pairs for patient %d: %w", patientID, err)
	}
	return pairs, nil
}
