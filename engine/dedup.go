package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wellpath/medtrack/model"
	"gorm.io/gorm"
)

// DispensationInput is what staff record when a dose is given. DispensedAt
// is the actual event time; the canonical bucket is always derived from it
// server-side.
type DispensationInput struct {
	PatientID    uint
	MedicationID uint
	ProgramID    uint
	Frequency    string
	DispensedAt  time.Time
	Notes        string
}

// dedupKey builds the uniqueness guard value for a bucketed dispensation.
func dedupKey(patientID, medicationID uint, f Frequency, bucket time.Time) string {
	return fmt.Sprintf("%d:%d:%s:%d", patientID, medicationID, f, bucket.Unix())
}

// RecordDispensation persists a dispensation with its computed bucket start.
// For frequencies in the dedup set the insert is guarded by the unique index
// on dedup_key; a constraint violation is reported as (nil, true, nil), a
// no-op success the caller presents as "already dispensed for this period".
// Frequencies outside the set are always accepted, so several rows may share
// one nominal period.
//
// The database constraint is the single arbiter for deduplication. There is
// deliberately no read-before-write check: two racing inserts both reach the
// index and exactly one wins.
func (e *Engine) RecordDispensation(ctx context.Context, in DispensationInput) (*model.Dispensation, bool, error) {
	f, err := ParseFrequency(in.Frequency)
	if err != nil {
		return nil, false, err
	}

	dispensedAt := in.DispensedAt
	if dispensedAt.IsZero() {
		dispensedAt = e.now()
	}
	bucket := f.BucketStart(dispensedAt, e.loc)

	row := model.Dispensation{
		PatientID:     in.PatientID,
		MedicationID:  in.MedicationID,
		ProgramID:     in.ProgramID,
		Frequency:     string(f),
		BucketStartAt: bucket,
		DispensedAt:   dispensedAt,
		Notes:         in.Notes,
	}
	if e.dedup[f] {
		key := dedupKey(in.PatientID, in.MedicationID, f, bucket)
		row.DedupKey = &key
	}

	if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("insert dispensation: %w", err)
	}
	return &row, false, nil
}

// isDuplicateKeyErr recognizes a unique-constraint violation. TranslateError
// maps both the MySQL and SQLite drivers onto gorm.ErrDuplicatedKey; the
// string checks cover connections opened without it.
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
