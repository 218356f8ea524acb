package model

import (
	"time"

	"gorm.io/gorm"
)

// Dispensation records one dose given to a patient. Rows are append-only:
// corrections are new rows with notes, deletion is an explicit admin action.
//
// DedupKey is the uniqueness guard for bucketed frequencies. It is set to
// "patient:medication:frequency:bucketStart" for frequencies in the dedup
// set and left NULL otherwise; since the unique index admits multiple NULLs
// this gives partial-unique-index semantics on MySQL, which has none.
// @Description Medication dispensation event
type Dispensation struct {
	gorm.Model
	PatientID    uint   `json:"patient_id" gorm:"not null;index:idx_dispensation_patient_med"`
	MedicationID uint   `json:"medication_id" gorm:"not null;index:idx_dispensation_patient_med"`
	ProgramID    uint   `json:"program_id" gorm:"index"`
	Frequency    string `json:"frequency" gorm:"not null;index"`
	// BucketStartAt is the canonical window start for the dose period,
	// computed by the engine from DispensedAt. It never depends on the
	// caller-supplied timestamp formatting.
	BucketStartAt time.Time `json:"bucket_start_at" gorm:"not null;index"`
	DispensedAt   time.Time `json:"dispensed_at" gorm:"not null"`
	Notes         string    `json:"notes"`
	DedupKey      *string   `json:"-" gorm:"uniqueIndex;size:191"`
}
