package engine

import (
	"context"
	"fmt"

	"github.com/wellpath/medtrack/model"
)

// RecomputeEnrollment is the engine's write path: it rematerializes the
// attendance counters, aggregates adherence across the patient's medications
// in the program, persists the denormalized columns in a single update and
// flips the enrollment to completed once its horizon has passed.
//
// The whole pass is idempotent. It runs on every relevant mutation and on
// the periodic sweep; failures here leave the previous counters in place, so
// dashboards show stale-but-present numbers instead of blocking.
func (e *Engine) RecomputeEnrollment(ctx context.Context, enrollmentID uint) error {
	enr, prog, err := e.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	win, err := e.windowFor(ctx, enr, prog)
	if err != nil {
		return err
	}

	counters, err := e.materialize(ctx, enr, prog, win)
	if err != nil {
		return err
	}

	adherence, err := e.aggregateAdherence(ctx, enr, win)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"sessions_expected":  counters.SessionsExpected,
		"sessions_completed": counters.SessionsCompleted,
		"sessions_missed":    counters.SessionsMissed,
		"attendance_rate":    counters.AttendanceRate,
		"adherence_rate":     adherence,
	}
	if enr.Status == model.EnrollmentStatusActive && enr.CompletedDate != nil && !e.today().Before(dateOnly(*enr.CompletedDate, e.loc)) {
		updates["status"] = model.EnrollmentStatusCompleted
	}

	if err := e.db.WithContext(ctx).Model(enr).Updates(updates).Error; err != nil {
		return fmt.Errorf("persist counters for enrollment %d: %w", enrollmentID, err)
	}
	return nil
}

// aggregateAdherence averages the per-medication adherence rates over every
// (medication, frequency) pair seen in the patient's dispensation history
// for the program. A patient with no dispensations yet has no expected
// buckets and reports 0.
func (e *Engine) aggregateAdherence(ctx context.Context, enr *model.PatientEnrollment, win Window) (float64, error) {
	pairs, err := e.medicationPairs(ctx, enr.PatientID, enr.ProgramID)
	if err != nil {
		return 0, err
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	var sum float64
	for _, p := range pairs {
		f, err := ParseFrequency(p.Frequency)
		if err != nil {
			return 0, fmt.Errorf("dispensation frequency for medication %d: %w", p.MedicationID, err)
		}
		cls, err := e.Classify(ctx, enr.PatientID, p.MedicationID, f, win)
		if err != nil {
			return 0, err
		}
		sum += cls.AdherenceRate
	}
	return sum / float64(len(pairs)), nil
}

// ListActiveEnrollmentIDs feeds the periodic sweep.
func (e *Engine) ListActiveEnrollmentIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := e.db.WithContext(ctx).
		Model(&model.PatientEnrollment{}).
		Where("status = ?", model.EnrollmentStatusActive).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return ids, nil
}
