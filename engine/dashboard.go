package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/wellpath/medtrack/model"
)

// UpcomingDispensation is one row of the dispensation due fanout: a
// classify() result for an active enrollment's medication pair.
type UpcomingDispensation struct {
	EnrollmentID  uint       `json:"enrollment_id"`
	PatientID     uint       `json:"patient_id"`
	ProgramID     uint       `json:"program_id"`
	MedicationID  uint       `json:"medication_id"`
	Frequency     string     `json:"frequency"`
	NextDueBucket time.Time  `json:"next_due_bucket"`
	LastDispensed *time.Time `json:"last_dispensed_bucket"`
	Status        DueStatus  `json:"status"`
	AdherenceRate float64    `json:"adherence_rate"`
}

// UpcomingDispensations classifies every (active enrollment, medication,
// frequency) triple. Enrollments with an inconsistent window are skipped,
// not fatal: one bad enrollment must not empty the whole dashboard.
func (e *Engine) UpcomingDispensations(ctx context.Context) ([]UpcomingDispensation, error) {
	var enrollments []model.PatientEnrollment
	if err := e.db.WithContext(ctx).
		Where("status = ?", model.EnrollmentStatusActive).
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}

	out := make([]UpcomingDispensation, 0)
	for i := range enrollments {
		enr := &enrollments[i]

		var prog model.Program
		if err := e.db.WithContext(ctx).First(&prog, enr.ProgramID).Error; err != nil {
			continue
		}
		win, err := e.windowFor(ctx, enr, &prog)
		if err != nil {
			continue
		}

		pairs, err := e.medicationPairs(ctx, enr.PatientID, enr.ProgramID)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			f, err := ParseFrequency(p.Frequency)
			if err != nil {
				continue
			}
			cls, err := e.Classify(ctx, enr.PatientID, p.MedicationID, f, win)
			if err != nil {
				return nil, err
			}
			out = append(out, UpcomingDispensation{
				EnrollmentID:  enr.ID,
				PatientID:     enr.PatientID,
				ProgramID:     enr.ProgramID,
				MedicationID:  p.MedicationID,
				Frequency:     string(f),
				NextDueBucket: cls.NextDueBucket,
				LastDispensed: cls.LastDispensedBucket,
				Status:        cls.Status,
				AdherenceRate: cls.AdherenceRate,
			})
		}
	}
	return out, nil
}

// ProgramDurationRow summarizes one program's enrollments from the
// materialized columns only; no counter is recomputed at read time.
type ProgramDurationRow struct {
	ProgramID         uint    `json:"program_id"`
	ProgramName       string  `json:"program_name" gorm:"column:program_name"`
	DurationInDays    int     `json:"duration_in_days"`
	TotalEnrollments  int64   `json:"total_enrollments" gorm:"column:total_enrollments"`
	ActiveEnrollments int64   `json:"active_enrollments" gorm:"column:active_enrollments"`
	AvgAttendanceRate float64 `json:"avg_attendance_rate" gorm:"column:avg_attendance_rate"`
	AvgAdherenceRate  float64 `json:"avg_adherence_rate" gorm:"column:avg_adherence_rate"`
	AvgSessionsMissed float64 `json:"avg_sessions_missed" gorm:"column:avg_sessions_missed"`
}

// ProgramDurationSummary aggregates enrollment progress per program for the
// dashboard.
func (e *Engine) ProgramDurationSummary(ctx context.Context) ([]ProgramDurationRow, error) {
	var rows []ProgramDurationRow
	err := e.db.WithContext(ctx).
		Table("patient_enrollments").
		Select("patient_enrollments.program_id as program_id, " +
			"programs.name as program_name, " +
			"programs.duration_in_days as duration_in_days, " +
			"COUNT(patient_enrollments.id) as total_enrollments, " +
			"SUM(CASE WHEN patient_enrollments.status = 'active' THEN 1 ELSE 0 END) as active_enrollments, " +
			"AVG(patient_enrollments.attendance_rate) as avg_attendance_rate, " +
			"AVG(patient_enrollments.adherence_rate) as avg_adherence_rate, " +
			"AVG(patient_enrollments.sessions_missed) as avg_sessions_missed").
		Joins("JOIN programs ON programs.id = patient_enrollments.program_id").
		Where("patient_enrollments.deleted_at IS NULL").
		Group("patient_enrollments.program_id, programs.name, programs.duration_in_days").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("program duration summary: %w", err)
	}
	return rows, nil
}
