package engine

import (
	"context"
	"fmt"

	"github.com/wellpath/medtrack/model"
	"github.com/wellpath/medtrack/util"
)

// BackfillResult reports what a backfill pass did.
type BackfillResult struct {
	Linked    int `json:"linked"`
	Ambiguous int `json:"ambiguous"`
	Unmatched int `json:"unmatched"`
}

// BackfillAttendanceLinks links attendance rows created before the
// enrollment foreign key existed. A row is linked when exactly one of the
// patient's enrollments in the program covers its date; overlapping
// re-enrollments make the match ambiguous, which is logged and skipped
// rather than silently resolved. The pass is idempotent and safe to rerun.
func (e *Engine) BackfillAttendanceLinks(ctx context.Context) (BackfillResult, error) {
	var res BackfillResult

	var orphans []model.Attendance
	if err := e.db.WithContext(ctx).
		Where("enrollment_id IS NULL").
		Find(&orphans).Error; err != nil {
		return res, fmt.Errorf("list unlinked attendance: %w", err)
	}

	for i := range orphans {
		row := &orphans[i]

		var candidates []model.PatientEnrollment
		err := e.db.WithContext(ctx).
			Where("patient_id = ? AND program_id = ?", row.PatientID, row.ProgramID).
			Where("enrollment_date <= ?", row.AttendanceDate).
			Where("completed_date IS NULL OR completed_date >= ?", row.AttendanceDate).
			Find(&candidates).Error
		if err != nil {
			return res, fmt.Errorf("match attendance %d: %w", row.ID, err)
		}

		switch len(candidates) {
		case 0:
			res.Unmatched++
		case 1:
			if err := e.db.WithContext(ctx).Model(row).Update("enrollment_id", candidates[0].ID).Error; err != nil {
				return res, fmt.Errorf("link attendance %d: %w", row.ID, err)
			}
			res.Linked++
		default:
			res.Ambiguous++
			util.LogEngineEvent(util.EngineEvent{
				EventType: util.EventBackfillAmbiguous,
				PatientID: row.PatientID,
				Message:   fmt.Sprintf("attendance %d matches %d enrollments in program %d", row.ID, len(candidates), row.ProgramID),
				Details: map[string]interface{}{
					"attendance_id":   row.ID,
					"program_id":      row.ProgramID,
					"attendance_date": row.AttendanceDate,
					"candidates":      len(candidates),
				},
			})
		}
	}
	return res, nil
}
