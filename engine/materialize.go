package engine

import (
	"context"
	"fmt"

	"github.com/wellpath/medtrack/model"
)

// Counters are the attendance-derived progress numbers materialized onto an
// enrollment row.
type Counters struct {
	SessionsExpected  int     `json:"sessions_expected"`
	SessionsCompleted int     `json:"sessions_completed"`
	SessionsMissed    int     `json:"sessions_missed"`
	AttendanceRate    float64 `json:"attendance_rate"`
}

// Materialize recomputes the attendance counters for one enrollment from its
// active window. It is a pure read: persisting the result is the recompute
// pass's job. Calling it twice with no intervening data change yields
// identical counters, so it is safe to run on every attendance mutation.
//
// Expected sessions are the program's session occurrences inside the window
// minus Excused/Canceled rows; those statuses never count against the
// patient. Present and Late count as completed, Absent as missed.
func (e *Engine) Materialize(ctx context.Context, enrollmentID uint) (Counters, error) {
	enr, prog, err := e.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return Counters{}, err
	}
	win, err := e.windowFor(ctx, enr, prog)
	if err != nil {
		return Counters{}, err
	}
	return e.materialize(ctx, enr, prog, win)
}

func (e *Engine) materialize(ctx context.Context, enr *model.PatientEnrollment, prog *model.Program, win Window) (Counters, error) {
	if win.Empty() {
		return Counters{}, nil
	}

	sessionFreq, err := ParseFrequency(prog.SessionFrequency)
	if err != nil {
		return Counters{}, fmt.Errorf("program %d session frequency: %w", prog.ID, err)
	}
	occurrences := len(BucketsIn(sessionFreq, win.From, win.To, e.loc))

	rows, err := e.listAttendance(ctx, enr, win)
	if err != nil {
		return Counters{}, err
	}

	var completed, missed, waived int
	for _, row := range rows {
		switch row.Status {
		case model.AttendancePresent, model.AttendanceLate:
			completed++
		case model.AttendanceAbsent:
			missed++
		case model.AttendanceExcused, model.AttendanceCanceled:
			waived++
		}
	}

	expected := occurrences - waived
	if expected < 0 {
		expected = 0
	}

	return Counters{
		SessionsExpected:  expected,
		SessionsCompleted: completed,
		SessionsMissed:    missed,
		AttendanceRate:    pct(completed, expected),
	}, nil
}

// listAttendance fetches the enrollment's attendance rows inside the window.
// Rows predating the enrollment linkage are matched on patient and program
// until the backfill pass links them.
func (e *Engine) listAttendance(ctx context.Context, enr *model.PatientEnrollment, win Window) ([]model.Attendance, error) {
	var rows []model.Attendance
	err := e.db.WithContext(ctx).
		Where("attendance_date >= ? AND attendance_date < ?", win.From, win.To.AddDate(0, 0, 1)).
		Where("enrollment_id = ? OR (enrollment_id IS NULL AND patient_id = ? AND program_id = ?)",
			enr.ID, enr.PatientID, enr.ProgramID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list attendance for enrollment %d: %w", enr.ID, err)
	}
	return rows, nil
}
