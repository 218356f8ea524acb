package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wellpath/medtrack/model"
	"gorm.io/gorm"
)

// Window is the active portion of an enrollment's lifetime:
// [enrollmentDate, min(today, completedDate)], both ends at midnight in the
// reporting timezone.
type Window struct {
	From time.Time
	To   time.Time
}

// Horizon derives the expected completion date with plain calendar-day
// arithmetic: completedDate = enrollmentDate + durationInDays. The
// enrollment day itself counts as day zero, so 2024-01-01 with a 90-day
// program completes on 2024-03-31 and completedDate minus enrollmentDate is
// exactly durationInDays.
func Horizon(enrollmentDate time.Time, durationInDays int) (time.Time, error) {
	if durationInDays <= 0 {
		return time.Time{}, fmt.Errorf("%w: duration %d days", ErrInconsistentWindow, durationInDays)
	}
	return enrollmentDate.AddDate(0, 0, durationInDays), nil
}

// Empty reports whether no period has started inside the window yet, which
// happens for enrollments dated in the future.
func (w Window) Empty() bool {
	return w.To.Before(w.From)
}

// ActiveWindow bounds how many periods should have occurred by now. It fails
// with ErrInconsistentWindow when the enrollment date lies after the
// completion date. An enrollment dated in the future yields an empty window,
// not an error: nothing is expected from it yet.
func ActiveWindow(enrollmentDate, completedDate, today time.Time) (Window, error) {
	if enrollmentDate.After(completedDate) {
		return Window{}, fmt.Errorf("%w: enrollment %s after completion %s",
			ErrInconsistentWindow, enrollmentDate.Format("2006-01-02"), completedDate.Format("2006-01-02"))
	}
	end := today
	if completedDate.Before(end) {
		end = completedDate
	}
	return Window{From: enrollmentDate, To: end}, nil
}

// windowFor loads the enrollment's active window, backfilling CompletedDate
// once from the program's current duration when it was never set. A
// previously computed CompletedDate is never overwritten here; that only
// happens through the explicit RecomputeHorizon operation.
func (e *Engine) windowFor(ctx context.Context, enr *model.PatientEnrollment, prog *model.Program) (Window, error) {
	enrolled := dateOnly(enr.EnrollmentDate, e.loc)

	if enr.CompletedDate == nil {
		completed, err := Horizon(enrolled, prog.DurationInDays)
		if err != nil {
			return Window{}, err
		}
		if err := e.db.WithContext(ctx).Model(enr).Update("completed_date", completed).Error; err != nil {
			return Window{}, fmt.Errorf("backfill completed_date for enrollment %d: %w", enr.ID, err)
		}
		enr.CompletedDate = &completed
	}

	return ActiveWindow(enrolled, dateOnly(*enr.CompletedDate, e.loc), e.today())
}

// RecomputeHorizon recomputes an enrollment's completion date from the
// program's current DurationInDays. Duration changes on a program do not
// propagate to existing enrollments on their own; an administrator invokes
// this per enrollment when propagation is actually wanted.
func (e *Engine) RecomputeHorizon(ctx context.Context, enrollmentID uint) (time.Time, error) {
	enr, prog, err := e.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return time.Time{}, err
	}

	completed, err := Horizon(dateOnly(enr.EnrollmentDate, e.loc), prog.DurationInDays)
	if err != nil {
		return time.Time{}, err
	}
	if err := e.db.WithContext(ctx).Model(enr).Update("completed_date", completed).Error; err != nil {
		return time.Time{}, fmt.Errorf("update completed_date for enrollment %d: %w", enrollmentID, err)
	}
	return completed, nil
}

func (e *Engine) loadEnrollment(ctx context.Context, enrollmentID uint) (*model.PatientEnrollment, *model.Program, error) {
	var enr model.PatientEnrollment
	if err := e.db.WithContext(ctx).First(&enr, enrollmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: id %d", ErrEnrollmentNotFound, enrollmentID)
		}
		return nil, nil, fmt.Errorf("load enrollment %d: %w", enrollmentID, err)
	}

	var prog model.Program
	if err := e.db.WithContext(ctx).First(&prog, enr.ProgramID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: enrollment %d references missing program %d",
				ErrInconsistentWindow, enrollmentID, enr.ProgramID)
		}
		return nil, nil, fmt.Errorf("load program %d: %w", enr.ProgramID, err)
	}

	return &enr, &prog, nil
}
