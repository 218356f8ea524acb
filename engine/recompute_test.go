package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wellpath/medtrack/model"
)

func TestRecomputeEnrollmentPersistsCounters(t *testing.T) {
	db := setupTestDB(t, "rec_persist")
	eng := newTestEngine(db, time.Date(2024, time.January, 3, 12, 0, 0, 0, time.UTC))

	prog := mustCreateProgram(t, db, "Daily", 90)
	enr := mustCreateEnrollment(t, db, 1, prog.ID, date(2024, time.January, 1), nil)

	mustCreateAttendance(t, db, 1, prog.ID, attendanceOpts{EnrollmentID: &enr.ID, Date: date(2024, time.January, 1), Status: "Present"})
	mustCreateAttendance(t, db, 1, prog.ID, attendanceOpts{EnrollmentID: &enr.ID, Date: date(2024, time.January, 2), Status: "Absent"})

	for day := 1; day <= 2; day++ {
		_, _, err := eng.RecordDispensation(context.Background(), DispensationInput{
			PatientID:    1,
			MedicationID: 5,
			ProgramID:    prog.ID,
			Frequency:    "Daily",
			DispensedAt:  time.Date(2024, time.January, day, 10, 0, 0, 0, time.UTC),
		})
		assert.NoError(t, err)
	}

	assert.NoError(t, eng.RecomputeEnrollment(context.Background(), enr.ID))

	var reloaded model.PatientEnrollment
	assert.NoError(t, db.First(&reloaded, enr.ID).Error)
	assert.Equal(t, 3, reloaded.SessionsExpected)
	assert.Equal(t, 1, reloaded.SessionsCompleted)
	assert.Equal(t, 1, reloaded.SessionsMissed)
	assert.Equal(t, float64(33), reloaded.AttendanceRate)
	assert.Equal(t, float64(66), reloaded.AdherenceRate)
	assert.Equal(t, model.EnrollmentStatusActive, reloaded.Status)
}

func TestRecomputeEnrollmentAveragesAcrossMedications(t *testing.T) {
	db := setupTestDB(t, "rec_avg")
	eng := newTestEngine(db, time.Date(2024, time.January, 1, 18, 0, 0, 0, time.UTC))

	prog := mustCreateProgram(t, db, "Daily", 90)
	enr := mustCreateEnrollment(t, db, 1, prog.ID, date(2024, time.January, 1), nil)

	// Medication 5 is fully adherent inside the one-day window; medication 6
	// only has a pre-window dose, so its window adherence is zero.
	_, _, err := eng.RecordDispensation(context.Background(), DispensationInput{
		PatientID: 1, MedicationID: 5, ProgramID: prog.ID, Frequency: "Daily",
		DispensedAt: time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
	_, _, err = eng.RecordDispensation(context.Background(), DispensationInput{
		PatientID: 1, MedicationID: 6, ProgramID: prog.ID, Frequency: "Daily",
		DispensedAt: time.Date(2023, time.December, 15, 10, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)

	assert.NoError(t, eng.RecomputeEnrollment(context.Background(), enr.ID))

	var reloaded model.PatientEnrollment
	assert.NoError(t, db.First(&reloaded, enr.ID).Error)
	assert.Equal(t, float64(50), reloaded.AdherenceRate)
}

func TestRecomputeEnrollmentZeroAdherenceWithoutHistory(t *testing.T) {
	db := setupTestDB(t, "rec_nohist")
	eng := newTestEngine(db, date(2024, time.January, 10))

	prog := mustCreateProgram(t, db, "Weekly", 90)
	enr := mustCreateEnrollment(t, db, 1, prog.ID, date(2024, time.January, 1), nil)

	assert.NoError(t, eng.RecomputeEnrollment(context.Background(), enr.ID))

	var reloaded model.PatientEnrollment
	assert.NoError(t, db.First(&reloaded, enr.ID).Error)
	assert.Equal(t, float64(0), reloaded.AdherenceRate)
}

func TestRecomputeEnrollmentFlipsToCompleted(t *testing.T) {
	db := setupTestDB(t, "rec_complete")
	eng := newTestEngine(db, date(2024, time.April, 15))

	prog := mustCreateProgram(t, db, "Weekly", 90)
	completed := date(2024, time.March, 31)
	enr := mustCreateEnrollment(t, db, 1, prog.ID, date(2024, time.January, 1), &completed)

	assert.NoError(t, eng.RecomputeEnrollment(context.Background(), enr.ID))

	var reloaded model.PatientEnrollment
	assert.NoError(t, db.First(&reloaded, enr.ID).Error)
	assert.Equal(t, model.EnrollmentStatusCompleted, reloaded.Status)
}

func TestRecomputeEnrollmentLeavesCancelledAlone(t *testing.T) {
	db := setupTestDB(t, "rec_cancelled")
	eng := newTestEngine(db, date(2024, time.April, 15))

	prog := mustCreateProgram(t, db, "Weekly", 90)
	completed := date(2024, time.March, 31)
	enr := mustCreateEnrollment(t, db, 1, prog.ID, date(2024, time.January, 1), &completed)
	assert.NoError(t, db.Model(&enr).Update("status", model.EnrollmentStatusCancelled).Error)

	assert.NoError(t, eng.RecomputeEnrollment(context.Background(), enr.ID))

	var reloaded model.PatientEnrollment
	assert.NoError(t, db.First(&reloaded, enr.ID).Error)
	assert.Equal(t, model.EnrollmentStatusCancelled, reloaded.Status)
}

func TestRecomputeEnrollmentMissingProgram(t *testing.T) {
	db := setupTestDB(t, "rec_noprog")
	eng := newTestEngine(db, date(2024, time.January, 10))

	enr := mustCreateEnrollment(t, db, 1, 999, date(2024, time.January, 1), nil)

	err := eng.RecomputeEnrollment(context.Background(), enr.ID)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInconsistentWindow))
}

func TestListActiveEnrollmentIDs(t *testing.T) {
	db := setupTestDB(t, "rec_listactive")
	eng := newTestEngine(db, date(2024, time.January, 10))

	prog := mustCreateProgram(t, db, "Weekly", 90)
	active := mustCreateEnrollment(t, db, 1, prog.ID, date(2024, time.January, 1), nil)
	done := mustCreateEnrollment(t, db, 2, prog.ID, date(2023, time.January, 1), nil)
	assert.NoError(t, db.Model(&done).Update("status", model.EnrollmentStatusCompleted).Error)

	ids, err := eng.ListActiveEnrollmentIDs(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []uint{active.ID}, ids)
}
