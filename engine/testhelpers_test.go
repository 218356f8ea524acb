package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/wellpath/medtrack/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with the engine's schema.
// The database name is uniquified with the current Unix nanosecond timestamp
// to prevent cross-test contamination when tests run in the same process.
// TranslateError mirrors the production MySQL connection so duplicate-key
// violations surface as gorm.ErrDuplicatedKey.
func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_engine_%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&model.Program{},
		&model.Patient{},
		&model.Medication{},
		&model.PatientEnrollment{},
		&model.Attendance{},
		&model.Dispensation{},
		&model.EventLog{},
	)
	if err != nil {
		t.Fatalf("failed to auto-migrate models: %v", err)
	}
	return db
}

// newTestEngine builds an engine with a pinned clock so due classifications
// are deterministic.
func newTestEngine(db *gorm.DB, now time.Time, opts ...Options) *Engine {
	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Now = func() time.Time { return now }
	return New(db, o)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustCreateProgram(t *testing.T, db *gorm.DB, sessionFrequency string, durationInDays int) model.Program {
	t.Helper()
	p := model.Program{
		Name:             "Test Program",
		Status:           "Active",
		SessionFrequency: sessionFrequency,
		DurationInDays:   durationInDays,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to create program: %v", err)
	}
	return p
}

func mustCreateEnrollment(t *testing.T, db *gorm.DB, patientID, programID uint, enrolled time.Time, completed *time.Time) model.PatientEnrollment {
	t.Helper()
	e := model.PatientEnrollment{
		PatientID:      patientID,
		ProgramID:      programID,
		EnrollmentDate: enrolled,
		CompletedDate:  completed,
		Status:         model.EnrollmentStatusActive,
	}
	if err := db.Create(&e).Error; err != nil {
		t.Fatalf("failed to create enrollment: %v", err)
	}
	return e
}

type attendanceOpts struct {
	EnrollmentID *uint
	Date         time.Time
	Status       string
}

func mustCreateAttendance(t *testing.T, db *gorm.DB, patientID, programID uint, opts attendanceOpts) model.Attendance {
	t.Helper()
	a := model.Attendance{
		PatientID:      patientID,
		ProgramID:      programID,
		EnrollmentID:   opts.EnrollmentID,
		AttendanceDate: opts.Date,
		Status:         opts.Status,
		MarkedBy:       "test",
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("failed to create attendance: %v", err)
	}
	return a
}
