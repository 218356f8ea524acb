package model

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment lifecycle statuses.
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusCancelled = "cancelled"
)

// PatientEnrollment anchors a patient's participation in a program. The
// counter columns are denormalized: they are recomputed by the engine on
// every relevant mutation and by the periodic sweep, and read directly by
// dashboards and reports without any computation at read time.
// @Description Patient enrollment with materialized progress counters
type PatientEnrollment struct {
	gorm.Model
	PatientID      uint      `json:"patient_id" gorm:"not null;index:idx_enrollment_patient_program"`
	ProgramID      uint      `json:"program_id" gorm:"not null;index:idx_enrollment_patient_program"`
	EnrollmentDate time.Time `json:"enrollment_date" gorm:"not null"`
	// CompletedDate is computed once at creation from the program's
	// DurationInDays at that time. A later change to the program duration
	// does not touch it unless an explicit horizon recompute runs.
	CompletedDate     *time.Time `json:"completed_date" gorm:"index"`
	Status            string     `json:"status" gorm:"default:active"`
	SessionsExpected  int        `json:"sessions_expected" gorm:"default:0"`
	SessionsCompleted int        `json:"sessions_completed" gorm:"default:0"`
	SessionsMissed    int        `json:"sessions_missed" gorm:"default:0"`
	AttendanceRate    float64    `json:"attendance_rate" gorm:"default:0"`
	AdherenceRate     float64    `json:"adherence_rate" gorm:"default:0"`
}

// EnrollmentProgressResponse is the read shape for per-enrollment progress.
// @Description Materialized progress counters for one enrollment
type EnrollmentProgressResponse struct {
	EnrollmentID      uint       `json:"enrollment_id"`
	PatientID         uint       `json:"patient_id"`
	ProgramID         uint       `json:"program_id"`
	EnrollmentDate    time.Time  `json:"enrollment_date"`
	CompletedDate     *time.Time `json:"completed_date"`
	Status            string     `json:"status"`
	SessionsExpected  int        `json:"sessions_expected"`
	SessionsCompleted int        `json:"sessions_completed"`
	SessionsMissed    int        `json:"sessions_missed"`
	AttendanceRate    float64    `json:"attendance_rate"`
	AdherenceRate     float64    `json:"adherence_rate"`
}
