package model

import (
	"time"

	"gorm.io/gorm"
)

// Attendance statuses. Present and Late count toward completed sessions,
// Absent counts toward missed, Excused and Canceled count toward neither
// (they reduce the expected session count instead).
const (
	AttendancePresent  = "Present"
	AttendanceAbsent   = "Absent"
	AttendanceLate     = "Late"
	AttendanceExcused  = "Excused"
	AttendanceCanceled = "Canceled"
)

// ValidAttendanceStatus reports whether s is a supported attendance status.
func ValidAttendanceStatus(s string) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused, AttendanceCanceled:
		return true
	default:
		return false
	}
}

// Attendance is one row per patient per scheduled session occurrence.
// EnrollmentID is nullable: rows created before the enrollment linkage
// existed are backfilled by a date-range match (see engine.BackfillAttendanceLinks),
// so the row also keys directly on patient and program.
// @Description Session attendance record
type Attendance struct {
	gorm.Model
	PatientID      uint       `json:"patient_id" gorm:"not null;index"`
	ProgramID      uint       `json:"program_id" gorm:"not null;index:idx_attendance_program_date"`
	EnrollmentID   *uint      `json:"enrollment_id" gorm:"index"`
	AttendanceDate time.Time  `json:"attendance_date" gorm:"not null;index:idx_attendance_program_date"`
	Status         string     `json:"status" gorm:"not null"`
	CheckInTime    *time.Time `json:"check_in_time"`
	MarkedBy       string     `json:"marked_by"`
}
