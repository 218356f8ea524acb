package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventLog represents a persisted engine or endpoint event. Rows are written
// best-effort: a failed event insert never fails the operation it describes.
type EventLog struct {
	gorm.Model
	EventType    string         `json:"event_type" gorm:"column:event_type;type:varchar(64);index"`
	EnrollmentID uint           `json:"enrollment_id" gorm:"column:enrollment_id;index"`
	PatientID    uint           `json:"patient_id" gorm:"column:patient_id;index"`
	IP           string         `json:"ip" gorm:"column:ip;type:varchar(45)"`
	Message      string         `json:"message" gorm:"column:message;type:text"`
	Details      datatypes.JSON `json:"details" gorm:"column:details;type:json"`
}
