package model

import "gorm.io/gorm"

// Program represents a time-bounded healthcare program
// @Description Healthcare program information
type Program struct {
	gorm.Model
	Name             string `json:"name" gorm:"not null" example:"TB Directly Observed Therapy"`
	Type             string `json:"type" example:"outpatient"`
	Status           string `json:"status" gorm:"default:Active" example:"Active"`
	SessionFrequency string `json:"session_frequency" gorm:"not null" example:"Weekly"`
	// DurationInDays is the authoritative program length. Display-only
	// duration/unit pairs elsewhere in the system defer to this value.
	DurationInDays int `json:"duration_in_days" gorm:"not null;default:90" example:"90"`
}
