package model

import "gorm.io/gorm"

// Medication is reference data for dispensable medications. Frequency here is
// the default schedule; a dispensation row may carry a per-patient override.
type Medication struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null" example:"Isoniazid"`
	Dosage      string `json:"dosage" example:"300mg"`
	Frequency   string `json:"frequency" gorm:"not null" example:"Daily"`
	ProgramType string `json:"program_type" example:"outpatient"`
	Status      string `json:"status" gorm:"default:Active" example:"Active"`
}
