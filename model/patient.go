package model

import "gorm.io/gorm"

// Patient is reference data owned by the administrative system that shares
// this database. The engine only reads it.
type Patient struct {
	gorm.Model
	FullName    string `json:"full_name"`
	PatientCode string `json:"patient_code" gorm:"index"`
	Gender      string `json:"gender"`
	Age         int    `json:"age"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}
