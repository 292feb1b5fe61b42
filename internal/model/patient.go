package model

const PatientRole = "patient"

type Patient struct {
	Base
	Name                  string `db:"name" json:"name"`
	Email                 string `db:"email" json:"email"`
	Role                  string `db:"role" json:"role"`
	ReasonForConsultation string `db:"reason_for_consultation" json:"reason_for_consultation"`
}

type CreatePatientRequest struct {
	Name                  string `json:"name" binding:"required"`
	Email                 string `json:"email" binding:"required,email"`
	ReasonForConsultation string `json:"reason_for_consultation" binding:"required"`
}
