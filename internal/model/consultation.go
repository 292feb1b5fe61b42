package model

import (
	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusScheduled   ConsultationStatus = "Scheduled"
	ConsultationStatusRescheduled ConsultationStatus = "Rescheduled"
	ConsultationStatusCancelled   ConsultationStatus = "Cancelled"
	ConsultationStatusMissed      ConsultationStatus = "Missed"
	ConsultationStatusCompleted   ConsultationStatus = "Completed"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

type Consultation struct {
	Base
	PatientID  uuid.UUID          `db:"patient_id" json:"patient_id"`
	ProviderID uuid.UUID          `db:"provider_id" json:"provider_id"`
	Date       Date               `db:"date" json:"date"`
	Time       string             `db:"time" json:"time"`
	Status     ConsultationStatus `db:"status" json:"status"`
	Priority   Priority           `db:"priority" json:"priority"`
}

type BookConsultationRequest struct {
	PatientID string `json:"patient_id" binding:"required,uuid"`
	Date      string `json:"date" binding:"required,calendar_date"`
	Time      string `json:"time" binding:"required,clock"`
	Priority  string `json:"priority" binding:"required,oneof=normal urgent"`
}

type RescheduleConsultationRequest struct {
	Date     string `json:"date" binding:"required,calendar_date"`
	Time     string `json:"time" binding:"required,clock"`
	Priority string `json:"priority" binding:"required,oneof=normal urgent"`
}

type ConsultationSummary struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       Date      `json:"date"`
	Summary    string    `json:"summary"`
}

type ReminderResult struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}
