package model

import (
	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeConsultation  NotificationType = "consultation"
	NotificationTypeSystem        NotificationType = "system"
	NotificationTypeBilling       NotificationType = "billing"
	NotificationTypeLicenseExpiry NotificationType = "license_expiry"
)

type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

type Notification struct {
	Base
	ProviderID uuid.UUID          `db:"provider_id" json:"provider_id"`
	Type       NotificationType   `db:"type" json:"type"`
	Message    string             `db:"message" json:"message"`
	Status     NotificationStatus `db:"status" json:"status"`
}

type SystemNotificationRequest struct {
	Message string `json:"message" binding:"required"`
}

type ExpiredLicense struct {
	ProviderID        uuid.UUID `json:"provider_id"`
	ProviderName      string    `json:"provider_name"`
	Email             string    `json:"email"`
	LicenseExpiryDate Date      `json:"license_expiry_date"`
}

type LicenseSweepReport struct {
	Message          string           `json:"message"`
	ExpiredProviders []ExpiredLicense `json:"expired_providers"`
}
