package notification

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/email"
	"github.com/jwalitptl/consultation-api/internal/model"
)

// Event is a state change worth telling a provider about. The set is
// closed: only types in this file implement it.
type Event interface {
	Kind() model.NotificationType
	// Message is the persisted notification text.
	Message() string
	// Email renders the delivery addressed to provider.
	Email(provider *model.Provider) email.Message
	event()
}

type ConsultationBooked struct {
	PatientName string
	Date        model.Date
	Time        string
	Priority    model.Priority
}

type ConsultationRescheduled struct {
	PatientName string
	Date        model.Date
	Time        string
	Priority    model.Priority
}

type ConsultationMissed struct {
	PatientID uuid.UUID
	Date      model.Date
	Time      string
}

type ConsultationCancelled struct {
	PatientName string
	Date        model.Date
	Time        string
}

type ConsultationReminder struct {
	Date model.Date
	Time string
}

type ConsultationSummary struct {
	Date    model.Date
	Summary string
}

type LicenseExpired struct {
	LicenseNumber string
	ExpiryDate    model.Date
}

type SystemDowntime struct {
	Text string
}

func (ConsultationBooked) event()      {}
func (ConsultationRescheduled) event() {}
func (ConsultationMissed) event()      {}
func (ConsultationCancelled) event()   {}
func (ConsultationReminder) event()    {}
func (ConsultationSummary) event()     {}
func (LicenseExpired) event()          {}
func (SystemDowntime) event()          {}

func (ConsultationBooked) Kind() model.NotificationType { return model.NotificationTypeConsultation }
func (ConsultationRescheduled) Kind() model.NotificationType {
	return model.NotificationTypeConsultation
}
func (ConsultationMissed) Kind() model.NotificationType    { return model.NotificationTypeConsultation }
func (ConsultationCancelled) Kind() model.NotificationType { return model.NotificationTypeConsultation }
func (ConsultationReminder) Kind() model.NotificationType  { return model.NotificationTypeConsultation }
func (ConsultationSummary) Kind() model.NotificationType   { return model.NotificationTypeConsultation }
func (LicenseExpired) Kind() model.NotificationType        { return model.NotificationTypeLicenseExpiry }
func (SystemDowntime) Kind() model.NotificationType        { return model.NotificationTypeSystem }

func (e ConsultationBooked) Message() string {
	return fmt.Sprintf("New consultation on %s at %s (Priority: %s)", e.Date, e.Time, e.Priority)
}

func (e ConsultationBooked) Email(p *model.Provider) email.Message {
	return to(p, "New Consultation Scheduled", fmt.Sprintf(
		"Hello Dr. %s,\n\nYou have a new consultation scheduled with %s on %s at %s.\n\nPriority: %s",
		p.Name, e.PatientName, e.Date, e.Time, strings.ToUpper(string(e.Priority))))
}

func (e ConsultationRescheduled) Message() string {
	return fmt.Sprintf("Consultation updated to %s at %s (Priority: %s)", e.Date, e.Time, e.Priority)
}

func (e ConsultationRescheduled) Email(p *model.Provider) email.Message {
	return to(p, "Consultation Rescheduled", fmt.Sprintf(
		"Hello Dr. %s,\n\nYour consultation is rescheduled with %s on %s at %s.\n\nPriority: %s",
		p.Name, e.PatientName, e.Date, e.Time, strings.ToUpper(string(e.Priority))))
}

func (e ConsultationMissed) Message() string {
	return fmt.Sprintf("A consultation with Patient ID %s on %s at %s was missed.", e.PatientID, e.Date, e.Time)
}

func (e ConsultationMissed) Email(p *model.Provider) email.Message {
	return to(p, "Missed Consultation Alert", fmt.Sprintf(
		"Hello Dr. %s,\n\nA scheduled consultation with Patient ID %s on %s at %s was marked as missed.\n\n"+
			"Please follow up accordingly.\n\nBest regards,\nYour Healthcare Team",
		p.Name, e.PatientID, e.Date, e.Time))
}

func (e ConsultationCancelled) Message() string {
	return fmt.Sprintf("Consultation with %s on %s at %s has been deleted/canceled.", e.PatientName, e.Date, e.Time)
}

func (e ConsultationCancelled) Email(p *model.Provider) email.Message {
	return to(p, "Consultation Canceled", fmt.Sprintf(
		"Hello Dr. %s,\n\nYour consultation with %s on %s at %s has been canceled.\n\nPlease check your schedule for updates.",
		p.Name, e.PatientName, e.Date, e.Time))
}

func (e ConsultationReminder) Message() string {
	return fmt.Sprintf("Reminder: Your upcoming consultation is on %s at %s.", e.Date, e.Time)
}

func (e ConsultationReminder) Email(p *model.Provider) email.Message {
	return to(p, "Upcoming Consultation Reminder", fmt.Sprintf(
		"Hello Dr. %s,\n\nThis is a reminder that you have a consultation scheduled for tomorrow:\n\n"+
			"Date: %s\nTime: %s\n\nPlease be prepared.\n\nBest regards,\nYour Consultation Team",
		p.Name, e.Date, e.Time))
}

func (e ConsultationSummary) Message() string {
	return fmt.Sprintf("Your consultation summary for %s is available.", e.Date)
}

func (e ConsultationSummary) Email(p *model.Provider) email.Message {
	return to(p, fmt.Sprintf("Your Consultation Summary for %s", e.Date), fmt.Sprintf(
		"Hello Dr. %s,\n\nHere is your consultation summary for %s:\n\n%s\n\nBest regards,\nYour Healthcare Team",
		p.Name, e.Date, e.Summary))
}

func (e LicenseExpired) Message() string {
	return fmt.Sprintf("Your medical license (License No: %s) expired on %s. Please renew it immediately.",
		e.LicenseNumber, e.ExpiryDate)
}

func (e LicenseExpired) Email(p *model.Provider) email.Message {
	return to(p, "Urgent: Your Medical License Has Expired", fmt.Sprintf(
		"Hello Dr. %s,\n\nOur records indicate that your medical license (License No: %s) expired on %s.\n\n"+
			"Please renew your license immediately to continue providing medical services.\n\nBest regards,\nHealthcare Team",
		p.Name, e.LicenseNumber, e.ExpiryDate))
}

func (e SystemDowntime) Message() string {
	return e.Text
}

func (e SystemDowntime) Email(p *model.Provider) email.Message {
	return to(p, "System Downtime Notification", fmt.Sprintf(
		"Hello %s %s,\n\n%s\n\nThank you.", p.FirstName, p.LastName, e.Text))
}

// removalEmail is sent when a notification is deleted. It is delivered
// only, never persisted, so it is not an Event.
func removalEmail(p *model.Provider, n *model.Notification) email.Message {
	return to(p, fmt.Sprintf("Notification Removed: %s", n.Type), fmt.Sprintf(
		"Hello %s %s,\n\nYour notification regarding \"%s\" has been removed from the system.",
		p.FirstName, p.LastName, n.Message))
}

func to(p *model.Provider, subject, body string) email.Message {
	return email.Message{To: p.Email, ToName: p.Name, Subject: subject, Body: body}
}
