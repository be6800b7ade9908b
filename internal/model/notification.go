package model

import "time"

// Permission mirrors the host notification capability.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

func ParsePermission(s string) (Permission, bool) {
	switch p := Permission(s); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, true
	}
	return "", false
}

const NotificationTitle = "Medication Reminder"

type Notification struct {
	UserID       string    `json:"userId,omitempty"`
	MedicationID string    `json:"medicationId"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	FireAt       time.Time `json:"fireAt"`
}

// Channels used on the message broker.
const (
	ChannelDocumentSaved = "medtracker.documents.saved"
	ChannelReminders     = "medtracker.reminders"
)

// DocumentSavedEvent is published after every successful save.
type DocumentSavedEvent struct {
	UserID  string    `json:"userId"`
	SavedAt time.Time `json:"savedAt"`
}
