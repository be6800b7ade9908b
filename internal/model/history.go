package model

import "time"

// HistoryEntry records one dose. MedicationName is kept so the entry still reads
// correctly after the medication itself is deleted.
type HistoryEntry struct {
	ID             string    `json:"id"`
	MedicationID   string    `json:"medicationId"`
	MedicationName string    `json:"medicationName"`
	TakenAt        time.Time `json:"takenAt"`
}
