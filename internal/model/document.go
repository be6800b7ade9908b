package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is the whole saved state of one user. The gateway only ever sees it as the
// opaque string produced by Encode.
type Document struct {
	Medications []Medication   `json:"medications"`
	History     []HistoryEntry `json:"history"`
}

// Encode serializes the document with takenAt timestamps at millisecond precision in UTC,
// the same shape a browser's Date.toISOString produces.
func (d Document) Encode() (string, error) {
	out := Document{
		Medications: d.Medications,
		History:     make([]HistoryEntry, len(d.History)),
	}
	if out.Medications == nil {
		out.Medications = []Medication{}
	}
	for i, h := range d.History {
		h.TakenAt = h.TakenAt.UTC().Truncate(time.Millisecond)
		out.History[i] = h
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(b), nil
}

// DecodeDocument parses a stored document. Missing arrays decode as empty.
func DecodeDocument(data string) (Document, error) {
	var doc Document
	if data == "" {
		return emptyDocument(), nil
	}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc.Medications == nil {
		doc.Medications = []Medication{}
	}
	if doc.History == nil {
		doc.History = []HistoryEntry{}
	}
	return doc, nil
}

func emptyDocument() Document {
	return Document{Medications: []Medication{}, History: []HistoryEntry{}}
}
