// Package audit provides the append-only event trail for record mutations.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/linhaops/linha/internal/models"
	"github.com/linhaops/linha/internal/store"
)

// TrailWriter appends audit events for state-mutating backend operations.
// Cancellation events are the source for the cancelled-operations report.
type TrailWriter struct {
	store *store.Store
}

// NewTrailWriter creates a new trail writer.
func NewTrailWriter(s *store.Store) *TrailWriter {
	return &TrailWriter{store: s}
}

// Record writes an audit event for a record mutation.
func (w *TrailWriter) Record(action string, inputs interface{}, recordID, details string) (*models.AuditEvent, error) {
	return w.store.WriteEvent(action, hashInputs(inputs), recordID, details)
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
