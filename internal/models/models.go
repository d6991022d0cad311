// Package models defines the core domain types for the linha kiosk.
package models

import "time"

// RecordStatus represents the lifecycle state of a production record.
type RecordStatus string

const (
	RecordStatusOpen      RecordStatus = "open"
	RecordStatusClosed    RecordStatus = "closed"
	RecordStatusCancelled RecordStatus = "cancelled"
)

// Employee is a production-floor operator, identified by matricula.
type Employee struct {
	Matricula string `json:"matricula"`
	Name      string `json:"nome"`
}

// KioskOperation is the lightweight catalog entry shown on kiosk terminals.
// Its post binding is best-effort; reconciliation with the full catalog
// happens in the session binder.
type KioskOperation struct {
	Code string `json:"operacao"`
	Name string `json:"nome"`
	Post string `json:"posto"`
}

// OperationSpec is the full catalog entry for an operation, carrying the
// product/model binding and the candidate parts and production codes.
type OperationSpec struct {
	Operation       string   `json:"operacao"`
	Product         string   `json:"produto"`
	Model           string   `json:"modelo"`
	Post            string   `json:"posto"`
	Parts           []string `json:"pecas"`
	ProductionCodes []string `json:"codigos"`
}

// ProductModel maps a model code to its human description and sub-parts.
type ProductModel struct {
	Code        string   `json:"codigo"`
	Description string   `json:"descricao"`
	SubProducts []string `json:"subprodutos"`
}

// ProductionRecord is the server-owned record marking a post as currently
// being worked by a specific employee. At most one open record exists per
// (posto, matricula) pair; the backend arbitrates concurrent opens.
type ProductionRecord struct {
	ID             string       `json:"id"`
	Post           string       `json:"posto"`
	Matricula      string       `json:"matricula"`
	ModelCode      string       `json:"modelo"`
	Operation      string       `json:"operacao,omitempty"`
	Part           string       `json:"peca,omitempty"`
	ProductionCode string       `json:"codigo_producao,omitempty"`
	Quantity       int          `json:"quantidade"`
	Status         RecordStatus `json:"status"`
	Reason         string       `json:"motivo,omitempty"`
	OpenedAt       time.Time    `json:"opened_at"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty"`
}

// EntryRequest is the payload for opening a production record.
type EntryRequest struct {
	Post           string `json:"posto"`
	Matricula      string `json:"matricula"`
	ModelCode      string `json:"modelo"`
	Operation      string `json:"operacao,omitempty"`
	Part           string `json:"peca,omitempty"`
	ProductionCode string `json:"codigo_producao,omitempty"`
}

// ExitRequest is the payload for closing a production record with the
// produced quantity.
type ExitRequest struct {
	Post      string `json:"posto"`
	Matricula string `json:"matricula"`
	Quantity  int    `json:"quantidade"`
}

// AuditEvent is an append-only trail entry for record mutations. Cancellation
// events feed the cancelled-operations report.
type AuditEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	RecordID   string    `json:"record_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
