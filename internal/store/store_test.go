package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linhaops/linha/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func entry(posto, matricula string) models.EntryRequest {
	return models.EntryRequest{
		Post:           posto,
		Matricula:      matricula,
		ModelCode:      "MDX",
		Operation:      "OP-SOLDA",
		Part:           "PC1",
		ProductionCode: "COD1",
	}
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestEmployeeLookup(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if err := s.AddEmployee("M1", "Ana", "RF001"); err != nil {
		t.Fatalf("AddEmployee failed: %v", err)
	}

	emp, err := s.GetEmployeeByBadge("RF001")
	if err != nil {
		t.Fatalf("GetEmployeeByBadge failed: %v", err)
	}
	if emp == nil || emp.Matricula != "M1" || emp.Name != "Ana" {
		t.Errorf("Unexpected employee: %+v", emp)
	}

	emp, err = s.GetEmployeeByBadge("RF999")
	if err != nil {
		t.Fatalf("GetEmployeeByBadge failed: %v", err)
	}
	if emp != nil {
		t.Errorf("Expected nil for unknown badge, got %+v", emp)
	}

	emps, err := s.ListEmployees()
	if err != nil {
		t.Fatalf("ListEmployees failed: %v", err)
	}
	if len(emps) != 1 {
		t.Errorf("Expected 1 employee, got %d", len(emps))
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if err := s.AddKioskOperation(models.KioskOperation{Code: "OP-SOLDA", Name: "Solda", Post: "P3"}); err != nil {
		t.Fatalf("AddKioskOperation failed: %v", err)
	}
	kops, err := s.ListKioskOperations()
	if err != nil {
		t.Fatalf("ListKioskOperations failed: %v", err)
	}
	if len(kops) != 1 || kops[0].Post != "P3" {
		t.Errorf("Unexpected kiosk catalog: %+v", kops)
	}

	op := models.OperationSpec{
		Operation: "OP-SOLDA", Product: "Placa X", Model: "MDX", Post: "P3",
		Parts: []string{"PC1", "PC2"}, ProductionCodes: []string{"COD1"},
	}
	if err := s.AddOperation(op); err != nil {
		t.Fatalf("AddOperation failed: %v", err)
	}
	ops, err := s.ListOperations()
	if err != nil {
		t.Fatalf("ListOperations failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("Expected 1 operation, got %d", len(ops))
	}
	if len(ops[0].Parts) != 2 || ops[0].Parts[0] != "PC1" {
		t.Errorf("Parts did not round-trip: %+v", ops[0].Parts)
	}

	if err := s.AddModel(models.ProductModel{Code: "MDX", Description: "Modelo X", SubProducts: []string{"SUB1"}}); err != nil {
		t.Fatalf("AddModel failed: %v", err)
	}
	pms, err := s.ListModels()
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(pms) != 1 || pms[0].Description != "Modelo X" {
		t.Errorf("Unexpected models: %+v", pms)
	}
}

func TestRecordLifecycle(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	rec, err := s.CreateRecord(entry("P3", "M1"))
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Record ID should not be empty")
	}
	if rec.Status != models.RecordStatusOpen {
		t.Errorf("Expected status open, got %s", rec.Status)
	}

	got, err := s.GetOpenRecord("P3", "M1")
	if err != nil {
		t.Fatalf("GetOpenRecord failed: %v", err)
	}
	if got == nil || got.ID != rec.ID {
		t.Fatalf("Expected open record %s, got %+v", rec.ID, got)
	}

	if err := s.CloseRecord("P3", "M1", 12); err != nil {
		t.Fatalf("CloseRecord failed: %v", err)
	}

	got, err = s.GetOpenRecord("P3", "M1")
	if err != nil {
		t.Fatalf("GetOpenRecord failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected no open record after close, got %+v", got)
	}

	closed, err := s.GetRecord(rec.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if closed.Status != models.RecordStatusClosed {
		t.Errorf("Expected status closed, got %s", closed.Status)
	}
	if closed.Quantity != 12 {
		t.Errorf("Expected quantity 12, got %d", closed.Quantity)
	}
	if closed.ClosedAt == nil {
		t.Error("Expected closed_at to be set")
	}
}

func TestDuplicateOpenRejected(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.CreateRecord(entry("P3", "M1")); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	_, err := s.CreateRecord(entry("P3", "M1"))
	if err != ErrDuplicateOpen {
		t.Fatalf("Expected ErrDuplicateOpen, got %v", err)
	}

	// A different pair is unaffected.
	if _, err := s.CreateRecord(entry("P3", "M2")); err != nil {
		t.Fatalf("CreateRecord for other matricula failed: %v", err)
	}

	// After cancelling, the pair can open again.
	rec, _ := s.GetOpenRecord("P3", "M1")
	if err := s.CancelRecord(rec.ID, "teste"); err != nil {
		t.Fatalf("CancelRecord failed: %v", err)
	}
	if _, err := s.CreateRecord(entry("P3", "M1")); err != nil {
		t.Fatalf("CreateRecord after cancel failed: %v", err)
	}
}

func TestCancelRecord(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	rec, err := s.CreateRecord(entry("P1", "M2"))
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	if err := s.CancelRecord(rec.ID, "cancelado pelo operador: quantidade zero"); err != nil {
		t.Fatalf("CancelRecord failed: %v", err)
	}

	got, err := s.GetRecord(rec.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Status != models.RecordStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", got.Status)
	}
	if got.Reason != "cancelado pelo operador: quantidade zero" {
		t.Errorf("Unexpected reason: %s", got.Reason)
	}

	// Cancelling again fails; the record is no longer open.
	if err := s.CancelRecord(rec.ID, "de novo"); err != ErrNoOpenRecord {
		t.Errorf("Expected ErrNoOpenRecord, got %v", err)
	}
}

func TestCloseWithoutOpen(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if err := s.CloseRecord("P9", "M9", 1); err != ErrNoOpenRecord {
		t.Errorf("Expected ErrNoOpenRecord, got %v", err)
	}
}

func TestStaleOpenRecords(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.CreateRecord(entry("P3", "M1")); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	stale, err := s.StaleOpenRecords(time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("StaleOpenRecords failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("Expected no stale records, got %d", len(stale))
	}

	stale, err = s.StaleOpenRecords(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("StaleOpenRecords failed: %v", err)
	}
	if len(stale) != 1 {
		t.Errorf("Expected 1 stale record, got %d", len(stale))
	}
}

func TestAuditEvents(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	rec, err := s.CreateRecord(entry("P3", "M1"))
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}

	if _, err := s.WriteEvent("record.entry", "hash1", rec.ID, ""); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if _, err := s.WriteEvent("record.exit", "hash2", rec.ID, ""); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	evs, err := s.EventsForRecord(rec.ID)
	if err != nil {
		t.Fatalf("EventsForRecord failed: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(evs))
	}
	if evs[0].Action != "record.entry" {
		t.Errorf("Expected record.entry first, got %s", evs[0].Action)
	}
}
