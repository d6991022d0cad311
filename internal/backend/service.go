// Package backend provides the development backend implementing the kiosk
// contract: badge validation, catalog reads, and the open/close/cancel
// lifecycle of production records. Production terminals point at the real
// MES backend instead; this one exists so the repo runs end to end and so
// the duplicate-open arbitration has a reference behavior.
package backend

import (
	"time"

	"github.com/linhaops/linha/internal/audit"
	"github.com/linhaops/linha/internal/models"
	"github.com/linhaops/linha/internal/store"
)

// ReasonTimeout is the cancellation reason recorded when the sweeper closes
// a record that outlived the configured session TTL.
const ReasonTimeout = "cancelado por timeout"

// Service provides the backend business logic.
type Service struct {
	store *store.Store
	trail *audit.TrailWriter
}

// NewService creates a new backend service.
func NewService(s *store.Store, trail *audit.TrailWriter) *Service {
	return &Service{store: s, trail: trail}
}

// ValidateBadge resolves a badge code to an employee.
func (s *Service) ValidateBadge(badge string) (*models.Employee, error) {
	emp, err := s.store.GetEmployeeByBadge(badge)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrBadgeUnknown
	}
	return emp, nil
}

// ListKioskOperations returns the lightweight kiosk catalog.
func (s *Service) ListKioskOperations() ([]models.KioskOperation, error) {
	return s.store.ListKioskOperations()
}

// ListOperations returns the full operation catalog.
func (s *Service) ListOperations() ([]models.OperationSpec, error) {
	return s.store.ListOperations()
}

// ListModels returns the model catalog.
func (s *Service) ListModels() ([]models.ProductModel, error) {
	return s.store.ListModels()
}

// ListEmployees returns the employee roster.
func (s *Service) ListEmployees() ([]models.Employee, error) {
	return s.store.ListEmployees()
}

// OpenRecord returns the open record for a (posto, matricula) pair, or nil.
func (s *Service) OpenRecord(posto, matricula string) (*models.ProductionRecord, error) {
	return s.store.GetOpenRecord(posto, matricula)
}

// ListOpenRecords returns all currently open records.
func (s *Service) ListOpenRecords() ([]models.ProductionRecord, error) {
	return s.store.ListOpenRecords()
}

// RegisterEntry opens a production record. The store's unique index rejects
// the loser when two terminals race to open the same (posto, matricula).
func (s *Service) RegisterEntry(req models.EntryRequest) (*models.ProductionRecord, error) {
	rec, err := s.store.CreateRecord(req)
	if err != nil {
		return nil, err
	}

	s.trail.Record("record.entry", req, rec.ID, "")
	return rec, nil
}

// RegisterExit closes the open record for (posto, matricula) with the
// produced quantity.
func (s *Service) RegisterExit(req models.ExitRequest) error {
	rec, err := s.store.GetOpenRecord(req.Post, req.Matricula)
	if err != nil {
		return err
	}
	if rec == nil {
		return store.ErrNoOpenRecord
	}

	if err := s.store.CloseRecord(req.Post, req.Matricula, req.Quantity); err != nil {
		return err
	}

	s.trail.Record("record.exit", req, rec.ID, "")
	return nil
}

// CancelRecord cancels an open record with a reason. The reason is the
// append-only evidence consumed by the cancelled-operations report.
func (s *Service) CancelRecord(id, reason string) error {
	if err := s.store.CancelRecord(id, reason); err != nil {
		return err
	}

	s.trail.Record("record.cancel", map[string]string{"id": id, "motivo": reason}, id, reason)
	return nil
}

// CancelStaleRecords cancels every open record opened before the cutoff.
// Used by the sweeper; it is the backend-side "timeout" canceller.
func (s *Service) CancelStaleRecords(cutoff time.Time) (int, error) {
	stale, err := s.store.StaleOpenRecords(cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, rec := range stale {
		if err := s.CancelRecord(rec.ID, ReasonTimeout); err != nil {
			// Another actor may have closed it between the query and the
			// cancel; skip and keep sweeping.
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
