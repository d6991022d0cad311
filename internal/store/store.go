// Package store provides SQLite-backed persistence for the development
// backend.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linhaops/linha/internal/models"
	_ "modernc.org/sqlite"
)

// ErrDuplicateOpen indicates an open record already exists for the
// (posto, matricula) pair. The partial unique index is the arbiter when two
// terminals race to open the same record.
var ErrDuplicateOpen = fmt.Errorf("open record already exists")

// ErrNoOpenRecord indicates no open record exists where one was expected.
var ErrNoOpenRecord = fmt.Errorf("no open record")

// Store provides access to the backend SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for concurrent reads while the single writer works.
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		matricula TEXT PRIMARY KEY,
		nome TEXT NOT NULL,
		badge TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS kiosk_operations (
		operacao TEXT NOT NULL,
		nome TEXT,
		posto TEXT
	);

	CREATE TABLE IF NOT EXISTS operations (
		operacao TEXT NOT NULL,
		produto TEXT,
		modelo TEXT,
		posto TEXT,
		pecas TEXT,
		codigos TEXT
	);

	CREATE TABLE IF NOT EXISTS product_models (
		codigo TEXT PRIMARY KEY,
		descricao TEXT,
		subprodutos TEXT
	);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		posto TEXT NOT NULL,
		matricula TEXT NOT NULL,
		modelo TEXT NOT NULL,
		operacao TEXT,
		peca TEXT,
		codigo_producao TEXT,
		quantidade INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'open',
		motivo TEXT,
		opened_at DATETIME NOT NULL,
		closed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		record_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_open
		ON records(posto, matricula) WHERE status = 'open';
	CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);
	CREATE INDEX IF NOT EXISTS idx_audit_record_id ON audit_events(record_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Employee Operations ---

// AddEmployee inserts an employee with their badge code.
func (s *Store) AddEmployee(matricula, nome, badge string) error {
	_, err := s.db.Exec(
		`INSERT INTO employees (matricula, nome, badge) VALUES (?, ?, ?)`,
		matricula, nome, badge,
	)
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// GetEmployeeByBadge resolves a badge code to an employee. Returns nil when
// the badge is unknown.
func (s *Store) GetEmployeeByBadge(badge string) (*models.Employee, error) {
	emp := &models.Employee{}
	err := s.db.QueryRow(
		`SELECT matricula, nome FROM employees WHERE badge = ?`, badge,
	).Scan(&emp.Matricula, &emp.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return emp, nil
}

// ListEmployees returns the employee roster.
func (s *Store) ListEmployees() ([]models.Employee, error) {
	rows, err := s.db.Query(`SELECT matricula, nome FROM employees ORDER BY matricula`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var emps []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.Matricula, &e.Name); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		emps = append(emps, e)
	}
	return emps, rows.Err()
}

// --- Catalog Operations ---

// AddKioskOperation inserts a lightweight kiosk catalog entry.
func (s *Store) AddKioskOperation(op models.KioskOperation) error {
	_, err := s.db.Exec(
		`INSERT INTO kiosk_operations (operacao, nome, posto) VALUES (?, ?, ?)`,
		op.Code, op.Name, op.Post,
	)
	if err != nil {
		return fmt.Errorf("insert kiosk operation: %w", err)
	}
	return nil
}

// ListKioskOperations returns the kiosk catalog.
func (s *Store) ListKioskOperations() ([]models.KioskOperation, error) {
	rows, err := s.db.Query(`SELECT operacao, nome, posto FROM kiosk_operations ORDER BY operacao`)
	if err != nil {
		return nil, fmt.Errorf("query kiosk operations: %w", err)
	}
	defer rows.Close()

	var ops []models.KioskOperation
	for rows.Next() {
		var op models.KioskOperation
		var nome, posto sql.NullString
		if err := rows.Scan(&op.Code, &nome, &posto); err != nil {
			return nil, fmt.Errorf("scan kiosk operation: %w", err)
		}
		op.Name = nome.String
		op.Post = posto.String
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// AddOperation inserts a full catalog entry.
func (s *Store) AddOperation(op models.OperationSpec) error {
	pecas, _ := json.Marshal(op.Parts)
	codigos, _ := json.Marshal(op.ProductionCodes)

	_, err := s.db.Exec(
		`INSERT INTO operations (operacao, produto, modelo, posto, pecas, codigos) VALUES (?, ?, ?, ?, ?, ?)`,
		op.Operation, op.Product, op.Model, op.Post, string(pecas), string(codigos),
	)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// ListOperations returns the full operation catalog.
func (s *Store) ListOperations() ([]models.OperationSpec, error) {
	rows, err := s.db.Query(`SELECT operacao, produto, modelo, posto, pecas, codigos FROM operations ORDER BY operacao, posto`)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var ops []models.OperationSpec
	for rows.Next() {
		var op models.OperationSpec
		var produto, modelo, posto, pecas, codigos sql.NullString
		if err := rows.Scan(&op.Operation, &produto, &modelo, &posto, &pecas, &codigos); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op.Product = produto.String
		op.Model = modelo.String
		op.Post = posto.String
		if pecas.String != "" {
			json.Unmarshal([]byte(pecas.String), &op.Parts)
		}
		if codigos.String != "" {
			json.Unmarshal([]byte(codigos.String), &op.ProductionCodes)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// AddModel inserts a product model.
func (s *Store) AddModel(pm models.ProductModel) error {
	subs, _ := json.Marshal(pm.SubProducts)
	_, err := s.db.Exec(
		`INSERT INTO product_models (codigo, descricao, subprodutos) VALUES (?, ?, ?)`,
		pm.Code, pm.Description, string(subs),
	)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

// ListModels returns the model catalog.
func (s *Store) ListModels() ([]models.ProductModel, error) {
	rows, err := s.db.Query(`SELECT codigo, descricao, subprodutos FROM product_models ORDER BY codigo`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	var pms []models.ProductModel
	for rows.Next() {
		var pm models.ProductModel
		var descricao, subs sql.NullString
		if err := rows.Scan(&pm.Code, &descricao, &subs); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		pm.Description = descricao.String
		if subs.String != "" {
			json.Unmarshal([]byte(subs.String), &pm.SubProducts)
		}
		pms = append(pms, pm)
	}
	return pms, rows.Err()
}

// --- Record Operations ---

// CreateRecord opens a production record. It returns ErrDuplicateOpen when
// an open record already exists for the (posto, matricula) pair; the unique
// index makes the loser of a concurrent race fail here.
func (s *Store) CreateRecord(req models.EntryRequest) (*models.ProductionRecord, error) {
	now := time.Now().UTC()
	rec := &models.ProductionRecord{
		ID:             uuid.New().String(),
		Post:           req.Post,
		Matricula:      req.Matricula,
		ModelCode:      req.ModelCode,
		Operation:      req.Operation,
		Part:           req.Part,
		ProductionCode: req.ProductionCode,
		Status:         models.RecordStatusOpen,
		OpenedAt:       now,
	}

	_, err := s.db.Exec(
		`INSERT INTO records (id, posto, matricula, modelo, operacao, peca, codigo_producao, status, opened_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Post, rec.Matricula, rec.ModelCode, rec.Operation, rec.Part, rec.ProductionCode, rec.Status, rec.OpenedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "unique constraint") {
			return nil, ErrDuplicateOpen
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// GetOpenRecord returns the open record for a (posto, matricula) pair, or
// nil when none is open.
func (s *Store) GetOpenRecord(posto, matricula string) (*models.ProductionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, posto, matricula, modelo, operacao, peca, codigo_producao, quantidade, status, motivo, opened_at, closed_at
		 FROM records WHERE posto = ? AND matricula = ? AND status = 'open'`,
		posto, matricula,
	)
	return scanRecord(row)
}

// GetRecord retrieves a record by ID, or nil when it does not exist.
func (s *Store) GetRecord(id string) (*models.ProductionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, posto, matricula, modelo, operacao, peca, codigo_producao, quantidade, status, motivo, opened_at, closed_at
		 FROM records WHERE id = ?`,
		id,
	)
	return scanRecord(row)
}

// ListOpenRecords returns all currently open records.
func (s *Store) ListOpenRecords() ([]models.ProductionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, posto, matricula, modelo, operacao, peca, codigo_producao, quantidade, status, motivo, opened_at, closed_at
		 FROM records WHERE status = 'open' ORDER BY opened_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query open records: %w", err)
	}
	defer rows.Close()

	var recs []models.ProductionRecord
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// StaleOpenRecords returns open records opened before the cutoff.
func (s *Store) StaleOpenRecords(cutoff time.Time) ([]models.ProductionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, posto, matricula, modelo, operacao, peca, codigo_producao, quantidade, status, motivo, opened_at, closed_at
		 FROM records WHERE status = 'open' AND opened_at < ? ORDER BY opened_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query stale records: %w", err)
	}
	defer rows.Close()

	var recs []models.ProductionRecord
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// CloseRecord closes the open record for (posto, matricula) with the
// produced quantity. Returns ErrNoOpenRecord when none is open.
func (s *Store) CloseRecord(posto, matricula string, quantity int) error {
	result, err := s.db.Exec(
		`UPDATE records SET status = ?, quantidade = ?, closed_at = ? WHERE posto = ? AND matricula = ? AND status = 'open'`,
		models.RecordStatusClosed, quantity, time.Now().UTC(), posto, matricula,
	)
	if err != nil {
		return fmt.Errorf("close record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoOpenRecord
	}
	return nil
}

// CancelRecord cancels an open record by ID with a reason. Returns
// ErrNoOpenRecord when the record is absent or no longer open.
func (s *Store) CancelRecord(id, reason string) error {
	result, err := s.db.Exec(
		`UPDATE records SET status = ?, motivo = ?, closed_at = ? WHERE id = ? AND status = 'open'`,
		models.RecordStatusCancelled, reason, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("cancel record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoOpenRecord
	}
	return nil
}

// --- Audit Operations ---

// WriteEvent appends an audit event for a record mutation.
func (s *Store) WriteEvent(action, inputsHash, recordID, details string) (*models.AuditEvent, error) {
	ev := &models.AuditEvent{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		RecordID:   recordID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO audit_events (id, action, inputs_hash, record_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Action, ev.InputsHash, ev.RecordID, ev.Details, ev.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit event: %w", err)
	}
	return ev, nil
}

// EventsForRecord returns the audit trail for a record.
func (s *Store) EventsForRecord(recordID string) ([]models.AuditEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, record_id, details, timestamp FROM audit_events WHERE record_id = ? ORDER BY timestamp`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var evs []models.AuditEvent
	for rows.Next() {
		var ev models.AuditEvent
		var recID, details sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.InputsHash, &recID, &details, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.RecordID = recID.String
		ev.Details = details.String
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

// --- Scan helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row *sql.Row) (*models.ProductionRecord, error) {
	rec, err := scanRecordRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanRecordRows(row rowScanner) (*models.ProductionRecord, error) {
	rec := &models.ProductionRecord{}
	var operacao, peca, codigo, motivo sql.NullString
	var closedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.Post, &rec.Matricula, &rec.ModelCode, &operacao, &peca, &codigo,
		&rec.Quantity, &rec.Status, &motivo, &rec.OpenedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	rec.Operation = operacao.String
	rec.Part = peca.String
	rec.ProductionCode = codigo.String
	rec.Reason = motivo.String
	if closedAt.Valid {
		rec.ClosedAt = &closedAt.Time
	}
	return rec, nil
}
