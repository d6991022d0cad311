// Package session implements the kiosk production-session controller: the
// state machine a terminal drives from badge scan to production completion,
// including detection of externally cancelled records while a session is in
// progress.
package session

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/linhaops/linha/internal/models"
)

// PollInterval is the fixed cadence at which an open session re-checks its
// record on the backend.
const PollInterval = 5 * time.Second

// DisplayHold is the fixed duration of granted/denied/error banners. While a
// banner holds, input stays disabled; this is the only debounce against a
// badge being read twice in rapid succession.
const DisplayHold = 2 * time.Second

// ReasonOperatorZero is the fixed cancellation reason recorded when the
// operator submits a produced quantity of zero.
const ReasonOperatorZero = "cancelado pelo operador: quantidade zero"

// State identifies the current screen-level state of a session.
type State string

const (
	StateIdle              State = "idle"
	StateGranted           State = "granted"
	StateDenied            State = "denied"
	StateAwaitingOperation State = "awaiting_operation"
	StateSessionOpen       State = "session_open"
	StateSubmitting        State = "submitting"
	StateCancelled         State = "cancelled"
)

// Backend is the set of operations the session controller requires from the
// production backend. All reads are idempotent; the backend owns
// serialization of concurrent open/close attempts.
type Backend interface {
	ValidateBadge(ctx context.Context, badge string) (*models.Employee, error)
	ListKioskOperations(ctx context.Context) ([]models.KioskOperation, error)
	ListOperations(ctx context.Context) ([]models.OperationSpec, error)
	ListModels(ctx context.Context) ([]models.ProductModel, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	OpenRecord(ctx context.Context, post, matricula string) (*models.ProductionRecord, error)
	RegisterEntry(ctx context.Context, req models.EntryRequest) (*models.ProductionRecord, error)
	RegisterExit(ctx context.Context, post, matricula string, quantity int) error
	CancelRecord(ctx context.Context, recordID, reason string) error
}

// PollResult is the outcome of one open-record poll.
type PollResult int

const (
	// PollNoRecord means no record is open and none was ever observed.
	PollNoRecord PollResult = iota
	// PollRecordOpen means the open record is (still) present.
	PollRecordOpen
	// PollTripped means a previously observed record has disappeared: the
	// session is cancelled and must return to the badge gate.
	PollTripped
)

// Session is the client-local, ephemeral state of one operator session. It
// is created fresh at the badge gate and destroyed on every path back to it.
// The epoch counter identifies the current incarnation so that timers armed
// for a torn-down session can be discarded.
//
// Methods are safe for concurrent use: the UI loop reads state while timer
// commands drive polls.
type Session struct {
	backend Backend
	post    string // post the terminal is installed at

	mu        sync.Mutex
	state     State
	epoch     int
	employee  *models.Employee
	matricula string
	catalogs  *Catalogs
	bound     *BoundOperation

	snapshot   *models.ProductionRecord
	recordSeen bool
}

// New creates an idle session bound to a backend and a terminal post.
func New(backend Backend, post string) *Session {
	return &Session{
		backend: backend,
		post:    post,
		state:   StateIdle,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Epoch returns the current session incarnation. Reset bumps it.
func (s *Session) Epoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Employee returns the authenticated operator, or nil.
func (s *Session) Employee() *models.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.employee
}

// Matricula returns the resolved operator matricula for record keying.
func (s *Session) Matricula() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matricula
}

// Bound returns the currently bound operation, or nil.
func (s *Session) Bound() *BoundOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Snapshot returns the last observed open record, or nil. It is stale after
// any poll interval and must never be treated as authoritative.
func (s *Session) Snapshot() *models.ProductionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// HasOpenRecord reports whether the last check observed an open record.
func (s *Session) HasOpenRecord() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot != nil
}

// Catalogs returns the loaded catalogs, or nil before LoadCatalogs.
func (s *Session) Catalogs() *Catalogs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogs
}

// Authenticate validates a scanned badge and advances Idle to Granted, or to
// Denied on any failure. Empty input is rejected locally without a backend
// call and leaves the state unchanged.
func (s *Session) Authenticate(ctx context.Context, badge string) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.mu.Unlock()

	badge = strings.TrimSpace(badge)
	if badge == "" {
		return ErrEmptyBadge
	}

	emp, err := s.backend.ValidateBadge(ctx, badge)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateDenied
		return err
	}
	s.employee = emp
	s.matricula = emp.Matricula
	s.state = StateGranted
	return nil
}

// Advance moves Granted to AwaitingOperation once the access-granted display
// hold has elapsed.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateGranted {
		return ErrInvalidTransition
	}
	s.state = StateAwaitingOperation
	return nil
}

// Reset destroys all session state and returns to the badge gate. It is the
// single teardown path: every timer armed for the previous epoch becomes
// stale once Reset bumps the counter.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.state = StateIdle
	s.employee = nil
	s.matricula = ""
	s.catalogs = nil
	s.bound = nil
	s.snapshot = nil
	s.recordSeen = false
	s.epoch++
}

// LoadCatalogs fetches the kiosk operation list, the full operation catalog,
// the model catalog and the employee roster concurrently, then re-resolves
// the operator's matricula from the roster by display name. When the roster
// lookup misses, the matricula from badge validation is kept.
func (s *Session) LoadCatalogs(ctx context.Context) error {
	s.mu.Lock()
	if s.employee == nil {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	name := s.employee.Name
	post := s.post
	s.mu.Unlock()

	c := &Catalogs{FallbackPost: post}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		ops, err := s.backend.ListKioskOperations(ctx)
		if err != nil {
			fail(err)
			return
		}
		c.KioskOps = ops
	}()
	go func() {
		defer wg.Done()
		ops, err := s.backend.ListOperations(ctx)
		if err != nil {
			fail(err)
			return
		}
		c.Operations = ops
	}()
	go func() {
		defer wg.Done()
		pms, err := s.backend.ListModels(ctx)
		if err != nil {
			fail(err)
			return
		}
		c.Models = pms
	}()
	go func() {
		defer wg.Done()
		emps, err := s.backend.ListEmployees(ctx)
		if err != nil {
			fail(err)
			return
		}
		c.Employees = emps
	}()
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs = c
	if m := c.ResolveMatricula(name); m != "" {
		s.matricula = m
	}
	return nil
}

// Bind resolves an operation code against the loaded catalogs and fixes the
// binding for this session. Rebinding is only possible while no record is
// being worked; with an open record the UI offers finish, never start.
func (s *Session) Bind(code string) (*BoundOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingOperation || s.catalogs == nil {
		return nil, ErrInvalidTransition
	}
	bound, err := s.catalogs.Resolve(code)
	if err != nil {
		return nil, err
	}
	s.bound = bound
	return bound, nil
}

// recordKey returns the (post, matricula) pair the open record is keyed by.
// Before an operation is bound, the terminal's configured post is used.
func (s *Session) recordKey() (string, string) {
	post := s.post
	if s.bound != nil && s.bound.Post != "" {
		post = s.bound.Post
	}
	return post, s.matricula
}

// checkOpen re-reads the open record. Read failures fold into absence; the
// caller decides whether absence means "not started" or "cancelled". Called
// without the lock held.
func (s *Session) checkOpen(ctx context.Context, post, matricula string) *models.ProductionRecord {
	rec, err := s.backend.OpenRecord(ctx, post, matricula)
	if err != nil {
		return nil
	}
	return rec
}

// Poll re-issues the open-record existence check. A record that was observed
// on an earlier check and is now absent trips the cancellation trap: the
// session moves to Cancelled and cannot be resumed. Absence without a prior
// observation is not a trap; the operator simply has not started yet.
func (s *Session) Poll(ctx context.Context) PollResult {
	s.mu.Lock()
	switch s.state {
	case StateAwaitingOperation, StateSessionOpen, StateSubmitting:
	default:
		s.mu.Unlock()
		return PollNoRecord
	}
	post, matricula := s.recordKey()
	epoch := s.epoch
	s.mu.Unlock()

	rec := s.checkOpen(ctx, post, matricula)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// Session was torn down while the poll was in flight.
		return PollNoRecord
	}

	if rec != nil {
		s.snapshot = rec
		s.recordSeen = true
		return PollRecordOpen
	}

	s.snapshot = nil
	if s.recordSeen {
		s.state = StateCancelled
		return PollTripped
	}
	return PollNoRecord
}

// Start registers the entry for the bound operation. The open-record check
// is re-verified immediately before the call; the backend remains the sole
// arbiter of the race between the check and the entry registration.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAwaitingOperation {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if s.bound == nil || !s.bound.Complete() {
		s.mu.Unlock()
		return ErrIncompleteBinding
	}
	post, matricula := s.recordKey()
	req := models.EntryRequest{
		Post:           post,
		Matricula:      matricula,
		ModelCode:      s.bound.ModelCode,
		Operation:      s.bound.Code,
		Part:           s.bound.Part,
		ProductionCode: s.bound.ProductionCode,
	}
	s.mu.Unlock()

	if rec := s.checkOpen(ctx, post, matricula); rec != nil {
		s.mu.Lock()
		s.snapshot = rec
		s.recordSeen = true
		s.mu.Unlock()
		return ErrAlreadyOpen
	}

	created, err := s.backend.RegisterEntry(ctx, req)
	if err != nil {
		// The attempted state is discarded; as far as this session is
		// concerned no record exists.
		s.mu.Lock()
		s.snapshot = nil
		s.mu.Unlock()
		return err
	}

	// Re-poll once for the canonical snapshot; the created record stands in
	// if the read fails.
	rec := s.checkOpen(ctx, post, matricula)
	if rec == nil {
		rec = created
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = rec
	s.recordSeen = true
	s.state = StateSessionOpen
	return nil
}

// RequestFinish moves the session to the submitter screen. It is reachable
// from an open session, or directly from the binder when a pre-existing open
// record was observed (resume after re-authentication).
func (s *Session) RequestFinish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateSessionOpen:
	case s.state == StateAwaitingOperation && s.snapshot != nil:
	default:
		return ErrInvalidTransition
	}
	s.state = StateSubmitting
	return nil
}

// Submit closes or cancels the open record based on the produced quantity:
// zero cancels with the fixed operator reason, anything positive closes with
// that quantity. The record's existence is re-checked immediately before the
// write; if it is already gone the session is cancelled without submitting.
// Write failures are surfaced and leave the session in place for retry.
func (s *Session) Submit(ctx context.Context, quantity int) error {
	s.mu.Lock()
	if s.state != StateSubmitting {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if quantity < 0 {
		s.mu.Unlock()
		return ErrInvalidQuantity
	}
	post, matricula := s.recordKey()
	s.mu.Unlock()

	rec := s.checkOpen(ctx, post, matricula)
	if rec == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.snapshot = nil
		s.state = StateCancelled
		return ErrRecordGone
	}

	s.mu.Lock()
	s.snapshot = rec
	s.mu.Unlock()

	if quantity == 0 {
		if err := s.backend.CancelRecord(ctx, rec.ID, ReasonOperatorZero); err != nil {
			return err
		}
	} else {
		if err := s.backend.RegisterExit(ctx, post, matricula, quantity); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// ConfirmFinish is the badge-reconfirmation completion: the same matricula
// that opened the record must re-scan before the submission is honored. A
// mismatched badge is a hard rejection, distinct from an invalid badge.
func (s *Session) ConfirmFinish(ctx context.Context, badge string, quantity int) error {
	s.mu.Lock()
	if s.state != StateSubmitting {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	matricula := s.matricula
	s.mu.Unlock()

	badge = strings.TrimSpace(badge)
	if badge == "" {
		return ErrEmptyBadge
	}

	emp, err := s.backend.ValidateBadge(ctx, badge)
	if err != nil {
		return err
	}
	if emp.Matricula != matricula {
		return ErrBadgeMismatch
	}

	return s.Submit(ctx, quantity)
}

// ParseQuantity parses operator input into a produced quantity. Only
// non-negative integers are accepted; everything else is rejected locally
// before any backend call.
func ParseQuantity(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, ErrInvalidQuantity
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 0 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
