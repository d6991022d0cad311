package backend

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/linhaops/linha/internal/models"
	"github.com/linhaops/linha/internal/store"
)

// Server provides the HTTP API for the kiosk contract.
type Server struct {
	service *Service
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string) *Server {
	return &Server{
		service: service,
		addr:    addr,
	}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/badges/validate", s.handleValidateBadge)
	mux.HandleFunc("/operations/kiosk", s.handleKioskOperations)
	mux.HandleFunc("/operations", s.handleOperations)
	mux.HandleFunc("/models", s.handleModels)
	mux.HandleFunc("/employees", s.handleEmployees)
	mux.HandleFunc("/records", s.handleRecords)
	mux.HandleFunc("/records/", s.handleRecordSub)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting linha backend on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// --- Badge Handler ---

type validateBadgeRequest struct {
	Badge string `json:"badge"`
}

func (s *Server) handleValidateBadge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req validateBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Badge) == "" {
		http.Error(w, "badge required", http.StatusBadRequest)
		return
	}

	emp, err := s.service.ValidateBadge(strings.TrimSpace(req.Badge))
	if err != nil {
		if err == ErrBadgeUnknown {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, emp)
}

// --- Catalog Handlers ---

func (s *Server) handleKioskOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ops, err := s.service.ListKioskOperations()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ops == nil {
		ops = []models.KioskOperation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ops, err := s.service.ListOperations()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ops == nil {
		ops = []models.OperationSpec{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	pms, err := s.service.ListModels()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if pms == nil {
		pms = []models.ProductModel{}
	}
	writeJSON(w, http.StatusOK, pms)
}

func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	emps, err := s.service.ListEmployees()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if emps == nil {
		emps = []models.Employee{}
	}
	writeJSON(w, http.StatusOK, emps)
}

// --- Record Handlers ---

// handleRecords handles GET /records (list open records).
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	recs, err := s.service.ListOpenRecords()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []models.ProductionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleRecordSub handles /records/{open,entry,exit} and /records/{id}/cancel.
func (s *Server) handleRecordSub(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/records/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch {
	case parts[0] == "open" && r.Method == http.MethodGet:
		s.queryOpenRecord(w, r)
	case parts[0] == "entry" && r.Method == http.MethodPost:
		s.registerEntry(w, r)
	case parts[0] == "exit" && r.Method == http.MethodPost:
		s.registerExit(w, r)
	case len(parts) > 1 && parts[1] == "cancel" && r.Method == http.MethodPost:
		s.cancelRecord(w, r, parts[0])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) queryOpenRecord(w http.ResponseWriter, r *http.Request) {
	posto := r.URL.Query().Get("posto")
	matricula := r.URL.Query().Get("matricula")
	if posto == "" || matricula == "" {
		http.Error(w, "posto and matricula required", http.StatusBadRequest)
		return
	}

	rec, err := s.service.OpenRecord(posto, matricula)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "no open record", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) registerEntry(w http.ResponseWriter, r *http.Request) {
	var req models.EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Post == "" || req.Matricula == "" || req.ModelCode == "" {
		http.Error(w, "posto, matricula and modelo required", http.StatusBadRequest)
		return
	}

	rec, err := s.service.RegisterEntry(req)
	if err != nil {
		if err == store.ErrDuplicateOpen {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) registerExit(w http.ResponseWriter, r *http.Request) {
	var req models.ExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Post == "" || req.Matricula == "" {
		http.Error(w, "posto and matricula required", http.StatusBadRequest)
		return
	}
	if req.Quantity <= 0 {
		http.Error(w, "quantidade must be positive", http.StatusBadRequest)
		return
	}

	if err := s.service.RegisterExit(req); err != nil {
		if err == store.ErrNoOpenRecord {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"closed"}`))
}

type cancelRequest struct {
	Reason string `json:"motivo"`
}

func (s *Server) cancelRecord(w http.ResponseWriter, r *http.Request, recordID string) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		http.Error(w, "motivo required", http.StatusBadRequest)
		return
	}

	if err := s.service.CancelRecord(recordID, req.Reason); err != nil {
		if err == store.ErrNoOpenRecord {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"cancelled"}`))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
