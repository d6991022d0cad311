package backend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/linhaops/linha/internal/audit"
	"github.com/linhaops/linha/internal/models"
	"github.com/linhaops/linha/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return NewService(s, audit.NewTrailWriter(s)), s
}

func newTestServer(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	service, s := newTestService(t)
	if err := s.AddEmployee("M1", "Ana", "RF001"); err != nil {
		t.Fatalf("AddEmployee failed: %v", err)
	}

	ts := httptest.NewServer(NewServer(service, "").Handler())
	t.Cleanup(ts.Close)
	return service, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func testEntry() models.EntryRequest {
	return models.EntryRequest{
		Post:           "P3",
		Matricula:      "M1",
		ModelCode:      "MDX",
		Operation:      "OP-SOLDA",
		Part:           "PC1",
		ProductionCode: "COD1",
	}
}

func TestValidateBadgeEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/badges/validate", map[string]string{"badge": "RF001"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var emp models.Employee
	if err := json.NewDecoder(resp.Body).Decode(&emp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if emp.Matricula != "M1" || emp.Name != "Ana" {
		t.Errorf("Unexpected employee: %+v", emp)
	}

	resp = postJSON(t, ts.URL+"/badges/validate", map[string]string{"badge": "RF999"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown badge, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/badges/validate", map[string]string{"badge": "  "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty badge, got %d", resp.StatusCode)
	}
}

func TestEntryConflict(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/records/entry", testEntry())
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	// A second open for the same (posto, matricula) loses.
	resp = postJSON(t, ts.URL+"/records/entry", testEntry())
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate open, got %d", resp.StatusCode)
	}
}

func TestOpenRecordQuery(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/records/open?posto=P3&matricula=M1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 with no open record, got %d", resp.StatusCode)
	}

	postJSON(t, ts.URL+"/records/entry", testEntry()).Body.Close()

	resp, err = http.Get(ts.URL + "/records/open?posto=P3&matricula=M1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var rec models.ProductionRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if rec.Post != "P3" || rec.Matricula != "M1" || rec.Status != models.RecordStatusOpen {
		t.Errorf("Unexpected record: %+v", rec)
	}

	resp, err = http.Get(ts.URL + "/records/open?posto=P3")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing matricula, got %d", resp.StatusCode)
	}
}

func TestExitFlow(t *testing.T) {
	_, ts := newTestServer(t)

	postJSON(t, ts.URL+"/records/entry", testEntry()).Body.Close()

	exit := models.ExitRequest{Post: "P3", Matricula: "M1", Quantity: 12}
	resp := postJSON(t, ts.URL+"/records/exit", exit)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	// Record already closed.
	resp = postJSON(t, ts.URL+"/records/exit", exit)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for closed record, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/records/exit", models.ExitRequest{Post: "P3", Matricula: "M1", Quantity: 0})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for zero quantity, got %d", resp.StatusCode)
	}
}

func TestCancelEndpoint(t *testing.T) {
	service, ts := newTestServer(t)

	postJSON(t, ts.URL+"/records/entry", testEntry()).Body.Close()
	rec, err := service.OpenRecord("P3", "M1")
	if err != nil || rec == nil {
		t.Fatalf("OpenRecord failed: %v %v", rec, err)
	}

	resp := postJSON(t, ts.URL+"/records/"+rec.ID+"/cancel", map[string]string{"motivo": "supervisor"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/records/"+rec.ID+"/cancel", map[string]string{"motivo": "de novo"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for already cancelled record, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/records/"+rec.ID+"/cancel", map[string]string{"motivo": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty motivo, got %d", resp.StatusCode)
	}
}

func TestCatalogEndpointsEmpty(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/operations/kiosk", "/operations", "/models", "/records"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		body := json.NewDecoder(resp.Body)
		var out []interface{}
		if err := body.Decode(&out); err != nil {
			t.Errorf("GET %s: expected JSON array, decode failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
		if out == nil {
			t.Errorf("GET %s: expected empty array, got null", path)
		}
	}
}

func TestCancelStaleRecords(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.RegisterEntry(testEntry()); err != nil {
		t.Fatalf("RegisterEntry failed: %v", err)
	}

	// Nothing older than an hour ago.
	n, err := service.CancelStaleRecords(time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CancelStaleRecords failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 cancelled, got %d", n)
	}

	n, err = service.CancelStaleRecords(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("CancelStaleRecords failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 cancelled, got %d", n)
	}

	rec, err := service.OpenRecord("P3", "M1")
	if err != nil {
		t.Fatalf("OpenRecord failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Expected record to be cancelled, still open: %+v", rec)
	}
}

func TestSeedIdempotent(t *testing.T) {
	_, s := newTestService(t)

	if err := Seed(s); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	emps, err := s.ListEmployees()
	if err != nil {
		t.Fatalf("ListEmployees failed: %v", err)
	}
	if len(emps) == 0 {
		t.Fatal("Expected seeded employees")
	}

	if err := Seed(s); err != nil {
		t.Fatalf("Second Seed failed: %v", err)
	}
	again, _ := s.ListEmployees()
	if len(again) != len(emps) {
		t.Errorf("Seed is not idempotent: %d vs %d employees", len(again), len(emps))
	}
}
