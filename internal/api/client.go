// Package api provides the HTTP client for the kiosk backend contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/linhaops/linha/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// ErrNotFound indicates the requested entity does not exist on the backend.
// Badge validation and open-record queries return it for 404 responses so
// callers can distinguish "absent" from transport failure.
var ErrNotFound = errors.New("not found")

// Client wraps HTTP calls to the production backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with the default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// ValidateBadge resolves a scanned badge code to an employee.
func (c *Client) ValidateBadge(ctx context.Context, badge string) (*models.Employee, error) {
	body, err := c.post(ctx, "/badges/validate", map[string]string{"badge": badge})
	if err != nil {
		return nil, err
	}

	var emp models.Employee
	if err := json.Unmarshal(body, &emp); err != nil {
		return nil, fmt.Errorf("decode employee: %w", err)
	}
	return &emp, nil
}

// ListKioskOperations fetches the lightweight operation catalog.
func (c *Client) ListKioskOperations(ctx context.Context) ([]models.KioskOperation, error) {
	var ops []models.KioskOperation
	if err := c.getJSON(ctx, "/operations/kiosk", &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// ListOperations fetches the full operation catalog with post bindings.
func (c *Client) ListOperations(ctx context.Context) ([]models.OperationSpec, error) {
	var ops []models.OperationSpec
	if err := c.getJSON(ctx, "/operations", &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// ListModels fetches the model catalog.
func (c *Client) ListModels(ctx context.Context) ([]models.ProductModel, error) {
	var pms []models.ProductModel
	if err := c.getJSON(ctx, "/models", &pms); err != nil {
		return nil, err
	}
	return pms, nil
}

// ListEmployees fetches the employee roster.
func (c *Client) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var emps []models.Employee
	if err := c.getJSON(ctx, "/employees", &emps); err != nil {
		return nil, err
	}
	return emps, nil
}

// OpenRecord queries the open production record for a (post, matricula)
// pair. It returns ErrNotFound when no record is open.
func (c *Client) OpenRecord(ctx context.Context, post, matricula string) (*models.ProductionRecord, error) {
	q := url.Values{}
	q.Set("posto", post)
	q.Set("matricula", matricula)

	var rec models.ProductionRecord
	if err := c.getJSON(ctx, "/records/open?"+q.Encode(), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListOpenRecords fetches all currently open records.
func (c *Client) ListOpenRecords(ctx context.Context) ([]models.ProductionRecord, error) {
	var recs []models.ProductionRecord
	if err := c.getJSON(ctx, "/records", &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// RegisterEntry opens a production record. The backend rejects the call when
// an open record already exists for the (post, matricula) pair.
func (c *Client) RegisterEntry(ctx context.Context, req models.EntryRequest) (*models.ProductionRecord, error) {
	body, err := c.post(ctx, "/records/entry", req)
	if err != nil {
		return nil, err
	}

	var rec models.ProductionRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

// RegisterExit closes the open record for (post, matricula) with the
// produced quantity.
func (c *Client) RegisterExit(ctx context.Context, post, matricula string, quantity int) error {
	_, err := c.post(ctx, "/records/exit", models.ExitRequest{
		Post:      post,
		Matricula: matricula,
		Quantity:  quantity,
	})
	return err
}

// CancelRecord cancels a record with a reason.
func (c *Client) CancelRecord(ctx context.Context, recordID, reason string) error {
	_, err := c.post(ctx, "/records/"+recordID+"/cancel", map[string]string{"motivo": reason})
	return err
}

// CheckHealth checks that the backend is reachable and healthy.
func (c *Client) CheckHealth(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s", string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string, data interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	return body, nil
}
