package casestatus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// StatusRequestFinalized is the case status id for "opinion request finalized".
	StatusRequestFinalized = 4
	// ActionRequestFinalized is the action recorded with that status.
	ActionRequestFinalized = "SOLICITUD_FINALIZADA"
)

// UpdateStatusRequest is the body accepted by the case status endpoint.
type UpdateStatusRequest struct {
	FolioAsunto     string `json:"FolioAsunto"`
	IdEstatusAsunto int    `json:"IdEstatusAsunto"`
	Accion          string `json:"Accion"`
}

// Client calls the case-tracking service.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient instantiates the case-tracking client. A nil httpClient gets a traced client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("case status base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{endpoint: baseURL + "/actualizarasunto/estatus", httpClient: httpClient}, nil
}

// UpdateStatus posts a status change for the case folio. Any non-2xx answer is an error.
func (c *Client) UpdateStatus(ctx context.Context, body UpdateStatusRequest) error {
	if c == nil || c.httpClient == nil {
		return errors.New("case status client not configured")
	}
	if strings.TrimSpace(body.FolioAsunto) == "" {
		return errors.New("case folio is required")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call case status service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("case status service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
