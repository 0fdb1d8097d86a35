package apim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultDesignID is the delivery template used for external opinions.
const DefaultDesignID = "B025E4EC-42A7-45EF-A879-22D6A6F91F52"

const subscriptionHeader = "Ocp-Apim-Subscription-Key"

// Client calls the send-design and send-registration services behind the API gateway.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	subscriptionKey string
	designID        string
}

// Option configures the client.
type Option func(*Client)

// WithDesignID overrides the delivery template id.
func WithDesignID(id string) Option {
	return func(c *Client) {
		if id = strings.TrimSpace(id); id != "" {
			c.designID = id
		}
	}
}

// NewClient instantiates the gateway client. A nil httpClient gets a traced client with a 10s timeout.
func NewClient(baseURL, subscriptionKey string, httpClient *http.Client, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("apim base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse apim base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	c := &Client{
		baseURL:         parsed,
		httpClient:      httpClient,
		subscriptionKey: subscriptionKey,
		designID:        DefaultDesignID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// RegistrationResponse is the body returned by the send-registration service.
type RegistrationResponse struct {
	Respuesta struct {
		FolioEnvio json.RawMessage `json:"folioEnvio"`
	} `json:"respuesta"`
}

// EnvioID returns the delivery id, accepting either a JSON string or number.
func (r RegistrationResponse) EnvioID() string {
	raw := bytes.TrimSpace(r.Respuesta.FolioEnvio)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

// GetSendDesign fetches the delivery template as a JSON object.
func (c *Client) GetSendDesign(ctx context.Context) (map[string]any, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("apim client not configured")
	}
	id, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, c.designID)
	if err != nil {
		return nil, err
	}
	var design map[string]any
	if err := c.do(ctx, http.MethodGet, "gestion-diseno-envios/v1/DisenoEnvios/"+id, nil, &design); err != nil {
		return nil, fmt.Errorf("get send design: %w", err)
	}
	if design == nil {
		return nil, errors.New("get send design: empty body")
	}
	return design, nil
}

// RegisterSend registers a delivery to the given entity and returns the service response.
func (c *Client) RegisterSend(ctx context.Context, entityID, entityType string, design map[string]any) (RegistrationResponse, error) {
	if c == nil || c.httpClient == nil {
		return RegistrationResponse{}, errors.New("apim client not configured")
	}
	idParam, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, entityID)
	if err != nil {
		return RegistrationResponse{}, err
	}
	typeParam, err := runtime.StyleParamWithLocation("simple", false, "tipo", runtime.ParamLocationPath, entityType)
	if err != nil {
		return RegistrationResponse{}, err
	}
	body, err := json.Marshal(design)
	if err != nil {
		return RegistrationResponse{}, fmt.Errorf("encode send design: %w", err)
	}
	var out RegistrationResponse
	path := fmt.Sprintf("gestor-de-envios/v1/GestorEnvios/%s/%s", idParam, typeParam)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return RegistrationResponse{}, fmt.Errorf("register send: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.subscriptionKey != "" {
		req.Header.Set(subscriptionHeader, c.subscriptionKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx answer from the gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
