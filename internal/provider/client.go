package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jason-czar/freedomains/internal/dnsspec"
)

const defaultTimeout = 15 * time.Second

// Client talks to the DNS gateway: a single endpoint speaking
// {action, subdomain, domain, records?, nameservers?, record_id?, record?}
// requests and {success, ...payload, errors?} responses. Credentials and the
// parent zone are injected here; business logic never reads them ambiently.
type Client struct {
	baseURL      string
	apiToken     string
	parentDomain string
	client       *http.Client
}

// Config holds the gateway connection settings
type Config struct {
	BaseURL      string
	APIToken     string
	ParentDomain string
	Timeout      time.Duration
}

// NewClient creates a gateway client with a bounded per-request timeout.
// A single stuck call must not hang the reconciler indefinitely.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiToken:     cfg.APIToken,
		parentDomain: cfg.ParentDomain,
		client:       &http.Client{Timeout: timeout},
	}
}

// ParentDomain returns the zone this client operates on
func (c *Client) ParentDomain() string {
	return c.parentDomain
}

// Record is a record as the gateway reports it
type Record struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	TTL      int    `json:"ttl"`
	Priority int    `json:"priority,omitempty"`
	Proxied  bool   `json:"proxied"`
}

// ZoneSettings are the zone-wide posture defaults applied after address
// records change
type ZoneSettings struct {
	SSLMode         string `json:"ssl_mode"`
	ForceHTTPS      bool   `json:"force_https"`
	MinTLSVersion   string `json:"min_tls_version"`
	Brotli          bool   `json:"brotli"`
	BrowserCacheTTL int    `json:"browser_cache_ttl"`
}

type apiRequest struct {
	Action      string          `json:"action"`
	Subdomain   string          `json:"subdomain,omitempty"`
	Domain      string          `json:"domain,omitempty"`
	Records     []recordPayload `json:"records,omitempty"`
	Nameservers []string        `json:"nameservers,omitempty"`
	RecordID    string          `json:"record_id,omitempty"`
	Record      *recordPayload  `json:"record,omitempty"`
	Settings    *ZoneSettings   `json:"settings,omitempty"`
}

type recordPayload struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	TTL      int    `json:"ttl"`
	Priority int    `json:"priority,omitempty"`
	Proxied  bool   `json:"proxied"`
	Redirect string `json:"redirect,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Success   bool            `json:"success"`
	Errors    []apiError      `json:"errors,omitempty"`
	Available *bool           `json:"available,omitempty"`
	Verified  *bool           `json:"verified,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
	Records   json.RawMessage `json:"records,omitempty"`
}

// CheckAvailable reports whether label is still unclaimed at the provider
func (c *Client) CheckAvailable(ctx context.Context, label string) (bool, error) {
	resp, err := c.call(ctx, apiRequest{
		Action:    "check",
		Subdomain: label,
		Domain:    c.parentDomain,
	})
	if err != nil {
		return false, err
	}
	return resp.Available != nil && *resp.Available, nil
}

// ListRecords lists all records at the given fully qualified name
func (c *Client) ListRecords(ctx context.Context, fqdn string) ([]Record, error) {
	resp, err := c.call(ctx, apiRequest{
		Action:    "list_records",
		Subdomain: c.relative(fqdn),
		Domain:    c.parentDomain,
	})
	if err != nil {
		return nil, err
	}
	var records []Record
	if len(resp.Records) > 0 {
		if err := json.Unmarshal(resp.Records, &records); err != nil {
			return nil, fmt.Errorf("failed to parse records: %w", err)
		}
	}
	return records, nil
}

// CreateRecord creates a single record and returns it with its provider ID
func (c *Client) CreateRecord(ctx context.Context, spec dnsspec.RecordSpec) (Record, error) {
	payload := toPayload(spec)
	resp, err := c.mutate(ctx, apiRequest{
		Action:    "add_record",
		Subdomain: c.relative(spec.Name),
		Domain:    c.parentDomain,
		Record:    &payload,
	})
	if err != nil {
		return Record{}, err
	}
	return decodeRecord(resp.Record)
}

// UpdateRecord replaces the record identified by recordID with spec
func (c *Client) UpdateRecord(ctx context.Context, recordID string, spec dnsspec.RecordSpec) (Record, error) {
	payload := toPayload(spec)
	resp, err := c.mutate(ctx, apiRequest{
		Action:    "update_record",
		Subdomain: c.relative(spec.Name),
		Domain:    c.parentDomain,
		RecordID:  recordID,
		Record:    &payload,
	})
	if err != nil {
		return Record{}, err
	}
	return decodeRecord(resp.Record)
}

// DeleteRecord deletes a record by its provider ID. A record that is
// already gone is reported as success: deletion is idempotent.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	_, err := c.mutate(ctx, apiRequest{
		Action:   "delete_record",
		Domain:   c.parentDomain,
		RecordID: recordID,
	})
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		for _, msg := range rejected.Messages {
			if strings.Contains(strings.ToLower(msg), "not found") {
				return nil
			}
		}
	}
	return err
}

// Verify asks the provider whether the main record at fqdn resolves
func (c *Client) Verify(ctx context.Context, fqdn string) (bool, error) {
	resp, err := c.call(ctx, apiRequest{
		Action:    "verify",
		Subdomain: c.relative(fqdn),
		Domain:    c.parentDomain,
	})
	if err != nil {
		return false, err
	}
	return resp.Verified != nil && *resp.Verified, nil
}

// CheckPlatform asks the deployment platform whether it sees the ownership
// verification record for fqdn
func (c *Client) CheckPlatform(ctx context.Context, fqdn string) (bool, error) {
	resp, err := c.call(ctx, apiRequest{
		Action:    "check_vercel",
		Subdomain: c.relative(fqdn),
		Domain:    c.parentDomain,
	})
	if err != nil {
		return false, err
	}
	return resp.Verified != nil && *resp.Verified, nil
}

// ApplyZoneSettings pushes zone-wide posture defaults (SSL mode, HTTPS
// redirect, minimum TLS, compression, cache TTL)
func (c *Client) ApplyZoneSettings(ctx context.Context, settings ZoneSettings) error {
	_, err := c.mutate(ctx, apiRequest{
		Action:   "zone_settings",
		Domain:   c.parentDomain,
		Settings: &settings,
	})
	return err
}

// mutate issues a state-changing action on a context detached from the
// caller's cancellation. An aborted in-flight mutation leaves the provider
// in an unknown state, and a cancelled request context would also abort the
// rollback deletes that clean up after it. The HTTP client's own timeout
// still bounds every call.
func (c *Client) mutate(ctx context.Context, req apiRequest) (*apiResponse, error) {
	return c.call(context.WithoutCancel(ctx), req)
}

func (c *Client) call(ctx context.Context, req apiRequest) (*apiResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("action %q: %w", req.Action, ErrTimeout)
		}
		return nil, fmt.Errorf("action %q: %w", req.Action, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("action %q: status %d: %w", req.Action, resp.StatusCode, ErrUnavailable)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !apiResp.Success {
		rejected := &RejectedError{Action: req.Action}
		for _, e := range apiResp.Errors {
			rejected.Messages = append(rejected.Messages, fmt.Sprintf("[%d] %s", e.Code, e.Message))
		}
		return nil, rejected
	}

	return &apiResp, nil
}

// relative strips the parent zone suffix: the gateway expects names in the
// subdomain field relative to its zone.
func (c *Client) relative(fqdn string) string {
	fqdn = strings.TrimSuffix(fqdn, ".")
	if fqdn == c.parentDomain {
		return "@"
	}
	return strings.TrimSuffix(fqdn, "."+c.parentDomain)
}

func toPayload(spec dnsspec.RecordSpec) recordPayload {
	return recordPayload{
		Type:     string(spec.Type),
		Name:     spec.Name,
		Content:  spec.Content,
		TTL:      spec.TTL,
		Priority: spec.Priority,
		Proxied:  spec.Proxied,
		Redirect: string(spec.Redirect),
	}
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var record Record
	if len(raw) == 0 {
		return record, fmt.Errorf("gateway response missing record payload")
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return record, fmt.Errorf("failed to parse record: %w", err)
	}
	return record, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
