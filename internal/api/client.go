// Package api implements the JSON-over-HTTPS client for the Fluence VM
// marketplace API. Unknown response fields are ignored so the client
// tolerates server-side schema evolution.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"fvm/internal/logging"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.fluence.dev"

// DefaultMinRequestInterval spaces consecutive requests so a polling
// loop cannot hammer the API.
const DefaultMinRequestInterval = 500 * time.Millisecond

// Client issues authenticated requests against the Fluence API.
//
// There is no retry policy: a transport error is surfaced immediately
// and retry decisions are left to the caller. The client is meant for
// single-threaded use; one invocation constructs its own client.
type Client struct {
	// MinRequestInterval is the minimum spacing between requests.
	// Tests set it to zero.
	MinRequestInterval time.Duration

	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
	logger     *zap.Logger

	// The throttle is shared across goroutines when metadata fetches
	// fan out, so spacing is enforced under a lock.
	mu          sync.Mutex
	lastRequest time.Time
	sleep       func(time.Duration)
}

// New creates a client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = 0 // surface transport errors, callers own retry decisions
	hc.Logger = nil
	// Hand back 5xx responses instead of a "giving up" error so they
	// can be classified from the status code.
	hc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		return false, err
	}

	return &Client{
		MinRequestInterval: DefaultMinRequestInterval,
		baseURL:            strings.TrimRight(baseURL, "/"),
		apiKey:             apiKey,
		httpClient:         hc,
		logger:             logging.Logger(),
		sleep:              time.Sleep,
	}
}

// throttle enforces the minimum spacing between consecutive requests.
func (c *Client) throttle() {
	if c.MinRequestInterval <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastRequest.IsZero() {
		if since := time.Since(c.lastRequest); since < c.MinRequestInterval {
			c.sleep(c.MinRequestInterval - since)
		}
	}
	c.lastRequest = time.Now()
}

// errorEnvelope is the error body shape the API uses for failures.
type errorEnvelope struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
	}

	c.throttle()

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("url", url),
		zap.ByteString("body", payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("api response",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", data))

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Op:         op,
		}
		var envelope errorEnvelope
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			apiErr.Detail = envelope.Error
		} else if detail := strings.TrimSpace(string(data)); detail != "" {
			apiErr.Detail = detail
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// CreateVM submits a create request. The API answers with an array of
// created instances even for a single-instance request.
func (c *Client) CreateVM(ctx context.Context, req CreateVMRequest) ([]CreatedVM, error) {
	var created []CreatedVM
	if err := c.do(ctx, "POST", "vms/v3", req, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// ListVMs lists all VMs owned by the key.
func (c *Client) ListVMs(ctx context.Context) ([]VM, error) {
	var vms []VM
	if err := c.do(ctx, "GET", "vms/v3", nil, &vms); err != nil {
		return nil, err
	}
	return vms, nil
}

// GetVM returns the VM with the given id. The API has no per-VM read
// endpoint, so the list is fetched and the id selected from it,
// case-insensitively.
func (c *Client) GetVM(ctx context.Context, id string) (*VM, error) {
	vms, err := c.ListVMs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range vms {
		if strings.EqualFold(vms[i].ID, id) {
			return &vms[i], nil
		}
	}
	return nil, &Error{
		Kind:   KindNotFound,
		Op:     "GET vms/v3",
		Detail: fmt.Sprintf("VM %s not found", id),
	}
}

// DeleteVMs deletes the given VMs. The id set travels in the request
// body, not the URL.
func (c *Client) DeleteVMs(ctx context.Context, ids ...string) error {
	return c.do(ctx, "DELETE", "vms/v3", DeleteVMRequest{VMIDs: ids}, nil)
}

// UpdateVM applies a patch (name and/or open ports) to one VM.
func (c *Client) UpdateVM(ctx context.Context, patch VMPatch) error {
	return c.do(ctx, "PATCH", "vms/v3", UpdateVMRequest{Updates: []VMPatch{patch}}, nil)
}

// EstimateVM prices the given constraints without creating anything.
func (c *Client) EstimateVM(ctx context.Context, req EstimateRequest) (*PriceQuote, error) {
	var quote PriceQuote
	if err := c.do(ctx, "POST", "vms/v3/estimate", req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// DefaultImages lists the curated OS images.
func (c *Client) DefaultImages(ctx context.Context) ([]OSImage, error) {
	var images []OSImage
	if err := c.do(ctx, "GET", "vms/v3/default-images", nil, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// Countries lists the country codes with marketplace capacity.
func (c *Client) Countries(ctx context.Context) ([]string, error) {
	var countries []string
	if err := c.do(ctx, "GET", "marketplace/v3/countries", nil, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// HardwareOptions lists the hardware available on the marketplace.
func (c *Client) HardwareOptions(ctx context.Context) (*HardwareOptions, error) {
	var hw HardwareOptions
	if err := c.do(ctx, "GET", "marketplace/v3/hardware", nil, &hw); err != nil {
		return nil, err
	}
	return &hw, nil
}

// BasicConfigurations lists the cpu-ram-storage configuration slugs.
func (c *Client) BasicConfigurations(ctx context.Context) ([]string, error) {
	var configs []string
	if err := c.do(ctx, "GET", "marketplace/v3/basic-configurations", nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// Offers lists marketplace offers matching the constraints.
func (c *Client) Offers(ctx context.Context, req OffersRequest) ([]Offer, error) {
	var offers []Offer
	if err := c.do(ctx, "POST", "marketplace/v3/offers", req, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}
