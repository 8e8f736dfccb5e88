package maevex

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mxtools/maevexctl/internal/logging"
)

const (
	// DefaultTimeout is the default per-request HTTP timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	apiPrefix = "/api/v1"
)

// Client is the management client for a single Maevex appliance.
type Client struct {
	// BaseURL is the base URL for the appliance (e.g., "https://192.168.1.20")
	BaseURL string

	// Username for HTTP Basic Auth
	Username string

	// Password for HTTP Basic Auth
	Password string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	host string
}

// NewClient creates a management client for the appliance at host.
// host is a canonical host literal (IPv6 literals bracketed); the
// management surface is always HTTPS.
func NewClient(host string) *Client {
	c := NewClientWithURL(fmt.Sprintf("https://%s", host))
	c.host = host
	return c
}

// NewClientWithURL creates a client with a full base URL.
// Used by tests and for appliances on non-standard ports.
func NewClientWithURL(baseURL string) *Client {
	// Appliances ship self-signed certificates and operators rarely
	// install them, so certificate verification stays off.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	}

	return &Client{
		BaseURL:               baseURL,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout, Transport: transport},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetAuth sets the HTTP Basic Auth credentials for this appliance
func (c *Client) SetAuth(username, password string) {
	c.Username = username
	c.Password = password
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping performs a simple reachability check against the appliance.
// Returns nil if the appliance answers the info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Info(ctx)
	return err
}

// Info retrieves the appliance identity block
func (c *Client) Info(ctx context.Context) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := c.getJSON(ctx, apiPrefix+"/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// State retrieves one coherent snapshot of info, settings and mark map
func (c *Client) State(ctx context.Context) (*State, error) {
	var state State
	if err := c.getJSON(ctx, apiPrefix+"/state", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Settings retrieves the current appliance settings
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if err := c.getJSON(ctx, apiPrefix+"/settings", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// MarkMap retrieves the current record-mark map
func (c *Client) MarkMap(ctx context.Context) (*MarkMap, error) {
	var marks MarkMap
	if err := c.getJSON(ctx, apiPrefix+"/markmap", &marks); err != nil {
		return nil, err
	}
	return &marks, nil
}

// ListLocalFiles retrieves the appliance's local-storage file listing
func (c *Client) ListLocalFiles(ctx context.Context) ([]LocalFile, error) {
	var files []LocalFile
	if err := c.getJSON(ctx, apiPrefix+"/storage/files", &files); err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteAllLocalFiles deletes every file in the appliance's local storage
func (c *Client) DeleteAllLocalFiles(ctx context.Context) error {
	return c.withRetry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodDelete, apiPrefix+"/storage/files", nil)
		if err != nil {
			return err
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return NewNetworkError("DELETE request failed", err)
		}
		defer func() { _ = resp.Body.Close() }()

		return c.checkStatus(resp, http.StatusOK, http.StatusNoContent)
	})
}

// applyEnvelope is the wire format of a settings apply: the cloned mark
// map always rides along with the settings.
type applyEnvelope struct {
	MarkMap  *MarkMap  `json:"markMap"`
	Settings *Settings `json:"settings"`
}

// ApplySettings submits edited settings together with the mark map they
// were cloned against. A non-OK ApplyStatus is a normal, non-error
// outcome: the appliance refused the settings and the caller decides what
// to report. Errors are reserved for transport and protocol failures.
func (c *Client) ApplySettings(ctx context.Context, marks *MarkMap, settings *Settings) (*ApplyResult, error) {
	if settings == nil {
		return nil, NewValidationError("settings must not be nil")
	}
	if errs := ValidateSettings(settings); len(errs) > 0 {
		return nil, NewValidationError(fmt.Sprintf("settings failed validation: %v", errs[0]))
	}

	body, err := json.Marshal(applyEnvelope{MarkMap: marks, Settings: settings})
	if err != nil {
		return nil, NewParseError("failed to encode settings", err)
	}

	var result ApplyResult
	err = c.withRetry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodPut, apiPrefix+"/settings", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return NewNetworkError("PUT request failed", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if err := c.checkStatus(resp, http.StatusOK); err != nil {
			return err
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return NewNetworkError("failed to read response body", err)
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return NewParseError("failed to parse apply result", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// getJSON performs a GET with retries and decodes the JSON response into out
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.withRetry(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		logging.LogDeviceRequest(c.host, http.MethodGet, path)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return NewNetworkError("GET request failed", err)
		}
		defer func() { _ = resp.Body.Close() }()

		logging.LogDeviceResponse(c.host, http.MethodGet, path, resp.StatusCode)

		if err := c.checkStatus(resp, http.StatusOK); err != nil {
			return err
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return NewNetworkError("failed to read response body", err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return NewParseError("failed to parse JSON response", err)
		}
		return nil
	})
}

// newRequest builds an authenticated request against the appliance
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	return req, nil
}

// checkStatus maps unexpected status codes onto the error taxonomy
func (c *Client) checkStatus(resp *http.Response, accept ...int) error {
	for _, code := range accept {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return NewAuthError("authentication failed (check credentials)")
	}
	return NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
}

// withRetry runs attempt with exponential backoff, giving up on
// non-retryable errors and when the context expires.
func (c *Client) withRetry(ctx context.Context, attempt func() error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for try := 0; try <= c.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-time.After(currentDelay):
			case <-ctx.Done():
				return classifyNetworkError(ctx.Err(), c.host)
			}
			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}
