package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RESTClient interface defines the Home Assistant API operations the engine
// needs: bulk state pulls for telemetry, service calls for relay and TTS
// control.
type RESTClient interface {
	GetConfig(ctx context.Context) (*HAConfig, error)
	GetStates(ctx context.Context) ([]EntityState, error)
	GetState(ctx context.Context, entityID string) (*EntityState, error)

	CallService(ctx context.Context, domain, service string, data map[string]interface{}) error

	// Switch helpers used by the shutoff engine and the manual test hooks.
	TurnOffSwitches(ctx context.Context, entityIDs []string) error
	TurnOnSwitches(ctx context.Context, entityIDs []string) error

	// Raw API call for extensibility
	DoRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error)
}

// Options tune the client's timeout and retry behaviour.
type Options struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// restClient implements RESTClient
type restClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger

	requestTimeout time.Duration
	maxRetries     int
	retryDelay     time.Duration
	maxRetryDelay  time.Duration
}

// NewRESTClient creates a new REST client
func NewRESTClient(baseURL, token string, opts Options, logger *logrus.Logger) RESTClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = 10 * time.Second
	}
	return &restClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger:         logger,
		requestTimeout: opts.Timeout,
		maxRetries:     opts.MaxRetries,
		retryDelay:     opts.RetryDelay,
		maxRetryDelay:  opts.MaxRetryDelay,
	}
}

// GetConfig retrieves Home Assistant configuration
func (c *restClient) GetConfig(ctx context.Context) (*HAConfig, error) {
	data, err := c.DoRequest(ctx, "GET", "/api/config", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	var config HAConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewHAError(0, "Failed to parse config response", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return &config, nil
}

// GetStates retrieves all entity states
func (c *restClient) GetStates(ctx context.Context) ([]EntityState, error) {
	data, err := c.DoRequest(ctx, "GET", "/api/states", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get states: %w", err)
	}

	var states []EntityState
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, NewHAError(0, "Failed to parse states response", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.logger.WithField("count", len(states)).Debug("Retrieved entity states")
	return states, nil
}

// GetState retrieves a specific entity state
func (c *restClient) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	path := fmt.Sprintf("/api/states/%s", entityID)
	data, err := c.DoRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get state for entity %s: %w", entityID, err)
	}

	var state EntityState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, NewHAError(0, "Failed to parse state response", map[string]interface{}{
			"entity_id": entityID,
			"error":     err.Error(),
		})
	}

	return &state, nil
}

// CallService calls a Home Assistant service
func (c *restClient) CallService(ctx context.Context, domain, service string, data map[string]interface{}) error {
	c.logger.WithFields(logrus.Fields{
		"domain":  domain,
		"service": service,
	}).Debug("Calling Home Assistant service")

	path := fmt.Sprintf("/api/services/%s/%s", domain, service)

	body := make(map[string]interface{})
	for k, v := range data {
		body[k] = v
	}

	if _, err := c.DoRequest(ctx, "POST", path, body); err != nil {
		return fmt.Errorf("failed to call service %s.%s: %w", domain, service, err)
	}

	return nil
}

// TurnOffSwitches opens the relays of all given switch entities in one call.
func (c *restClient) TurnOffSwitches(ctx context.Context, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}
	return c.CallService(ctx, "switch", "turn_off", map[string]interface{}{
		"entity_id": entityIDs,
	})
}

// TurnOnSwitches closes the relays of all given switch entities in one call.
func (c *restClient) TurnOnSwitches(ctx context.Context, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}
	return c.CallService(ctx, "switch", "turn_on", map[string]interface{}{
		"entity_id": entityIDs,
	})
}

// DoRequest performs a raw HTTP request with retry logic and proper error handling
func (c *restClient) DoRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, NewHAError(0, "Failed to marshal request body", map[string]interface{}{
				"error": err.Error(),
			})
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	var lastErr error
	retryDelay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}

			// Exponential backoff
			retryDelay *= 2
			if retryDelay > c.maxRetryDelay {
				retryDelay = c.maxRetryDelay
			}

			// Reset body reader for retry
			if body != nil {
				jsonBody, _ := json.Marshal(body)
				bodyReader = bytes.NewReader(jsonBody)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			lastErr = NewHAError(0, "Failed to create request", map[string]interface{}{
				"error": err.Error(),
				"url":   url,
			})
			continue
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = NewHAError(0, "HTTP request failed", map[string]interface{}{
				"error":   err.Error(),
				"url":     url,
				"attempt": attempt + 1,
			})

			c.logger.WithFields(logrus.Fields{
				"error":   err.Error(),
				"attempt": attempt + 1,
			}).Warn("HTTP request failed, will retry")
			continue
		}

		responseBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = NewHAError(0, "Failed to read response body", map[string]interface{}{
				"error":       err.Error(),
				"status_code": resp.StatusCode,
			})
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return responseBody, nil
		}

		switch resp.StatusCode {
		case 401:
			return nil, ErrUnauthorized
		case 404:
			return nil, ErrEntityNotFound
		case 429:
			// Rate limited - wait longer before retry
			retryDelay = 5 * time.Second
			lastErr = NewHAError(resp.StatusCode, "Rate limited", map[string]interface{}{
				"response": string(responseBody),
			})
			continue
		default:
			// Retry server errors, fail client errors immediately.
			if resp.StatusCode >= 500 {
				lastErr = NewHAError(resp.StatusCode, "Server error", map[string]interface{}{
					"response": string(responseBody),
				})
				continue
			}

			return nil, NewHAError(resp.StatusCode, "Client error", map[string]interface{}{
				"response": string(responseBody),
			})
		}
	}

	c.logger.WithError(lastErr).Error("All retry attempts failed")
	return nil, lastErr
}
