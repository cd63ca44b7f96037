package pocketbase

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
	"sync"

	internalrealtime "github.com/rmacdonaldsmith/pocketbase-realtime-go/internal/realtime"
	"github.com/rmacdonaldsmith/pocketbase-realtime-go/internal/subscription"
	"github.com/rmacdonaldsmith/pocketbase-realtime-go/pkg/realtime"
	"go.uber.org/zap"
)

var _ realtime.Registrar = (*Client)(nil)

// Client provides access to the PocketBase realtime API
type Client struct {
	config       Config
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      *url.URL
	logger       *zap.Logger
	registry     realtime.Registry

	tokenMu sync.RWMutex
	token   string

	mu   sync.Mutex
	conn *internalrealtime.Connection
}

// NewClient creates a new PocketBase client. No connection is opened until
// the first Subscribe.
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, errors.New("ServerURL is required")
	}

	baseURL, err := url.Parse(strings.TrimRight(config.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid ServerURL: %q must be absolute", config.ServerURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	// The stream lives as long as the connection, so it shares the transport
	// but never the request timeout.
	streamClient := &http.Client{
		Transport:     httpClient.Transport,
		CheckRedirect: httpClient.CheckRedirect,
		Jar:           httpClient.Jar,
	}

	return &Client{
		config:       config,
		httpClient:   httpClient,
		streamClient: streamClient,
		baseURL:      baseURL,
		logger:       config.Logger,
		registry:     subscription.NewInMemoryRegistry(config.Logger),
		token:        config.Token,
	}, nil
}

// SetToken replaces the token used for subsequent requests
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = token
}

// Token returns the current authentication token
func (c *Client) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// IsAuthenticated returns whether a token is set
func (c *Client) IsAuthenticated() bool {
	return c.Token() != ""
}

// SendPost posts body as JSON to path and returns the raw response body.
// Status codes >= 400 produce an *APIError when the body is a PocketBase
// error object; every other failure is a *RequestFailedError.
func (c *Client) SendPost(ctx context.Context, path string, body interface{}) ([]byte, error) {
	status, respBody, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	if status >= 400 {
		if apiErr := decodeAPIError(status, respBody); apiErr != nil {
			return nil, apiErr
		}
		return nil, &RequestFailedError{
			Method: http.MethodPost,
			Path:   path,
			Err:    fmt.Errorf("unexpected status %d: %s", status, respBody),
		}
	}

	return respBody, nil
}

// SubmitSubscriptions sends the full topic set of clientID to the realtime
// endpoint. The server answers an accepted registration with an empty or
// null body.
func (c *Client) SubmitSubscriptions(ctx context.Context, clientID string, topics []string) error {
	if topics == nil {
		topics = []string{}
	}

	respBody, err := c.SendPost(ctx, RealtimePath, SubscriptionsRequest{
		ClientID:      clientID,
		Subscriptions: topics,
	})
	if err != nil {
		return err
	}

	if trimmed := bytes.TrimSpace(respBody); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if apiErr := decodeAPIError(http.StatusBadRequest, respBody); apiErr != nil {
		return apiErr
	}
	return &RequestFailedError{
		Method: http.MethodPost,
		Path:   RealtimePath,
		Err:    fmt.Errorf("unexpected response body: %s", respBody),
	}
}

// doRequest performs an HTTP request with the current token and returns the
// status code and body
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}) (int, []byte, error) {
	fullURL := c.resolve(path)

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &RequestFailedError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &RequestFailedError{Method: method, Path: path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return resp.StatusCode, bodyBytes, nil
}

// resolve joins path onto the server URL, keeping any path prefix the
// server URL already has
func (c *Client) resolve(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// decodeAPIError parses a PocketBase error object. It returns nil when body
// is not one. An empty body yields an APIError carrying only the status.
func decodeAPIError(status int, body []byte) *APIError {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &APIError{Code: status, Message: http.StatusText(status), Data: map[string]any{}}
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return nil
	}
	if apiErr.Code == 0 && apiErr.Message == "" {
		return nil
	}
	if apiErr.Code == 0 {
		apiErr.Code = status
	}
	if apiErr.Data == nil {
		apiErr.Data = map[string]any{}
	}
	return &apiErr
}
