package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LoginResponse is the authentication service's answer to a login call.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
	Token   string `json:"token,omitempty"`
}

// UpdateResponse is the authentication service's answer to a profile update.
type UpdateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

var _ AuthAPI = (*APIClient)(nil)

// APIClient talks JSON over HTTP to the GiraffeSpace authentication
// service. It reports what the service said; deciding what to do with a
// rejection belongs to the Manager.
type APIClient struct {
	baseURL string
	http    *http.Client
	logger  Logger
}

// APIClientOption customizes client construction.
type APIClientOption func(*APIClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) APIClientOption {
	return func(c *APIClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAPILogger overrides the client logger.
func WithAPILogger(logger Logger) APIClientOption {
	return func(c *APIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAPIClient returns a client rooted at the given base URL.
func NewAPIClient(baseURL string, opts ...APIClientOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

func (c *APIClient) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	payload := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	out := &LoginResponse{}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/auth/login", payload, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *APIClient) UpdateProfile(ctx context.Context, userID string, patch map[string]any) (*UpdateResponse, error) {
	out := &UpdateResponse{}
	endpoint := c.baseURL + "/users/" + url.PathEscape(userID)
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, patch, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *APIClient) doJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return serviceFailureError(err, "unable to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return serviceFailureError(err, "unable to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("auth service request to %s failed: %v", endpoint, err)
		return serviceFailureError(err, "unable to reach authentication service")
	}
	defer res.Body.Close()

	// Rejections come back as success:false with a message; only a body we
	// cannot decode is a transport failure.
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		c.logger.Error("auth service response from %s (status %d) decode failed: %v", endpoint, res.StatusCode, err)
		return serviceFailureError(err, "unexpected authentication service response")
	}

	return nil
}
