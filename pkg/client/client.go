// Package client is the typed client for the TradePulse API. It holds the
// authenticated session explicitly, so callers control its lifetime instead
// of relying on ambient global state.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

type Config struct {
	BaseURL string
	APIKey  string
}

// Session is the authenticated state for one signed-in profile.
type Session struct {
	AccessToken  string
	RefreshToken string
	ProfileID    uuid.UUID
}

type AuthEvent string

const (
	SignedIn       AuthEvent = "SIGNED_IN"
	SignedOut      AuthEvent = "SIGNED_OUT"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthStateHandler receives auth state transitions. The session is nil for
// SignedOut.
type AuthStateHandler func(event AuthEvent, session *Session)

type Client struct {
	http *resty.Client

	mu           sync.Mutex
	session      *Session
	listeners    map[int]AuthStateHandler
	nextListener int
}

func New(cfg Config) *Client {
	httpClient := resty.New().SetBaseURL(cfg.BaseURL + "/api/v1")
	if cfg.APIKey != "" {
		httpClient.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &Client{
		http:      httpClient,
		listeners: make(map[int]AuthStateHandler),
	}
}

func (c *Client) Auth() *AuthService {
	return &AuthService{client: c}
}

func (c *Client) Signals() *SignalsService {
	return &SignalsService{client: c}
}

func (c *Client) Analysis() *AnalysisService {
	return &AnalysisService{client: c}
}

// Session returns a copy of the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// OnAuthStateChange registers a handler for auth state transitions and
// returns an unsubscribe function.
func (c *Client) OnAuthStateChange(handler AuthStateHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners[id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) setSession(session *Session, event AuthEvent) {
	c.mu.Lock()
	c.session = session
	handlers := make([]AuthStateHandler, 0, len(c.listeners))
	for _, h := range c.listeners {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	// Handlers run outside the lock; they are forwarded every event with no
	// deduplication.
	for _, h := range handlers {
		h(event, session)
	}
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// APIError is a failed API operation. The message is the server's error text
// verbatim when one was provided.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// do issues one request and decodes the response envelope into out. Remote
// errors are returned unchanged as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if token := c.accessToken(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return newAPIError(resp)
	}
	if out != nil {
		return json.Unmarshal(resp.Body(), out)
	}
	return nil
}

func newAPIError(resp *resty.Response) *APIError {
	var envelope struct {
		Error string `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(resp.Body(), &envelope); err == nil {
		message = envelope.Error
	}
	if message == "" {
		message = fmt.Sprintf("request failed: %s", http.StatusText(resp.StatusCode()))
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: message}
}
