// Package client provides typed access to the push-automation backend API.
package client

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

	"golang.org/x/time/rate"

	"github.com/gitpusher/pushkit/internal/models"
)

// ErrUnauthorized is returned for 401 responses. Callers must treat it as
// session invalidation: drop the token and force re-login, never retry.
var ErrUnauthorized = errors.New("session is no longer valid")

// Client is an HTTP client for the backend REST and SSE surface.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customises client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithRateLimit caps outbound request rate. Zero or negative rps disables
// the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// New constructs a Client for the given base URL and bearer token.
func New(base, token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	c := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token used for subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, v)
}

// send applies rate limiting and auth, performs the request, and decodes
// the response into v when non-nil.
func (c *Client) send(req *http.Request, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if payload.Error != "" {
		return strings.TrimSpace(payload.Error)
	}
	return strings.TrimSpace(payload.Detail)
}

// CreateProjectInput captures the project creation payload.
type CreateProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// CreateProject provisions a new workflow project.
func (c *Client) CreateProject(ctx context.Context, input CreateProjectInput) (models.Project, error) {
	if input.Language == "" {
		input.Language = "en"
	}
	var project models.Project
	if err := c.do(ctx, http.MethodPost, "/workflows/projects", input, &project); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// ListProjects returns the caller's workflow projects.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, http.MethodGet, "/workflows/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Process triggers backend processing for an uploaded project and returns
// the updated project, including repository URL on success.
func (c *Client) Process(ctx context.Context, projectID string) (models.Project, error) {
	path := fmt.Sprintf("/workflows/projects/%s/process", url.PathEscape(projectID))
	var project models.Project
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &project); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// ArchiveProject archives a project on the backend.
func (c *Client) ArchiveProject(ctx context.Context, projectID string) error {
	path := fmt.Sprintf("/workflows/projects/%s/archive", url.PathEscape(projectID))
	return c.do(ctx, http.MethodPost, path, struct{}{}, nil)
}

// DeleteProject removes a project on the backend.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	path := fmt.Sprintf("/workflows/projects/%s", url.PathEscape(projectID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListJobs returns the caller's processing jobs, newest first.
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CreditBalance returns the authoritative credit balance.
func (c *Client) CreditBalance(ctx context.Context) (models.CreditBalance, error) {
	var balance models.CreditBalance
	if err := c.do(ctx, http.MethodGet, "/users/me/credits", nil, &balance); err != nil {
		return models.CreditBalance{}, err
	}
	return balance, nil
}

// TrafficStats fetches the point-in-time traffic aggregates.
func (c *Client) TrafficStats(ctx context.Context) (models.AggregateSnapshot, error) {
	var snap models.AggregateSnapshot
	if err := c.do(ctx, http.MethodGet, "/admin/traffic/stats", nil, &snap); err != nil {
		return models.AggregateSnapshot{}, err
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}

// SupportMessages returns the authoritative support conversation.
func (c *Client) SupportMessages(ctx context.Context) ([]models.SupportMessage, error) {
	var raw []struct {
		ID        string    `json:"id"`
		IsAdmin   bool      `json:"is_admin"`
		Message   string    `json:"message"`
		CreatedAt time.Time `json:"created_at"`
		Read      bool      `json:"read"`
	}
	if err := c.do(ctx, http.MethodGet, "/support/messages", nil, &raw); err != nil {
		return nil, err
	}
	messages := make([]models.SupportMessage, 0, len(raw))
	for _, m := range raw {
		role := models.RoleUser
		if m.IsAdmin {
			role = models.RoleOperator
		}
		messages = append(messages, models.SupportMessage{
			ID:        m.ID,
			Role:      role,
			Text:      m.Message,
			CreatedAt: m.CreatedAt,
			Read:      m.Read,
		})
	}
	return messages, nil
}

// SendSupportMessage posts a support message.
func (c *Client) SendSupportMessage(ctx context.Context, text string) error {
	body := map[string]string{"message": text}
	return c.do(ctx, http.MethodPost, "/support/messages", body, nil)
}

// UnreadCount returns the number of unread operator replies.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/support/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// AdminOnline returns the operator presence indicator.
func (c *Client) AdminOnline(ctx context.Context) (models.Presence, error) {
	var presence models.Presence
	if err := c.do(ctx, http.MethodGet, "/support/admin-online", nil, &presence); err != nil {
		return models.Presence{}, err
	}
	return presence, nil
}

// LoginResponse carries the bearer token issued for credentials.
type LoginResponse struct {
	Token string          `json:"token"`
	Plan  models.PlanTier `json:"plan"`
	Email string          `json:"email"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}
