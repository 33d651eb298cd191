// Package client is the HTTP/WebSocket SDK for the Wealth Forge
// Network API. It implements the boundary interfaces the session and
// conversation cores consume, so the same cores run unchanged against
// a live server or against fakes in tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/session"
)

// Client talks to one Wealth Forge server. It keeps the bearer token
// from the last sign-in and emits auth events on its Changes stream.
// Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	token   string
	current *session.Session
	events  chan session.Event
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		events:  make(chan session.Event, 8),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type profilePayload struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	AvatarRef   *string `json:"avatarRef"`
	IsAdmin     bool    `json:"isAdmin"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// SignIn authenticates and stores the session token. The resulting
// session is also delivered on the Changes stream.
func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	var out struct {
		Profile profilePayload `json:"profile"`
		Token   string         `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(out.Profile.ID)
	if err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	s := &session.Session{
		UserID:      id,
		Email:       out.Profile.Email,
		DisplayName: out.Profile.DisplayName,
		IsAdmin:     out.Profile.IsAdmin,
		Token:       out.Token,
	}

	c.mu.Lock()
	c.token = out.Token
	c.current = s
	c.mu.Unlock()
	c.emit(s)
	return s, nil
}

// SignUp registers a new account. It does not sign in.
func (c *Client) SignUp(ctx context.Context, email, displayName, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":       email,
		"displayName": displayName,
		"password":    password,
	}, nil)
}

// SignOut ends the session server-side and clears the local token. A
// signed-out event is delivered on the Changes stream.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.mu.Lock()
	c.token = ""
	c.current = nil
	c.mu.Unlock()
	c.emit(nil)
	return err
}

// CurrentSession returns the live session, revalidating the stored
// token against the server. Returns nil with no error when signed out.
func (c *Client) CurrentSession(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	token := c.token
	current := c.current
	c.mu.Unlock()
	if token == "" {
		return nil, nil
	}

	var out struct {
		Profile profilePayload `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.mu.Lock()
			c.token = ""
			c.current = nil
			c.mu.Unlock()
			return nil, nil
		}
		return nil, err
	}
	return current, nil
}

// Changes returns the auth event stream. The cancel function detaches
// nothing server-side; events originate from this client's own SignIn
// and SignOut calls.
func (c *Client) Changes(context.Context) (<-chan session.Event, func(), error) {
	return c.events, func() {}, nil
}

// GetProfile loads a profile. The caller's own id resolves through the
// full /api/auth/me view; any other id through the public profile
// endpoint.
func (c *Client) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	c.mu.Lock()
	self := c.current
	c.mu.Unlock()

	path := "/api/profiles/" + id.String()
	if self != nil && self.UserID == id {
		path = "/api/auth/me"
	}

	var out struct {
		Profile profilePayload `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return toDomainProfile(out.Profile, id)
}

// CreateProfile pushes the provisioned profile fields to the server.
// The server creates the record at registration, so this lands as an
// update of the caller's own display data.
func (c *Client) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	return c.do(ctx, http.MethodPut, "/api/profile", map[string]any{
		"displayName": profile.DisplayName,
		"avatarRef":   profile.AvatarRef,
	}, nil)
}

func toDomainProfile(p profilePayload, fallbackID uuid.UUID) (*domain.Profile, error) {
	id := fallbackID
	if p.ID != "" {
		parsed, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, fmt.Errorf("parse profile id: %w", err)
		}
		id = parsed
	}
	status := domain.ProfileStatus(p.Status)
	if status == "" {
		status = domain.ProfileStatusActive
	}
	createdAt, _ := time.Parse(time.RFC3339, p.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, p.UpdatedAt)
	return &domain.Profile{
		ID:          id,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarRef,
		IsAdmin:     p.IsAdmin,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// emit queues an auth event without blocking. When the buffer is full
// the oldest queued event is dropped to make room; the newest state,
// including a final sign-out, is always delivered.
func (c *Client) emit(s *session.Session) {
	event := session.Event{Session: s}
	for {
		select {
		case c.events <- event:
			return
		default:
		}
		select {
		case <-c.events:
		default:
		}
	}
}

// do performs one JSON round trip, attaching the bearer token when
// present and mapping error statuses to domain sentinels.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body errorResponse
	message := http.StatusText(resp.StatusCode)
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		message = body.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, message)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, message)
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, message)
	}
}
