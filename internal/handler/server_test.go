package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/wealthforge/network/internal/feed"
	"github.com/wealthforge/network/internal/handler"
	"github.com/wealthforge/network/internal/repository/sqlite"
	"github.com/wealthforge/network/internal/service"
)

const testJWTSecret = "test-secret-key-for-handler-tests"

type testServer struct {
	*httptest.Server
	db     *sqlite.DB
	broker *feed.MemoryBroker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	broker := feed.NewMemoryBroker()
	auth := service.NewAuthService(db.Profiles(), testJWTSecret, 4, "")
	profiles := service.NewProfileService(db.Profiles(), db.Projects())
	messages := service.NewMessageService(db.Messages(), db.Profiles(), broker)
	projects := service.NewProjectService(db.Projects(), broker)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, db, auth, profiles, messages, projects, broker, nil, false)

	srv := httptest.NewServer(handler.SecurityHeaders(mux))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, db: db, broker: broker}
}

// client returns an HTTP client with its own cookie jar.
func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// register creates an account and returns its id.
func register(t *testing.T, client *http.Client, baseURL, email, name string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/auth/register", map[string]string{
		"email":       email,
		"displayName": name,
		"password":    "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", email, resp.StatusCode)
	}
	var body struct {
		Profile struct {
			ID string `json:"id"`
		} `json:"profile"`
	}
	decodeBody(t, resp, &body)
	return body.Profile.ID
}

// promoteAdmin flips the admin flag directly in the store.
func promoteAdmin(t *testing.T, s *testServer, email string) {
	t.Helper()
	ctx := context.Background()
	profile, err := s.db.Profiles().GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("get profile %s: %v", email, err)
	}
	profile.IsAdmin = true
	if err := s.db.Profiles().Update(ctx, profile); err != nil {
		t.Fatalf("promote %s: %v", email, err)
	}
}

// login signs in with the client's cookie jar and returns the token.
func login(t *testing.T, client *http.Client, baseURL, email string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", email, resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	return body.Token
}
