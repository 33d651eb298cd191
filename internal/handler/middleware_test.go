package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/wealthforge/network/internal/domain"
)

func TestRequireAuth_RejectsAnonymous(t *testing.T) {
	srv := newTestServer(t)
	client := srv.client(t)

	resp, err := client.Get(srv.URL + "/api/auth/me")
	if err != nil {
		t.Fatalf("GET /api/auth/me: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRequireAuth_AcceptsCookie(t *testing.T) {
	srv := newTestServer(t)
	client := srv.client(t)

	register(t, client, srv.URL, "cookie@example.com", "Cookie")
	login(t, client, srv.URL, "cookie@example.com")

	resp, err := client.Get(srv.URL + "/api/auth/me")
	if err != nil {
		t.Fatalf("GET /api/auth/me: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Profile struct {
			Email string `json:"email"`
		} `json:"profile"`
	}
	decodeBody(t, resp, &body)
	if body.Profile.Email != "cookie@example.com" {
		t.Fatalf("unexpected profile %+v", body)
	}
}

func TestRequireAuth_AcceptsBearerToken(t *testing.T) {
	srv := newTestServer(t)
	client := srv.client(t)

	register(t, client, srv.URL, "bearer@example.com", "Bearer")
	token := login(t, srv.client(t), srv.URL, "bearer@example.com")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with bearer: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRequireAuth_RejectsGarbageToken(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer not-a-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with garbage token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRequireAuth_BlocksSuspendedAccount(t *testing.T) {
	srv := newTestServer(t)
	client := srv.client(t)

	id := register(t, client, srv.URL, "frozen@example.com", "Frozen")
	login(t, client, srv.URL, "frozen@example.com")

	ctx := context.Background()
	profile, err := srv.db.Profiles().GetByEmail(ctx, "frozen@example.com")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.ID.String() != id {
		t.Fatalf("id mismatch: %s vs %s", profile.ID, id)
	}
	if err := srv.db.Profiles().UpdateStatus(ctx, profile.ID, domain.ProfileStatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	resp, err := client.Get(srv.URL + "/api/auth/me")
	if err != nil {
		t.Fatalf("GET /api/auth/me: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for suspended account, got %d", resp.StatusCode)
	}
}

func TestRequireAdmin_RejectsRegularUser(t *testing.T) {
	srv := newTestServer(t)
	client := srv.client(t)

	register(t, client, srv.URL, "plain@example.com", "Plain")
	login(t, client, srv.URL, "plain@example.com")

	resp, err := client.Get(srv.URL + "/api/admin/users")
	if err != nil {
		t.Fatalf("GET /api/admin/users: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
}
