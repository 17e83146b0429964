package apitest

import (
	"net/http/httptest"
	"testing"

	"github.com/example/coffee-storefront/internal/api"
	"github.com/example/coffee-storefront/internal/auth"
	"github.com/example/coffee-storefront/internal/infrastructure/storage"
)

// LoginAs returns a session logged in as userID and a client that sends its
// token to srv.
func LoginAs(t testing.TB, b *Backend, srv *httptest.Server, userID string) (*auth.Session, *api.Client) {
	t.Helper()
	token, err := b.TokenFor(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	session, err := auth.NewSession(storage.NewMemory())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.Login(token); err != nil {
		t.Fatalf("login: %v", err)
	}
	return session, api.NewClient(srv.URL, api.WithTokenSource(session))
}

// Guest returns a logged-out session and an anonymous client for srv.
func Guest(t testing.TB, srv *httptest.Server) (*auth.Session, *api.Client) {
	t.Helper()
	session, err := auth.NewSession(storage.NewMemory())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session, api.NewClient(srv.URL, api.WithTokenSource(session))
}
