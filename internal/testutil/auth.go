package testutil

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akirol/trainwatch/internal/api"
	"github.com/akirol/trainwatch/internal/auth"
	"github.com/akirol/trainwatch/internal/store"
)

// CreateTestUserAndSession inserts a user and a live session, returning the
// session cookie to attach to authenticated test requests.
func CreateTestUserAndSession(t *testing.T, db *sql.DB, username, role string) *http.Cookie {
	t.Helper()

	st := store.New(db)
	passwordHash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user, err := st.CreateUser(username, passwordHash, role)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	token, err := st.CreateSession(user.ID)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return &http.Cookie{Name: "session_token", Value: token}
}

// GetAuthCookie creates a user and logs in through the real login handler,
// returning the session cookie from the response.
func GetAuthCookie(t *testing.T, server *api.Server, username, password, role string) *http.Cookie {
	t.Helper()

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if _, err := server.Store().CreateUser(username, passwordHash, role); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	payload := `{"username":"` + username + `", "password":"` + password + `"}`
	req, _ := http.NewRequest("POST", "/api/users/login", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == "session_token" {
			return cookie
		}
	}
	t.Fatal("login did not return a session cookie")
	return nil
}
