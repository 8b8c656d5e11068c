package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akirol/trainwatch/internal/testutil"
)

func TestAuthHandlers(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	router := server.Router()

	// Pre-create a user for login tests
	testutil.GetAuthCookie(t, server, "testuser", "password123", "viewer")

	t.Run("Successful Login", func(t *testing.T) {
		payload := `{"username":"testuser", "password":"password123"}`
		req, _ := http.NewRequest("POST", "/api/users/login", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
		}

		foundCookie := false
		for _, cookie := range rr.Result().Cookies() {
			if cookie.Name == "session_token" {
				foundCookie = true
				if cookie.Value == "" {
					t.Error("session token cookie is empty")
				}
				if !cookie.HttpOnly {
					t.Error("session cookie is not HttpOnly")
				}
			}
		}
		if !foundCookie {
			t.Error("session_token cookie not found in response")
		}
	})

	t.Run("Login with Wrong Password", func(t *testing.T) {
		payload := `{"username":"testuser", "password":"wrongpassword"}`
		req, _ := http.NewRequest("POST", "/api/users/login", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusUnauthorized {
			t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
		}
	})

	t.Run("Login with Unknown User", func(t *testing.T) {
		payload := `{"username":"ghost", "password":"whatever"}`
		req, _ := http.NewRequest("POST", "/api/users/login", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for unknown user, got %d", rr.Code)
		}
	})

	t.Run("Get Me", func(t *testing.T) {
		cookie := testutil.GetAuthCookie(t, server, "meuser", "password123", "admin")
		req, _ := http.NewRequest("GET", "/api/users/me", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		if body := rr.Body.String(); !bytes.Contains([]byte(body), []byte("meuser")) {
			t.Errorf("Expected username in response, got %s", body)
		}
	})

	t.Run("Logout Invalidates Session", func(t *testing.T) {
		cookie := testutil.GetAuthCookie(t, server, "byeuser", "password123", "viewer")

		req, _ := http.NewRequest("POST", "/api/users/logout", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200 on logout, got %d", rr.Code)
		}

		req, _ = http.NewRequest("GET", "/api/users/me", nil)
		req.AddCookie(cookie)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 after logout, got %d", rr.Code)
		}
	})

	t.Run("Health Check Is Open", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/health", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rr.Code)
		}
	})
}
