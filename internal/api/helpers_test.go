package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// authedJSONRequest performs a request with the given session cookie and JSON body.
func authedJSONRequest(t *testing.T, router http.Handler, cookie *http.Cookie, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func jsonNumber(id int64) string {
	return strconv.FormatInt(id, 10)
}

func jsonConfigID(id int64) string {
	return `{"config_id": ` + strconv.FormatInt(id, 10) + `}`
}
