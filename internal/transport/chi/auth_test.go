package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAuth(keys []string, path, authHeader string) *httptest.ResponseRecorder {
	handler := BearerAuthMiddleware(keys)(okHandler())

	req := httptest.NewRequest("GET", path, http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys pass through", nil, "/products", "", http.StatusOK},
		{"empty string keys pass through", []string{"", ""}, "/products", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/products", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/products", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"invalid token", []string{"secret"}, "/products", "Bearer wrong-key", http.StatusUnauthorized},
		{"valid token", []string{"secret"}, "/products", "Bearer secret", http.StatusOK},
		{"lowercase scheme", []string{"secret"}, "/products", "bearer secret", http.StatusOK},
		{"empty token", []string{"secret"}, "/products", "Bearer ", http.StatusUnauthorized},
		{"padded configured key", []string{" secret\n"}, "/products", "Bearer secret", http.StatusOK},
		{"second key", []string{"key1", "key2"}, "/search/text", "Bearer key2", http.StatusOK},
		{"health exempt", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveAuth(tt.keys, tt.path, tt.header)
			if rr.Code != tt.want {
				t.Errorf("got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_ErrorBody(t *testing.T) {
	rr := serveAuth([]string{"secret"}, "/products", "")

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != CodeUnauthorized {
		t.Errorf("error code: got %s, want %s", errResp.Code, CodeUnauthorized)
	}
	if errResp.Message == "" {
		t.Error("expected non-empty message")
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate challenge")
	}
}
