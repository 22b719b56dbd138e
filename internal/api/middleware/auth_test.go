package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	const apiKey = "test-api-key"

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		want    int
	}{
		{"x-api-key header", "/api/test", map[string]string{"X-API-Key": apiKey}, http.StatusOK},
		{"bearer token", "/api/test", map[string]string{"Authorization": "Bearer " + apiKey}, http.StatusOK},
		{"query param", "/api/test?key=" + apiKey, nil, http.StatusOK},
		{"missing key", "/api/test", nil, http.StatusUnauthorized},
		{"wrong key", "/api/test", map[string]string{"X-API-Key": "wrong"}, http.StatusUnauthorized},
		{"short bearer", "/api/test", map[string]string{"Authorization": "Bear"}, http.StatusUnauthorized},
		{"lowercase bearer", "/api/test", map[string]string{"Authorization": "bearer " + apiKey}, http.StatusUnauthorized},
		{"header wins over query", "/api/test?key=wrong", map[string]string{"X-API-Key": apiKey}, http.StatusOK},
		{"bearer wins over query", "/api/test?key=wrong", map[string]string{"Authorization": "Bearer " + apiKey}, http.StatusOK},
	}

	handler := APIKeyAuth(apiKey)(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				if ct := w.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			}
		})
	}
}

func TestAPIKeyAuth_EmptyKeyDisablesAuth(t *testing.T) {
	handler := APIKeyAuth("")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "success" {
		t.Errorf("status = %d, body = %q", w.Code, w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/twitter", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", origin)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/convert", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if called {
		t.Error("next handler should not be called for OPTIONS request")
	}
}
