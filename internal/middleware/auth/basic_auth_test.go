package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := BasicAuth("admin", "secret")(ok)

	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		want       int
	}{
		{name: "valid", user: "admin", pass: "secret", setAuth: true, want: http.StatusNoContent},
		{name: "wrong password", user: "admin", pass: "nope", setAuth: true, want: http.StatusUnauthorized},
		{name: "wrong user", user: "root", pass: "secret", setAuth: true, want: http.StatusUnauthorized},
		{name: "missing header", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/oee/recalculate", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}

func TestBasicAuth_NoCredentialsConfigured(t *testing.T) {
	h := BasicAuth("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("", "")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
