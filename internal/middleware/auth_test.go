package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/backlot-app/backlot/internal/logging"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(subject string) Claims {
	return Claims{
		Email: "user@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func authedHandler(gotUser *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUser = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	var gotUser string
	mw := NewAuthMiddleware(testSecret, logging.Nop(), nil)
	handler := mw.Handler(authedHandler(&gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("user-123")))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if gotUser != "user-123" {
		t.Errorf("user id = %s", gotUser)
	}
}

func TestAuthMiddlewareAcceptsCookie(t *testing.T) {
	var gotUser string
	mw := NewAuthMiddleware(testSecret, logging.Nop(), nil)
	handler := mw.Handler(authedHandler(&gotUser))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: signToken(t, testSecret, validClaims("user-456"))})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if gotUser != "user-456" {
		t.Errorf("user id = %s", gotUser)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, logging.Nop(), nil)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	expired := validClaims("user-123")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noSubject := validClaims("")

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", signToken(t, "another-secret-of-sufficient-length-here", validClaims("user-123"))},
		{"expired", signToken(t, testSecret, expired)},
		{"no subject", signToken(t, testSecret, noSubject)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, rr.Code)
		}
	}
}

func TestAuthMiddlewareSkipPaths(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, logging.Nop(), []string{"/healthz"})
	ran := false
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if !ran {
		t.Error("skip path must bypass authentication")
	}
}

func TestAuthMiddlewareRejectsNonHMAC(t *testing.T) {
	// alg=none style tokens must not pass.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("user-123"))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	mw := NewAuthMiddleware(testSecret, logging.Nop(), nil)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}
