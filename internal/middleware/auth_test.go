package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v *stubValidator) Validate(_ context.Context, _ string) (*JWTClaims, error) {
	return v.claims, v.err
}

// nextHandler records the principal the middleware attached.
func nextHandler() (http.Handler, func() (Principal, bool)) {
	var p Principal
	var found bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, found = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, func() (Principal, bool) { return p, found }
}

func TestAuthenticator(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		validator *stubValidator
		wantCode  int
		wantSub   string
	}{
		{
			name:      "valid token",
			header:    "Bearer good",
			validator: &stubValidator{claims: &JWTClaims{Subject: "analyst", Email: "a@example.com"}},
			wantCode:  http.StatusOK,
			wantSub:   "analyst",
		},
		{
			name:      "missing header",
			validator: &stubValidator{},
			wantCode:  http.StatusUnauthorized,
		},
		{
			name:      "basic auth",
			header:    "Basic dXNlcjpwdw==",
			validator: &stubValidator{},
			wantCode:  http.StatusUnauthorized,
		},
		{
			name:      "rejected token",
			header:    "Bearer expired",
			validator: &stubValidator{err: errors.New("token expired")},
			wantCode:  http.StatusUnauthorized,
		},
		{
			name:      "no subject",
			header:    "Bearer anonymous",
			validator: &stubValidator{claims: &JWTClaims{}},
			wantCode:  http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, principal := nextHandler()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			NewAuthenticator(tt.validator, nil).Middleware()(handler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			p, found := principal()
			if tt.wantCode != http.StatusOK {
				assert.False(t, found)
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.InDelta(t, float64(401), body["code"], 0.001)
				return
			}
			require.True(t, found)
			assert.Equal(t, tt.wantSub, p.Subject)
		})
	}
}

func TestHS256Validator(t *testing.T) {
	v, err := NewHS256Validator("s3cret", "fireant", "")
	require.NoError(t, err)

	good, err := IssueHS256("s3cret", "fireant", "analyst", time.Hour)
	require.NoError(t, err)
	claims, err := v.Validate(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, "analyst", claims.Subject)
	assert.Equal(t, "fireant", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)

	expired, err := IssueHS256("s3cret", "fireant", "analyst", -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := IssueHS256("other", "fireant", "analyst", time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := IssueHS256("s3cret", "someone-else", "analyst", time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "analyst", "iss": "fireant"}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "analyst", "iss": "fireant", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":      expired,
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
		"no expiry":    noExpiry,
		"HS512":        hs512,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tok)
			assert.Error(t, err)
		})
	}
}

func TestHS256Validator_RequiresSecret(t *testing.T) {
	_, err := NewHS256Validator("", "", "")
	assert.Error(t, err)
	_, err = IssueHS256("", "", "x", time.Hour)
	assert.Error(t, err)
}
