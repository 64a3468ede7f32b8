package anyauth_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	aa "github.com/workpail/anyauth"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestBearerAuthenticate_HeaderToken(t *testing.T) {
	strategy := aa.NewBearerStrategy("bearer", aa.BearerConfig{})
	tokenString := signToken(t, "irrelevant", jwt.MapClaims{
		"sub":      "user-42",
		"username": "carol",
		"email":    "carol@example.com",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/api/thing", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)

	res := strategy.Authenticate(req)
	if !res.Success {
		t.Fatalf("expected success, got code=%q message=%q", res.Code, res.Message)
	}
	if res.Identity == nil {
		t.Fatal("expected identity")
	}
	if res.Identity.ProviderID != "user-42" {
		t.Errorf("expected provider id user-42, got %q", res.Identity.ProviderID)
	}
	if res.Identity.Username != "carol" {
		t.Errorf("expected username carol, got %q", res.Identity.Username)
	}
	if res.Identity.Email != "carol@example.com" {
		t.Errorf("expected email, got %q", res.Identity.Email)
	}
}

func TestBearerAuthenticate_QueryToken(t *testing.T) {
	strategy := aa.NewBearerStrategy("bearer", aa.BearerConfig{})
	tokenString := signToken(t, "x", jwt.MapClaims{"sub": "u9"})

	req := httptest.NewRequest("GET", "/api/thing?access_token="+tokenString, nil)
	if res := strategy.Authenticate(req); !res.Success {
		t.Fatalf("expected success via query param, got code=%q", res.Code)
	}
}

func TestBearerAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantCode string
	}{
		{
			name:     "no token",
			token:    "",
			wantCode: aa.CodeNoTokenProvided,
		},
		{
			name:     "malformed token",
			token:    "not-a-jwt",
			wantCode: aa.CodeInvalidToken,
		},
		{
			name: "expired token",
			token: signToken(t, "x", jwt.MapClaims{
				"sub": "u1",
				"exp": time.Now().Add(-time.Minute).Unix(),
			}),
			wantCode: aa.CodeTokenExpired,
		},
		{
			name:     "no subject claim",
			token:    signToken(t, "x", jwt.MapClaims{"email": "a@b.c"}),
			wantCode: aa.CodeInvalidToken,
		},
	}

	strategy := aa.NewBearerStrategy("bearer", aa.BearerConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/thing", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			res := strategy.Authenticate(req)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, res.Code)
			}
		})
	}
}

func TestBearerAuthenticate_VerifiedMode(t *testing.T) {
	strategy := aa.NewBearerStrategy("bearer", aa.BearerConfig{Secret: "topsecret"})

	good := signToken(t, "topsecret", jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest("GET", "/api/thing", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	if res := strategy.Authenticate(req); !res.Success {
		t.Fatalf("expected success with correct signature, got code=%q", res.Code)
	}

	forged := signToken(t, "wrongsecret", jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req = httptest.NewRequest("GET", "/api/thing", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	res := strategy.Authenticate(req)
	if res.Success || res.Code != aa.CodeInvalidToken {
		t.Errorf("expected invalid_token for bad signature, got success=%v code=%q", res.Success, res.Code)
	}

	expired := signToken(t, "topsecret", jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	req = httptest.NewRequest("GET", "/api/thing", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	res = strategy.Authenticate(req)
	if res.Success || res.Code != aa.CodeTokenExpired {
		t.Errorf("expected token_expired, got success=%v code=%q", res.Success, res.Code)
	}
}
