package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("12345678901234567890123456789012")

func signToken(t *testing.T, claims *Claims, method jwt.SigningMethod, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestVerifyIngest(t *testing.T) {
	valid := signToken(t, &Claims{
		UserID: "voter-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, jwt.SigningMethodHS256, testSecret)

	expired := signToken(t, &Claims{
		UserID: "voter-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, jwt.SigningMethodHS256, testSecret)

	noClaim := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, jwt.SigningMethodHS256, testSecret)

	tests := []struct {
		name    string
		token   string
		secret  []byte
		wantErr error
	}{
		{"valid token", valid, testSecret, nil},
		{"expired token", expired, testSecret, ErrTokenExpired},
		{"missing user_id claim", noClaim, testSecret, ErrMissingClaim},
		{"wrong secret", valid, []byte("different-secret-that-is-long-enough"), ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := VerifyIngest(tt.token, tt.secret)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("VerifyIngest() unexpected error: %v", err)
				}
				if claims.UserID != "voter-1" {
					t.Errorf("UserID = %q, want voter-1", claims.UserID)
				}
				return
			}
			if err == nil {
				t.Fatalf("VerifyIngest() expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyIngest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyMaterializeIgnoresExpiry(t *testing.T) {
	expired := signToken(t, &Claims{
		UserID: "voter-2",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, jwt.SigningMethodHS256, testSecret)

	claims, err := VerifyMaterialize(expired, testSecret)
	if err != nil {
		t.Fatalf("VerifyMaterialize() should accept an expired-but-validly-signed token, got %v", err)
	}
	if claims.UserID != "voter-2" {
		t.Errorf("UserID = %q, want voter-2", claims.UserID)
	}
}

func TestVerifyRejectsNonHMAC(t *testing.T) {
	// RS256 would require a real RSA key; we just assert the ErrInvalidSigningMethod
	// path is reachable via a forged alg header on an HMAC-signed body.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "x"})
	tok.Header["alg"] = "none"
	// jwt v5 refuses to sign with method "none" via SignedString(secret) mismatch,
	// so instead verify that an HS256 token checked against keyFunc still requires HMAC.
	signed, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("unexpected sign error: %v", err)
	}
	if _, err := VerifyIngest(signed, testSecret); err == nil {
		t.Error("expected an error for a tampered alg header")
	}
}

func TestCreateTestToken(t *testing.T) {
	token, expiresAt, err := CreateTestToken("voter-3", testSecret)
	if err != nil {
		t.Fatalf("CreateTestToken() error: %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Errorf("expiresAt = %v, want in the future", expiresAt)
	}

	claims, err := VerifyIngest(token, testSecret)
	if err != nil {
		t.Fatalf("round-trip VerifyIngest() error: %v", err)
	}
	if claims.UserID != "voter-3" {
		t.Errorf("UserID = %q, want voter-3", claims.UserID)
	}
}

func TestCreateTestTokenRejectsShortSecret(t *testing.T) {
	if _, _, err := CreateTestToken("voter-4", []byte("short")); err == nil {
		t.Error("expected an error for a secret shorter than 32 bytes")
	}
}
