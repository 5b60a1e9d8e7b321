package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// TokenClaims is the HMAC-JWT payload issued by the identity collaborator.
type TokenClaims struct {
	Sub      string `json:"sub"`
	Locale   string `json:"locale"`
	Exp      int64  `json:"exp"`
	Issuer   string `json:"iss"`
	Audience string `json:"aud"`
}

type identityKey string

const (
	userIDKey      identityKey = "user_id"
	fingerprintKey identityKey = "device_fingerprint"
)

// FingerprintHeader carries the anonymous device identity.
const FingerprintHeader = "X-Device-Fingerprint"

// SignJWT produces an HS256 token for the given claims.
func SignJWT(secret string, claims TokenClaims) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, _ := json.Marshal(header)
	payloadJSON, _ := json.Marshal(claims)
	headerEnc := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadEnc := base64.RawURLEncoding.EncodeToString(payloadJSON)
	data := headerEnc + "." + payloadEnc
	sig := hmacSign(secret, data)
	return data + "." + sig, nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyJWT validates signature and expiry and returns the claims.
func VerifyJWT(secret, token string) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token")
	}
	expected := hmacSign(secret, parts[0]+"."+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, err
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, err
	}
	if claims.Exp != 0 && time.Now().Unix() > claims.Exp {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

// Identity resolves the requester identity. A valid bearer token sets the
// authenticated user id; an invalid token is rejected outright. Anonymous
// requests pass through and may identify themselves with the fingerprint
// header; handlers decide whether an identity is required.
func Identity(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if fp := strings.TrimSpace(r.Header.Get(FingerprintHeader)); fp != "" {
				ctx = context.WithValue(ctx, fingerprintKey, fp)
			}
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					http.Error(w, "invalid authorization", http.StatusUnauthorized)
					return
				}
				claims, err := VerifyJWT(secret, parts[1])
				if err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				ctx = context.WithValue(ctx, userIDKey, claims.Sub)
				if claims.Locale != "" {
					ctx = context.WithValue(ctx, LocaleKey, claims.Locale)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user id, or empty.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// FingerprintFromContext returns the anonymous device fingerprint, or empty.
func FingerprintFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(fingerprintKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithUserID injects an authenticated user id, used by tests.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if strings.TrimSpace(userID) == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// ContextWithFingerprint injects a device fingerprint, used by tests.
func ContextWithFingerprint(ctx context.Context, fingerprint string) context.Context {
	if strings.TrimSpace(fingerprint) == "" {
		return ctx
	}
	return context.WithValue(ctx, fingerprintKey, fingerprint)
}
