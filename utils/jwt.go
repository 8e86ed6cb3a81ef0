package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"mentra/config"

	"github.com/golang-jwt/jwt"
)

var (
	signingKeyOnce sync.Once
	signingKeyVal  []byte
)

// signingKey resolves the HS256 key once from configuration. The fallback
// keeps local runs working without a secret set; production deployments set
// JWT_SECRET.
func signingKey() []byte {
	signingKeyOnce.Do(func() {
		secret := config.AppConfig.JWTSecret
		if secret == "" {
			secret = "mentra-dev-secret"
		}
		signingKeyVal = []byte(secret)
	})
	return signingKeyVal
}

// GenerateToken creates a signed JWT with the given subject (user ID) and
// role claim, expiring after the specified duration.
func GenerateToken(subject, role string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// HashToken computes the SHA-256 hash of a token string. The auth cache is
// keyed on this hash so raw tokens never reach redis.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateToken parses a token string, rejecting any signing method other
// than HMAC.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return signingKey(), nil
	})
}

// ExtractIdentityFromToken returns the subject and role claims of a valid
// token string.
func ExtractIdentityFromToken(tokenString string) (string, string, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", "", errors.New("token does not contain a valid 'sub' claim")
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", "", errors.New("token does not contain a valid 'role' claim")
	}

	return sub, role, nil
}
