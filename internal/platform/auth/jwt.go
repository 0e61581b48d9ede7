package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	doctorIDKey = "doctor_id"
	usernameKey = "doctor_username"
)

// Claims carried by a doctor session token.
type Claims struct {
	jwt.RegisteredClaims
	DoctorID string `json:"doctor_id"`
	Username string `json:"username"`
}

// TokenIssuer signs and verifies HMAC session tokens for doctor accounts.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

// Issue creates a signed access token for the given doctor.
func (t *TokenIssuer) Issue(doctorID uuid.UUID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
			Subject:   doctorID.String(),
		},
		DoctorID: doctorID.String(),
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token, returning its claims.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Middleware requires a valid bearer token and stores the doctor identity on
// the echo context.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := issuer.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(doctorIDKey, claims.DoctorID)
			c.Set(usernameKey, claims.Username)
			return next(c)
		}
	}
}

// DoctorID returns the authenticated doctor's id from the echo context.
func DoctorID(c echo.Context) (uuid.UUID, error) {
	raw, _ := c.Get(doctorIDKey).(string)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("no authenticated doctor on request")
	}
	return uuid.Parse(raw)
}

// Username returns the authenticated doctor's username from the echo context.
func Username(c echo.Context) string {
	u, _ := c.Get(usernameKey).(string)
	return u
}
