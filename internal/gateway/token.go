package gateway

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	ierr "github.com/drivekit/billing/internal/errors"
)

// tokenTTL bounds how long a minted gateway token stays valid. Tokens are
// minted per call, never cached.
const tokenTTL = 5 * time.Minute

// mintToken signs a short-lived bearer token the gateways accept.
func mintToken(secret string, subject string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "drivekit-billing",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to sign gateway token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}
