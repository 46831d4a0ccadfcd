package utils // package utils provides helpers for identity token handling

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // random device identifiers
)

// Identity tokens are opaque, self-issued per-device strings. They are
// not credentials: their only job is that the same device presents the
// same string again, which scopes edit/delete permission and duplicate
// detection to "the same submitter". The server mints them as signed
// JWTs carrying a random device id so they are unguessable and well
// formed, but everywhere else in the system they are compared as plain
// strings, and a client-invented string works just as well.

// NewIdentityToken mints a fresh identity token signed with the given
// secret. The token embeds a random UUID device id and the issue time.
func NewIdentityToken(secret string) (string, string, error) {
	deviceID := uuid.NewString()
	claims := jwt.MapClaims{
		"did": deviceID,
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return signed, deviceID, nil
}

// DeviceID extracts the device id from a server-minted identity token.
// It fails for client-invented tokens, which is fine: those are still
// accepted for submissions, they just have no extractable device id.
func DeviceID(token, secret string) (string, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", errors.New("not a server-minted identity token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	did, _ := claims["did"].(string)
	if did == "" {
		return "", errors.New("missing device id claim")
	}
	return did, nil
}
