package auth

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// jwtPayload returns the decoded claims segment of a JWT. The signature is
// not verified; the backend does that.
func jwtPayload(token string) ([]byte, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, ErrInvalidJWT
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, ErrInvalidJWT
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJWT
	}
	return data, nil
}

// JWTExpiry returns the exp claim of a JWT, or the zero time when the token
// is not a JWT or carries no numeric exp.
func JWTExpiry(token string) time.Time {
	payload, err := jwtPayload(token)
	if err != nil {
		return time.Time{}
	}
	exp := gjson.GetBytes(payload, "exp")
	if exp.Type != gjson.Number {
		return time.Time{}
	}
	return time.Unix(exp.Int(), 0)
}
