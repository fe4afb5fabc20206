// Package auth supplies the bearer token sent to the inference backend.
package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenFile is the JSON form of a token file. A file holding only the raw
// token text is accepted as well.
type TokenFile struct {
	AccessToken string `json:"access_token"`
	Expiry      string `json:"expiry,omitempty"`
}

// NewTokenSource returns a static source when accessToken is set, otherwise a
// source that re-reads tokenFile each time the cached token expires.
func NewTokenSource(accessToken, tokenFile string) (oauth2.TokenSource, error) {
	if t := strings.TrimSpace(accessToken); t != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: t, TokenType: "Bearer"}), nil
	}
	if strings.TrimSpace(tokenFile) == "" {
		return nil, ErrNoCredentials
	}
	src := fileSource{path: tokenFile}
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	return oauth2.ReuseTokenSource(tok, src), nil
}

type fileSource struct {
	path string
}

func (s fileSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	tok, err := ParseTokenFile(data)
	if err != nil {
		return nil, fmt.Errorf("token file %s: %w", s.path, err)
	}
	slog.Debug("bearer token loaded", "path", s.path, "expiry", tok.Expiry)
	return tok, nil
}

// ParseTokenFile decodes a token file. The expiry is taken from the file,
// else from the token's JWT exp claim; a token without either never expires.
func ParseTokenFile(data []byte) (*oauth2.Token, error) {
	trimmed := strings.TrimSpace(string(data))
	var tf TokenFile
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &tf); err != nil {
			return nil, err
		}
	} else {
		tf.AccessToken = trimmed
	}
	tf.AccessToken = strings.TrimSpace(tf.AccessToken)
	if tf.AccessToken == "" {
		return nil, ErrNoCredentials
	}

	tok := &oauth2.Token{AccessToken: tf.AccessToken, TokenType: "Bearer"}
	if tf.Expiry != "" {
		exp, err := time.Parse(time.RFC3339, tf.Expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry: %w", err)
		}
		tok.Expiry = exp
	} else {
		tok.Expiry = JWTExpiry(tf.AccessToken)
	}
	return tok, nil
}
