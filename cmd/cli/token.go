package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "timekeeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "timekeeper")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

// tokenExpiry reads exp without verifying the signature; only the server holds the key.
func tokenExpiry(tok string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

func saveToken(tok string) (time.Time, error) {
	exp, err := tokenExpiry(tok)
	if err != nil {
		return time.Time{}, err
	}
	if time.Now().After(exp) {
		return time.Time{}, fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
	}
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return time.Time{}, err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return exp, enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (tk login required)")
	}
	return tf.AccessToken, nil
}

// resolveToken picks the flag value, then TIMEKEEPER_TOKEN, then the saved token.
func resolveToken(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if v := os.Getenv("TIMEKEEPER_TOKEN"); v != "" {
		return v, nil
	}
	return loadToken()
}
