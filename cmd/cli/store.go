package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/recipebook/internal/model"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "recipebook")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "recipebook")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok model.Tokens, id model.Identity) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
	})
}

func loadToken() (model.Tokens, model.Identity, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return model.Tokens{}, model.Identity{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return model.Tokens{}, model.Identity{}, err
	}
	if tf.AccessToken == "" || tf.Email == "" || time.Now().After(tf.ExpiresAt) {
		return model.Tokens{}, model.Identity{}, errors.New("no valid token (login required)")
	}
	return model.Tokens{AccessToken: tf.AccessToken, ExpiresAt: tf.ExpiresAt},
		model.Identity{Email: tf.Email, DisplayName: tf.DisplayName, PhotoURL: tf.PhotoURL}, nil
}

func dropToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
