package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Global represents the global ~/.classchat/config.toml.
type Global struct {
	DefaultProfile string `toml:"default_profile"`
}

// LoadGlobal reads the global config from the given path. Returns an error
// if the file is missing.
func LoadGlobal(path string) (*Global, error) {
	var cfg Global
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveGlobal writes the global config, creating parent dirs as needed.
func SaveGlobal(path string, cfg *Global) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Profile holds the per-profile settings the client needs to reach the
// school platform: the REST base URL, the push-channel URL, the session
// token and the current user's identity.
type Profile struct {
	ServerURL string `toml:"server_url" envconfig:"SERVER_URL"`
	PushURL   string `toml:"push_url" envconfig:"PUSH_URL"`
	Token     string `toml:"token" envconfig:"TOKEN"`
	UserID    string `toml:"user_id" envconfig:"USER_ID"`
	Role      string `toml:"role" envconfig:"ROLE"`
	PageLimit int    `toml:"page_limit" envconfig:"PAGE_LIMIT"`
}

// LoadProfile reads profile settings from the TOML file at path, then
// applies CLASSCHAT_* environment overrides. A missing file is fine as
// long as the environment supplies everything required.
func LoadProfile(path string) (*Profile, error) {
	var cfg Profile
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read profile config: %w", err)
	}
	if err := envconfig.Process("classchat", &cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Profile) applyDefaults() {
	if p.PageLimit <= 0 {
		p.PageLimit = 50
	}
	if p.PushURL == "" && p.ServerURL != "" {
		if u, err := url.Parse(p.ServerURL); err == nil {
			switch u.Scheme {
			case "https":
				u.Scheme = "wss"
			default:
				u.Scheme = "ws"
			}
			u.Path = strings.TrimRight(u.Path, "/") + "/ws"
			p.PushURL = u.String()
		}
	}
}

// Validate checks the settings the client cannot run without.
func (p *Profile) Validate() error {
	if p.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if _, err := url.Parse(p.ServerURL); err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	if p.Token == "" {
		return fmt.Errorf("token is required")
	}
	if p.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	switch p.Role {
	case "teacher", "student":
	default:
		return fmt.Errorf("role must be teacher or student, got %q", p.Role)
	}
	return nil
}
