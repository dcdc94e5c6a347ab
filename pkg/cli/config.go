package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents ~/.cmadmin/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile represents a single named configuration profile.
type Profile struct {
	Host   string `yaml:"host,omitempty"`
	User   string `yaml:"user,omitempty"`
	Token  string `yaml:"token,omitempty"`
	Output string `yaml:"output,omitempty"`
}

// ActiveProfile returns the profile to use based on the override or
// current-profile. An unknown name yields an empty profile.
func (c *UserConfig) ActiveProfile(override string) Profile {
	if p, ok := c.Profiles[c.profileName(override)]; ok {
		return p
	}
	return Profile{}
}

// SetProfile stores p under the override name, or the current profile,
// falling back to "default".
func (c *UserConfig) SetProfile(override string, p Profile) {
	name := c.profileName(override)
	if name == "" {
		name = "default"
	}
	if c.CurrentProfile == "" {
		c.CurrentProfile = name
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[name] = p
}

func (c *UserConfig) profileName(override string) string {
	if override != "" {
		return override
	}
	return c.CurrentProfile
}

// ConfigDir returns the path to ~/.cmadmin/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cmadmin")
}

// ConfigPath returns the path to ~/.cmadmin/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads ~/.cmadmin/config.yaml.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// loadOrEmptyConfig treats a missing or unreadable config file as empty.
func loadOrEmptyConfig() *UserConfig {
	cfg, err := LoadUserConfig()
	if err != nil {
		return &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
	}
	return cfg
}

// SaveUserConfig writes ~/.cmadmin/config.yaml. The file holds session
// tokens and is created owner-only.
func SaveUserConfig(cfg *UserConfig) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
