// Package config resolves the effective CLI configuration from built-in
// defaults, a settings file, and environment variables, in that order
// of precedence. Resolution is deterministic given the same sources.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Environment variables consumed by the resolver.
const (
	EnvAPIKey       = "FLUENCE_API_KEY"
	EnvSSHPublicKey = "SSH_PUBLIC_KEY"
	EnvConfigPath   = "FVM_CONFIG_PATH"
	EnvDotenvPath   = "DOTENV_PATH"
)

// Error is a configuration failure: a missing required secret or a
// malformed settings file. It is detected before any network call.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "config: " + e.Reason }

// APIConfig is the `api` settings section.
type APIConfig struct {
	URL string `yaml:"url" json:"url"`
}

// VMConfig is the `vm` settings section: default sizing for created VMs.
type VMConfig struct {
	CPUCount   int    `yaml:"cpu_count" json:"cpu_count"`
	MemoryGB   int    `yaml:"memory_gb" json:"memory_gb"`
	StorageGB  int    `yaml:"storage_gb" json:"storage_gb"`
	Region     string `yaml:"region" json:"region"`
	NamePrefix string `yaml:"name_prefix" json:"name_prefix"`
	OSImage    string `yaml:"os_image" json:"os_image"`
}

// HardwareConfig is the `hardware` settings section.
type HardwareConfig struct {
	CPUManufacturer string `yaml:"cpu_manufacturer" json:"cpu_manufacturer"`
	CPUArchitecture string `yaml:"cpu_architecture" json:"cpu_architecture"`
	StorageType     string `yaml:"storage_type" json:"storage_type"`
}

// OpenPort is one entry of the `network.open_ports` list.
type OpenPort struct {
	Port     int    `yaml:"port" json:"port"`
	Protocol string `yaml:"protocol" json:"protocol"`
}

// NetworkConfig is the `network` settings section.
type NetworkConfig struct {
	OpenPorts []OpenPort `yaml:"open_ports" json:"open_ports"`
}

// CLIConfig is the `cli` settings section.
type CLIConfig struct {
	DefaultTimeout int    `yaml:"default_timeout" json:"default_timeout"` // seconds
	PollInterval   int    `yaml:"poll_interval" json:"poll_interval"`     // seconds
	OutputFormat   string `yaml:"output_format" json:"output_format"`
}

// Config is the merged effective configuration for one invocation.
// It is built once and passed explicitly; never mutated afterwards.
type Config struct {
	API      APIConfig      `yaml:"api" json:"api"`
	VM       VMConfig       `yaml:"vm" json:"vm"`
	Hardware HardwareConfig `yaml:"hardware" json:"hardware"`
	Network  NetworkConfig  `yaml:"network" json:"network"`
	CLI      CLIConfig      `yaml:"cli" json:"cli"`

	// Secrets come from the environment only, never from the settings
	// file, and are never serialized.
	APIKey       string `yaml:"-" json:"-"`
	SSHPublicKey string `yaml:"-" json:"-"`
}

// Default returns the built-in defaults, the lowest precedence layer.
func Default() *Config {
	return &Config{
		API: APIConfig{URL: "https://api.fluence.dev"},
		VM: VMConfig{
			CPUCount:   2,
			MemoryGB:   4,
			StorageGB:  25,
			Region:     "US",
			NamePrefix: "fvm-",
			OSImage:    "https://cloud-images.ubuntu.com/releases/22.04/release/ubuntu-22.04-server-cloudimg-amd64.img",
		},
		Hardware: HardwareConfig{},
		Network: NetworkConfig{
			OpenPorts: []OpenPort{
				{Port: 22, Protocol: "tcp"},
				{Port: 80, Protocol: "tcp"},
				{Port: 443, Protocol: "tcp"},
			},
		},
		CLI: CLIConfig{
			DefaultTimeout: 300,
			PollInterval:   10,
			OutputFormat:   "table",
		},
	}
}

// settingsPath returns the settings file to load, or "" when none of
// the candidate locations exists. FVM_CONFIG_PATH overrides the search.
func settingsPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}

	home, _ := os.UserHomeDir()
	candidates := []string{
		"config.yaml",
		"config.yml",
		filepath.Join(home, ".config", "fvm-cli", "config.yaml"),
		filepath.Join(home, ".fvm-cli", "config.yaml"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// loadDotenv loads the secrets file into the process environment.
// Variables already set in the environment win over file contents.
func loadDotenv() {
	if path := os.Getenv(EnvDotenvPath); path != "" {
		_ = godotenv.Load(path)
		return
	}

	home, _ := os.UserHomeDir()
	for _, candidate := range []string{".env", filepath.Join(home, ".env")} {
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
	}
}

// Load resolves the effective configuration. Missing settings file is
// fine (defaults apply); a malformed one is a config error. Secrets may
// be absent: commands needing them call RequireCredentials first.
func Load() (*Config, error) {
	cfg := Default()

	loadDotenv()

	if path := settingsPath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("failed to read settings file %s: %v", path, err)}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Reason: fmt.Sprintf("malformed settings file %s: %v", path, err)}
		}
	}

	cfg.APIKey = os.Getenv(EnvAPIKey)
	cfg.SSHPublicKey = os.Getenv(EnvSSHPublicKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CLI.PollInterval <= 0 {
		return &Error{Reason: "cli.poll_interval must be positive"}
	}
	if c.CLI.DefaultTimeout < c.CLI.PollInterval {
		return &Error{Reason: "cli.default_timeout must be at least cli.poll_interval"}
	}
	switch c.CLI.OutputFormat {
	case "table", "json", "compact":
	default:
		return &Error{Reason: fmt.Sprintf("cli.output_format must be table, json or compact, got %q", c.CLI.OutputFormat)}
	}
	for _, p := range c.Network.OpenPorts {
		if p.Port < 1 || p.Port > 65535 {
			return &Error{Reason: fmt.Sprintf("network.open_ports contains invalid port %d", p.Port)}
		}
	}
	return nil
}

// RequireCredentials fails with a remediation message when the secrets
// an authenticated operation needs are absent. Called before any
// network request is built.
func (c *Config) RequireCredentials() error {
	if c.APIKey == "" {
		return &Error{Reason: EnvAPIKey + " is not set; export it or add it to your .env file (run 'fvm-cli config env' for a template)"}
	}
	return nil
}

// RequireSSHKey fails when SSH_PUBLIC_KEY is absent. Needed only by
// VM-creating operations.
func (c *Config) RequireSSHKey() error {
	if c.SSHPublicKey == "" {
		return &Error{Reason: EnvSSHPublicKey + " is not set; export your public key or add it to your .env file"}
	}
	return nil
}

// Timeout returns the lifecycle wait budget.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.CLI.DefaultTimeout) * time.Second
}

// PollInterval returns the lifecycle poll spacing.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.CLI.PollInterval) * time.Second
}
