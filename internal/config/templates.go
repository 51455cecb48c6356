package config

import (
	"fmt"
	"os"
)

// defaultSettingsYAML is written by `config init`. Kept as a literal so
// the generated file carries comments.
const defaultSettingsYAML = `# fvm-cli configuration file
# Default values for VM creation and API settings.

# API configuration
api:
  url: https://api.fluence.dev

# Default VM configuration
vm:
  cpu_count: 2
  memory_gb: 4
  storage_gb: 25
  region: US
  name_prefix: fvm-

  # Default OS image (Ubuntu 22.04 LTS)
  os_image: https://cloud-images.ubuntu.com/releases/22.04/release/ubuntu-22.04-server-cloudimg-amd64.img

# Hardware preferences
hardware:
  cpu_manufacturer: AMD
  cpu_architecture: Zen
  storage_type: SSD

# Network configuration
network:
  open_ports:
    - port: 22
      protocol: tcp
    - port: 80
      protocol: tcp
    - port: 443
      protocol: tcp

# CLI behavior
cli:
  default_timeout: 300  # seconds
  poll_interval: 10     # seconds
  output_format: table  # table, json, or compact
`

// envTemplate is written by `config env` as .env.example.
const envTemplate = `# Fluence API key
# Get your API key from: https://console.fluence.network/settings/api-keys
FLUENCE_API_KEY=your_api_key_here

# SSH public key for VM access (NO QUOTES!)
# Get it with: cat ~/.ssh/id_ed25519.pub or cat ~/.ssh/id_rsa.pub
SSH_PUBLIC_KEY=ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAI... user@example.com
`

// WriteDefaultSettings writes the commented default settings file to
// the current directory. An existing file is left untouched.
func WriteDefaultSettings() (path string, created bool, err error) {
	path = "config.yaml"
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.WriteFile(path, []byte(defaultSettingsYAML), 0o644); err != nil {
		return path, false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, true, nil
}

// WriteEnvTemplate writes .env.example to the current directory. An
// existing file is left untouched.
func WriteEnvTemplate() (path string, created bool, err error) {
	path = ".env.example"
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.WriteFile(path, []byte(envTemplate), 0o644); err != nil {
		return path, false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, true, nil
}
