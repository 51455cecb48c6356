package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fvm/internal/config"
	"fvm/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and scaffold the CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Shows the merged configuration from defaults, the settings file and
the environment. Secrets are reported as set or unset, never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		if renderer.Format() == output.FormatJSON {
			return renderer.JSON(struct {
				*config.Config
				APIKeySet bool `json:"api_key_set"`
				SSHKeySet bool `json:"ssh_public_key_set"`
			}{cfg, cfg.APIKey != "", cfg.SSHPublicKey != ""})
		}

		fmt.Println("API:")
		fmt.Printf("  url: %s\n", cfg.API.URL)
		fmt.Printf("  key: %s\n", setOrUnset(cfg.APIKey))
		fmt.Println("VM defaults:")
		fmt.Printf("  cpu: %d\n", cfg.VM.CPUCount)
		fmt.Printf("  memory: %d GB\n", cfg.VM.MemoryGB)
		fmt.Printf("  storage: %d GB\n", cfg.VM.StorageGB)
		fmt.Printf("  region: %s\n", cfg.VM.Region)
		fmt.Printf("  name prefix: %s\n", cfg.VM.NamePrefix)
		fmt.Printf("  os image: %s\n", cfg.VM.OSImage)
		if cfg.Hardware.CPUManufacturer != "" || cfg.Hardware.CPUArchitecture != "" || cfg.Hardware.StorageType != "" {
			fmt.Println("Hardware:")
			if cfg.Hardware.CPUManufacturer != "" {
				fmt.Printf("  cpu manufacturer: %s\n", cfg.Hardware.CPUManufacturer)
			}
			if cfg.Hardware.CPUArchitecture != "" {
				fmt.Printf("  cpu architecture: %s\n", cfg.Hardware.CPUArchitecture)
			}
			if cfg.Hardware.StorageType != "" {
				fmt.Printf("  storage type: %s\n", cfg.Hardware.StorageType)
			}
		}
		fmt.Println("Network:")
		ports := make([]string, 0, len(cfg.Network.OpenPorts))
		for _, p := range cfg.Network.OpenPorts {
			ports = append(ports, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
		}
		fmt.Printf("  open ports: %s\n", strings.Join(ports, ", "))
		fmt.Println("CLI:")
		fmt.Printf("  default timeout: %ds\n", cfg.CLI.DefaultTimeout)
		fmt.Printf("  poll interval: %ds\n", cfg.CLI.PollInterval)
		fmt.Printf("  output format: %s\n", cfg.CLI.OutputFormat)
		fmt.Println("SSH:")
		fmt.Printf("  public key: %s\n", setOrUnset(cfg.SSHPublicKey))
		return nil
	},
}

func setOrUnset(secret string) string {
	if secret == "" {
		return "not set"
	}
	return "set"
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, created, err := config.WriteDefaultSettings()
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("Settings file already exists at %s, not overwriting\n", path)
			return nil
		}
		fmt.Printf("Wrote default settings to %s\n", path)
		return nil
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Write a secrets template (.env.example)",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, created, err := config.WriteEnvTemplate()
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("Template already exists at %s, not overwriting\n", path)
			return nil
		}
		fmt.Printf("Wrote secrets template to %s; copy it to .env and fill it in\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd, configEnvCmd)
	rootCmd.AddCommand(configCmd)
}
