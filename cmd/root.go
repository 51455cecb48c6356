// Package cmd wires the CLI command tree. Commands resolve the
// effective configuration, call the API client, and hand records to
// the output renderer; stdout carries rendered output only, logs go
// to stderr.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fvm/internal/api"
	"fvm/internal/config"
	"fvm/internal/logging"
	"fvm/internal/output"
)

var (
	formatFlag string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "fvm-cli",
	Short: "Manage virtual machines on the Fluence marketplace",
	Long: `fvm-cli provisions and manages virtual machines rented on the
Fluence decentralized compute marketplace. Credentials come from the
environment (FLUENCE_API_KEY, SSH_PUBLIC_KEY) or a .env file; defaults
come from an optional config.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.SetDebug(debugFlag)
		if cmd.Flags().Changed("format") {
			if _, err := output.ParseFormat(formatFlag); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "", "output format: table, json or compact")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "log API requests and responses")
}

// Execute runs the command tree. Errors were already reported by the
// failing command; the exit code is all that is left to convey.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		logging.Sync()
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration or fails the
// command.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// newClient builds an authenticated API client from the configuration.
func newClient(cfg *config.Config) (*api.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return api.New(cfg.API.URL, cfg.APIKey), nil
}

// newRenderer picks the output format: the --format flag wins, then
// the configured default.
func newRenderer(cfg *config.Config) (*output.Renderer, error) {
	selected := formatFlag
	if selected == "" {
		selected = cfg.CLI.OutputFormat
	}
	format, err := output.ParseFormat(selected)
	if err != nil {
		return nil, err
	}
	return output.NewRenderer(format, os.Stdout), nil
}

// confirm asks the user for a yes/no answer on the terminal. Anything
// but an explicit yes counts as no.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
