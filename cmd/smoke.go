package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fvm/internal/config"
	"fvm/internal/lifecycle"
	"fvm/internal/logging"
	"fvm/internal/output"
	"fvm/internal/vmspec"
)

var (
	smokeCPU          int
	smokeMemory       int
	smokeStorage      int
	smokeCountry      string
	smokeMaxPrice     string
	smokeTimeout      time.Duration
	smokePollInterval time.Duration
	smokeNoCleanup    bool
	smokeEnvFile      string
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run a full VM lifecycle check",
	Long: `Creates a VM, waits until it is ready, exercises every read-only
command against it, then deletes it. Exits 0 when everything passed,
1 on a fatal lifecycle failure, 2 when the VM lifecycle passed but
some exercise steps failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if smokeEnvFile != "" {
			os.Setenv(config.EnvDotenvPath, smokeEnvFile)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		if err := cfg.RequireSSHKey(); err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		spec, err := vmspec.FromConfig(cfg)
		if err != nil {
			return err
		}
		spec.Name = vmspec.GenerateName("smoke-")
		spec.Hostname = spec.Name
		if cmd.Flags().Changed("cpu") {
			spec.CPU = smokeCPU
		}
		if cmd.Flags().Changed("memory") {
			spec.MemoryGB = smokeMemory
		}
		if cmd.Flags().Changed("storage") {
			spec.StorageGB = smokeStorage
		}
		if cmd.Flags().Changed("country") {
			spec.Country = smokeCountry
		}
		if smokeMaxPrice != "" {
			spec.MaxDailyPriceUSD = smokeMaxPrice
		}

		opts := lifecycle.Options{
			Timeout:      cfg.Timeout(),
			PollInterval: cfg.PollInterval(),
			NoCleanup:    smokeNoCleanup,
		}
		if cmd.Flags().Changed("timeout") {
			opts.Timeout = smokeTimeout
		}
		if cmd.Flags().Changed("poll-interval") {
			opts.PollInterval = smokePollInterval
		}

		logging.Logger().Info("starting lifecycle run",
			zap.String("name", spec.Name),
			zap.String("configuration", spec.Slug()),
			zap.Duration("timeout", opts.Timeout))

		report := lifecycle.New(client).Run(context.Background(), spec, opts)

		if renderer.Format() == output.FormatJSON {
			if err := renderer.JSON(report); err != nil {
				return err
			}
		} else {
			printReport(report)
		}

		logging.Sync()
		os.Exit(report.ExitCode())
		return nil
	},
}

func printReport(report *lifecycle.Report) {
	fmt.Println("Lifecycle report")
	if report.VMID != "" {
		fmt.Printf("  VM: %s (%s)\n", report.VMName, report.VMID)
	}
	if report.PublicIP != "" {
		fmt.Printf("  Public IP: %s\n", report.PublicIP)
	}
	if report.Failure != "" {
		fmt.Printf("  FAILED: %s\n", report.Failure)
	}
	for _, step := range report.Steps {
		marker := "ok"
		if step.Status == lifecycle.StepFailed {
			marker = "FAIL"
		}
		fmt.Printf("  [%s] %s", marker, step.Name)
		if step.Detail != "" {
			fmt.Printf(": %s", step.Detail)
		}
		fmt.Println()
	}
	switch {
	case report.CleanupSkipped:
		fmt.Printf("  Cleanup skipped, VM %s left running\n", report.VMID)
	case report.CleanupError != "":
		fmt.Printf("  Cleanup FAILED: %s\n", report.CleanupError)
	case report.Deleted:
		fmt.Println("  VM deleted")
	}
}

func init() {
	smokeCmd.Flags().IntVar(&smokeCPU, "cpu", 2, "vCPU count")
	smokeCmd.Flags().IntVar(&smokeMemory, "memory", 4, "memory in GB")
	smokeCmd.Flags().IntVar(&smokeStorage, "storage", 25, "storage in GB")
	smokeCmd.Flags().StringVar(&smokeCountry, "country", "", "country code")
	smokeCmd.Flags().StringVar(&smokeMaxPrice, "max-price", "", "max daily price in USD")
	smokeCmd.Flags().DurationVar(&smokeTimeout, "timeout", 300*time.Second, "readiness wait budget")
	smokeCmd.Flags().DurationVar(&smokePollInterval, "poll-interval", 10*time.Second, "status poll spacing")
	smokeCmd.Flags().BoolVar(&smokeNoCleanup, "no-cleanup", false, "leave the VM running after the run")
	smokeCmd.Flags().StringVar(&smokeEnvFile, "env-file", "", "secrets file to load instead of .env")

	rootCmd.AddCommand(smokeCmd)
}
