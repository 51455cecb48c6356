package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fvm/internal/market"
	"fvm/internal/output"
	"fvm/internal/vmspec"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Browse the Fluence marketplace",
}

var marketCountriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List country codes with marketplace capacity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		countries, err := client.Countries(context.Background())
		if err != nil {
			return err
		}
		return renderer.Countries(countries)
	},
}

var marketConfigurationsCmd = &cobra.Command{
	Use:   "configurations",
	Short: "List the basic configuration slugs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		configs, err := client.BasicConfigurations(context.Background())
		if err != nil {
			return err
		}
		return renderer.Configurations(configs)
	},
}

var marketHardwareCmd = &cobra.Command{
	Use:   "hardware",
	Short: "List the hardware available on the marketplace",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		hw, err := client.HardwareOptions(context.Background())
		if err != nil {
			return err
		}
		return renderer.Hardware(hw)
	},
}

var (
	marketPricingCPU    int
	marketPricingMemory int
	marketPricingRegion string
)

var marketPricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Show the daily price for a configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		spec := &vmspec.Spec{
			CPU:       marketPricingCPU,
			MemoryGB:  marketPricingMemory,
			StorageGB: 25,
			Country:   marketPricingRegion,
		}
		if spec.Country == "" {
			spec.Country = cfg.VM.Region
		}

		quote, err := client.EstimateVM(context.Background(), spec.ToEstimateRequest())
		if err != nil {
			return err
		}
		if renderer.Format() != output.FormatJSON {
			fmt.Printf("Pricing for %s in %s:\n", spec.Slug(), spec.Country)
		}
		return renderer.Quote(quote)
	},
}

var (
	marketOffersCPU      int
	marketOffersMemory   int
	marketOffersStorage  int
	marketOffersRegion   string
	marketOffersMaxPrice string
)

var marketOffersCmd = &cobra.Command{
	Use:   "offers",
	Short: "List marketplace offers matching constraints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		spec := &vmspec.Spec{
			CPU:              marketOffersCPU,
			MemoryGB:         marketOffersMemory,
			StorageGB:        marketOffersStorage,
			Country:          marketOffersRegion,
			MaxDailyPriceUSD: marketOffersMaxPrice,
		}
		if spec.Country == "" {
			spec.Country = cfg.VM.Region
		}

		offers, err := client.Offers(context.Background(), spec.ToOffersRequest())
		if err != nil {
			return err
		}
		return renderer.Offers(offers)
	},
}

var marketOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show a combined marketplace snapshot",
	Long: `Fetches countries, hardware, configurations and images in parallel
and renders them as one snapshot. Partial data is rendered even when
some fetches fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}

		overview, fetchErr := market.FetchOverview(context.Background(), client)

		if renderer.Format() == output.FormatJSON {
			if err := renderer.JSON(overview); err != nil {
				return err
			}
			return fetchErr
		}

		if overview.Countries != nil {
			if err := renderer.Countries(overview.Countries); err != nil {
				return err
			}
			fmt.Println()
		}
		if overview.Hardware != nil {
			if err := renderer.Hardware(overview.Hardware); err != nil {
				return err
			}
			fmt.Println()
		}
		if overview.Configurations != nil {
			fmt.Println("Basic configurations:")
			if err := renderer.Configurations(overview.Configurations); err != nil {
				return err
			}
			fmt.Println()
		}
		if overview.Images != nil {
			if err := renderer.Images(overview.Images); err != nil {
				return err
			}
		}
		return fetchErr
	},
}

func init() {
	marketPricingCmd.Flags().IntVar(&marketPricingCPU, "cpu", 2, "vCPU count")
	marketPricingCmd.Flags().IntVar(&marketPricingMemory, "memory", 4, "memory in GB")
	marketPricingCmd.Flags().StringVar(&marketPricingRegion, "region", "", "country code")

	marketOffersCmd.Flags().IntVar(&marketOffersCPU, "cpu", 2, "vCPU count")
	marketOffersCmd.Flags().IntVar(&marketOffersMemory, "memory", 4, "memory in GB")
	marketOffersCmd.Flags().IntVar(&marketOffersStorage, "storage", 25, "storage in GB")
	marketOffersCmd.Flags().StringVar(&marketOffersRegion, "region", "", "country code")
	marketOffersCmd.Flags().StringVar(&marketOffersMaxPrice, "max-price", "", "max daily price in USD")

	marketCmd.AddCommand(
		marketCountriesCmd,
		marketConfigurationsCmd,
		marketHardwareCmd,
		marketPricingCmd,
		marketOffersCmd,
		marketOverviewCmd,
	)
	rootCmd.AddCommand(marketCmd)
}
