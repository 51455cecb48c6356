package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fvm/internal/api"
	"fvm/internal/lifecycle"
	"fvm/internal/logging"
	"fvm/internal/output"
	"fvm/internal/sshkey"
	"fvm/internal/vmspec"
)

var vmCmd = &cobra.Command{
	Use:   "vm",
	Short: "Manage virtual machines",
}

var (
	vmListAll    bool
	vmListStatus string
	vmListFullID bool
)

var vmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your virtual machines",
	Long:  "Lists your virtual machines. Only Active VMs are shown unless --all or --status is given.",
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

		vms, err := client.ListVMs(context.Background())
		if err != nil {
			return err
		}

		return renderer.VMList(selectVMs(vms, vmListAll, vmListStatus), vmListFullID)
	},
}

// selectVMs applies the list filters: an explicit status wins, --all
// disables filtering, and the default shows Active VMs only.
func selectVMs(vms []api.VM, all bool, status string) []api.VM {
	switch {
	case status != "":
		return filterByStatus(vms, status)
	case !all:
		return filterByStatus(vms, string(api.VMStatusActive))
	}
	return vms
}

func filterByStatus(vms []api.VM, status string) []api.VM {
	filtered := vms[:0:0]
	for _, vm := range vms {
		if strings.EqualFold(string(vm.Status), status) {
			filtered = append(filtered, vm)
		}
	}
	return filtered
}

var vmGetCmd = &cobra.Command{
	Use:   "get <vm-id>",
	Short: "Show one virtual machine",
	Args:  cobra.ExactArgs(1),
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

		vm, err := client.GetVM(context.Background(), args[0])
		if err != nil {
			return err
		}
		return renderer.VMDetails(vm)
	},
}

var vmImagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List the curated OS images",
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

		images, err := client.DefaultImages(context.Background())
		if err != nil {
			return err
		}
		return renderer.Images(images)
	},
}

var (
	vmCreateCPU     int
	vmCreateMemory  int
	vmCreateStorage int
	vmCreateRegion  string
	vmCreateImage   string
	vmCreateConfig  string
	vmCreateWait    bool
)

var vmCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a virtual machine",
	Long: `Creates a virtual machine from the effective configuration, a spec
file (--config), and flag overrides. A name is generated from the
configured prefix when none is given.`,
	Args: cobra.MaximumNArgs(1),
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
		ctx := context.Background()

		var spec *vmspec.Spec
		if vmCreateConfig != "" {
			spec, err = vmspec.LoadFile(vmCreateConfig)
			if err != nil {
				return err
			}
			if len(spec.SSHKeys) == 0 {
				if err := cfg.RequireSSHKey(); err != nil {
					return err
				}
				key, err := sshkey.Normalize(cfg.SSHPublicKey)
				if err != nil {
					return err
				}
				spec.SSHKeys = []string{key}
			}
		} else {
			if err := cfg.RequireSSHKey(); err != nil {
				return err
			}
			spec, err = vmspec.FromConfig(cfg)
			if err != nil {
				return err
			}
		}

		if len(args) == 1 {
			spec.Name = args[0]
			spec.Hostname = args[0]
		}
		if cmd.Flags().Changed("cpu") {
			spec.CPU = vmCreateCPU
			spec.BasicConfiguration = ""
		}
		if cmd.Flags().Changed("memory") {
			spec.MemoryGB = vmCreateMemory
			spec.BasicConfiguration = ""
		}
		if cmd.Flags().Changed("storage") {
			spec.StorageGB = vmCreateStorage
			spec.BasicConfiguration = ""
		}
		if cmd.Flags().Changed("region") {
			spec.Country = vmCreateRegion
		}
		if cmd.Flags().Changed("image") {
			image, err := resolveImage(ctx, client, vmCreateImage)
			if err != nil {
				return err
			}
			spec.OSImage = image
		}

		if err := spec.Validate(); err != nil {
			return err
		}

		created, err := client.CreateVM(ctx, spec.ToCreateRequest())
		if err != nil {
			return err
		}
		if len(created) == 0 {
			return fmt.Errorf("create returned no instances")
		}

		if renderer.Format() == output.FormatJSON {
			if !vmCreateWait {
				return renderer.JSON(created)
			}
		} else {
			for _, vm := range created {
				fmt.Printf("VM created: %s (id %s)\n", vm.VMName, vm.VMID)
			}
		}

		if !vmCreateWait {
			return nil
		}

		logging.Logger().Info("waiting for VM to become ready",
			zap.String("vm_id", created[0].VMID),
			zap.Duration("timeout", cfg.Timeout()))
		vm, err := lifecycle.New(client).WaitReady(ctx, created[0].VMID, cfg.Timeout(), cfg.PollInterval())
		if err != nil {
			return err
		}
		return renderer.VMDetails(vm)
	},
}

// resolveImage accepts either a direct image URL or a curated image
// slug, which is resolved against the default-images catalog.
func resolveImage(ctx context.Context, client *api.Client, image string) (string, error) {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image, nil
	}
	images, err := client.DefaultImages(ctx)
	if err != nil {
		return "", err
	}
	for _, img := range images {
		if strings.EqualFold(img.Slug, image) {
			return img.DownloadURL, nil
		}
	}
	return "", fmt.Errorf("unknown image %q; run 'fvm-cli vm images' for the catalog", image)
}

var (
	vmEstimateCPU     int
	vmEstimateMemory  int
	vmEstimateStorage int
	vmEstimateRegion  string
	vmEstimateConfig  string
)

var vmEstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the price of a virtual machine",
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

		var spec *vmspec.Spec
		if vmEstimateConfig != "" {
			spec, err = vmspec.LoadFile(vmEstimateConfig)
			if err != nil {
				return err
			}
		} else {
			spec = &vmspec.Spec{
				CPU:       cfg.VM.CPUCount,
				MemoryGB:  cfg.VM.MemoryGB,
				StorageGB: cfg.VM.StorageGB,
				Country:   cfg.VM.Region,
			}
		}
		if cmd.Flags().Changed("cpu") {
			spec.CPU = vmEstimateCPU
			spec.BasicConfiguration = ""
		}
		if cmd.Flags().Changed("memory") {
			spec.MemoryGB = vmEstimateMemory
			spec.BasicConfiguration = ""
		}
		if cmd.Flags().Changed("storage") {
			spec.StorageGB = vmEstimateStorage
			spec.BasicConfiguration = ""
		}
		if cmd.Flags().Changed("region") {
			spec.Country = vmEstimateRegion
		}

		quote, err := client.EstimateVM(context.Background(), spec.ToEstimateRequest())
		if err != nil {
			return err
		}
		return renderer.Quote(quote)
	},
}

var (
	vmUpdateName        string
	vmUpdateAddPorts    []string
	vmUpdateRemovePorts []string
	vmUpdateForce       bool
)

var vmUpdateCmd = &cobra.Command{
	Use:   "update <vm-id>",
	Short: "Update a virtual machine's name or open ports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if vmUpdateName == "" && len(vmUpdateAddPorts) == 0 && len(vmUpdateRemovePorts) == 0 {
			return fmt.Errorf("nothing to update: pass --name, --add-port or --remove-port")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		ctx := context.Background()

		vm, err := client.GetVM(ctx, args[0])
		if err != nil {
			return err
		}

		name := vm.VMName
		if vmUpdateName != "" {
			name = vmUpdateName
		}
		ports, err := mergePorts(vm.Ports, vmUpdateAddPorts, vmUpdateRemovePorts)
		if err != nil {
			return err
		}

		if !vmUpdateForce && !confirm(fmt.Sprintf("Update VM %s (%s)?", vm.VMName, vm.ID)) {
			fmt.Println("Aborted")
			return nil
		}

		patch := api.VMPatch{ID: vm.ID, VMName: name, OpenPorts: ports}
		if err := client.UpdateVM(ctx, patch); err != nil {
			return err
		}
		fmt.Printf("VM %s updated\n", vm.ID)
		return nil
	},
}

// parsePortSpec parses "PORT" or "PORT/PROTOCOL", defaulting to tcp.
func parsePortSpec(s string) (api.PortSpec, error) {
	portPart, protocol := s, "tcp"
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		portPart, protocol = s[:idx], strings.ToLower(s[idx+1:])
	}
	port, err := strconv.Atoi(portPart)
	if err != nil || port < 1 || port > 65535 {
		return api.PortSpec{}, fmt.Errorf("invalid port spec %q: want PORT or PORT/PROTOCOL", s)
	}
	if protocol != "tcp" && protocol != "udp" {
		return api.PortSpec{}, fmt.Errorf("invalid protocol in %q: want tcp or udp", s)
	}
	return api.PortSpec{Port: port, Protocol: protocol}, nil
}

// mergePorts applies additions and removals to the current open-port
// set, preserving order and dropping duplicates.
func mergePorts(current []api.PortSpec, add, remove []string) ([]api.PortSpec, error) {
	removed := make(map[api.PortSpec]bool, len(remove))
	for _, s := range remove {
		spec, err := parsePortSpec(s)
		if err != nil {
			return nil, err
		}
		removed[spec] = true
	}

	seen := make(map[api.PortSpec]bool, len(current))
	var merged []api.PortSpec
	keep := func(p api.PortSpec) {
		p.Protocol = strings.ToLower(p.Protocol)
		if removed[p] || seen[p] {
			return
		}
		seen[p] = true
		merged = append(merged, p)
	}
	for _, p := range current {
		keep(p)
	}
	for _, s := range add {
		spec, err := parsePortSpec(s)
		if err != nil {
			return nil, err
		}
		keep(spec)
	}
	return merged, nil
}

var vmDeleteForce bool

var vmDeleteCmd = &cobra.Command{
	Use:   "delete <vm-id>...",
	Short: "Delete one or more virtual machines",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		if !vmDeleteForce {
			prompt := fmt.Sprintf("Delete VM %s?", args[0])
			if len(args) > 1 {
				prompt = fmt.Sprintf("Delete %d VMs?", len(args))
			}
			if !confirm(prompt) {
				fmt.Println("Aborted")
				return nil
			}
		}

		if err := client.DeleteVMs(context.Background(), args...); err != nil {
			return err
		}
		for _, id := range args {
			fmt.Printf("VM %s deletion initiated\n", id)
		}
		return nil
	},
}

func init() {
	vmListCmd.Flags().BoolVar(&vmListAll, "all", false, "include VMs in every status")
	vmListCmd.Flags().StringVar(&vmListStatus, "status", "", "only VMs with this status")
	vmListCmd.Flags().BoolVar(&vmListFullID, "full-id", false, "show untruncated VM ids")

	vmCreateCmd.Flags().IntVar(&vmCreateCPU, "cpu", 0, "vCPU count")
	vmCreateCmd.Flags().IntVar(&vmCreateMemory, "memory", 0, "memory in GB")
	vmCreateCmd.Flags().IntVar(&vmCreateStorage, "storage", 0, "storage in GB")
	vmCreateCmd.Flags().StringVar(&vmCreateRegion, "region", "", "country code")
	vmCreateCmd.Flags().StringVar(&vmCreateImage, "image", "", "OS image slug or URL")
	vmCreateCmd.Flags().StringVar(&vmCreateConfig, "config", "", "VM spec file (YAML or native API JSON)")
	vmCreateCmd.Flags().BoolVar(&vmCreateWait, "wait", false, "wait until the VM is ready")

	vmEstimateCmd.Flags().IntVar(&vmEstimateCPU, "cpu", 0, "vCPU count")
	vmEstimateCmd.Flags().IntVar(&vmEstimateMemory, "memory", 0, "memory in GB")
	vmEstimateCmd.Flags().IntVar(&vmEstimateStorage, "storage", 25, "storage in GB")
	vmEstimateCmd.Flags().StringVar(&vmEstimateRegion, "region", "", "country code")
	vmEstimateCmd.Flags().StringVar(&vmEstimateConfig, "config", "", "VM spec file (YAML or native API JSON)")

	vmUpdateCmd.Flags().StringVar(&vmUpdateName, "name", "", "new VM name")
	vmUpdateCmd.Flags().StringArrayVar(&vmUpdateAddPorts, "add-port", nil, "port to open, PORT or PORT/PROTOCOL (repeatable)")
	vmUpdateCmd.Flags().StringArrayVar(&vmUpdateRemovePorts, "remove-port", nil, "port to close, PORT or PORT/PROTOCOL (repeatable)")
	vmUpdateCmd.Flags().BoolVar(&vmUpdateForce, "force", false, "skip the confirmation prompt")

	vmDeleteCmd.Flags().BoolVar(&vmDeleteForce, "force", false, "skip the confirmation prompt")

	vmCmd.AddCommand(vmListCmd, vmGetCmd, vmImagesCmd, vmCreateCmd, vmEstimateCmd, vmUpdateCmd, vmDeleteCmd)
	rootCmd.AddCommand(vmCmd)
}
