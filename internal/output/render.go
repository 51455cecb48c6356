package output

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"fvm/internal/api"
)

// VMList renders a list of VMs. fullID disables id truncation in the
// table and compact formats.
func (r *Renderer) VMList(vms []api.VM, fullID bool) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(vms)
	case FormatCompact:
		for i, vm := range vms {
			id := vm.ID
			if !fullID {
				id = truncateID(id)
			}
			fmt.Fprintf(r.w, "%d. %s - %s - %s\n", i+1, id, vm.Status, vm.VMName)
		}
		return nil
	default:
		if len(vms) == 0 {
			fmt.Fprintln(r.w, "No VMs found")
			return nil
		}
		w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tIP\tCPU\tMEMORY\tREGION")
		for _, vm := range vms {
			id := vm.ID
			if !fullID {
				id = truncateID(id)
			}
			ip := vm.PublicIP
			if ip == "" {
				ip = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d GB\t%s\n",
				id, vm.VMName, vm.Status, ip, vm.CPUCount(), vm.MemoryGB(), vm.Region())
		}
		return w.Flush()
	}
}

// VMDetails renders a single VM as a field/value listing.
func (r *Renderer) VMDetails(vm *api.VM) error {
	if r.format == FormatJSON {
		return r.JSON(vm)
	}

	ports := make([]string, 0, len(vm.Ports))
	for _, p := range vm.Ports {
		ports = append(ports, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", vm.ID)
	fmt.Fprintf(w, "Name\t%s\n", vm.VMName)
	fmt.Fprintf(w, "Status\t%s\n", vm.Status)
	fmt.Fprintf(w, "IP\t%s\n", vm.PublicIP)
	fmt.Fprintf(w, "CPU\t%d\n", vm.CPUCount())
	fmt.Fprintf(w, "Memory\t%d GB\n", vm.MemoryGB())
	fmt.Fprintf(w, "Storage\t%d GB\n", vm.StorageGB())
	if vm.Datacenter != nil {
		fmt.Fprintf(w, "Datacenter\t%s/%s\n", vm.Datacenter.CountryCode, vm.Datacenter.CityCode)
	}
	fmt.Fprintf(w, "OS image\t%s\n", vm.OSImage)
	fmt.Fprintf(w, "Created\t%s\n", vm.CreatedAt)
	if vm.NextBillingAt != "" {
		fmt.Fprintf(w, "Next billing\t%s\n", vm.NextBillingAt)
	}
	if vm.PricePerEpoch != "" {
		fmt.Fprintf(w, "Price per day\t$%s\n", vm.PricePerEpoch)
	}
	if vm.TotalSpent != "" {
		fmt.Fprintf(w, "Total spent\t$%s\n", vm.TotalSpent)
	}
	fmt.Fprintf(w, "Open ports\t%s\n", strings.Join(ports, ", "))
	return w.Flush()
}

// Images renders the curated OS image list.
func (r *Renderer) Images(images []api.OSImage) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(images)
	case FormatCompact:
		for _, img := range images {
			fmt.Fprintf(r.w, "%s - %s\n", img.Slug, img.Name)
		}
		return nil
	default:
		if len(images) == 0 {
			fmt.Fprintln(r.w, "No images found")
			return nil
		}
		w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLUG\tNAME\tDISTRIBUTION\tUSERNAME\tCREATED")
		for _, img := range images {
			created := img.CreatedAt
			if len(created) > 10 {
				created = created[:10]
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				img.Slug, img.Name, img.Distribution, img.Username, created)
		}
		return w.Flush()
	}
}

// Countries renders the available country codes.
func (r *Renderer) Countries(codes []string) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(codes)
	case FormatCompact:
		fmt.Fprintf(r.w, "Available country codes: %s\n", strings.Join(codes, ", "))
		return nil
	default:
		fmt.Fprintln(r.w, "Available country codes:")
		for i, code := range codes {
			fmt.Fprintf(r.w, "%d. %s\n", i+1, code)
		}
		return nil
	}
}

// Hardware renders the marketplace hardware options.
func (r *Renderer) Hardware(hw *api.HardwareOptions) error {
	if r.format == FormatJSON {
		return r.JSON(hw)
	}

	fmt.Fprintln(r.w, "CPU options:")
	for _, cpu := range hw.CPU {
		fmt.Fprintf(r.w, "  - %s %s\n", cpu.Manufacturer, cpu.Architecture)
	}
	fmt.Fprintln(r.w, "Memory options:")
	for _, mem := range hw.Memory {
		fmt.Fprintf(r.w, "  - %s %s\n", mem.Type, mem.Generation)
	}
	fmt.Fprintln(r.w, "Storage options:")
	for _, st := range hw.Storage {
		fmt.Fprintf(r.w, "  - %s\n", st.Type)
	}
	return nil
}

// Configurations renders the basic configuration slugs.
func (r *Renderer) Configurations(configs []string) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(configs)
	default:
		for _, c := range configs {
			fmt.Fprintf(r.w, "%s\n", c)
		}
		return nil
	}
}

// Offers renders marketplace offers.
func (r *Renderer) Offers(offers []api.Offer) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(offers)
	case FormatCompact:
		for _, o := range offers {
			region := ""
			if o.Datacenter != nil {
				region = o.Datacenter.CountryCode
			}
			fmt.Fprintf(r.w, "%s - $%s - %s\n", o.Configuration.Slug, o.Configuration.Price, region)
		}
		return nil
	default:
		if len(offers) == 0 {
			fmt.Fprintln(r.w, "No offers found")
			return nil
		}
		w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONFIGURATION\tPRICE/DAY\tREGION\tAVAILABLE")
		for _, o := range offers {
			region := "-"
			if o.Datacenter != nil {
				region = o.Datacenter.CountryCode
			}
			fmt.Fprintf(w, "%s\t$%s\t%s\t%d\n",
				o.Configuration.Slug, o.Configuration.Price, region, o.ServersAvailable)
		}
		return w.Flush()
	}
}

// Quote renders a price estimate with derived hourly and monthly
// amounts where the server supplied only the daily price.
func (r *Renderer) Quote(q *api.PriceQuote) error {
	if r.format == FormatJSON {
		return r.JSON(q)
	}

	daily := q.DailyUSD()
	if daily == "" {
		fmt.Fprintln(r.w, "No pricing information available")
		return nil
	}
	fmt.Fprintf(r.w, "Daily price: $%s\n", daily)

	hourly := q.HourlyPriceUsd
	if hourly == "" {
		if v, err := parsePrice(daily); err == nil {
			hourly = fmt.Sprintf("%.6f", v/24)
		}
	}
	if hourly != "" {
		fmt.Fprintf(r.w, "Hourly price: $%s\n", hourly)
	}
	if v, err := parsePrice(daily); err == nil {
		fmt.Fprintf(r.w, "Monthly price (30 days): $%.2f\n", v*30)
	}
	return nil
}

func parsePrice(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%f", &v)
	return v, err
}
