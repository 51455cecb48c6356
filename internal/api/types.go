package api

// VMStatus is the server-reported lifecycle status of a VM.
type VMStatus string

const (
	VMStatusLaunching         VMStatus = "Launching"
	VMStatusActive            VMStatus = "Active"
	VMStatusSmallBalance      VMStatus = "SmallBalance"
	VMStatusInsufficientFunds VMStatus = "InsufficientFunds"
	VMStatusTerminated        VMStatus = "Terminated"
	VMStatusStopped           VMStatus = "Stopped"
)

// Terminal reports whether no further lifecycle progress is expected
// from this status.
func (s VMStatus) Terminal() bool {
	return s == VMStatusTerminated || s == VMStatusStopped
}

// PortSpec is an open port with its transport protocol.
type PortSpec struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

// Resource is one supplied resource of a VM or offer (VCPU, RAM, STORAGE).
type Resource struct {
	Type   string `json:"type"`
	Supply int64  `json:"supply"`
	Units  string `json:"units,omitempty"`
}

// Datacenter describes where a VM or offer is hosted.
type Datacenter struct {
	CountryCode string `json:"countryCode"`
	CityCode    string `json:"cityCode,omitempty"`
}

// VM is the server-reported state of a provisioned VM. The client holds
// a read-only snapshot; every read re-fetches.
type VM struct {
	ID            string      `json:"id"`
	VMName        string      `json:"vmName"`
	Status        VMStatus    `json:"status"`
	PublicIP      string      `json:"publicIp,omitempty"`
	OSImage       string      `json:"osImage,omitempty"`
	CreatedAt     string      `json:"createdAt,omitempty"`
	NextBillingAt string      `json:"nextBillingAt,omitempty"`
	PricePerEpoch string      `json:"pricePerEpoch,omitempty"`
	TotalSpent    string      `json:"totalSpent,omitempty"`
	Resources     []Resource  `json:"resources,omitempty"`
	Datacenter    *Datacenter `json:"datacenter,omitempty"`
	Ports         []PortSpec  `json:"ports,omitempty"`
}

func (v *VM) resourceSupply(kind string) int64 {
	for _, r := range v.Resources {
		if r.Type == kind {
			return r.Supply
		}
	}
	return 0
}

// CPUCount returns the VCPU supply reported by the server.
func (v *VM) CPUCount() int64 { return v.resourceSupply("VCPU") }

// MemoryGB returns the RAM supply reported by the server.
func (v *VM) MemoryGB() int64 { return v.resourceSupply("RAM") }

// StorageGB returns the storage supply reported by the server.
func (v *VM) StorageGB() int64 { return v.resourceSupply("STORAGE") }

// Region returns the datacenter country code, if known.
func (v *VM) Region() string {
	if v.Datacenter == nil {
		return ""
	}
	return v.Datacenter.CountryCode
}

// DatacenterConstraint restricts offers to a set of countries.
type DatacenterConstraint struct {
	Countries []string `json:"countries"`
}

// CPUHardware is a CPU manufacturer/architecture pair.
type CPUHardware struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Architecture string `json:"architecture,omitempty"`
}

// MemoryHardware is a memory type/generation pair.
type MemoryHardware struct {
	Type       string `json:"type,omitempty"`
	Generation string `json:"generation,omitempty"`
}

// StorageHardware is a storage type (SSD, NVMe, HDD).
type StorageHardware struct {
	Type string `json:"type,omitempty"`
}

// HardwareConstraints narrows offers by hardware preferences.
type HardwareConstraints struct {
	CPU     []CPUHardware     `json:"cpu,omitempty"`
	Memory  []MemoryHardware  `json:"memory,omitempty"`
	Storage []StorageHardware `json:"storage,omitempty"`
}

// Constraints are the marketplace constraints of a create or estimate
// request.
type Constraints struct {
	BasicConfiguration       string                `json:"basicConfiguration,omitempty"`
	Datacenter               *DatacenterConstraint `json:"datacenter,omitempty"`
	Hardware                 *HardwareConstraints  `json:"hardware,omitempty"`
	MaxTotalPricePerEpochUsd string                `json:"maxTotalPricePerEpochUsd,omitempty"`
}

// VMConfiguration is the instance configuration of a create request.
type VMConfiguration struct {
	Name      string     `json:"name"`
	Hostname  string     `json:"hostname,omitempty"`
	OpenPorts []PortSpec `json:"openPorts,omitempty"`
	SSHKeys   []string   `json:"sshKeys"`
	OSImage   string     `json:"osImage,omitempty"`
}

// CreateVMRequest is the native create payload (POST vms/v3).
type CreateVMRequest struct {
	Constraints     Constraints     `json:"constraints"`
	Instances       int             `json:"instances"`
	VMConfiguration VMConfiguration `json:"vmConfiguration"`
}

// CreatedVM is one element of the create response array.
type CreatedVM struct {
	VMID   string `json:"vmId"`
	VMName string `json:"vmName"`
}

// EstimateRequest prices a set of constraints without creating anything.
type EstimateRequest struct {
	Constraints Constraints `json:"constraints"`
	Instances   int         `json:"instances"`
}

// PriceQuote is the server's price estimate. The API has shipped the
// daily amount under two different keys over time, so both are kept.
type PriceQuote struct {
	TotalPricePerEpoch    string `json:"totalPricePerEpoch,omitempty"`
	TotalPricePerEpochUsd string `json:"totalPricePerEpochUsd,omitempty"`
	HourlyPriceUsd        string `json:"hourlyPriceUsd,omitempty"`
	DailyPriceUsd         string `json:"dailyPriceUsd,omitempty"`
	MonthlyPriceUsd       string `json:"monthlyPriceUsd,omitempty"`
	Instances             int    `json:"instances,omitempty"`
}

// DailyUSD returns the daily price under whichever key the server used.
func (q *PriceQuote) DailyUSD() string {
	if q.TotalPricePerEpochUsd != "" {
		return q.TotalPricePerEpochUsd
	}
	if q.TotalPricePerEpoch != "" {
		return q.TotalPricePerEpoch
	}
	return q.DailyPriceUsd
}

// DeleteVMRequest carries the ids to delete (DELETE vms/v3).
type DeleteVMRequest struct {
	VMIDs []string `json:"vmIds"`
}

// VMPatch is one update entry of an update request. Zero-valued fields
// are left unchanged server-side.
type VMPatch struct {
	ID        string     `json:"id"`
	VMName    string     `json:"vmName,omitempty"`
	OpenPorts []PortSpec `json:"openPorts,omitempty"`
}

// UpdateVMRequest is the update payload (PATCH vms/v3).
type UpdateVMRequest struct {
	Updates []VMPatch `json:"updates"`
}

// OSImage is a curated OS image offered for VM creation.
type OSImage struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Distribution string `json:"distribution,omitempty"`
	Slug         string `json:"slug"`
	DownloadURL  string `json:"downloadUrl"`
	Username     string `json:"username,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// HardwareOptions lists the hardware available on the marketplace.
type HardwareOptions struct {
	CPU     []CPUHardware     `json:"cpu"`
	Memory  []MemoryHardware  `json:"memory"`
	Storage []StorageHardware `json:"storage"`
}

// OffersRequest filters marketplace offers by constraints.
type OffersRequest struct {
	Constraints Constraints `json:"constraints"`
}

// OfferConfiguration is the priced configuration of an offer.
type OfferConfiguration struct {
	Slug  string `json:"slug"`
	Price string `json:"price,omitempty"`
}

// Offer is one marketplace offer matching the requested constraints.
type Offer struct {
	Configuration    OfferConfiguration `json:"configuration"`
	Resources        []Resource         `json:"resources,omitempty"`
	Datacenter       *Datacenter        `json:"datacenter,omitempty"`
	ServersAvailable int                `json:"serversAvailable,omitempty"`
}
