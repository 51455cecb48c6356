// Package vmspec defines the canonical desired-state record for VM
// creation. Every input shape (flags plus effective config, a native
// API JSON file, or a simplified YAML file) normalizes into Spec before
// any further processing.
package vmspec

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fvm/internal/api"
	"fvm/internal/config"
	"fvm/internal/sshkey"
)

// Spec is the canonical VM specification. Immutable once submitted.
type Spec struct {
	// Resource constraints.
	CPU       int
	MemoryGB  int
	StorageGB int
	// BasicConfiguration, when set, overrides the slug composed from
	// CPU/MemoryGB/StorageGB. Set by the native-file parse path.
	BasicConfiguration string
	Country            string
	CPUManufacturer    string
	CPUArchitecture    string
	StorageType        string
	MaxDailyPriceUSD   string

	// Instance configuration.
	Name      string
	Hostname  string
	OSImage   string
	SSHKeys   []string
	OpenPorts []api.PortSpec

	Instances int
}

// GenerateName returns a fresh VM name under the given prefix.
func GenerateName(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// FromConfig builds a spec from the effective configuration. The SSH
// key is normalized and validated here; a name is generated from the
// configured prefix.
func FromConfig(cfg *config.Config) (*Spec, error) {
	key, err := sshkey.Normalize(cfg.SSHPublicKey)
	if err != nil {
		return nil, err
	}

	name := GenerateName(cfg.VM.NamePrefix)
	spec := &Spec{
		CPU:             cfg.VM.CPUCount,
		MemoryGB:        cfg.VM.MemoryGB,
		StorageGB:       cfg.VM.StorageGB,
		Country:         cfg.VM.Region,
		CPUManufacturer: cfg.Hardware.CPUManufacturer,
		CPUArchitecture: cfg.Hardware.CPUArchitecture,
		StorageType:     cfg.Hardware.StorageType,
		Name:            name,
		Hostname:        name,
		OSImage:         cfg.VM.OSImage,
		SSHKeys:         []string{key},
		Instances:       1,
	}
	for _, p := range cfg.Network.OpenPorts {
		spec.OpenPorts = append(spec.OpenPorts, api.PortSpec{Port: p.Port, Protocol: p.Protocol})
	}
	spec.EnsureSSHPort()
	return spec, nil
}

// EnsureSSHPort guarantees the open-port set includes 22/tcp.
func (s *Spec) EnsureSSHPort() {
	for _, p := range s.OpenPorts {
		if p.Port == 22 && strings.EqualFold(p.Protocol, "tcp") {
			return
		}
	}
	s.OpenPorts = append([]api.PortSpec{{Port: 22, Protocol: "tcp"}}, s.OpenPorts...)
}

// Validate rejects incomplete specs before any network call.
func (s *Spec) Validate() error {
	fail := func(format string, args ...any) error {
		return &api.Error{Kind: api.KindValidation, Op: "vm spec", Detail: fmt.Sprintf(format, args...)}
	}

	if s.BasicConfiguration == "" {
		if s.CPU <= 0 {
			return fail("cpu count must be positive, got %d", s.CPU)
		}
		if s.MemoryGB <= 0 {
			return fail("memory must be positive, got %d GB", s.MemoryGB)
		}
		if s.StorageGB <= 0 {
			return fail("storage must be positive, got %d GB", s.StorageGB)
		}
	}
	if s.Name == "" {
		return fail("name is required")
	}
	if len(s.SSHKeys) == 0 {
		return fail("at least one ssh public key is required")
	}
	for _, p := range s.OpenPorts {
		if p.Port < 1 || p.Port > 65535 {
			return fail("invalid port %d", p.Port)
		}
	}
	if s.Instances < 1 {
		return fail("instances must be at least 1, got %d", s.Instances)
	}
	return nil
}

// Slug returns the basic-configuration slug for the spec's sizing.
func (s *Spec) Slug() string {
	if s.BasicConfiguration != "" {
		return s.BasicConfiguration
	}
	return fmt.Sprintf("cpu-%d-ram-%dgb-storage-%dgb", s.CPU, s.MemoryGB, s.StorageGB)
}

// Constraints builds the marketplace constraints for create, estimate
// and offer requests.
func (s *Spec) Constraints() api.Constraints {
	c := api.Constraints{
		BasicConfiguration:       s.Slug(),
		MaxTotalPricePerEpochUsd: s.MaxDailyPriceUSD,
	}
	if s.Country != "" {
		c.Datacenter = &api.DatacenterConstraint{Countries: []string{s.Country}}
	}
	if s.CPUManufacturer != "" || s.CPUArchitecture != "" || s.StorageType != "" {
		hw := &api.HardwareConstraints{}
		if s.CPUManufacturer != "" || s.CPUArchitecture != "" {
			hw.CPU = []api.CPUHardware{{Manufacturer: s.CPUManufacturer, Architecture: s.CPUArchitecture}}
		}
		if s.StorageType != "" {
			hw.Storage = []api.StorageHardware{{Type: s.StorageType}}
		}
		c.Hardware = hw
	}
	return c
}

// ToCreateRequest produces the native create payload.
func (s *Spec) ToCreateRequest() api.CreateVMRequest {
	instances := s.Instances
	if instances < 1 {
		instances = 1
	}
	return api.CreateVMRequest{
		Constraints: s.Constraints(),
		Instances:   instances,
		VMConfiguration: api.VMConfiguration{
			Name:      s.Name,
			Hostname:  s.Hostname,
			OpenPorts: s.OpenPorts,
			SSHKeys:   s.SSHKeys,
			OSImage:   s.OSImage,
		},
	}
}

// ToOffersRequest produces the marketplace offers payload for the
// spec's constraints.
func (s *Spec) ToOffersRequest() api.OffersRequest {
	return api.OffersRequest{Constraints: s.Constraints()}
}

// ToEstimateRequest produces the estimate payload for the spec's
// constraints.
func (s *Spec) ToEstimateRequest() api.EstimateRequest {
	instances := s.Instances
	if instances < 1 {
		instances = 1
	}
	return api.EstimateRequest{
		Constraints: s.Constraints(),
		Instances:   instances,
	}
}
