package vmspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fvm/internal/api"
)

// LoadFile parses a VM creation file. Two shapes are accepted, each
// with its own explicit parse path: the API's native JSON schema
// (detected by a leading '{') and the simplified YAML settings shape.
// Both normalize into a Spec.
func LoadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read VM config file: %w", err)
	}

	if isNative(data) {
		return parseNative(data)
	}
	return parseSimplified(data)
}

func isNative(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// parseNative decodes the API's own create-request schema.
func parseNative(data []byte) (*Spec, error) {
	var req api.CreateVMRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid native VM config: %w", err)
	}
	if req.Constraints.BasicConfiguration == "" {
		return nil, fmt.Errorf("invalid native VM config: constraints.basicConfiguration is required")
	}

	spec := &Spec{
		BasicConfiguration: req.Constraints.BasicConfiguration,
		MaxDailyPriceUSD:   req.Constraints.MaxTotalPricePerEpochUsd,
		Name:               req.VMConfiguration.Name,
		Hostname:           req.VMConfiguration.Hostname,
		OSImage:            req.VMConfiguration.OSImage,
		SSHKeys:            req.VMConfiguration.SSHKeys,
		OpenPorts:          req.VMConfiguration.OpenPorts,
		Instances:          req.Instances,
	}
	if spec.Instances < 1 {
		spec.Instances = 1
	}

	// Back-fill sizing from the slug where it follows the standard
	// form, so estimates and reports can show numbers.
	fmt.Sscanf(req.Constraints.BasicConfiguration, "cpu-%d-ram-%dgb-storage-%dgb",
		&spec.CPU, &spec.MemoryGB, &spec.StorageGB)

	if dc := req.Constraints.Datacenter; dc != nil && len(dc.Countries) > 0 {
		spec.Country = dc.Countries[0]
	}
	if hw := req.Constraints.Hardware; hw != nil {
		if len(hw.CPU) > 0 {
			spec.CPUManufacturer = hw.CPU[0].Manufacturer
			spec.CPUArchitecture = hw.CPU[0].Architecture
		}
		if len(hw.Storage) > 0 {
			spec.StorageType = hw.Storage[0].Type
		}
	}

	spec.EnsureSSHPort()
	return spec, nil
}

// simplifiedFile mirrors the settings-file sections relevant to VM
// creation, plus optional name/ssh key fields a standalone file needs.
type simplifiedFile struct {
	VM struct {
		CPUCount   int    `yaml:"cpu_count"`
		MemoryGB   int    `yaml:"memory_gb"`
		StorageGB  int    `yaml:"storage_gb"`
		Region     string `yaml:"region"`
		Name       string `yaml:"name"`
		NamePrefix string `yaml:"name_prefix"`
		Hostname   string `yaml:"hostname"`
		OSImage    string `yaml:"os_image"`
	} `yaml:"vm"`
	Hardware struct {
		CPUManufacturer string `yaml:"cpu_manufacturer"`
		CPUArchitecture string `yaml:"cpu_architecture"`
		StorageType     string `yaml:"storage_type"`
	} `yaml:"hardware"`
	Network struct {
		OpenPorts []struct {
			Port     int    `yaml:"port"`
			Protocol string `yaml:"protocol"`
		} `yaml:"open_ports"`
	} `yaml:"network"`
	SSHKeys          []string `yaml:"ssh_keys"`
	MaxDailyPriceUSD string   `yaml:"max_daily_price_usd"`
}

// parseSimplified decodes the simplified YAML shape. Decoding is
// strict: an unknown key is an error rather than silently dropped.
func parseSimplified(data []byte) (*Spec, error) {
	var file simplifiedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("invalid simplified VM config: %w", err)
	}

	name := file.VM.Name
	if name == "" && file.VM.NamePrefix != "" {
		name = GenerateName(file.VM.NamePrefix)
	}
	hostname := file.VM.Hostname
	if hostname == "" {
		hostname = name
	}

	spec := &Spec{
		CPU:              file.VM.CPUCount,
		MemoryGB:         file.VM.MemoryGB,
		StorageGB:        file.VM.StorageGB,
		Country:          file.VM.Region,
		CPUManufacturer:  file.Hardware.CPUManufacturer,
		CPUArchitecture:  file.Hardware.CPUArchitecture,
		StorageType:      file.Hardware.StorageType,
		MaxDailyPriceUSD: file.MaxDailyPriceUSD,
		Name:             name,
		Hostname:         hostname,
		OSImage:          file.VM.OSImage,
		SSHKeys:          file.SSHKeys,
		Instances:        1,
	}
	for _, p := range file.Network.OpenPorts {
		spec.OpenPorts = append(spec.OpenPorts, api.PortSpec{Port: p.Port, Protocol: p.Protocol})
	}

	spec.EnsureSSHPort()
	return spec, nil
}
