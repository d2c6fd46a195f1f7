package vmconfig

import "microvmd.zzh.net/internal/validator"

// CPU templates the hypervisor knows how to apply.
var PermittedCPUTemplates = []string{"None", "C3", "T2"}

// MachineConfig describes the vCPU and memory shape of the microVM.
type MachineConfig struct {
	VCPUCount   int    `json:"vcpu_count"`
	MemSizeMiB  int    `json:"mem_size_mib"`
	SMT         bool   `json:"smt"`
	CPUTemplate string `json:"cpu_template,omitempty"`
}

// DefaultMachineConfig returns the shape used when the client never calls
// PUT /machine-config before boot.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		VCPUCount:   1,
		MemSizeMiB:  128,
		CPUTemplate: "None",
	}
}

// ValidateMachineConfig validates the fields of cfg using validator v.
func ValidateMachineConfig(v *validator.Validator, cfg MachineConfig) {
	v.Check(cfg.VCPUCount >= 1, "vcpu_count", "must be at least 1")
	v.Check(cfg.VCPUCount <= 32, "vcpu_count", "must not be greater than 32")
	v.Check(cfg.MemSizeMiB > 0, "mem_size_mib", "must be greater than 0")
	if cfg.CPUTemplate != "" {
		v.Check(validator.PermittedValue(cfg.CPUTemplate, PermittedCPUTemplates...),
			"cpu_template", "invalid CPU template")
	}
}
