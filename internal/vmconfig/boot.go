package vmconfig

import "microvmd.zzh.net/internal/validator"

// BootSourceConfig describes the guest kernel the microVM boots from.
type BootSourceConfig struct {
	KernelImagePath string `json:"kernel_image_path"`
	InitrdPath      string `json:"initrd_path,omitempty"`
	BootArgs        string `json:"boot_args,omitempty"`
}

// ValidateBootSource validates the fields of cfg using validator v.
func ValidateBootSource(v *validator.Validator, cfg BootSourceConfig) {
	v.Check(cfg.KernelImagePath != "", "kernel_image_path", "must be provided")
}
