package vmconfig

import "microvmd.zzh.net/internal/validator"

// DriveConfig describes one block device attached to the microVM. The
// rate limiter is optional; nil means the drive is unthrottled.
type DriveConfig struct {
	DriveID      string             `json:"drive_id"`
	PathOnHost   string             `json:"path_on_host"`
	IsRootDevice bool               `json:"is_root_device"`
	IsReadOnly   bool               `json:"is_read_only"`
	RateLimiter  *RateLimiterConfig `json:"rate_limiter,omitempty"`
}

// ValidateDrive validates the fields of cfg using validator v.
func ValidateDrive(v *validator.Validator, cfg DriveConfig) {
	v.Check(cfg.DriveID != "", "drive_id", "must be provided")
	v.Check(cfg.PathOnHost != "", "path_on_host", "must be provided")
}
