package vmconfig

import (
	"regexp"

	"microvmd.zzh.net/internal/validator"
)

var macRX = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// NetworkInterfaceConfig describes one network device attached to the
// microVM. Receive and transmit traffic are throttled independently.
type NetworkInterfaceConfig struct {
	IfaceID       string             `json:"iface_id"`
	HostDevName   string             `json:"host_dev_name"`
	GuestMAC      string             `json:"guest_mac,omitempty"`
	RxRateLimiter *RateLimiterConfig `json:"rx_rate_limiter,omitempty"`
	TxRateLimiter *RateLimiterConfig `json:"tx_rate_limiter,omitempty"`
}

// ValidateNetworkInterface validates the fields of cfg using validator v.
func ValidateNetworkInterface(v *validator.Validator, cfg NetworkInterfaceConfig) {
	v.Check(cfg.IfaceID != "", "iface_id", "must be provided")
	v.Check(cfg.HostDevName != "", "host_dev_name", "must be provided")
	if cfg.GuestMAC != "" {
		v.Check(validator.Matches(cfg.GuestMAC, macRX), "guest_mac", "must be a valid MAC address")
	}
}
