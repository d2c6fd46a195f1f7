package vmconfig

import "microvmd.zzh.net/internal/validator"

// VsockDeviceConfig describes the virtio-vsock device bridging the guest
// to a unix socket on the host. CIDs 0-2 are reserved by the vsock
// addressing scheme (hypervisor, loopback, host).
type VsockDeviceConfig struct {
	VsockID  string `json:"vsock_id"`
	GuestCID uint32 `json:"guest_cid"`
	UDSPath  string `json:"uds_path"`
}

// ValidateVsockDevice validates the fields of cfg using validator v.
func ValidateVsockDevice(v *validator.Validator, cfg VsockDeviceConfig) {
	v.Check(cfg.VsockID != "", "vsock_id", "must be provided")
	v.Check(cfg.GuestCID >= 3, "guest_cid", "must be at least 3")
	v.Check(cfg.UDSPath != "", "uds_path", "must be provided")
}
