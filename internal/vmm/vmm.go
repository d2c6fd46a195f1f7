// Package vmm holds the monitor's control-plane state: the device
// configurations applied so far, the live rate limiters built from them,
// and the pre-boot / post-boot gating of mutations.
package vmm

import (
	"errors"
	"sync"

	"microvmd.zzh.net/internal/ratelimit"
	"microvmd.zzh.net/internal/vmconfig"
)

// Version reported in the instance info.
const Version = "0.9.0"

var (
	ErrNotFound       = errors.New("device not found")
	ErrAlreadyRunning = errors.New("operation not supported after the microVM has started")
	ErrNotRunning     = errors.New("operation not supported before the microVM has started")
)

// Drive pairs a drive's stored configuration with the live limiter built
// from it. The configuration is the source of truth: patches merge into it
// first, then the limiter is rebuilt.
type Drive struct {
	Config  vmconfig.DriveConfig
	Limiter *ratelimit.RateLimiter
}

// NetworkInterface pairs a network device's stored configuration with its
// two live limiters.
type NetworkInterface struct {
	Config    vmconfig.NetworkInterfaceConfig
	RxLimiter *ratelimit.RateLimiter
	TxLimiter *ratelimit.RateLimiter
}

// VMM is the single instance behind the admin API. All mutation goes
// through its lock; the config types themselves are not safe for
// concurrent update.
type VMM struct {
	mu sync.Mutex

	instanceID string
	running    bool

	boot    *vmconfig.BootSourceConfig
	machine vmconfig.MachineConfig
	vsock   *vmconfig.VsockDeviceConfig
	drives  map[string]*Drive
	netifs  map[string]*NetworkInterface
}

// New returns a VMM in the not-started state with a default machine shape.
func New(instanceID string) *VMM {
	return &VMM{
		instanceID: instanceID,
		machine:    vmconfig.DefaultMachineConfig(),
		drives:     make(map[string]*Drive),
		netifs:     make(map[string]*NetworkInterface),
	}
}

// Info returns the read-only instance description.
func (m *VMM) Info() vmconfig.InstanceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := vmconfig.StateNotStarted
	if m.running {
		state = vmconfig.StateRunning
	}

	return vmconfig.InstanceInfo{
		ID:         m.instanceID,
		State:      state,
		VMMVersion: Version,
	}
}

// Start transitions the instance to the running state. Pre-boot-only
// configuration is rejected from this point on.
func (m *VMM) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	m.running = true
	return nil
}

// SetBootSource stores the boot source configuration. Pre-boot only.
func (m *VMM) SetBootSource(cfg vmconfig.BootSourceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	m.boot = &cfg
	return nil
}

// SetMachineConfig stores the machine configuration. Pre-boot only.
func (m *VMM) SetMachineConfig(cfg vmconfig.MachineConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	m.machine = cfg
	return nil
}

// MachineConfig returns the current machine configuration.
func (m *VMM) MachineConfig() vmconfig.MachineConfig {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.machine
}

// SetVsock stores the vsock device configuration. Pre-boot only.
func (m *VMM) SetVsock(cfg vmconfig.VsockDeviceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	m.vsock = &cfg
	return nil
}

// UpsertDrive creates or replaces a drive configuration and builds its
// live limiter. Pre-boot only.
func (m *VMM) UpsertDrive(cfg vmconfig.DriveConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	drive := &Drive{Config: cfg}
	if cfg.RateLimiter != nil {
		limiter, err := cfg.RateLimiter.ToRateLimiter()
		if err != nil {
			return err
		}
		drive.Limiter = limiter
	}

	m.drives[cfg.DriveID] = drive
	return nil
}

// Drive returns a snapshot of the drive with the given id.
func (m *VMM) Drive(id string) (Drive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drive, ok := m.drives[id]
	if !ok {
		return Drive{}, ErrNotFound
	}

	return *drive, nil
}

// PatchDriveRateLimiter merges patch into the drive's stored limiter
// config and rebuilds the live limiter from the merged result. Post-boot
// only: before boot the client replaces the whole drive instead.
func (m *VMM) PatchDriveRateLimiter(id string, patch vmconfig.RateLimiterConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return ErrNotRunning
	}

	drive, ok := m.drives[id]
	if !ok {
		return ErrNotFound
	}

	if drive.Config.RateLimiter == nil {
		drive.Config.RateLimiter = &vmconfig.RateLimiterConfig{}
	}
	drive.Config.RateLimiter.Update(patch)

	limiter, err := drive.Config.RateLimiter.ToRateLimiter()
	if err != nil {
		return err
	}
	drive.Limiter = limiter

	return nil
}

// UpsertNetworkInterface creates or replaces a network device
// configuration and builds its live limiters. Pre-boot only.
func (m *VMM) UpsertNetworkInterface(cfg vmconfig.NetworkInterfaceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	netif := &NetworkInterface{Config: cfg}

	if cfg.RxRateLimiter != nil {
		limiter, err := cfg.RxRateLimiter.ToRateLimiter()
		if err != nil {
			return err
		}
		netif.RxLimiter = limiter
	}
	if cfg.TxRateLimiter != nil {
		limiter, err := cfg.TxRateLimiter.ToRateLimiter()
		if err != nil {
			return err
		}
		netif.TxLimiter = limiter
	}

	m.netifs[cfg.IfaceID] = netif
	return nil
}

// NetworkInterface returns a snapshot of the network device with the
// given id.
func (m *VMM) NetworkInterface(id string) (NetworkInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	netif, ok := m.netifs[id]
	if !ok {
		return NetworkInterface{}, ErrNotFound
	}

	return *netif, nil
}

// PatchNetworkInterfaceRateLimiters merges the rx and tx patches into the
// device's stored configs and rebuilds the affected live limiters. A nil
// patch leaves that direction completely untouched. Post-boot only.
func (m *VMM) PatchNetworkInterfaceRateLimiters(id string, rx, tx *vmconfig.RateLimiterConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return ErrNotRunning
	}

	netif, ok := m.netifs[id]
	if !ok {
		return ErrNotFound
	}

	if rx != nil {
		if netif.Config.RxRateLimiter == nil {
			netif.Config.RxRateLimiter = &vmconfig.RateLimiterConfig{}
		}
		netif.Config.RxRateLimiter.Update(*rx)

		limiter, err := netif.Config.RxRateLimiter.ToRateLimiter()
		if err != nil {
			return err
		}
		netif.RxLimiter = limiter
	}

	if tx != nil {
		if netif.Config.TxRateLimiter == nil {
			netif.Config.TxRateLimiter = &vmconfig.RateLimiterConfig{}
		}
		netif.Config.TxRateLimiter.Update(*tx)

		limiter, err := netif.Config.TxRateLimiter.ToRateLimiter()
		if err != nil {
			return err
		}
		netif.TxLimiter = limiter
	}

	return nil
}
