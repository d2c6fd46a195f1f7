package vmconfig

import "microvmd.zzh.net/internal/validator"

// Log levels accepted by PUT /logger.
var PermittedLogLevels = []string{"debug", "info", "warn", "error"}

// LoggerConfig selects the destination FIFO and verbosity for the
// monitor's structured log output. The FIFO must already exist; the
// monitor never creates it.
type LoggerConfig struct {
	LogPath string `json:"log_path"`
	Level   string `json:"level,omitempty"`
}

// ValidateLogger validates the fields of cfg using validator v.
func ValidateLogger(v *validator.Validator, cfg LoggerConfig) {
	v.Check(cfg.LogPath != "", "log_path", "must be provided")
	if cfg.Level != "" {
		v.Check(validator.PermittedValue(cfg.Level, PermittedLogLevels...), "level", "invalid log level")
	}
}

// MetricsConfig selects the destination FIFO for metrics flushes.
type MetricsConfig struct {
	MetricsPath string `json:"metrics_path"`
}

// ValidateMetrics validates the fields of cfg using validator v.
func ValidateMetrics(v *validator.Validator, cfg MetricsConfig) {
	v.Check(cfg.MetricsPath != "", "metrics_path", "must be provided")
}
