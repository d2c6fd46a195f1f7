package config

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config stores daemon configuration that can be dynamically reloaded at runtime.
type Config struct {
	ServerAddress  string  `mapstructure:"SERVER_ADDRESS"`
	Env            string  `mapstructure:"ENV"`
	InstanceID     string  `mapstructure:"INSTANCE_ID"`
	LogLevel       string  `mapstructure:"LOG_LEVEL"`
	APITokenHash   string  `mapstructure:"API_TOKEN_HASH"`
	LimiterRPS     float64 `mapstructure:"LIMITER_RPS"`
	LimiterBurst   int     `mapstructure:"LIMITER_BURST"`
	LimiterEnabled bool    `mapstructure:"LIMITER_ENABLED"`
	LoadTime       time.Time
}

// LoadConfig loads configuration from a config file to a Config instance.
func LoadConfig(v *viper.Viper, cfgPath, cfgType, cfgName string, cfg *Config) error {
	v.AddConfigPath(cfgPath)
	v.SetConfigType(cfgType)
	v.SetConfigName(cfgName)

	err := v.ReadInConfig()
	if err != nil {
		return err
	}

	err = v.Unmarshal(cfg)
	if err != nil {
		return err
	}

	cfg.LoadTime = time.Now()

	return nil
}

// WatchConfig re-reads the config file whenever it changes on disk and
// hands the freshly loaded Config to onReload. Unparseable edits are
// dropped; the previously loaded configuration stays in effect.
func WatchConfig(v *viper.Viper, onReload func(Config, fsnotify.Event)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config

		err := v.Unmarshal(&cfg)
		if err != nil {
			return
		}

		cfg.LoadTime = time.Now()
		onReload(cfg, e)
	})

	v.WatchConfig()
}
