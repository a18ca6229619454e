package app

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the raw application section of the config file, handed to
// App.Init for the application to decode.
type Config map[string]interface{}

// BaseConfig configures the process: logging, the HTTP listeners and
// runtime hygiene. The application's own settings are under "app".
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	ListenAddress      string `mapstructure:"listen_address"`
	DebugListenAddress string `mapstructure:"debug_listen_address"`

	// TLSCertificate and TLSKey are optional file URLs. When set, the HTTP
	// server only accepts TLS.
	TLSCertificate string `mapstructure:"tls_certificate"`
	TLSKey         string `mapstructure:"tls_private_key"`

	// CorsAllowedOrigins lists the origins browsers may call the API from.
	// Cross origin requests are rejected when empty.
	CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	ReadHeaderTimeout   time.Duration `mapstructure:"read_header_timeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// BallastCapacity is the share of memory to allocate as a GC ballast,
	// capped at 0.5.
	//
	// https://blog.twitch.tv/en/2019/04/10/go-memory-ballast-how-i-learnt-to-stop-worrying-and-love-the-heap/
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	// EnableMemoryLeakCron restarts the process on a cron schedule
	EnableMemoryLeakCron   bool   `mapstructure:"enable_memory_leak_cron"`
	MemoryLeakCronSchedule string `mapstructure:"memory_leak_cron_schedule"`

	// New Relic is enabled when a license key is set
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	AppConfig Config `mapstructure:"app"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "auction-house",

	ListenAddress:      ":8085",
	DebugListenAddress: ":8123",

	ReadHeaderTimeout:   10 * time.Second,
	ShutdownGracePeriod: 30 * time.Second,

	EnablePprof:  true,
	EnableExpvar: true,

	EnableBallast:   false,
	BallastCapacity: 0.333,

	EnableMemoryLeakCron:   false,
	MemoryLeakCronSchedule: "0 5 * * *",
}

// envKeys are the base config keys that can be set from the environment, as
// the upper cased key
var envKeys = []string{
	"log_level",
	"app_name",
	"listen_address",
	"debug_listen_address",
	"tls_certificate",
	"tls_private_key",
	"cors_allowed_origins",
	"read_header_timeout",
	"shutdown_grace_period",
	"enable_pprof",
	"enable_expvar",
	"enable_ballast",
	"ballast_capacity",
	"enable_memory_leak_cron",
	"memory_leak_cron_schedule",
	"new_relic_license_key",
}

func init() {
	for _, key := range envKeys {
		_ = viper.BindEnv(key, strings.ToUpper(key))
	}
}
