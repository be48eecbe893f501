package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoaderConfig holds optional file overrides for Load.
type LoaderConfig struct {
	ConfigFile string // YAML file; empty means none
	EnvFile    string // .env file; empty means ./.env if present
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path. A missing file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path. A missing file is an error.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load resolves the configuration. Precedence, highest first: flags set on
// the command line, PARBENCH_* environment variables (including those from
// the .env file), the YAML file, built-in defaults.
//
// flags may be nil. Flag names use dashes where keys use underscores, and
// the log.* keys are exposed as --log-*.
func Load(flags *pflag.FlagSet, opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	if err := loadEnvFile(lc.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", lc.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Log.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("env file %s not found: %w", path, err)
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// bindFlags binds every defined flag to its config key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := flagKey(f.Name)
		if _, known := defaults[key]; !known {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

// flagKey maps a flag name to its config key:
//
//	rate-limit -> rate_limit
//	log-no-color -> log.no_color
func flagKey(name string) string {
	if rest, ok := strings.CutPrefix(name, "log-"); ok {
		return "log." + strings.ReplaceAll(rest, "-", "_")
	}
	return strings.ReplaceAll(name, "-", "_")
}

// RegisterFlags defines the parbench flags on fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("workload", "w", defaults["workload"].(string), "workload to run: "+strings.Join(Workloads, ", "))
	fs.IntP("items", "n", defaults["items"].(int), "number of input items")
	fs.IntSliceP("workers", "p", defaults["workers"].([]int), "worker counts to compare")
	fs.Int("stages", defaults["stages"].(int), "pipeline stages per run")
	fs.IntP("runs", "r", defaults["runs"].(int), "timed runs per worker count")
	fs.Float64("rate-limit", defaults["rate_limit"].(float64), "max items started per second, 0 for none")
	fs.Bool("cpu-affinity", defaults["cpu_affinity"].(bool), "pin workers to CPU cores")
	fs.String("log-level", defaults["log.level"].(string), "log level")
	fs.String("log-format", defaults["log.format"].(string), "log format: console or json")
	fs.Bool("log-no-color", defaults["log.no_color"].(bool), "disable colored log output")
}
