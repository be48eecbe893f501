// Package config loads the parbench configuration from flags, environment
// variables, an optional .env file and an optional YAML file.
package config

import (
	"github.com/utkarsh5026/parmap/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PARBENCH"

// Workloads lists the CPU bound functions parbench can run.
var Workloads = []string{"primes", "collatz", "hash"}

// Config holds one parbench invocation.
type Config struct {
	// Workload selects the function applied to every item.
	Workload string `mapstructure:"workload" validate:"required,oneof=primes collatz hash"`

	// Items is the input length.
	Items int `mapstructure:"items" validate:"min=1,max=10000000"`

	// Workers lists the worker counts to compare, one run set per entry.
	Workers []int `mapstructure:"workers" validate:"required,min=1,dive,min=1,max=4096"`

	// Stages runs the workload as a pipeline of this many stages when
	// greater than one.
	Stages int `mapstructure:"stages" validate:"min=1,max=16"`

	// Runs is the number of timed repetitions per worker count.
	Runs int `mapstructure:"runs" validate:"min=1,max=100"`

	// RateLimit caps started items per second, 0 disables it.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`

	CPUAffinity bool `mapstructure:"cpu_affinity"`

	Log logging.Config `mapstructure:"log"`
}

// defaults are registered with viper so that every key is known to
// Unmarshal, including keys only set through the environment.
var defaults = map[string]any{
	"workload":      "primes",
	"items":         20000,
	"workers":       []int{1, 2, 4, 8},
	"stages":        1,
	"runs":          3,
	"rate_limit":    0.0,
	"cpu_affinity":  false,
	"log.level":     "warn",
	"log.format":    "console",
	"log.output":    "stderr",
	"log.no_color":  false,
	"log.timestamp": false,
}
