// Package config loads ingester settings from defaults, an optional config
// file, QUADINGEST_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. QUADINGEST_LOG_JSON.
const EnvPrefix = "QUADINGEST"

// Config is the full ingester configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Store   StoreConfig   `mapstructure:"store"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Verbosity int  `mapstructure:"verbosity"`
	JSON      bool `mapstructure:"json"`
}

type IngestConfig struct {
	// Streaming hands the store a lazy delta instead of a fully built batch.
	Streaming bool `mapstructure:"streaming"`
	// DeletionPatterns are matched before AdditionPatterns.
	DeletionPatterns []string `mapstructure:"deletion_patterns"`
	AdditionPatterns []string `mapstructure:"addition_patterns"`
}

type StoreConfig struct {
	SyncWrites bool `mapstructure:"sync_writes"`
}

type MetricsConfig struct {
	// File receives a Prometheus text exposition after a successful ingest.
	File string `mapstructure:"file"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.verbosity", 0)
	v.SetDefault("log.json", false)
	v.SetDefault("ingest.streaming", true)
	v.SetDefault("ingest.deletion_patterns", []string{"*deleted.nt", "*deleted.nq"})
	v.SetDefault("ingest.addition_patterns", []string{"*.nt", "*.nq"})
	v.SetDefault("store.sync_writes", false)
	v.SetDefault("metrics.file", "")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// FlagBindings maps config keys to the command-line flags that override them.
var FlagBindings = map[string]string{
	"log.verbosity": "verbose",
	"log.json":      "json-logs",
	"metrics.file":  "metrics-file",
}

// Load builds the configuration. configFile may be empty. Flags that were not
// set on the command line do not override lower-precedence sources.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := New()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configFile)
		}
	}

	if flags != nil {
		for key, name := range FlagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag --%s", name)
				}
			}
		}
		if f := flags.Lookup("materialize"); f != nil && f.Changed {
			v.Set("ingest.streaming", f.Value.String() != "true")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the classification patterns.
func (c *Config) Validate() error {
	if len(c.Ingest.AdditionPatterns) == 0 && len(c.Ingest.DeletionPatterns) == 0 {
		return errors.WithHint(errors.New("no file patterns configured"),
			"set ingest.addition_patterns and ingest.deletion_patterns")
	}
	for _, group := range [][]string{c.Ingest.DeletionPatterns, c.Ingest.AdditionPatterns} {
		for _, p := range group {
			if !doublestar.ValidatePattern(p) {
				return errors.Newf("invalid file pattern %q", p)
			}
		}
	}
	return nil
}
