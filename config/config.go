package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	uberconfig "go.uber.org/config"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
	"github.com/input-output-hk/catalyst-forge-housekeeping/s3types"
	"github.com/input-output-hk/catalyst-forge-housekeeping/storage"
)

// EnvConfigFile names the environment variable holding an optional override file.
const EnvConfigFile = "HOUSEKEEPER_CONFIG"

//go:embed defaults.yaml
var defaults []byte

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Config is the complete housekeeper configuration.
type Config struct {
	AWS       AWS       `yaml:"aws"`
	Drain     Drain     `yaml:"drain"`
	Lifecycle Lifecycle `yaml:"lifecycle"`
	Log       Log       `yaml:"log"`
}

// AWS configures the S3 client.
type AWS struct {
	Region         string        `yaml:"region"`
	Endpoint       string        `yaml:"endpoint"`
	ForcePathStyle bool          `yaml:"forcePathStyle"`
	MaxRetries     int           `yaml:"maxRetries"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Drain configures bucket draining.
type Drain struct {
	// PageSize is the number of entries listed, and deleted, per request.
	PageSize int32 `yaml:"pageSize"`
}

// Lifecycle configures the custom resource dispatcher.
type Lifecycle struct {
	TimeoutMargin      time.Duration `yaml:"timeoutMargin"`
	CallbackTimeout    time.Duration `yaml:"callbackTimeout"`
	CopyResourceTypes  []string      `yaml:"copyResourceTypes"`
	DrainResourceTypes []string      `yaml:"drainResourceTypes"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Load reads the configuration using the process environment.
func Load() (*Config, error) {
	return LoadWith(os.LookupEnv)
}

// LoadWith reads the configuration, resolving variables with lookup. Extra
// sources are merged in order after the defaults and the override file.
func LoadWith(lookup LookupFunc, sources ...[]byte) (*Config, error) {
	options := []uberconfig.YAMLOption{uberconfig.Source(bytes.NewReader(defaults))}
	if path, ok := lookup(EnvConfigFile); ok && path != "" {
		options = append(options, uberconfig.File(path))
	}
	for _, src := range sources {
		options = append(options, uberconfig.Source(bytes.NewReader(src)))
	}
	options = append(options, uberconfig.Expand(uberconfig.LookupFunc(lookup)))

	provider, err := uberconfig.NewYAML(options...)
	if err != nil {
		return nil, errors.NewError("load config", err).WithMessage("failed to read yaml config")
	}

	var cfg Config
	if err := provider.Get(uberconfig.Root).Populate(&cfg); err != nil {
		return nil, errors.NewError("load config", err).WithMessage("failed to decode yaml config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.AWS.Region == "" {
		result = multierror.Append(result, fmt.Errorf("aws.region is required"))
	}
	if c.AWS.MaxRetries < 0 {
		result = multierror.Append(result, fmt.Errorf("aws.maxRetries must not be negative, got %d", c.AWS.MaxRetries))
	}
	if c.AWS.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("aws.timeout must not be negative"))
	}
	if c.Drain.PageSize < 1 || c.Drain.PageSize > 1000 {
		result = multierror.Append(result, fmt.Errorf("drain.pageSize must be between 1 and 1000, got %d", c.Drain.PageSize))
	}
	if c.Lifecycle.TimeoutMargin < 0 {
		result = multierror.Append(result, fmt.Errorf("lifecycle.timeoutMargin must not be negative"))
	}
	if c.Lifecycle.CallbackTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("lifecycle.callbackTimeout must not be negative"))
	}
	for _, rt := range c.Lifecycle.CopyResourceTypes {
		if contains(c.Lifecycle.DrainResourceTypes, rt) {
			result = multierror.Append(result, fmt.Errorf("resource type %q is routed to both copy and drain", rt))
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.NewError("validate config", errors.ErrInvalidInput).WithMessage(err.Error())
	}
	return nil
}

// StorageOptions converts the AWS section into storage client options.
func (a AWS) StorageOptions() []s3types.Option {
	opts := []s3types.Option{
		storage.WithRegion(a.Region),
		storage.WithForcePathStyle(a.ForcePathStyle),
		storage.WithMaxRetries(a.MaxRetries),
	}
	if a.Endpoint != "" {
		opts = append(opts, storage.WithEndpoint(a.Endpoint))
	}
	if a.Timeout > 0 {
		opts = append(opts, storage.WithTimeout(a.Timeout))
	}
	return opts
}

// SlogLevel returns the configured level. Validate rejects unknown levels.
func (l Log) SlogLevel() slog.Level {
	level, _ := parseLevel(l.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not a known level", s)
	}
	return level, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
