// Package sdkconfig loads and defaults the client's configuration: where
// the coordinator lives, and the retry/timeout budget Controller.Call
// enforces on every RPC.
package sdkconfig

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lizhiqiangZetyun/dingo-store/internal/retry"
)

// ClientConfig is the top-level, YAML-loadable configuration for a
// kvcoord-backed RawKV client.
type ClientConfig struct {
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Retry       RetryConfig       `yaml:"retry"`
}

// CoordinatorConfig names the coordinator endpoints the meta cache refreshes
// against. rawkv.Open dials only the first endpoint; the others are not
// tried.
type CoordinatorConfig struct {
	Endpoints []string `yaml:"endpoints"`
}

// RetryConfig is the YAML-facing mirror of retry.Policy, in durations a
// human would actually write into a config file.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"maxAttempts"`
	PerAttemptTimeout time.Duration `yaml:"perAttemptTimeout"`
	TotalDeadline     time.Duration `yaml:"totalDeadline"`
	InitialInterval   time.Duration `yaml:"initialInterval"`
	MaxInterval       time.Duration `yaml:"maxInterval"`
}

// Default returns the configuration a client gets when no file is loaded:
// a single local coordinator endpoint and retry.DefaultPolicy.
func Default() *ClientConfig {
	p := retry.DefaultPolicy()
	return &ClientConfig{
		Coordinator: CoordinatorConfig{Endpoints: []string{"127.0.0.1:8001"}},
		Retry: RetryConfig{
			MaxAttempts:       p.MaxAttempts,
			PerAttemptTimeout: p.PerAttemptTimeout,
			TotalDeadline:     p.TotalDeadline,
			InitialInterval:   p.InitialInterval,
			MaxInterval:       p.MaxInterval,
		},
	}
}

// Load reads a ClientConfig from a YAML file, starting from Default() so a
// partially-specified file still gets sane retry numbers.
func Load(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Option configures a *ClientConfig already produced by Default or Load,
// for overrides a caller wants to set programmatically rather than via the
// YAML file. Grounded on the teacher's quotapool.Option/optionFunc pattern
// (pkg/util/quotapool/config.go): an interface with an unexported apply
// method, satisfied by a function type, rather than a bare
// `func(*ClientConfig)` alias -- this keeps Option from being satisfiable
// by an arbitrary matching func literal from outside the package.
type Option interface {
	apply(*ClientConfig)
}

type optionFunc func(*ClientConfig)

func (f optionFunc) apply(c *ClientConfig) { f(c) }

// WithCoordinatorEndpoints overrides the coordinator endpoints.
func WithCoordinatorEndpoints(endpoints ...string) Option {
	return optionFunc(func(c *ClientConfig) {
		c.Coordinator.Endpoints = endpoints
	})
}

// WithRetry overrides the retry configuration wholesale.
func WithRetry(r RetryConfig) Option {
	return optionFunc(func(c *ClientConfig) {
		c.Retry = r
	})
}

// WithMaxAttempts overrides just the retry budget's max attempt count.
func WithMaxAttempts(n int) Option {
	return optionFunc(func(c *ClientConfig) {
		c.Retry.MaxAttempts = n
	})
}

// Apply mutates c in place with each opt in order. Unlike the teacher's
// initializeConfig, which always starts from a package-level defaultConfig,
// this applies on top of whatever Default or Load already produced, since
// those are this package's equivalent starting points and a caller may want
// to layer a handful of programmatic overrides on top of a loaded file.
func (c *ClientConfig) Apply(opts ...Option) {
	for _, opt := range opts {
		opt.apply(c)
	}
}

// RetryPolicy converts the YAML-facing RetryConfig into a retry.Policy,
// falling back to retry.DefaultPolicy's values for any zero field so a
// config file only needs to override what it cares about.
func (c *ClientConfig) RetryPolicy() retry.Policy {
	d := retry.DefaultPolicy()
	p := retry.Policy{
		MaxAttempts:       c.Retry.MaxAttempts,
		PerAttemptTimeout: c.Retry.PerAttemptTimeout,
		TotalDeadline:     c.Retry.TotalDeadline,
		InitialInterval:   c.Retry.InitialInterval,
		MaxInterval:       c.Retry.MaxInterval,
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.PerAttemptTimeout == 0 {
		p.PerAttemptTimeout = d.PerAttemptTimeout
	}
	if p.TotalDeadline == 0 {
		p.TotalDeadline = d.TotalDeadline
	}
	if p.InitialInterval == 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}
