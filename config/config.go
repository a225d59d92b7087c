// Package config loads the gpfit configuration from defaults, an optional
// YAML file and GPFIT_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"strings"

	"github.com/lucasmaystre/gogp/fitters"
	"github.com/lucasmaystre/gogp/linalg"
	"github.com/samber/oops"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	CodeRead    = "config.load.read_failure"
	CodeInvalid = "config.validate.invalid_value"
)

type Config struct {
	Kernel KernelConfig `mapstructure:"kernel"`
	Engine EngineConfig `mapstructure:"engine"`
	Fit    FitConfig    `mapstructure:"fit"`
	Log    LogConfig    `mapstructure:"log"`
}

// KernelConfig holds the initial squared-exponential hyperparameters.
type KernelConfig struct {
	Amplitude float64 `mapstructure:"amplitude"`
	Scale     float64 `mapstructure:"scale"`
}

type EngineConfig struct {
	Factorization string `mapstructure:"factorization"`
	Workers       int    `mapstructure:"workers"`
}

type FitConfig struct {
	Method            string  `mapstructure:"method"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	GradientThreshold float64 `mapstructure:"gradient_threshold"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func SetDefaults(v *viper.Viper) {
	fit := fitters.DefaultSettings()
	v.SetDefault("kernel.amplitude", 1.0)
	v.SetDefault("kernel.scale", 1.0)
	v.SetDefault("engine.factorization", "ldl")
	v.SetDefault("engine.workers", 1)
	v.SetDefault("fit.method", fit.Method)
	v.SetDefault("fit.max_iterations", fit.MaxIterations)
	v.SetDefault("fit.gradient_threshold", fit.GradientThreshold)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("GPFIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration from path, or from defaults and the
// environment only when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, oops.In("config").Code(CodeRead).With("path", path).Wrapf(err, "reading config")
		}
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, oops.In("config").Code(CodeInvalid).Wrapf(err, "unmarshalling config")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, oops.In("config").Code(CodeInvalid).Wrapf(errors.Join(errs...), "validating config")
	}
	return &cfg, nil
}

// Validate returns every problem found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, oops.In("config").Code(CodeInvalid).Errorf(format, args...))
	}

	if !(c.Kernel.Amplitude > 0) {
		invalid("config: kernel.amplitude must be positive, got %g", c.Kernel.Amplitude)
	}
	if !(c.Kernel.Scale > 0) {
		invalid("config: kernel.scale must be positive, got %g", c.Kernel.Scale)
	}

	if _, err := c.Engine.Factorizer(); err != nil {
		invalid("config: engine.factorization must be one of [ldl, cholesky], got %q", c.Engine.Factorization)
	}
	if c.Engine.Workers < 1 {
		invalid("config: engine.workers must be at least 1, got %d", c.Engine.Workers)
	}

	validMethods := map[string]bool{
		fitters.MethodBFGS:       true,
		fitters.MethodLBFGS:      true,
		fitters.MethodNelderMead: true,
	}
	if !validMethods[c.Fit.Method] {
		invalid("config: fit.method must be one of [bfgs, lbfgs, nelder-mead], got %q", c.Fit.Method)
	}
	if c.Fit.MaxIterations < 0 {
		invalid("config: fit.max_iterations must not be negative, got %d", c.Fit.MaxIterations)
	}
	if c.Fit.GradientThreshold < 0 {
		invalid("config: fit.gradient_threshold must not be negative, got %g", c.Fit.GradientThreshold)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		invalid("config: log.level %q: %v", c.Log.Level, err)
	}
	return errs
}

func (e EngineConfig) Factorizer() (linalg.Factorizer, error) {
	switch e.Factorization {
	case "ldl":
		return linalg.LDLFactorizer{}, nil
	case "cholesky":
		return linalg.CholeskyFactorizer{}, nil
	}
	return nil, oops.In("config").Code(CodeInvalid).Errorf("unknown factorization %q", e.Factorization)
}

func (f FitConfig) Settings() fitters.Settings {
	return fitters.Settings{
		Method:            f.Method,
		MaxIterations:     f.MaxIterations,
		GradientThreshold: f.GradientThreshold,
	}
}
