package main

import (
	"io"

	"github.com/lucasmaystre/gogp/config"
	"github.com/lucasmaystre/gogp/gp"
	"github.com/lucasmaystre/gogp/kern"
	"github.com/lucasmaystre/gogp/obs"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	codeSetup   = "cli.setup.failure"
	codeInput   = "cli.input.invalid"
	codeCompute = "cli.compute.failure"
)

// Shared state of a command invocation, filled in by the root pre-run hook.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd creates the root gpfit command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "gpfit",
		Short:         "Gaussian process marginal likelihood and hyperparameter fitting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "path to config file")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Float64("amplitude", 1.0, "kernel amplitude")
	flags.Float64("scale", 1.0, "kernel squared length-scale")
	flags.Int("workers", 1, "goroutines used for covariance and gradient computations")

	root.AddCommand(
		newLogLikeCmd(a),
		newFitCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	config.SetDefaults(a.v)
	config.SetupEnv(a.v)

	flags := cmd.Root().PersistentFlags()
	if path, _ := flags.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return oops.In("cli").Code(codeSetup).With("path", path).Wrapf(err, "reading config file")
		}
	}
	for key, flag := range map[string]string{
		"kernel.amplitude": "amplitude",
		"kernel.scale":     "scale",
		"engine.workers":   "workers",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return oops.In("cli").Code(codeSetup).Wrapf(err, "binding %s flag", flag)
		}
	}

	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	a.logger, err = newLogger(cfg.Log, cmd.ErrOrStderr())
	return err
}

func newLogger(cfg config.LogConfig, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, oops.In("cli").Code(codeSetup).Wrapf(err, "parsing log level")
	}
	encCfg := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encCfg)
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core), nil
}

// Engine configured from the loaded configuration, with kernel
// hyperparameters taken from params.
func (a *app) newGP(params []float64) (*gp.GP, error) {
	k, err := kern.NewIsoSqExpFromParams(params)
	if err != nil {
		return nil, oops.In("cli").Code(codeInput).Wrapf(err, "building kernel")
	}
	factorizer, err := a.cfg.Engine.Factorizer()
	if err != nil {
		return nil, err
	}
	return gp.New(k,
		gp.WithFactorizer(factorizer),
		gp.WithWorkers(a.cfg.Engine.Workers),
		gp.WithLogger(a.logger.Named("gp")),
	), nil
}

func (a *app) initialParams() []float64 {
	return []float64{a.cfg.Kernel.Amplitude, a.cfg.Kernel.Scale}
}

func loadData(cmd *cobra.Command) (*obs.Dataset, error) {
	path, _ := cmd.Flags().GetString("data")
	if path == "" {
		return nil, oops.In("cli").Code(codeInput).Errorf("--data is required")
	}
	return obs.Load(path)
}
