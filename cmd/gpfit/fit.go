package main

import (
	"fmt"

	"github.com/lucasmaystre/gogp/fitters"
	"github.com/lucasmaystre/gogp/kern"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the kernel hyperparameters by maximum marginal likelihood",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := loadData(cmd)
			if err != nil {
				return err
			}
			initial := a.initialParams()
			g, err := a.newGP(initial)
			if err != nil {
				return err
			}
			f := fitters.NewMarginalLikelihood(g, kern.NewIsoSqExpFromParams, ds, a.logger.Named("fit"))
			res, err := f.Fit(initial, a.cfg.Fit.Settings())
			if res == nil {
				return oops.In("cli").Code(codeCompute).
					With("params", initial).
					Wrapf(err, "fitting hyperparameters")
			}
			if err != nil {
				a.logger.Warn("returning best hyperparameters found", zap.Error(err))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"amplitude: %.10g\nscale: %.10g\nloglike: %.10g\nevaluations: %d\nstatus: %s\n",
				res.Params[0], res.Params[1], res.LogLikelihood, res.Evaluations, res.Status)
			return err
		},
	}
	cmd.Flags().String("data", "", "path to a YAML dataset")
	return cmd
}
