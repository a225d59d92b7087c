package main

import (
	"fmt"

	"github.com/lucasmaystre/gogp/gp"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLogLikeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loglike",
		Short: "Print the log marginal likelihood and its gradient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := loadData(cmd)
			if err != nil {
				return err
			}
			g, err := a.newGP(a.initialParams())
			if err != nil {
				return err
			}
			if err := g.Compute(ds.Inputs, ds.Noise); err != nil {
				return oops.In("cli").Code(codeCompute).
					With("params", g.Kernel().Params()).
					Wrapf(err, "computing covariance")
			}

			ll := g.LogLikelihood(ds.Targets)
			grad := g.GradLogLikelihood(ds.Targets)
			if info := g.Info(); info != gp.Success {
				a.logger.Warn("gradient unavailable", zap.Stringer("info", info))
				grad = nil
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "loglike: %.10g\n", ll); err != nil {
				return err
			}
			if grad != nil {
				_, err = fmt.Fprintf(out, "gradient: %.10g\n", grad)
			}
			return err
		},
	}
	cmd.Flags().String("data", "", "path to a YAML dataset")
	return cmd
}
