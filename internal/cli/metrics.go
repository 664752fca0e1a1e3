package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Score is the output of the metrics commands.
type Score struct {
	NetworkID uint64 `json:"network_id"`
	Metric    string `json:"metric"`
	Value     int64  `json:"value"`
}

// NewMetricsCommand groups the derived network scores.
func NewMetricsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Derive network health and carbon efficiency",
	}
	cmd.AddCommand(newScoreCommand(opts, "health", "Health score (0-100) from tree uptake and vitality", "health_score",
		func(ctx context.Context, o *RootOptions, cmd *cobra.Command, id uint64) (int64, error) {
			svc, err := o.service(cmd)
			if err != nil {
				return 0, err
			}
			return svc.CalculateHealthScore(ctx, id)
		}))
	cmd.AddCommand(newScoreCommand(opts, "efficiency", "Carbon capacity per hectare", "carbon_efficiency",
		func(ctx context.Context, o *RootOptions, cmd *cobra.Command, id uint64) (int64, error) {
			svc, err := o.service(cmd)
			if err != nil {
				return 0, err
			}
			return svc.CalculateCarbonEfficiency(ctx, id)
		}))
	return cmd
}

type scoreFunc func(ctx context.Context, opts *RootOptions, cmd *cobra.Command, networkID uint64) (int64, error)

func newScoreCommand(opts *RootOptions, name, short, metric string, calc scoreFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <network-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("network_id", args[0])
			if err != nil {
				return err
			}
			v, err := calc(cmd.Context(), opts, cmd, id)
			if err != nil {
				return err
			}
			s := Score{NetworkID: id, Metric: metric, Value: v}
			return opts.printer(cmd).Success(s, func(w io.Writer) {
				fmt.Fprintf(w, "network %d %s: %d\n", id, metric, v)
			})
		},
	}
}
