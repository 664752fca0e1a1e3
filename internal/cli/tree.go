package cli

import (
	"io"

	"github.com/spf13/cobra"

	"mycoledger/pkg/domain"
)

// NewTreeCommand groups the tree registry commands.
func NewTreeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Register trees and record their health",
	}
	cmd.AddCommand(newTreeRegisterCommand(opts))
	cmd.AddCommand(newTreeHealthCommand(opts))
	cmd.AddCommand(newTreeGetCommand(opts))
	return cmd
}

func newTreeRegisterCommand(opts *RootOptions) *cobra.Command {
	var in domain.TreeInput
	var network string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a tree in a network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.NetworkID, err = parseID("network_id", network); err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			t, res, err := svc.RegisterTree(cmd.Context(), in)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(t, func(w io.Writer) {
				writeTree(w, t)
				writeWarnings(w, res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&network, "network", "", "owning network id")
	f.StringVar(&in.Species, "species", "", "tree species")
	f.Int64Var(&in.AgeYears, "age", 0, "age in years")
	f.Int64Var(&in.DiameterCm, "diameter", 0, "trunk diameter in cm")
	f.Int64Var(&in.Location.Latitude, "lat", 0, "latitude in thousandths of a degree")
	f.Int64Var(&in.Location.Longitude, "lon", 0, "longitude in thousandths of a degree")
	_ = cmd.MarkFlagRequired("network")
	return cmd
}

func newTreeHealthCommand(opts *RootOptions) *cobra.Command {
	var h domain.TreeHealth
	var status string
	cmd := &cobra.Command{
		Use:   "health <tree-id>",
		Short: "Replace a tree's health metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("tree_id", args[0])
			if err != nil {
				return err
			}
			if h.Status, err = domain.ParseHealthStatus(status); err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			t, res, err := svc.UpdateTreeHealth(cmd.Context(), id, h)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(t, func(w io.Writer) {
				writeTree(w, t)
				writeWarnings(w, res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", string(domain.HealthHealthy), "healthy|stressed|declining|dead")
	f.Int64Var(&h.MycorrhizalConnections, "connections", 0, "mycorrhizal connections")
	f.Int64Var(&h.CarbonContribution, "carbon", 0, "carbon contribution")
	f.Int64Var(&h.NutrientUptakeRate, "uptake", 0, "nutrient uptake rate (0-100)")
	return cmd
}

func newTreeGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <tree-id>",
		Short: "Show a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("tree_id", args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.GetTree(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(t, func(w io.Writer) { writeTree(w, t) })
		},
	}
}
