package cli

import (
	"io"

	"github.com/spf13/cobra"

	"mycoledger/pkg/domain"
)

// NewInoculationCommand groups the inoculation registry commands.
func NewInoculationCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inoculation",
		Short: "Record fungal inoculations and their outcomes",
	}
	cmd.AddCommand(newInoculationPerformCommand(opts))
	cmd.AddCommand(newInoculationSuccessRateCommand(opts))
	cmd.AddCommand(newInoculationGetCommand(opts))
	return cmd
}

func newInoculationPerformCommand(opts *RootOptions) *cobra.Command {
	var in domain.InoculationInput
	var network string
	cmd := &cobra.Command{
		Use:   "perform",
		Short: "Record an inoculation in a network",
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
			i, res, err := svc.PerformInoculation(cmd.Context(), opts.caller(), in)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(i, func(w io.Writer) {
				writeInoculation(w, i)
				writeWarnings(w, res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&network, "network", "", "network id")
	f.StringVar(&in.FungalSpecies, "species", "", "fungal species")
	f.StringVar(&in.Method, "method", "", "inoculation method")
	f.Int64Var(&in.SporeConcentration, "spores", 0, "spore concentration")
	f.Int64Var(&in.ApplicationArea, "area", 0, "application area")
	_ = cmd.MarkFlagRequired("network")
	return cmd
}

func newInoculationSuccessRateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "success-rate <inoculation-id> <rate>",
		Short: "Set an inoculation's success rate (0-100)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("inoculation_id", args[0])
			if err != nil {
				return err
			}
			rate, err := parseInt("success_rate", args[1])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			i, res, err := svc.UpdateSuccessRate(cmd.Context(), opts.caller(), id, rate)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(i, func(w io.Writer) {
				writeInoculation(w, i)
				writeWarnings(w, res)
			})
		},
	}
}

func newInoculationGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <inoculation-id>",
		Short: "Show an inoculation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("inoculation_id", args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			i, err := svc.GetInoculation(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(i, func(w io.Writer) { writeInoculation(w, i) })
		},
	}
}
