package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mycoledger/pkg/domain"
)

// NewCarbonCommand groups the carbon ledger commands.
func NewCarbonCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carbon",
		Short: "Record and inspect carbon measurements",
	}
	cmd.AddCommand(newCarbonRecordCommand(opts))
	cmd.AddCommand(newCarbonGetCommand(opts))
	return cmd
}

func newCarbonRecordCommand(opts *RootOptions) *cobra.Command {
	var in domain.CarbonInput
	var network string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a measurement; the network's carbon capacity becomes its total",
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
			m, res, err := svc.RecordCarbonMeasurement(cmd.Context(), in)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(m, func(w io.Writer) {
				writeMeasurement(w, m)
				fmt.Fprintf(w, "network %d carbon capacity is now %s\n", m.NetworkID, humanize.Comma(m.TotalCarbonStored))
				writeWarnings(w, res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&network, "network", "", "network id")
	f.Int64Var(&in.TotalCarbonStored, "total", 0, "total carbon stored")
	f.Int64Var(&in.SequestrationRate, "rate", 0, "sequestration rate")
	f.Int64Var(&in.SoilCarbon, "soil", 0, "soil carbon")
	f.Int64Var(&in.BiomassCarbon, "biomass", 0, "biomass carbon")
	_ = cmd.MarkFlagRequired("network")
	return cmd
}

func newCarbonGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <measurement-id>",
		Short: "Show a carbon measurement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("measurement_id", args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			m, err := svc.GetCarbonMeasurement(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(m, func(w io.Writer) { writeMeasurement(w, m) })
		},
	}
}
