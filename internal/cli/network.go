package cli

import (
	"io"

	"github.com/spf13/cobra"

	"mycoledger/pkg/domain"
)

// NewNetworkCommand groups the network registry and funding commands.
func NewNetworkCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Establish, tune, fund and inspect networks",
	}
	cmd.AddCommand(newNetworkEstablishCommand(opts))
	cmd.AddCommand(newNetworkSetCommand(opts, "density <network-id> <score>", "Set a network's density score (0-100)",
		func(cmd *cobra.Command, id uint64, v int64) (domain.Network, domain.Result, error) {
			svc, err := opts.service(cmd)
			if err != nil {
				return domain.Network{}, domain.Result{}, err
			}
			return svc.EnhanceDensity(cmd.Context(), id, v)
		}))
	cmd.AddCommand(newNetworkSetCommand(opts, "exchange-rate <network-id> <rate>", "Set a network's nutrient exchange rate",
		func(cmd *cobra.Command, id uint64, v int64) (domain.Network, domain.Result, error) {
			svc, err := opts.service(cmd)
			if err != nil {
				return domain.Network{}, domain.Result{}, err
			}
			return svc.UpdateExchangeRate(cmd.Context(), id, v)
		}))
	cmd.AddCommand(newNetworkSetCommand(opts, "fund <network-id> <amount>", "Add funding to a network",
		func(cmd *cobra.Command, id uint64, v int64) (domain.Network, domain.Result, error) {
			svc, err := opts.service(cmd)
			if err != nil {
				return domain.Network{}, domain.Result{}, err
			}
			return svc.FundNetwork(cmd.Context(), opts.caller(), id, v)
		}))
	cmd.AddCommand(newNetworkGetCommand(opts))
	return cmd
}

func newNetworkEstablishCommand(opts *RootOptions) *cobra.Command {
	var in domain.NetworkInput
	cmd := &cobra.Command{
		Use:   "establish",
		Short: "Register a new network",
		Example: `  mycoledger network establish --name "Pacific Northwest Forest Network" \
    --lat 47600 --lon -122330 --area 1000 --species "Pseudotsuga menziesii" --fungal-count 15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			n, res, err := svc.EstablishNetwork(cmd.Context(), opts.caller(), in)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(n, func(w io.Writer) {
				writeNetwork(w, n)
				writeWarnings(w, res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "network name")
	f.Int64Var(&in.Location.Latitude, "lat", 0, "latitude in thousandths of a degree")
	f.Int64Var(&in.Location.Longitude, "lon", 0, "longitude in thousandths of a degree")
	f.Int64Var(&in.ForestAreaHectares, "area", 0, "forest area in hectares")
	f.StringVar(&in.DominantTreeSpecies, "species", "", "dominant tree species")
	f.Int64Var(&in.InitialFungalCount, "fungal-count", 0, "initial fungal count")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}

type networkSetter func(cmd *cobra.Command, id uint64, value int64) (domain.Network, domain.Result, error)

func newNetworkSetCommand(opts *RootOptions, use, short string, set networkSetter) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("network_id", args[0])
			if err != nil {
				return err
			}
			v, err := parseInt("value", args[1])
			if err != nil {
				return err
			}
			n, res, err := set(cmd, id, v)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(n, func(w io.Writer) {
				writeNetwork(w, n)
				writeWarnings(w, res)
			})
		},
	}
}

func newNetworkGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <network-id>",
		Short: "Show a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("network_id", args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			n, err := svc.GetNetwork(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.printer(cmd).Success(n, func(w io.Writer) { writeNetwork(w, n) })
		},
	}
}
