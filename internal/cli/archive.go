package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mycoledger/internal/archive"
	"mycoledger/internal/blob"
)

// NewArchiveCommand groups the snapshot archive commands.
func NewArchiveCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export, list and restore ledger snapshots in blob storage",
	}
	cmd.AddCommand(newArchiveExportCommand(opts))
	cmd.AddCommand(newArchiveListCommand(opts))
	cmd.AddCommand(newArchiveRestoreCommand(opts))
	cmd.AddCommand(newArchiveLinkCommand(opts))
	return cmd
}

func (o *RootOptions) archiver(cmd *cobra.Command) (*archive.Archiver, error) {
	rt, err := o.runtime(cmd)
	if err != nil {
		return nil, err
	}
	store, err := blob.Open(cmd.Context(), rt.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open %s blob store: %w", rt.cfg.Blob.Driver, err)
	}
	return archive.New(store), nil
}

func writeManifest(w io.Writer, m archive.Manifest) {
	fmt.Fprintf(w, "%s  %s  networks=%d trees=%d inoculations=%d measurements=%d  %s\n",
		m.ID,
		m.CreatedAt.Format(time.RFC3339),
		m.Counts["networks"], m.Counts["trees"], m.Counts["inoculations"], m.Counts["carbon_measurements"],
		humanize.Bytes(uint64(m.Bytes)))
}

func newArchiveExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the committed ledger to a new archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.archiver(cmd)
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			m, err := a.Export(cmd.Context(), svc.ExportState())
			if err != nil {
				return err
			}
			opts.rt.logger.Info("ledger archived", "archive_id", m.ID, "size", m.Bytes)
			return opts.printer(cmd).Success(m, func(w io.Writer) { writeManifest(w, m) })
		},
	}
}

func newArchiveListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List complete archives, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.archiver(cmd)
			if err != nil {
				return err
			}
			list, err := a.List(cmd.Context())
			if err != nil {
				return err
			}
			if list == nil {
				list = []archive.Manifest{}
			}
			return opts.printer(cmd).Success(list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "no archives")
				}
				for _, m := range list {
					writeManifest(w, m)
				}
			})
		},
	}
}

func newArchiveRestoreCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive-id>",
		Short: "Load an archive into an empty ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.archiver(cmd)
			if err != nil {
				return err
			}
			snapshot, m, err := a.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.ImportSnapshot(cmd.Context(), snapshot); err != nil {
				return err
			}
			opts.rt.logger.Info("ledger restored", "archive_id", m.ID)
			return opts.printer(cmd).Success(m, func(w io.Writer) {
				fmt.Fprint(w, "restored ")
				writeManifest(w, m)
			})
		},
	}
}

func newArchiveLinkCommand(opts *RootOptions) *cobra.Command {
	var expiry time.Duration
	cmd := &cobra.Command{
		Use:   "link <archive-id>",
		Short: "Print a time-limited URL for an archive manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.archiver(cmd)
			if err != nil {
				return err
			}
			url, err := a.Link(cmd.Context(), args[0], expiry)
			if err != nil {
				return err
			}
			out := map[string]string{"archive_id": args[0], "url": url}
			return opts.printer(cmd).Success(out, func(w io.Writer) { fmt.Fprintln(w, url) })
		},
	}
	cmd.Flags().DurationVar(&expiry, "expiry", 15*time.Minute, "link lifetime")
	return cmd
}
