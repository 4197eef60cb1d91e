package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/bankcheck/device"
	"github.com/sarchlab/bankcheck/mem"
	"github.com/spf13/cobra"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the address map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		am, err := device.LoadAddressMap(opts.addressMap)
		if err != nil {
			return err
		}

		if err := am.Validate(); err != nil {
			return err
		}

		return printAddressMap(os.Stdout, am)
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}

func printAddressMap(w io.Writer, am device.AddressMap) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tBASE\tEND\tSIZE")

	regions := append([]mem.Region{}, am.Regions[:]...)
	regions = append(regions, am.HostScratch, am.CDMA.Window(), am.Control.Window())

	for _, r := range regions {
		fmt.Fprintf(tw, "%s\t0x%08x\t0x%08x\t%d\n", r.Name, r.Base, r.End(), r.Size)
	}

	return tw.Flush()
}
