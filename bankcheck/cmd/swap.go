package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var swapCmd = &cobra.Command{
	Use:   "swap [filters|activations]",
	Short: "Issue a bank swap control write",
	Long: `Swap writes the bank swap bit of the control register. Filters, the ` +
		`default, toggles the filter bank set. Activations exchanges the ` +
		`input and output buffers. The mode bits are preserved.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"filters", "activations"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		target := "filters"
		if len(args) > 0 {
			target = args[0]
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		switch target {
		case "filters":
			s.controller.SwapFilterBanks()
		case "activations":
			s.controller.SwapActivationBanks()
		default:
			return fmt.Errorf("unknown swap target %q", target)
		}

		mode := s.controller.Mode()
		fmt.Printf("Swapped %s, max pooling %t, relu %t\n",
			target, mode.MaxPooling, mode.ReLU)

		if s.platform != nil {
			fmt.Printf("Filter bank set %d, input memory %d\n",
				s.platform.Control().FilterSet(),
				s.platform.Control().ActivationSet())
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(swapCmd)
}
