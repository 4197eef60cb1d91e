package cmd

import (
	"fmt"
	"strconv"

	"github.com/sarchlab/bankcheck/device"
	"github.com/spf13/cobra"
)

var checkOpts struct {
	write  bool
	verify bool
}

var checkCmd = &cobra.Command{
	Use:   "check REGION SEED",
	Short: "Write and/or verify the pattern of one region",
	Long: `Check verifies that REGION (input, output, filter0 ... filter3) ` +
		`holds the pattern that starts at SEED. With --write, the pattern is ` +
		`written first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		id, err := device.ParseRegionID(args[0])
		if err != nil {
			return err
		}

		seed, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", args[1], err)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		region := s.addressMap.Region(id)

		if checkOpts.write {
			if err := s.checker.WritePattern(region, uint32(seed)); err != nil {
				return err
			}
		}

		if checkOpts.verify {
			return s.checker.VerifyPattern(region, uint32(seed))
		}

		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkOpts.write, "write", false,
		"write the pattern before verifying it")
	checkCmd.Flags().BoolVar(&checkOpts.verify, "verify", true,
		"read the region back and compare it with the pattern")

	rootCmd.AddCommand(checkCmd)
}
