// Command numap-detect-os runs the fixed device-class sweep and aggregates
// every rule's verdict into a histogram, printing the most-voted operating
// system (spec.md 4.K, 6).
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/VBMCBoy/nu-map/devices"
	"github.com/VBMCBoy/nu-map/internal/fingerprint"
	"github.com/VBMCBoy/nu-map/internal/phy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		phySpec   string
		quiet     bool
		verbosity int
	)

	cmd := &cobra.Command{
		Use:   "numap-detect-os",
		Short: "Run the OS-detection device sweep and report the winning verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(quiet, verbosity)

			p, err := phy.Open(phySpec)
			if err != nil {
				return err
			}

			all, histogram := fingerprint.DetectOS(context.Background(), p, devices.Templates)

			for _, dv := range all {
				for _, v := range dv.Verdicts {
					fmt.Printf("%-16s %-40s -> %s\n", dv.Device, dv.RuleName, v.String())
				}
			}

			fmt.Println()
			fmt.Println("histogram:")
			for _, key := range sortedKeys(histogram) {
				fmt.Printf("  %-12s %d\n", key, histogram[key])
			}

			if winner, ok := topVote(histogram); ok {
				fmt.Printf("\nverdict: %s\n", winner)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&phySpec, "phy", "P", "fd:/dev/ttyUSB0", "transport spec: fd:<serial_port> or gadgetfs")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational logging")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	return cmd
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func topVote(histogram map[string]int) (string, bool) {
	var best string
	var bestCount int
	for k, v := range histogram {
		if v > bestCount {
			best, bestCount = k, v
		}
	}
	return best, bestCount > 0
}

func configureLogging(quiet bool, verbosity int) {
	switch {
	case quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	case verbosity >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	case verbosity == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
