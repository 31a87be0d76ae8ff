// Command numap-scan enumerates which device classes a connected host
// demonstrably supports, by emulating each one in turn for a fixed window
// and reporting whether it was configured and which functions it used
// (spec.md 4.K, 6).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

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

// badDeviceNameError is spec.md 7's ConfigurationError: an unrecognized
// -d/-i device class name, reported to the user and exiting 1.
type badDeviceNameError struct{ name string }

func (e *badDeviceNameError) Error() string {
	return fmt.Sprintf("unknown device class %q", e.name)
}

func newRootCmd() *cobra.Command {
	var (
		phySpec       string
		timeout       time.Duration
		alwaysTimeout bool
		only          []string
		ignore        []string
		quiet         bool
		verbosity     int
	)

	cmd := &cobra.Command{
		Use:   "numap-scan",
		Short: "Enumerate which device classes a connected host supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(quiet, verbosity)

			templates, err := selectTemplates(only, ignore)
			if err != nil {
				return err
			}

			p, err := phy.Open(phySpec)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			results := fingerprint.Scan(ctx, p, templates)
			for _, r := range results {
				status := "not supported"
				if r.Supported {
					status = "supported"
				}
				fmt.Printf("%-16s configured=%-5v %s", r.Name, r.Configured, status)
				if len(r.Reasons) > 0 {
					fmt.Printf(" (%s)", strings.Join(r.Reasons, ", "))
				}
				fmt.Println()
			}

			if alwaysTimeout {
				<-ctx.Done()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&phySpec, "phy", "P", "fd:/dev/ttyUSB0", "transport spec: fd:<serial_port> or gadgetfs")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "overall scan timeout")
	cmd.Flags().BoolVarP(&alwaysTimeout, "always-timeout", "T", false, "block until the timeout elapses even if all devices finish early")
	cmd.Flags().StringSliceVarP(&only, "device", "d", nil, "only scan these device classes (repeatable)")
	cmd.Flags().StringSliceVarP(&ignore, "ignore", "i", nil, "skip these device classes (repeatable)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational logging")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	return cmd
}

func selectTemplates(only, ignore []string) ([]fingerprint.Template, error) {
	ignored := map[string]bool{}
	for _, n := range ignore {
		ignored[n] = true
	}

	names := only
	if len(names) == 0 {
		for _, t := range devices.Templates {
			names = append(names, t.Name)
		}
	}

	var out []fingerprint.Template
	for _, name := range names {
		if ignored[name] {
			continue
		}
		build, ok := devices.ByName(name)
		if !ok {
			return nil, &badDeviceNameError{name: name}
		}
		out = append(out, fingerprint.Template{Name: name, Build: build})
	}
	return out, nil
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
