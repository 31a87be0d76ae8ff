// Command numap-strings runs a small REPL for listing and editing a
// device's string table while it is being emulated against a connected
// host, then re-emulates it with the edited strings (spec.md 4.L, 6).
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/VBMCBoy/nu-map/devices"
	"github.com/VBMCBoy/nu-map/internal/emu"
	"github.com/VBMCBoy/nu-map/internal/phy"
	"github.com/VBMCBoy/nu-map/internal/replstrings"
	"github.com/VBMCBoy/nu-map/internal/usb"
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
		device    string
	)

	cmd := &cobra.Command{
		Use:   "numap-strings",
		Short: "Interactively edit a device's string table, then emulate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(quiet, verbosity)

			build, ok := devices.ByName(device)
			if !ok {
				return fmt.Errorf("unknown device class %q", device)
			}
			dev := build()

			if err := runREPL(os.Stdin, os.Stdout, device, dev); err != nil {
				return err
			}

			p, err := phy.Open(phySpec)
			if err != nil {
				return err
			}

			loop := &emu.Loop{Phy: p, Device: dev, ShouldStopPhy: func() bool { return false }}
			return loop.Run(context.Background())
		},
	}

	cmd.Flags().StringVarP(&phySpec, "phy", "P", "fd:/dev/ttyUSB0", "transport spec: fd:<serial_port> or gadgetfs")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational logging")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	cmd.Flags().StringVar(&device, "device", "keyboard", "device class to edit and emulate")

	return cmd
}

// runREPL implements list/set/bytes/quit over the string table, per
// spec.md 4.L; malformed input (bad index, non-hex bytes, oversize
// strings) prints a UserValidationError and re-prompts rather than exiting.
func runREPL(in *os.File, out *os.File, deviceClass string, dev *usb.Device) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "commands: list | set <index> <text> | bytes <index> <hex> | quit")

	for {
		printEntries(out, deviceClass, dev.Strings)
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "q":
			return nil

		case "list":
			continue // the prompt loop already lists before each command

		case "set":
			if err := handleSet(out, deviceClass, dev.Strings, fields, false); err != nil {
				fmt.Fprintln(out, err)
			}

		case "bytes":
			if err := handleSet(out, deviceClass, dev.Strings, fields, true); err != nil {
				fmt.Fprintln(out, err)
			}

		default:
			fmt.Fprintf(out, "unrecognized command %q\n", fields[0])
		}
	}
}

func printEntries(out *os.File, deviceClass string, table *usb.StringTable) {
	for _, e := range replstrings.List(deviceClass, table) {
		// STRING descriptors are shown as their decoded UTF-16LE text;
		// anything else (the printer Device ID) is shown as its raw bytes.
		display := string(e.Payload)
		if len(e.Payload) >= 2 && e.Payload[1] == usb.STRING && int(e.Payload[0]) == len(e.Payload) {
			units := make([]uint16, 0, (len(e.Payload)-2)/2)
			for i := 2; i+1 < len(e.Payload); i += 2 {
				units = append(units, uint16(e.Payload[i])|uint16(e.Payload[i+1])<<8)
			}
			display = string(utf16.Decode(units))
		}
		fmt.Fprintf(out, "  [%d] %-32s %q\n", e.Index, e.Label, display)
	}
}

func handleSet(out *os.File, deviceClass string, table *usb.StringTable, fields []string, asBytes bool) error {
	if len(fields) < 3 {
		return &usb.UserValidationError{Reason: "usage: set|bytes <index> <value>"}
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil {
		return &usb.UserValidationError{Reason: "index must be numeric"}
	}
	value := strings.Join(fields[2:], " ")

	label := ""
	for _, e := range replstrings.List(deviceClass, table) {
		if int(e.Index) == index {
			label = e.Label
		}
	}

	return replstrings.Replace(deviceClass, table, label, uint8(index), value, asBytes)
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
