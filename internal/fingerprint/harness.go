package fingerprint

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VBMCBoy/nu-map/internal/emu"
	"github.com/VBMCBoy/nu-map/internal/phy"
	"github.com/VBMCBoy/nu-map/internal/usb"
)

var log = logrus.WithField("component", "fingerprint")

// scanWindow and detectOSWindow are the harness wall-clock timeouts ported
// verbatim from numap/apps/scan.py and numap/apps/detect_os.py (spec.md
// SUPPLEMENTED FEATURES).
const (
	scanWindow      = 5 * time.Second
	detectOSWindow  = 8 * time.Second
	reattachBackoff = 5 * time.Second
)

// Template is one device-class entry in the fixed fingerprint DEVICES
// list: a name used to select applicable rules, and a constructor building
// a fresh usb.Device for one run.
type Template struct {
	Name    string
	Build   func() *usb.Device
}

// SupportResult is one scan entry (spec.md 4.K: "Report (name, supported,
// configured, reasons)").
type SupportResult struct {
	Name       string
	Supported  bool
	Configured bool
	Reasons    []string
}

// Scan runs every template for a fixed window, reporting which device
// classes the host demonstrably supports (spec.md 4.K "Scan flow").
func Scan(ctx context.Context, p phy.Phy, templates []Template) []SupportResult {
	var results []SupportResult

	for _, tmpl := range templates {
		log.WithField("device", tmpl.Name).Info("testing support")

		dev := tmpl.Build()

		var supported bool
		var configured bool
		reasonSet := map[string]bool{}

		dev.OnUSBFunctionSupported = func(reason string) {
			supported = true
			if reason != "" {
				reasonSet[reason] = true
			}
		}
		dev.OnConfigurationOccurred = func() {
			configured = true
		}

		start := time.Now()
		loop := &emu.Loop{
			Phy:    p,
			Device: dev,
			ShouldStopPhy: func() bool {
				return time.Since(start) > scanWindow
			},
		}

		if err := loop.Run(ctx); err != nil {
			log.WithError(err).Warn("device run ended with error")
			time.Sleep(reattachBackoff)
		}

		reasons := make([]string, 0, len(reasonSet))
		for r := range reasonSet {
			reasons = append(reasons, r)
		}

		results = append(results, SupportResult{
			Name:       tmpl.Name,
			Supported:  supported,
			Configured: configured,
			Reasons:    reasons,
		})
	}

	return results
}

// DeviceVerdicts is one rule's OS-detection result for one device
// template: the rule's name and the verdicts it returned. DetectOS returns
// one entry per (device, applicable rule) pair.
type DeviceVerdicts struct {
	Device   string
	RuleName string
	Verdicts []Verdict
}

// DetectOS runs the fixed device-class list for a fixed window each,
// captures the request log (split at the SET_CONFIGURATION boundary),
// evaluates every applicable rule, and returns per-device, per-rule
// verdicts plus the global histogram (spec.md 4.K "OS-detection flow").
func DetectOS(ctx context.Context, p phy.Phy, templates []Template) ([]DeviceVerdicts, map[string]int) {
	var all []DeviceVerdicts
	histogram := map[string]int{}

	for _, tmpl := range templates {
		log.WithField("device", tmpl.Name).Info("running OS-detection window")

		dev := tmpl.Build()

		// Observe dispatched requests through Device.Observer; no handler
		// table is wrapped, and each run works on a freshly built device.
		installObserver(dev)

		start := time.Now()
		loop := &emu.Loop{
			Phy:    p,
			Device: dev,
			ShouldStopPhy: func() bool {
				return time.Since(start) > detectOSWindow
			},
		}

		if err := loop.Run(ctx); err != nil {
			log.WithError(err).Warn("device run ended with error, incomplete")
			time.Sleep(reattachBackoff)
		}

		entries := dev.Log.All()
		if len(entries) == 0 {
			log.WithField("device", tmpl.Name).Warn("no requests received")
			continue
		}

		preConfig := dev.Log.Before(func(e usb.RequestLogEntry) bool { return e.Configured })

		for _, rule := range RulesFor(tmpl.Name) {
			verdicts := rule.Vote(entries, preConfig)
			all = append(all, DeviceVerdicts{Device: tmpl.Name, RuleName: rule.Name, Verdicts: verdicts})
			for _, v := range verdicts {
				histogram[v.String()]++
			}
		}
	}

	return all, histogram
}

// installObserver sets Device.Observer to debug-log each dispatched
// handler name. It does not copy or wrap any HandlerTable, and no device
// assembly does either; no handler table is mutated.
func installObserver(dev *usb.Device) {
	dev.Observer = func(setup *usb.SetupPacket, handlerName string) {
		log.WithField("handler", handlerName).Debug("dispatched")
	}
}
