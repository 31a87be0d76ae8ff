// Package fingerprint implements the rule table and scan/detect-os
// harnesses that consume a usb.Device's request log to classify host
// support and operating-system identity (spec.md 4.K).
package fingerprint

import (
	"strings"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

// OS is a candidate host operating system a rule may vote for (or against,
// as ¬OS — spec.md SUPPLEMENTED FEATURES, "negated verdicts").
type OS int

const (
	Unknown OS = iota
	Windows
	Linux
	MacOS
	IOS
)

func (o OS) String() string {
	switch o {
	case Windows:
		return "WINDOWS"
	case Linux:
		return "LINUX"
	case MacOS:
		return "MACOS"
	case IOS:
		return "IOS"
	default:
		return "UNKNOWN"
	}
}

// deviceScopeAny is the wildcard scope matching every device template,
// mirroring the Python source's 'ANY' scope key.
const deviceScopeAny = "ANY"

// Verdict is one rule's vote: an OS, or its negation (¬OS, "this host is
// not running OS"). The distilled spec's summary only shows positive
// votes; the Python source's printing code handles negative values, so the
// shape is kept even though none of the ported rules currently emit one.
type Verdict struct {
	OS      OS
	Negated bool
}

func (v Verdict) String() string {
	if v.Negated {
		return "not " + v.OS.String()
	}
	return v.OS.String()
}

func vote(os OS) []Verdict {
	return []Verdict{{OS: os}}
}

// Rule is a pure predicate over one device template's request log: given
// every request and the prefix before the SET_CONFIGURATION boundary, it
// returns zero or more OS verdicts.
type Rule struct {
	Name    string
	Devices []string // device template names this rule applies to, or {deviceScopeAny}
	Vote    func(all, preConfig []usb.RequestLogEntry) []Verdict
}

func (r Rule) appliesTo(device string) bool {
	for _, d := range r.Devices {
		if d == deviceScopeAny || d == device {
			return true
		}
	}
	return false
}

// Table is the fixed fingerprint rule set, ported from
// numap/apps/fingerprints.py's FINGERPRINTS table (spec.md SUPPLEMENTED
// FEATURES: all six rules kept, including the two the distilled spec's
// summary omitted).
var Table = []Rule{
	{
		Name:    ">3x Get Configuration Descriptor",
		Devices: []string{"keyboard", "cdc_acm", "rndis"},
		Vote: func(all, preConfig []usb.RequestLogEntry) []Verdict {
			if countConfigDescriptorReads(preConfig) >= 3 {
				return vote(Windows)
			}
			return vote(Linux)
		},
	},
	{
		Name:    "Request String 0x01 (Manufacturer String???)",
		Devices: []string{"keyboard"},
		Vote: func(all, preConfig []usb.RequestLogEntry) []Verdict {
			for _, r := range all {
				if r.RequestNumberString == "GET_DESCRIPTOR" &&
					r.DescriptorNumberString == "STRING" &&
					r.Setup.Value&0xff == 0x01 {
					return vote(Linux)
				}
			}
			return vote(Windows)
		},
	},
	{
		Name:    "Request Microsoft OS Descriptor",
		Devices: []string{deviceScopeAny},
		Vote: func(all, preConfig []usb.RequestLogEntry) []Verdict {
			for _, r := range all {
				if r.RequestNumberString == "GET_DESCRIPTOR" && r.Setup.Value == 0x03ee {
					return vote(Windows)
				}
			}
			return vote(Unknown)
		},
	},
	{
		Name:    "Set Audio Properties",
		Devices: []string{"audio"},
		Vote: func(all, preConfig []usb.RequestLogEntry) []Verdict {
			for _, r := range all {
				if r.RequestNumberString == "class request 4" || r.RequestNumberString == "class request 1" {
					return vote(Linux)
				}
			}
			return vote(Windows)
		},
	},
	{
		Name:    "Get Configuration Descriptor after Configuration",
		Devices: []string{"printer"},
		Vote: func(all, preConfig []usb.RequestLogEntry) []Verdict {
			start := len(preConfig) - 1
			if start < 0 {
				start = 0
			}
			if countConfigDescriptorReads(all[start:]) > 1 {
				return vote(Windows)
			}
			return vote(Linux)
		},
	},
	{
		Name:    "Additional Class Requests",
		Devices: []string{"cdc_acm", "rndis"},
		Vote: func(all, preConfig []usb.RequestLogEntry) []Verdict {
			count := 0
			for _, r := range all {
				if strings.HasPrefix(r.RequestNumberString, "class request ") &&
					(strings.HasSuffix(r.RequestNumberString, "32") ||
						strings.HasSuffix(r.RequestNumberString, "33") ||
						strings.HasSuffix(r.RequestNumberString, "34")) {
					count++
				}
			}
			if count > 1 {
				return vote(Windows)
			}
			return vote(Linux)
		},
	},
}

func countConfigDescriptorReads(entries []usb.RequestLogEntry) int {
	n := 0
	for _, r := range entries {
		if r.RequestNumberString == "GET_DESCRIPTOR" && r.DescriptorNumberString == "CONFIGURATION" {
			n++
		}
	}
	return n
}

// RulesFor returns every rule whose device scope matches the given
// template name (exact match or the ANY wildcard).
func RulesFor(device string) []Rule {
	var out []Rule
	for _, r := range Table {
		if r.appliesTo(device) {
			out = append(out, r)
		}
	}
	return out
}
