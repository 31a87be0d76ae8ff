package devices

import (
	"github.com/VBMCBoy/nu-map/devices/massstorage"
	"github.com/VBMCBoy/nu-map/internal/fingerprint"
	"github.com/VBMCBoy/nu-map/internal/usb"
)

// Templates is the fixed device-class list the scan and OS-detection
// harnesses iterate, ported from fingerprints.py's DEVICES table (spec.md
// 4.K).
var Templates = []fingerprint.Template{
	{Name: "keyboard", Build: NewKeyboard},
	{Name: "audio", Build: NewAudio},
	{Name: "mass_storage", Build: massstorage.New},
	{Name: "printer", Build: NewPrinter},
	{Name: "cdc_acm", Build: NewCdcAcm},
	{Name: "rndis", Build: NewRndis},
}

// All is the full set of device constructors a single-device emulate
// command can select from, including billboard which has no fingerprint
// rule of its own (spec.md SUPPLEMENTED FEATURES).
var All = map[string]func() *usb.Device{
	"keyboard":     NewKeyboard,
	"audio":        NewAudio,
	"mass_storage": massstorage.New,
	"printer":      NewPrinter,
	"cdc_acm":      NewCdcAcm,
	"rndis":        NewRndis,
	"billboard":    NewBillboard,
}

// ByName resolves one device constructor by name, for commands that
// emulate a single device class rather than the full scan/detect-os sweep.
func ByName(name string) (func() *usb.Device, bool) {
	fn, ok := All[name]
	return fn, ok
}
