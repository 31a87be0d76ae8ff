// Package replstrings implements the string-editing REPL contract of
// spec.md 4.L: listing a device's string slots under semantic labels, and
// replacing a slot with either UTF-16-encoded text or raw bytes, both
// bounded to 255 bytes except the printer's Device-ID slot.
package replstrings

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

// Locations is the per-device-class label -> string-table-index map,
// ported from numap/apps/strings.py's STRING_LOCATIONS (spec.md
// SUPPLEMENTED FEATURES, "String table semantics").
// Indices are 1-based: string-table slot 0 is always the LANGID list
// (usb.NewStringTable), and every device constructor adds Manufacturer,
// Product, and Serial Number in that order before any device-specific
// strings. None of the device constructors populate a separate
// "Configuration String" slot, so unlike the Python original's
// STRING_LOCATIONS this table has no entry for one.
var Locations = map[string]map[string]uint8{
	"billboard": {
		"Manufacturer String":              1,
		"Product String":                   2,
		"Serial Number String":             3,
		"Billboard Additional Info String": 4,
		"Alternate Mode String":            5,
	},
	"printer": {
		"Manufacturer String":  1,
		"Product String":       2,
		"Serial Number String": 3,
		"Device ID":            4,
	},
}

func init() {
	common := map[string]uint8{
		"Manufacturer String":  1,
		"Product String":       2,
		"Serial Number String": 3,
	}
	for _, name := range []string{
		"audio", "cdc_acm", "cdc_dl", "cdc_ecm", "cdc_eem", "cdc_ncm",
		"ftdi", "hub", "keyboard", "mass_storage", "mtp", "rndis", "smartcard",
	} {
		Locations[name] = common
	}

	serialOnly := map[string]uint8{
		"Manufacturer String":  1,
		"Product String":       2,
		"Serial Number String": 3,
	}
	for _, name := range []string{"bluetooth_cypress", "wifi_qualcomm", "wifi_realtek"} {
		Locations[name] = serialOnly
	}
}

// printerDeviceIDLabel is the one slot per device class exempt from the
// 255-byte cap (spec.md 4.L).
const printerDeviceIDLabel = "Device ID"

// Entry is one listed string slot: its semantic label, index, and current
// payload for display.
type Entry struct {
	Label   string
	Index   uint8
	Payload []byte
}

// List returns every labeled slot for a device class, ordered by index.
func List(deviceClass string, strings *usb.StringTable) []Entry {
	labels := Locations[deviceClass]
	entries := make([]Entry, 0, len(labels))

	byIndex := map[uint8]string{}
	for label, idx := range labels {
		byIndex[idx] = label
	}

	for idx := uint8(0); int(idx) < strings.Len(); idx++ {
		label, ok := byIndex[idx]
		if !ok {
			continue
		}
		payload := strings.Descriptor(idx)
		if deviceClass == "printer" && label == printerDeviceIDLabel {
			payload = strings.Raw(idx) // already length-prefixed; not STRING-descriptor framing
		}
		entries = append(entries, Entry{Label: label, Index: idx, Payload: payload})
	}
	return entries
}

// Replace sets slot index to either UTF-16-encoded text (asBytes=false) or
// a raw byte string (asBytes=true, hex-encoded input). The printer
// Device-ID slot is exempt from the 255-byte cap and serializes with a
// leading 16-bit big-endian length instead of the ordinary STRING
// descriptor framing (spec.md 4.L, SUPPLEMENTED FEATURES "Printer
// Device-ID defaults and format").
func Replace(deviceClass string, strings *usb.StringTable, label string, index uint8, input string, asBytes bool) error {
	if deviceClass == "printer" && label == printerDeviceIDLabel {
		return strings.SetRawUnchecked(index, EncodeDeviceID(input))
	}

	if asBytes {
		data, err := hex.DecodeString(input)
		if err != nil {
			return &usb.UserValidationError{Reason: "input is not valid hex"}
		}
		return strings.SetRaw(index, data)
	}

	return strings.Set(index, input)
}

// EncodeDeviceID renders a printer Device-ID string with its big-endian
// 16-bit length prefix, per the original's struct.pack('>H', ...) framing.
func EncodeDeviceID(id string) []byte {
	buf := make([]byte, 2+len(id))
	binary.BigEndian.PutUint16(buf, uint16(len(id)))
	copy(buf[2:], id)
	return buf
}
