package replstrings

import (
	"bytes"
	"testing"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

func newKeyboardTable(t *testing.T) *usb.StringTable {
	t.Helper()
	table := usb.NewStringTable()
	for _, s := range []string{"Metadot", "Das Keyboard", "DK12345"} {
		if _, err := table.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return table
}

func TestListOrdersByIndexAndSkipsUnlabeled(t *testing.T) {
	table := newKeyboardTable(t)
	entries := List("keyboard", table)

	if len(entries) != 3 {
		t.Fatalf("expected 3 labeled entries, got %d", len(entries))
	}
	for i, want := range []string{"Manufacturer String", "Product String", "Serial Number String"} {
		if entries[i].Label != want {
			t.Fatalf("entry %d: expected label %q, got %q", i, want, entries[i].Label)
		}
		if entries[i].Index != uint8(i+1) {
			t.Fatalf("entry %d: expected index %d, got %d", i, i+1, entries[i].Index)
		}
	}
}

func TestReplaceSetsUTF16Text(t *testing.T) {
	table := newKeyboardTable(t)
	if err := Replace("keyboard", table, "Product String", 2, "New Name", false); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	entries := List("keyboard", table)
	got := entries[1].Payload
	// STRING descriptor: bLength, bDescriptorType=STRING, then UTF-16LE payload.
	if got[1] != usb.STRING {
		t.Fatalf("expected STRING descriptor type byte, got %#x", got[1])
	}
	if int(got[0]) != len(got) {
		t.Fatalf("bLength mismatch: got %d want %d", got[0], len(got))
	}
}

func TestReplaceBytesModeRejectsNonHex(t *testing.T) {
	table := newKeyboardTable(t)
	err := Replace("keyboard", table, "Product String", 2, "not-hex!!", true)
	if err == nil {
		t.Fatal("expected error for non-hex bytes input")
	}
	if _, ok := err.(*usb.UserValidationError); !ok {
		t.Fatalf("expected *usb.UserValidationError, got %T", err)
	}
}

func TestReplaceBytesModeDecodesHex(t *testing.T) {
	table := newKeyboardTable(t)
	if err := Replace("keyboard", table, "Product String", 2, "deadbeef", true); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	entries := List("keyboard", table)
	if !bytes.Equal(entries[1].Payload[2:], []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("unexpected raw payload: %x", entries[1].Payload[2:])
	}
}

// The printer Device-ID slot is exempt from ordinary STRING-descriptor
// framing and the 255-byte cap: List returns the raw length-prefixed
// payload, not a wrapped descriptor, and Replace accepts input far longer
// than 255 bytes.
func TestPrinterDeviceIDExemption(t *testing.T) {
	table := usb.NewStringTable()
	for _, s := range []string{"HP", "LaserJet", "SN1"} {
		if _, err := table.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	deviceIDIdx, err := table.AddRaw(EncodeDeviceID("MFG:Test;"))
	if err != nil {
		t.Fatalf("AddRaw: %v", err)
	}

	longID := ""
	for i := 0; i < 50; i++ {
		longID += "MFG:Test;"
	}
	if err := Replace("printer", table, "Device ID", deviceIDIdx, longID, false); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	entries := List("printer", table)
	var deviceIDEntry *Entry
	for i := range entries {
		if entries[i].Label == "Device ID" {
			deviceIDEntry = &entries[i]
		}
	}
	if deviceIDEntry == nil {
		t.Fatal("expected a Device ID entry")
	}

	if len(deviceIDEntry.Payload) < 2 {
		t.Fatalf("expected length-prefixed payload, got %d bytes", len(deviceIDEntry.Payload))
	}
	gotLen := uint16(deviceIDEntry.Payload[0])<<8 | uint16(deviceIDEntry.Payload[1])
	if int(gotLen) != len(longID) {
		t.Fatalf("expected length prefix %d, got %d", len(longID), gotLen)
	}
	if string(deviceIDEntry.Payload[2:]) != longID {
		t.Fatalf("expected raw device ID body preserved, got %q", deviceIDEntry.Payload[2:])
	}
}
