package devices

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

// S4 Printer Device-ID: with default strings, class request 0x00
// (GET_DEVICE_ID) on interface 0 returns the big-endian length prefix
// followed by the IEEE-1284 Device ID string, with no STRING-descriptor
// framing wrapped around it.
func TestPrinterGetDeviceID(t *testing.T) {
	dev := NewPrinter()
	if _, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0x00, Request: usb.SET_ADDRESS, Value: 1}); err != nil {
		t.Fatalf("SET_ADDRESS: %v", err)
	}
	if _, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0x00, Request: usb.SET_CONFIGURATION, Value: 1}); err != nil {
		t.Fatalf("SET_CONFIGURATION: %v", err)
	}

	setup := &usb.SetupPacket{RequestType: 0x21, Request: printerGetDeviceID, Index: 0, Length: uint16(2 + len(defaultPrinterDeviceID))}
	resp, err := dev.Dispatch(setup)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(resp) < 2 {
		t.Fatalf("expected at least a 2-byte length prefix, got %d bytes", len(resp))
	}
	gotLen := binary.BigEndian.Uint16(resp[:2])
	if int(gotLen) != len(defaultPrinterDeviceID) {
		t.Fatalf("expected length prefix %d, got %d", len(defaultPrinterDeviceID), gotLen)
	}

	body := string(resp[2:])
	if body != defaultPrinterDeviceID {
		t.Fatalf("unexpected device ID body: %q", body)
	}
	if !strings.HasPrefix(body, "MFG:Hewlett-Packard;") {
		t.Fatalf("expected MFG prefix, got %q", body)
	}
}
