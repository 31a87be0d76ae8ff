package devices

import (
	"testing"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

func TestKeyboardHIDDescriptorEmbeddedInConfiguration(t *testing.T) {
	dev := NewKeyboard()

	confBytes, err := dev.Configurations[0].Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	report := keyboardReportDescriptor()
	want := hidDescriptorBytes(uint16(len(report)))
	found := false
	for i := 0; i+len(want) <= len(confBytes); i++ {
		match := true
		for j := range want {
			if confBytes[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected HID class descriptor bytes embedded in the configuration descriptor")
	}
}

func TestKeyboardGetReportFiresSupportedCallback(t *testing.T) {
	dev := NewKeyboard()

	if _, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0x00, Request: usb.SET_ADDRESS, Value: 1}); err != nil {
		t.Fatalf("SET_ADDRESS: %v", err)
	}
	if _, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0x00, Request: usb.SET_CONFIGURATION, Value: 1}); err != nil {
		t.Fatalf("SET_CONFIGURATION: %v", err)
	}

	fired := false
	dev.OnUSBFunctionSupported = func(reason string) {
		if reason == "GET_REPORT" {
			fired = true
		}
	}

	resp, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0xa1, Request: hidClassGetReport, Index: 0, Length: 8})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(resp) != 8 {
		t.Fatalf("expected 8-byte keyboard report, got %d", len(resp))
	}
	if !fired {
		t.Fatal("expected OnUSBFunctionSupported(\"GET_REPORT\") to fire")
	}
}
