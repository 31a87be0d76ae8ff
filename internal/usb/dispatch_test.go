package usb

import (
	"bytes"
	"testing"
)

func newDefaultDeviceForDispatch() *Device {
	dev := NewDevice(0x0451, 0xe003) // Texas Instruments, arbitrary
	dev.USBSpecVersion = 0x0200
	dev.MaxPacketSizeEP0 = 64

	conf := NewConfiguration(1, 0, 0x80, 0x32)
	conf.AddInterface(&Interface{InterfaceNumber: 0, Class: 0x03})
	dev.Configurations = []*Configuration{conf}
	return dev
}

// S1 Enumeration: GET_DESCRIPTOR(DEVICE, wLength=64) on a default device
// returns 18 bytes starting 12 01 00 02 00 00 00 40.
func TestDispatchGetDeviceDescriptor(t *testing.T) {
	dev := newDefaultDeviceForDispatch()

	setup := &SetupPacket{RequestType: 0x80, Request: GET_DESCRIPTOR, Value: uint16(DEVICE) << 8, Length: 64}
	resp, err := dev.Dispatch(setup)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(resp) != 18 {
		t.Fatalf("expected 18-byte DEVICE descriptor, got %d bytes", len(resp))
	}
	want := []byte{0x12, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x40}
	if !bytes.Equal(resp[:8], want) {
		t.Fatalf("expected prefix %x, got %x", want, resp[:8])
	}
}

// S2 Set-address: SET_ADDRESS(wValue=7) from DEFAULT yields zero-length
// data, device.Address==7, state ADDRESS.
func TestDispatchSetAddress(t *testing.T) {
	dev := newDefaultDeviceForDispatch()
	dev.onBusReset()

	setup := &SetupPacket{RequestType: 0x00, Request: SET_ADDRESS, Value: 7}
	resp, err := dev.Dispatch(setup)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(resp) != 0 {
		t.Fatalf("expected zero-length response, got %d bytes", len(resp))
	}
	if dev.Address != 7 {
		t.Fatalf("expected address 7, got %d", dev.Address)
	}
	if dev.State != StateAddress {
		t.Fatalf("expected ADDRESS state, got %v", dev.State)
	}
}

// Testable property 5: every Dispatch call produces exactly one log entry,
// in arrival order, regardless of outcome.
func TestDispatchLogTotality(t *testing.T) {
	dev := newDefaultDeviceForDispatch()

	setups := []*SetupPacket{
		{RequestType: 0x80, Request: GET_DESCRIPTOR, Value: uint16(DEVICE) << 8, Length: 64},
		{RequestType: 0x00, Request: SET_ADDRESS, Value: 3},
		{RequestType: 0x80, Request: 0xff}, // unknown standard request -> error
	}

	for _, s := range setups {
		dev.Dispatch(s)
	}

	entries := dev.Log.All()
	if len(entries) != len(setups) {
		t.Fatalf("expected %d log entries, got %d", len(setups), len(entries))
	}
	for i, e := range entries {
		if e.Setup.Request != setups[i].Request {
			t.Fatalf("entry %d out of order: got request %#x, want %#x", i, e.Setup.Request, setups[i].Request)
		}
	}
}

// Testable property 6: GET_DESCRIPTOR truncates to min(wLength, real_len).
func TestDispatchTruncatesToRequestedLength(t *testing.T) {
	dev := newDefaultDeviceForDispatch()

	setup := &SetupPacket{RequestType: 0x80, Request: GET_DESCRIPTOR, Value: uint16(DEVICE) << 8, Length: 8}
	resp, err := dev.Dispatch(setup)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(resp) != 8 {
		t.Fatalf("expected response truncated to 8 bytes, got %d", len(resp))
	}
}

func TestDispatchObserverFiresExactlyOncePerCall(t *testing.T) {
	dev := newDefaultDeviceForDispatch()

	calls := 0
	dev.Observer = func(*SetupPacket, string) { calls++ }

	classHandlers := NewHandlerTable(nil, nil)
	classHandlers.Override(0x01, "noop", func(*SetupPacket) ([]byte, error) { return nil, nil })
	dev.Configurations[0].Interfaces()[0].Active().ClassHandlers = classHandlers
	dev.onBusReset()
	dev.onSetAddress(1)
	_ = dev.onSetConfiguration(1)

	setup := &SetupPacket{RequestType: 0x21, Request: 0x01, Index: 0}
	if _, err := dev.Dispatch(setup); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected observer to fire exactly once, got %d", calls)
	}
}

func TestDispatchUnknownRequestStalls(t *testing.T) {
	dev := newDefaultDeviceForDispatch()
	dev.onBusReset()
	dev.onSetAddress(1)
	_ = dev.onSetConfiguration(1)

	setup := &SetupPacket{RequestType: 0x21, Request: 0x99, Index: 0}
	if _, err := dev.Dispatch(setup); err == nil {
		t.Fatal("expected an error for an unhandled class request")
	}
}
