package devices

import "github.com/VBMCBoy/nu-map/internal/usb"

// USB Audio Class 1.0 control requests (UAC1, Audio10.pdf Table A-9) --
// SET_CUR and SET_RES are exactly the two the "Set Audio Properties"
// fingerprint rule watches for (spec.md SUPPLEMENTED FEATURES).
const (
	uacSetCur = 0x01
	uacSetRes = 0x04
	uacGetCur = 0x81
)

// NewAudio builds an emulated USB Audio Class speaker: an Audio Control
// interface (feature-unit volume/mute requests) plus an Audio Streaming
// interface with an isochronous OUT endpoint, composed in the same
// handler-table style as the other device assemblies.
func NewAudio() *usb.Device {
	dev := usb.NewDevice(0x041e, 0x3000) // Creative Labs-style speaker VID/PID
	dev.DeviceRelease = 0x0100
	dev.DeviceClass = 0x00 // class declared per-interface
	dev.MaxPacketSizeEP0 = 64

	mustAddString(dev, &dev.ManufacturerIndex, "nu-map Audio")
	mustAddString(dev, &dev.ProductIndex, "nu-map USB Speaker")
	mustAddString(dev, &dev.SerialNumberIndex, "NU-MAP-AUDIO-0001")

	volume := int16(0)
	muted := false

	controlHandlers := usb.NewHandlerTable(nil, nil)
	controlHandlers.Override(uacSetCur, "set_cur", func(setup *usb.SetupPacket) ([]byte, error) {
		dev.UsbFunctionSupported("SET_CUR")
		muted = setup.Value&0xff != 0
		return nil, nil
	})
	controlHandlers.Override(uacSetRes, "set_res", func(setup *usb.SetupPacket) ([]byte, error) {
		dev.UsbFunctionSupported("SET_RES")
		return nil, nil
	})
	controlHandlers.Override(uacGetCur, "get_cur", func(setup *usb.SetupPacket) ([]byte, error) {
		if muted {
			return []byte{0x01, 0x00}, nil
		}
		buf := []byte{byte(volume), byte(volume >> 8)}
		return buf, nil
	})

	controlInterface := &usb.Interface{
		InterfaceNumber: 0, AlternateSetting: 0,
		Class: 0x01, SubClass: 0x01 /* AudioControl */, Protocol: 0x00,
		ClassDescriptors: [][]byte{audioControlHeaderDescriptor()},
		ClassHandlers:    controlHandlers,
	}

	// Streaming interface: alt 0 is the zero-bandwidth idle setting, alt 1
	// carries the isochronous endpoint (UAC1's standard alt-setting dance,
	// spec.md 4.C set_alternate).
	streamIdle := &usb.Interface{InterfaceNumber: 1, AlternateSetting: 0}
	streamActive := &usb.Interface{
		InterfaceNumber: 1, AlternateSetting: 1,
		Class: 0x01, SubClass: 0x02 /* AudioStreaming */, Protocol: 0x00,
		Endpoints: []*usb.Endpoint{{
			Number: 1, Direction: usb.DirectionOut,
			TransferType: usb.TransferIsochronous, SyncType: usb.SyncAdaptive,
			MaxPacketSize: 0x00c8, Interval: 0x01,
		}},
	}

	conf := usb.NewConfiguration(1, 0, 0x80, 0x32)
	conf.AddInterface(controlInterface)
	conf.AddInterface(streamIdle)
	conf.AddInterface(streamActive)
	dev.Configurations = []*usb.Configuration{conf}

	return dev
}

// audioControlHeaderDescriptor is a minimal UAC1 Audio Control header
// (CS_INTERFACE, HEADER subtype) with no downstream unit/terminal
// descriptors -- enough for a host to recognize the interface as
// Audio/Control and issue feature-unit requests against it.
func audioControlHeaderDescriptor() []byte {
	return []byte{
		0x09, 0x24, 0x01, // bLength, CS_INTERFACE, HEADER
		0x00, 0x01, // bcdADC 1.00
		0x09, 0x00, // wTotalLength
		0x01,       // one streaming interface
		0x01,       // baInterfaceNr[0] = interface 1
	}
}
