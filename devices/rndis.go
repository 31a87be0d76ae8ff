package devices

import (
	"github.com/sirupsen/logrus"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

var rndisLog = logrus.WithField("component", "devices.rndis")

// NewRndis builds an emulated RNDIS Ethernet adapter: a Communication
// Control interface (one interrupt IN "notification" endpoint) and a Data
// Class interface (bulk IN/OUT), both sharing a class handler table whose
// entire 0x00-0xff request range answers handle_unknown the way rndis.py's
// local_handlers stub does for 0x20-0x22 (spec.md 4.G, SUPPLEMENTED
// FEATURES: generalized to the full range since a real RNDIS host probes
// well beyond that narrow set before giving up).
func NewRndis() *usb.Device {
	dev := usb.NewDevice(0x2001, 0x4a00) // D-Link DUB-1312
	dev.DeviceRelease = 0x0001
	dev.DeviceClass = 0x02 // CDC
	dev.DeviceSubClass = 0x00
	dev.DeviceProtocol = 0x00
	dev.MaxPacketSizeEP0 = 64

	mustAddString(dev, &dev.ManufacturerIndex, "nu-map Inc.")
	mustAddString(dev, &dev.ProductIndex, "nu-map RNDIS Network Interface")
	mustAddString(dev, &dev.SerialNumberIndex, "0123456789-1337")

	classHandlers := usb.NewHandlerTable(nil, nil)
	classHandlers.FillRange(0x00, 0xff, "handle_unknown", func(setup *usb.SetupPacket) ([]byte, error) {
		dev.UsbFunctionSupported("RNDIS_CONTROL_MESSAGE")
		return []byte{}, nil
	})

	ccEndpoint := &usb.Endpoint{
		Number: 1, Direction: usb.DirectionIn,
		TransferType: usb.TransferInterrupt, MaxPacketSize: 0x0008, Interval: 0x01,
	}
	ccEndpoint.OnData = func(data []byte) error {
		rndisLog.WithField("bytes", len(data)).Debug("CC interface data")
		return nil
	}

	ccInterface := &usb.Interface{
		InterfaceNumber: 0, AlternateSetting: 0,
		Class: 0x02, SubClass: 0x02, Protocol: 0xff,
		Endpoints:     []*usb.Endpoint{ccEndpoint},
		ClassHandlers: classHandlers,
	}

	dcIn := &usb.Endpoint{
		Number: 2, Direction: usb.DirectionIn,
		TransferType: usb.TransferBulk, MaxPacketSize: 0x0040,
	}
	dcIn.OnData = func(data []byte) error {
		rndisLog.WithField("bytes", len(data)).Debug("DC interface data")
		return nil
	}
	dcOut := &usb.Endpoint{
		Number: 3, Direction: usb.DirectionOut,
		TransferType: usb.TransferBulk, MaxPacketSize: 0x0040,
	}

	dcInterface := &usb.Interface{
		InterfaceNumber: 1, AlternateSetting: 0,
		Class: 0x0a, SubClass: 0x00, Protocol: 0x00,
		Endpoints:     []*usb.Endpoint{dcIn, dcOut},
		ClassHandlers: classHandlers,
	}

	conf := usb.NewConfiguration(1, 0, 0x80, 0x32)
	conf.AddInterface(ccInterface)
	conf.AddInterface(dcInterface)
	dev.Configurations = []*usb.Configuration{conf}

	return dev
}
