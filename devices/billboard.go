package devices

import "github.com/VBMCBoy/nu-map/internal/usb"

// NewBillboard builds a USB Billboard device: a BOS descriptor carrying a
// ContainerID and one Billboard capability advertising a single DisplayPort
// alternate mode, grounded on billboard.py's DCContainerId/DCBillboard pair
// (spec.md 4.H).
func NewBillboard() *usb.Device {
	dev := usb.NewDevice(0x1d6b, 0x0107)
	dev.USBSpecVersion = 0x0201
	dev.DeviceClass = 0x00
	dev.MaxPacketSizeEP0 = 64

	mustAddString(dev, &dev.ManufacturerIndex, "Linux Foundation")
	mustAddString(dev, &dev.ProductIndex, "Billboard Device")
	mustAddString(dev, &dev.SerialNumberIndex, "0001")

	additionalInfoIdx, err := dev.Strings.Add("http://www.displayport.org")
	if err != nil {
		panic(err)
	}
	altModeStringIdx, err := dev.Strings.Add("DisplayPort Alternate Mode")
	if err != nil {
		panic(err)
	}

	var bmConfigured [16]byte
	bmConfigured[0] = 0x01 // alternate mode 0 is configured as DisplayPort

	dev.BOS = &usb.BOS{
		Capabilities: []*usb.DeviceCapability{
			usb.NewContainerID([16]byte{0xde, 0xad, 0xbe, 0xef}),
			usb.NewBillboard(additionalInfoIdx, 0, 0, bmConfigured, []usb.AlternateMode{
				{SVID: 0xff01, AlternateMode: 0, StringIndex: altModeStringIdx},
			}),
		},
	}

	// A Billboard-only device presents a single Billboard-class interface
	// with no endpoints and no interface association descriptor.
	itf := &usb.Interface{
		InterfaceNumber:  0,
		AlternateSetting: 0,
		Class:            0x11, // Billboard class
		SubClass:         0x00,
		Protocol:         0x00,
	}

	conf := usb.NewConfiguration(1, 0, 0x80, 0x32)
	conf.AddInterface(itf)
	dev.Configurations = []*usb.Configuration{conf}

	return dev
}
