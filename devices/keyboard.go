// Package devices holds the concrete per-class device assemblies: each a
// data description wiring descriptors, endpoints and handler tables onto
// the composable usb.Device engine (spec.md 1, "composition contract").
package devices

import (
	"bytes"
	"encoding/binary"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

const (
	hidDescriptorLength = 0x09
	hidClassDescriptor  = 0x21
	hidReportDescriptor = 0x22
)

// hidDescriptorBytes builds the 9-byte HID class descriptor, grounded on
// the teacher pack's HIDDescriptor.SetKeyboardDefaults/Bytes shape.
func hidDescriptorBytes(reportLength uint16) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(hidDescriptorLength)
	buf.WriteByte(hidClassDescriptor)
	binary.Write(buf, binary.LittleEndian, uint16(0x0101)) // bcdHID 1.01
	buf.WriteByte(33)                                      // country code: US
	buf.WriteByte(1)                                        // one class descriptor: the report descriptor
	buf.WriteByte(hidReportDescriptor)
	binary.Write(buf, binary.LittleEndian, reportLength)
	return buf.Bytes()
}

// keyboardReportDescriptor is a standard 6-key-rollover boot keyboard
// report descriptor (the teacher pack's CoolermasterTKLSReportDescriptor).
func keyboardReportDescriptor() []byte {
	return []byte{
		0x05, 0x01, 0x09, 0x06, 0xa1, 0x01, 0x05, 0x07, 0x19, 0xe0, 0x29, 0xe7,
		0x15, 0x00, 0x25, 0x01, 0x75, 0x01, 0x95, 0x08, 0x81, 0x02, 0x95, 0x01,
		0x75, 0x08, 0x81, 0x03, 0x95, 0x03, 0x75, 0x01, 0x05, 0x08, 0x19, 0x01,
		0x29, 0x03, 0x91, 0x02, 0x95, 0x01, 0x75, 0x05, 0x91, 0x03, 0x95, 0x06,
		0x75, 0x08, 0x15, 0x00, 0x26, 0xa4, 0x00, 0x05, 0x07, 0x19, 0x00, 0x29,
		0xa4, 0x81, 0x00, 0xc0,
	}
}

const (
	hidClassGetReport   = 0x01
	hidClassGetIdle     = 0x02
	hidClassGetProtocol = 0x03
	hidClassSetReport   = 0x09
	hidClassSetIdle     = 0x0a
	hidClassSetProtocol = 0x0b
)

// NewKeyboard builds a boot-protocol USB HID keyboard: one interface, one
// interrupt IN endpoint, and the standard GET/SET_REPORT/IDLE/PROTOCOL
// class requests (spec.md SYSTEM OVERVIEW, "DEVICES" list).
func NewKeyboard() *usb.Device {
	dev := usb.NewDevice(0x413c, 0x2113)
	dev.USBSpecVersion = 0x0200
	dev.DeviceClass = 0
	dev.DeviceSubClass = 0
	dev.DeviceProtocol = 0
	dev.MaxPacketSizeEP0 = 64

	mustAddString(dev, &dev.ManufacturerIndex, "Dell")
	mustAddString(dev, &dev.ProductIndex, "Dell USB Keyboard")
	mustAddString(dev, &dev.SerialNumberIndex, "UMAP2-KBD-0001")

	report := keyboardReportDescriptor()

	ep1In := &usb.Endpoint{
		Number:        1,
		Direction:     usb.DirectionIn,
		TransferType:  usb.TransferInterrupt,
		MaxPacketSize: 8,
		Interval:      10,
	}

	protocol := byte(1) // report protocol until the host selects boot protocol
	classHandlers := usb.NewHandlerTable(nil, nil)
	classHandlers.Override(hidClassGetReport, "get_report", func(setup *usb.SetupPacket) ([]byte, error) {
		dev.UsbFunctionSupported("GET_REPORT")
		return make([]byte, 8), nil
	})
	classHandlers.Override(hidClassSetReport, "set_report", func(setup *usb.SetupPacket) ([]byte, error) {
		return nil, nil
	})
	classHandlers.Override(hidClassSetIdle, "set_idle", func(setup *usb.SetupPacket) ([]byte, error) {
		return nil, nil
	})
	classHandlers.Override(hidClassSetProtocol, "set_protocol", func(setup *usb.SetupPacket) ([]byte, error) {
		protocol = byte(setup.Value)
		return nil, nil
	})
	classHandlers.Override(hidClassGetProtocol, "get_protocol", func(setup *usb.SetupPacket) ([]byte, error) {
		return []byte{protocol}, nil
	})
	classHandlers.Override(hidClassGetIdle, "get_idle", func(setup *usb.SetupPacket) ([]byte, error) {
		return []byte{0x00}, nil
	})

	itf := &usb.Interface{
		InterfaceNumber:  0,
		AlternateSetting: 0,
		Class:            0x03, // HID
		SubClass:         0x01, // boot interface subclass
		Protocol:         0x01, // keyboard
		Endpoints:        []*usb.Endpoint{ep1In},
		ClassDescriptors: [][]byte{hidDescriptorBytes(uint16(len(report)))},
		ClassHandlers:    classHandlers,
	}

	conf := usb.NewConfiguration(1, 0, 0xa0, 0x32)
	conf.AddInterface(itf)
	dev.Configurations = []*usb.Configuration{conf}

	return dev
}

func mustAddString(dev *usb.Device, slot *uint8, s string) {
	idx, err := dev.Strings.Add(s)
	if err != nil {
		panic(err) // built-in device strings are always well under the 255-byte cap
	}
	*slot = idx
}
