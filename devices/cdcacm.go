package devices

import (
	"bytes"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

var cdcAcmLog = logrus.WithField("component", "devices.cdcacm")

// CDC functional descriptor subtypes (CDC120.pdf table 13), the same set
// cdc_eem.py's FunctionalDescriptor helper assembles for its own Header/CM/
// EN/UN descriptors.
const (
	cdcFDHeader = 0x00
	cdcFDCM     = 0x01
	cdcFDACM    = 0x02
	cdcFDUnion  = 0x06
)

func cdcFunctionalDescriptor(subtype uint8, payload []byte) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(uint8(3 + len(payload)))
	buf.WriteByte(0x24) // CS_INTERFACE
	buf.WriteByte(subtype)
	buf.Write(payload)
	return buf.Bytes()
}

const (
	acmSetLineCoding     = 0x20
	acmGetLineCoding     = 0x21
	acmSetControlLineState = 0x22
)

// NewCdcAcm builds an emulated CDC-ACM virtual serial port: a control
// interface (interrupt IN notifications, Header/CM/ACM/Union functional
// descriptors) joined by an IAD to a data interface (bulk IN/OUT),
// composed in the shape cdc_eem.py's single-interface CDC device uses,
// generalized to the two-interface ACM form the "cdc_acm" fingerprint
// template expects (spec.md SUPPLEMENTED FEATURES).
func NewCdcAcm() *usb.Device {
	dev := usb.NewDevice(0x1b6b, 0x0102)
	dev.DeviceRelease = 0x0010
	dev.DeviceClass = 0x02 // CDC
	dev.DeviceSubClass = 0x00
	dev.DeviceProtocol = 0x00
	dev.MaxPacketSizeEP0 = 64

	mustAddString(dev, &dev.ManufacturerIndex, "nu-map NetSolutions")
	mustAddString(dev, &dev.ProductIndex, "nu-map CDC-ACM")
	mustAddString(dev, &dev.SerialNumberIndex, "NU-MAP-13337-CDC")

	notify := &usb.Endpoint{
		Number: 1, Direction: usb.DirectionIn,
		TransferType: usb.TransferInterrupt, MaxPacketSize: 0x08, Interval: 0x10,
	}

	classHandlers := usb.NewHandlerTable(nil, nil)
	lineCoding := []byte{0x80, 0x25, 0x00, 0x00, 0x00, 0x00, 0x08} // 9600 8N1
	classHandlers.Override(acmSetLineCoding, "set_line_coding", func(setup *usb.SetupPacket) ([]byte, error) {
		return nil, nil
	})
	classHandlers.Override(acmGetLineCoding, "get_line_coding", func(setup *usb.SetupPacket) ([]byte, error) {
		return lineCoding, nil
	})
	classHandlers.Override(acmSetControlLineState, "set_control_line_state", func(setup *usb.SetupPacket) ([]byte, error) {
		dev.UsbFunctionSupported("SET_CONTROL_LINE_STATE")
		return nil, nil
	})

	controlInterface := &usb.Interface{
		InterfaceNumber: 0, AlternateSetting: 0,
		Class: 0x02, SubClass: 0x02 /* ACM */, Protocol: 0x01, /* AT commands */
		Endpoints: []*usb.Endpoint{notify},
		ClassDescriptors: [][]byte{
			cdcFunctionalDescriptor(cdcFDHeader, []byte{0x10, 0x01}),
			cdcFunctionalDescriptor(cdcFDCM, []byte{0x00, 0x01}),
			cdcFunctionalDescriptor(cdcFDACM, []byte{0x02}),
			cdcFunctionalDescriptor(cdcFDUnion, []byte{0x00, 0x01}),
		},
		ClassHandlers: classHandlers,
		IAD: &usb.InterfaceAssociationDescriptor{
			Length: 0x08, DescriptorType: 0x0b,
			FirstInterface: 0, InterfaceCount: 2,
			FunctionClass: 0x02, FunctionSubClass: 0x02, FunctionProtocol: 0x01,
		},
	}

	receiveBuffer := ""
	epOut := &usb.Endpoint{Number: 2, Direction: usb.DirectionOut, TransferType: usb.TransferBulk, MaxPacketSize: 0x40}
	epOut.OnData = func(data []byte) error {
		receiveBuffer += string(data)
		if idx := strings.IndexByte(receiveBuffer, '\r'); idx >= 0 {
			cdcAcmLog.WithField("line", receiveBuffer[:idx]).Info("received line")
			receiveBuffer = receiveBuffer[idx+1:]
		}
		return nil
	}
	epIn := &usb.Endpoint{Number: 3, Direction: usb.DirectionIn, TransferType: usb.TransferBulk, MaxPacketSize: 0x40}

	dataInterface := &usb.Interface{
		InterfaceNumber: 1, AlternateSetting: 0,
		Class: 0x0a, SubClass: 0x00, Protocol: 0x00,
		Endpoints: []*usb.Endpoint{epOut, epIn},
	}

	conf := usb.NewConfiguration(1, 0, 0x80, 0x32)
	conf.AddInterface(controlInterface)
	conf.AddInterface(dataInterface)
	dev.Configurations = []*usb.Configuration{conf}

	return dev
}
