package usb

import (
	"bytes"
	"encoding/binary"
)

// Standard descriptor sizes.
const (
	DeviceDescriptorLength          = 18
	ConfigurationDescriptorLength   = 9
	InterfaceAssociationLength      = 8
	InterfaceDescriptorLength       = 9
	EndpointDescriptorLength        = 7
	DeviceQualifierDescriptorLength = 10
)

// DeviceDescriptor implements p290, Table 9-8. Standard Device Descriptor,
// USB2.0.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BcdUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	VendorID          uint16
	ProductID         uint16
	BcdDevice         uint16
	Manufacturer      uint8
	Product           uint8
	SerialNumber      uint8
	NumConfigurations uint8
}

// Bytes converts the descriptor to wire format.
func (d *DeviceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// DeviceQualifierDescriptor implements p292, 9.6.2 Device_Qualifier,
// USB2.0.
type DeviceQualifierDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BcdUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	NumConfigurations uint8
	Reserved          uint8
}

// Bytes converts the descriptor to wire format.
func (d *DeviceQualifierDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// ConfigurationDescriptor implements p293, Table 9-10. Standard
// Configuration Descriptor, USB2.0.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8
}

func (d *ConfigurationDescriptor) head() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d.Length)
	binary.Write(buf, binary.LittleEndian, d.DescriptorType)
	binary.Write(buf, binary.LittleEndian, d.TotalLength)
	binary.Write(buf, binary.LittleEndian, d.NumInterfaces)
	binary.Write(buf, binary.LittleEndian, d.ConfigurationValue)
	binary.Write(buf, binary.LittleEndian, d.ConfigurationIndex)
	binary.Write(buf, binary.LittleEndian, d.Attributes)
	binary.Write(buf, binary.LittleEndian, d.MaxPower)
	return buf.Bytes()
}

// InterfaceAssociationDescriptor implements p4, Table 9-Z. Interface
// Association Descriptor, USB2.0 (ECN).
type InterfaceAssociationDescriptor struct {
	Length           uint8
	DescriptorType   uint8
	FirstInterface   uint8
	InterfaceCount   uint8
	FunctionClass    uint8
	FunctionSubClass uint8
	FunctionProtocol uint8
	Function         uint8
}

// Bytes converts the descriptor to wire format.
func (d *InterfaceAssociationDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

func descriptorHeaderBytes(itf *Interface) []byte {
	buf := new(bytes.Buffer)
	if itf.IAD != nil {
		buf.Write(itf.IAD.Bytes())
	}
	binary.Write(buf, binary.LittleEndian, uint8(InterfaceDescriptorLength))
	binary.Write(buf, binary.LittleEndian, uint8(INTERFACE))
	binary.Write(buf, binary.LittleEndian, itf.InterfaceNumber)
	binary.Write(buf, binary.LittleEndian, itf.AlternateSetting)
	binary.Write(buf, binary.LittleEndian, uint8(len(itf.Endpoints)))
	binary.Write(buf, binary.LittleEndian, itf.Class)
	binary.Write(buf, binary.LittleEndian, itf.SubClass)
	binary.Write(buf, binary.LittleEndian, itf.Protocol)
	binary.Write(buf, binary.LittleEndian, itf.StringIndex)
	return buf.Bytes()
}

func endpointDescriptorBytes(ep *Endpoint) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint8(EndpointDescriptorLength))
	binary.Write(buf, binary.LittleEndian, uint8(ENDPOINT))
	binary.Write(buf, binary.LittleEndian, ep.address())
	binary.Write(buf, binary.LittleEndian, ep.attributes())
	binary.Write(buf, binary.LittleEndian, ep.MaxPacketSize)
	binary.Write(buf, binary.LittleEndian, ep.Interval)
	return buf.Bytes()
}

func (ep *Endpoint) address() uint8 {
	addr := uint8(ep.Number & 0x0f)
	if ep.Direction == DirectionIn {
		addr |= 0x80
	}
	return addr
}

func (ep *Endpoint) attributes() uint8 {
	attr := uint8(ep.TransferType) & 0x3
	if ep.TransferType == TransferIsochronous {
		attr |= (uint8(ep.SyncType) & 0x3) << 2
		attr |= (uint8(ep.UsageType) & 0x3) << 4
	}
	return attr
}

// StringDescriptor implements p273, 9.6.7 String, USB2.0.
type StringDescriptor struct {
	Length         uint8
	DescriptorType uint8
	Payload        []byte
}

// Bytes converts the descriptor to wire format.
func (d *StringDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(d.Length)
	buf.WriteByte(d.DescriptorType)
	buf.Write(d.Payload)
	return buf.Bytes()
}
