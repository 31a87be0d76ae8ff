package usb

import (
	"bytes"
	"encoding/binary"
)

// BOS descriptor header size (p. Binary Object Store spec, Table 9-12).
const bosHeaderLength = 5

// DeviceCapabilityType identifies the capability TLV's type byte, following
// each capability's fixed bDescriptorType=DEVICE_CAPABILITY (0x10).
const (
	DCContainerIDType      = 0x04
	DCUSB2ExtensionType    = 0x02
	DCBillboardType        = 0x0d
)

// DeviceCapability is a single length-prefixed TLV inside a BOS descriptor:
// bLength, bDescriptorType=DEVICE_CAPABILITY, bDevCapabilityType, payload.
type DeviceCapability struct {
	CapabilityType uint8
	Payload        []byte
}

// Bytes serializes one capability record.
func (c *DeviceCapability) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(uint8(3 + len(c.Payload)))
	buf.WriteByte(DEVICE_CAPABILITY)
	buf.WriteByte(c.CapabilityType)
	buf.Write(c.Payload)
	return buf.Bytes()
}

// NewContainerID builds the ContainerID capability (a 16-byte UUID payload).
func NewContainerID(id [16]byte) *DeviceCapability {
	return &DeviceCapability{CapabilityType: DCContainerIDType, Payload: id[:]}
}

// NewUSB2Extension builds the USB2Extension capability (a bmAttributes
// bitfield, LPM support and the like).
func NewUSB2Extension(attributes uint32) *DeviceCapability {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, attributes)
	return &DeviceCapability{CapabilityType: DCUSB2ExtensionType, Payload: payload}
}

// AlternateMode is one DisplayPort/Billboard alternate mode entry: SVID,
// alternate mode number, and a string-table index describing it.
type AlternateMode struct {
	SVID          uint16
	AlternateMode uint8
	StringIndex   uint8
}

// NewBillboard builds the DCBillboard capability with the exact wire layout
// spec.md 4.H requires: iAdditionalInfoURL(1B), bNumberOfAlternateModes(1B),
// bPreferredAlternateMode(1B), VCONNPower(2B LE), bmConfigured(16B),
// reserved(4B), then 4B per alternate mode (wSVID, bAlternateMode,
// iAlternateModeString).
func NewBillboard(additionalInfoIdx, preferredAlternateMode uint8, vconnPower uint16, bmConfigured [16]byte, modes []AlternateMode) *DeviceCapability {
	buf := new(bytes.Buffer)
	buf.WriteByte(additionalInfoIdx)
	buf.WriteByte(uint8(len(modes)))
	buf.WriteByte(preferredAlternateMode)
	binary.Write(buf, binary.LittleEndian, vconnPower)
	buf.Write(bmConfigured[:])
	buf.Write(make([]byte, 4))
	for _, m := range modes {
		binary.Write(buf, binary.LittleEndian, m.SVID)
		buf.WriteByte(m.AlternateMode)
		buf.WriteByte(m.StringIndex)
	}
	return &DeviceCapability{CapabilityType: DCBillboardType, Payload: buf.Bytes()}
}

// BOS is the Binary Object Store: an ordered list of device capabilities,
// each a length-prefixed TLV, behind a 5-byte header carrying the overall
// length and capability count (spec.md 4.H).
type BOS struct {
	Capabilities []*DeviceCapability
}

// Bytes assembles the full BOS descriptor: header, then each capability's
// record in order.
func (b *BOS) Bytes() []byte {
	body := new(bytes.Buffer)
	for _, c := range b.Capabilities {
		body.Write(c.Bytes())
	}

	total := bosHeaderLength + body.Len()

	buf := new(bytes.Buffer)
	buf.WriteByte(bosHeaderLength)
	buf.WriteByte(BOS)
	binary.Write(buf, binary.LittleEndian, uint16(total))
	buf.WriteByte(uint8(len(b.Capabilities)))
	buf.Write(body.Bytes())
	return buf.Bytes()
}
