// Package usb implements the USB device-state engine: descriptors,
// configuration/interface/endpoint composition, the control-transfer
// dispatcher, class/vendor handler registries and the Binary Object Store.
//
// The engine is transport-agnostic; it is driven by the emulation loop in
// package emu against whatever package phy.Phy is plugged in.
package usb

import "fmt"

// Standard request codes (p279, Table 9-4, USB2.0).
const (
	GET_STATUS        = 0x00
	CLEAR_FEATURE     = 0x01
	SET_FEATURE       = 0x03
	SET_ADDRESS       = 0x05
	GET_DESCRIPTOR    = 0x06
	SET_DESCRIPTOR    = 0x07
	GET_CONFIGURATION = 0x08
	SET_CONFIGURATION = 0x09
	GET_INTERFACE     = 0x0a
	SET_INTERFACE     = 0x0b
	SYNCH_FRAME       = 0x0c
)

// Standard descriptor types (p279, Table 9-5, USB2.0).
const (
	DEVICE                    = 0x01
	CONFIGURATION             = 0x02
	STRING                    = 0x03
	INTERFACE                 = 0x04
	ENDPOINT                  = 0x05
	DEVICE_QUALIFIER          = 0x06
	OTHER_SPEED_CONFIGURATION = 0x07
	INTERFACE_POWER           = 0x08
	OTG                       = 0x09
	DEBUG                     = 0x0a
	INTERFACE_ASSOCIATION     = 0x0b
	BOS                       = 0x0f
	DEVICE_CAPABILITY         = 0x10
)

// Standard feature selectors (p280, Table 9-6, USB2.0).
const (
	ENDPOINT_HALT        = 0x00
	DEVICE_REMOTE_WAKEUP = 0x01
	TEST_MODE            = 0x02
)

// RequestDirection is the direction bit (bit 7) of bmRequestType.
type RequestDirection uint8

const (
	HostToDevice RequestDirection = 0
	DeviceToHost RequestDirection = 1
)

// RequestKind is the type field (bits 6:5) of bmRequestType.
type RequestKind uint8

const (
	RequestStandard RequestKind = 0
	RequestClass    RequestKind = 1
	RequestVendor   RequestKind = 2
	RequestReserved RequestKind = 3
)

// Recipient is the recipient field (bits 4:0) of bmRequestType.
type Recipient uint8

const (
	RecipientDevice    Recipient = 0
	RecipientInterface Recipient = 1
	RecipientEndpoint  Recipient = 2
	RecipientOther     Recipient = 3
)

// SetupPacket implements p276, Table 9-2. Format of Setup Data, USB2.0.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16

	// Data is the optional data-stage payload captured for OUT control
	// transfers, attached by the transport (the serial phy) when the setup
	// frame carries one; the dispatcher passes it through unchanged.
	Data []byte
}

// Direction returns the transfer direction encoded in bmRequestType.
func (s SetupPacket) Direction() RequestDirection {
	return RequestDirection((s.RequestType >> 7) & 0x1)
}

// Kind returns the request kind (standard/class/vendor/reserved).
func (s SetupPacket) Kind() RequestKind {
	return RequestKind((s.RequestType >> 5) & 0x3)
}

// Recipient returns the request recipient (device/interface/endpoint/other).
func (s SetupPacket) Recipient() Recipient {
	return Recipient(s.RequestType & 0x1f)
}

// DescriptorType returns the high byte of wValue, as used by
// GET_DESCRIPTOR/SET_DESCRIPTOR.
func (s SetupPacket) DescriptorType() uint8 {
	return uint8(s.Value >> 8)
}

// DescriptorIndex returns the low byte of wValue, as used by
// GET_DESCRIPTOR/SET_DESCRIPTOR.
func (s SetupPacket) DescriptorIndex() uint8 {
	return uint8(s.Value & 0xff)
}

// RequestNumberString renders the request code the way the request log
// records it: the named standard request, or "class request N"/"vendor
// request N" for the other two kinds. Used by the fingerprint rule table.
func (s SetupPacket) RequestNumberString() string {
	if s.Kind() == RequestStandard {
		if name, ok := standardRequestNames[s.Request]; ok {
			return name
		}
	}
	switch s.Kind() {
	case RequestClass:
		return fmt.Sprintf("class request %d", s.Request)
	case RequestVendor:
		return fmt.Sprintf("vendor request %d", s.Request)
	default:
		return fmt.Sprintf("reserved request %d", s.Request)
	}
}

// DescriptorNumberString renders the descriptor type named by wValue's high
// byte, valid only for GET_DESCRIPTOR/SET_DESCRIPTOR requests.
func (s SetupPacket) DescriptorNumberString() string {
	if name, ok := standardDescriptorNames[s.DescriptorType()]; ok {
		return name
	}
	return fmt.Sprintf("descriptor type %#x", s.DescriptorType())
}

var standardRequestNames = map[uint8]string{
	GET_STATUS:        "GET_STATUS",
	CLEAR_FEATURE:     "CLEAR_FEATURE",
	SET_FEATURE:       "SET_FEATURE",
	SET_ADDRESS:       "SET_ADDRESS",
	GET_DESCRIPTOR:    "GET_DESCRIPTOR",
	SET_DESCRIPTOR:    "SET_DESCRIPTOR",
	GET_CONFIGURATION: "GET_CONFIGURATION",
	SET_CONFIGURATION: "SET_CONFIGURATION",
	GET_INTERFACE:     "GET_INTERFACE",
	SET_INTERFACE:     "SET_INTERFACE",
	SYNCH_FRAME:       "SYNCH_FRAME",
}

var standardDescriptorNames = map[uint8]string{
	DEVICE:                    "DEVICE",
	CONFIGURATION:             "CONFIGURATION",
	STRING:                    "STRING",
	INTERFACE:                 "INTERFACE",
	ENDPOINT:                  "ENDPOINT",
	DEVICE_QUALIFIER:          "DEVICE_QUALIFIER",
	OTHER_SPEED_CONFIGURATION: "OTHER_SPEED_CONFIGURATION",
	INTERFACE_POWER:           "INTERFACE_POWER",
	OTG:                       "OTG",
	DEBUG:                     "DEBUG",
	INTERFACE_ASSOCIATION:     "INTERFACE_ASSOCIATION",
	BOS:                       "BOS",
	DEVICE_CAPABILITY:         "DEVICE_CAPABILITY",
}

// trim truncates buf to wLength, matching imx6_usb's GET_DESCRIPTOR
// behavior: a response is never longer than the host asked for.
func trim(buf []byte, wLength uint16) []byte {
	if int(wLength) < len(buf) {
		buf = buf[:wLength]
	}
	return buf
}
