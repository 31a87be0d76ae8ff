package usb

// Device is the root entity of spec.md 3: VID/PID/class, string table, BOS,
// configurations, and the mutable fields (address, active configuration
// index, state) the dispatcher updates as control transfers arrive.
type Device struct {
	VendorID       uint16
	ProductID      uint16
	DeviceRelease  uint16
	USBSpecVersion uint16
	DeviceClass    uint8
	DeviceSubClass uint8
	DeviceProtocol uint8

	MaxPacketSizeEP0 uint8

	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8

	Configurations []*Configuration
	Strings        *StringTable
	BOS            *BOS

	// HighSpeedCapable gates the DEVICE_QUALIFIER request (spec.md 4.A:
	// "derived, or stall if not high-speed capable").
	HighSpeedCapable bool

	Address                  uint8
	ActiveConfigurationIndex uint8
	State                    DeviceState

	Log *RequestLog

	// OnConfigurationOccurred fires on the ADDRESS -> CONFIGURED edge
	// (spec.md 4.E), consumed by the fingerprint harness (K).
	OnConfigurationOccurred func()

	// OnUSBFunctionSupported is the device assembly's callback hook
	// (spec.md 4.K: "usb_function_supported(reason)"), invoked by a
	// class/vendor handler when host traffic demonstrates the function
	// is in active use.
	OnUSBFunctionSupported func(reason string)

	// Observer is set by the fingerprint harness (spec.md 9, "explicit
	// observer"): it sees every setup packet and the name of the
	// handler the dispatcher resolved for it, after the handler returns.
	Observer func(setup *SetupPacket, handlerName string)

	Mutators *MutatorRegistry
}

// NewDevice returns a Device in the ATTACHED state with an empty string
// table (LANGID-only) and request log, ready for a device assembly to
// populate Configurations/BOS.
func NewDevice(vendorID, productID uint16) *Device {
	return &Device{
		VendorID:         vendorID,
		ProductID:        productID,
		MaxPacketSizeEP0: 64,
		Strings:          NewStringTable(),
		Log:              NewRequestLog(),
		Mutators:         NewMutatorRegistry(),
		State:            StateAttached,
	}
}

// UsbFunctionSupported invokes the OnUSBFunctionSupported hook if set,
// matching the Python source's usb_function_supported(reason) call sites.
func (d *Device) UsbFunctionSupported(reason string) {
	if d.OnUSBFunctionSupported != nil {
		d.OnUSBFunctionSupported(reason)
	}
}

// Descriptor assembles the DEVICE descriptor (spec.md 4.A).
func (d *Device) Descriptor() []byte {
	desc := &DeviceDescriptor{
		Length:            DeviceDescriptorLength,
		DescriptorType:    DEVICE,
		BcdUSB:            d.USBSpecVersion,
		DeviceClass:       d.DeviceClass,
		DeviceSubClass:    d.DeviceSubClass,
		DeviceProtocol:    d.DeviceProtocol,
		MaxPacketSize:     d.MaxPacketSizeEP0,
		VendorID:          d.VendorID,
		ProductID:         d.ProductID,
		BcdDevice:         d.DeviceRelease,
		Manufacturer:      d.ManufacturerIndex,
		Product:           d.ProductIndex,
		SerialNumber:      d.SerialNumberIndex,
		NumConfigurations: uint8(len(d.Configurations)),
	}
	return desc.Bytes()
}

// Qualifier assembles the DEVICE_QUALIFIER descriptor, or nil if this
// device does not claim high-speed capability (spec.md 4.A).
func (d *Device) Qualifier() []byte {
	if !d.HighSpeedCapable {
		return nil
	}
	q := &DeviceQualifierDescriptor{
		Length:            DeviceQualifierDescriptorLength,
		DescriptorType:    DEVICE_QUALIFIER,
		BcdUSB:            d.USBSpecVersion,
		DeviceClass:       d.DeviceClass,
		DeviceSubClass:    d.DeviceSubClass,
		DeviceProtocol:    d.DeviceProtocol,
		MaxPacketSize:     d.MaxPacketSizeEP0,
		NumConfigurations: uint8(len(d.Configurations)),
	}
	return q.Bytes()
}

// ConfigurationBytes assembles configuration descriptor number index
// (0-based, per wValue's low byte), returning an UnsupportedRequest error
// if out of range.
func (d *Device) ConfigurationBytes(index uint8, otherSpeed bool) ([]byte, error) {
	if int(index) >= len(d.Configurations) {
		return nil, &UnsupportedRequest{Recipient: RecipientDevice, Request: GET_DESCRIPTOR}
	}
	conf := d.Configurations[index]
	if otherSpeed {
		return conf.otherSpeedBytes()
	}
	return conf.Bytes()
}

// BOSBytes assembles the BOS descriptor, or nil if this device has none.
func (d *Device) BOSBytes() []byte {
	if d.BOS == nil {
		return nil
	}
	return d.BOS.Bytes()
}
