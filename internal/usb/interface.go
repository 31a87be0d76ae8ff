package usb

// Interface implements p296, Table 9-12. Standard Interface Descriptor,
// USB2.0, plus the class/vendor handler tables and class-specific
// descriptors a concrete device assembly attaches to it.
//
// An interface number may have several Interface values, one per alternate
// setting; Configuration selects the active one per set_alternate (spec.md
// 4.C).
type Interface struct {
	InterfaceNumber  uint8
	AlternateSetting uint8
	Class            uint8
	SubClass         uint8
	Protocol         uint8
	StringIndex      uint8

	Endpoints []*Endpoint

	// ClassDescriptors are opaque class-specific descriptor bytes (HID,
	// CDC functional descriptors, ...) emitted immediately after the
	// interface descriptor header, before its endpoint descriptors.
	ClassDescriptors [][]byte

	// IAD is non-nil only on the first interface of a multi-interface
	// function (CDC-ACM), emitted immediately before this
	// interface's own descriptor.
	IAD *InterfaceAssociationDescriptor

	ClassHandlers  *HandlerTable
	VendorHandlers *HandlerTable

	active bool
}

// bytes assembles this alternate setting's descriptor: optional IAD, the
// interface descriptor header, its class-specific descriptors, then its
// endpoint descriptors, in that fixed order (spec.md 4.C).
func (itf *Interface) bytes() []byte {
	buf := descriptorHeaderBytes(itf)
	for _, cd := range itf.ClassDescriptors {
		buf = append(buf, cd...)
	}
	for _, ep := range itf.Endpoints {
		buf = append(buf, endpointDescriptorBytes(ep)...)
	}
	return buf
}

// AltSetting groups every alternate setting registered for one interface
// number; Configuration keys its interface table by InterfaceNumber and
// holds one AltSetting per number.
type AltSetting struct {
	Number       uint8
	alternates   map[uint8]*Interface
	activeAlt    uint8
}

// NewAltSetting creates an empty alternate-setting group for an interface
// number.
func NewAltSetting(number uint8) *AltSetting {
	return &AltSetting{Number: number, alternates: map[uint8]*Interface{}}
}

// Add registers one alternate setting's Interface under this group,
// becoming the active one if it is alternate 0 or if no alternate has been
// marked active yet.
func (a *AltSetting) Add(itf *Interface) {
	a.alternates[itf.AlternateSetting] = itf
	if itf.AlternateSetting == 0 {
		itf.active = true
	}
	if _, ok := a.alternates[a.activeAlt]; !ok {
		a.activeAlt = itf.AlternateSetting
	}
}

// Active returns the Interface for the currently selected alternate
// setting.
func (a *AltSetting) Active() *Interface {
	return a.alternates[a.activeAlt]
}

// SetAlternate implements the Interface operation set_alternate(n)
// (spec.md 4.C): swaps the active endpoint set to alternate n. Endpoints
// present in the previously active alternate but absent from alternate n
// become dormant (no longer polled or addressable) until that alternate is
// selected again.
func (a *AltSetting) SetAlternate(n uint8) error {
	itf, ok := a.alternates[n]
	if !ok {
		return &ConfigurationError{Reason: "no such alternate setting"}
	}
	if prev := a.Active(); prev != nil {
		prev.active = false
	}
	itf.active = true
	a.activeAlt = n
	return nil
}

// Alternate returns the current alternate setting number, for
// GET_INTERFACE.
func (a *AltSetting) Alternate() uint8 {
	return a.activeAlt
}

// All returns every registered alternate's Interface, for descriptor
// assembly (every alternate setting is enumerated in the configuration
// descriptor, not just the active one).
func (a *AltSetting) All() []*Interface {
	out := make([]*Interface, 0, len(a.alternates))
	for _, itf := range a.alternates {
		out = append(out, itf)
	}
	return out
}
