package usb

import "time"

// Dispatch routes one setup packet per the order in spec.md 4.F:
// standard/device, standard/interface, standard/endpoint, class, vendor,
// then unknown -> stall. It returns the data-stage response bytes (nil for
// a zero-length ACK) and a non-nil error on stall.
//
// Every call produces exactly one RequestLog entry, in arrival order,
// regardless of outcome (testable property 5). The Observer hook, if set,
// is invoked with the resolved handler's name once per call, after the
// handler has returned and the log entry has been appended (spec.md 9,
// "explicit observer").
func (d *Device) Dispatch(setup *SetupPacket) ([]byte, error) {
	entry := RequestLogEntry{
		Timestamp:              time.Now(),
		Setup:                  *setup,
		Recipient:              setup.Recipient(),
		RequestNumberString:    setup.RequestNumberString(),
		DescriptorNumberString: setup.DescriptorNumberString(),
	}

	resp, name, err := d.route(setup)

	entry.Response = resp
	entry.HandlerErr = err
	entry.Configured = d.State == StateConfigured
	d.Log.Append(entry)

	if d.Observer != nil {
		d.Observer(setup, name)
	}

	return trim(resp, setup.Length), err
}

func (d *Device) route(setup *SetupPacket) ([]byte, string, error) {
	switch {
	case setup.Kind() == RequestStandard && setup.Recipient() == RecipientDevice:
		resp, err := d.standardDeviceRequest(setup)
		return resp, "standard/device:" + setup.RequestNumberString(), err

	case setup.Kind() == RequestStandard && setup.Recipient() == RecipientInterface:
		resp, err := d.standardInterfaceRequest(setup)
		return resp, "standard/interface:" + setup.RequestNumberString(), err

	case setup.Kind() == RequestStandard && setup.Recipient() == RecipientEndpoint:
		resp, err := d.standardEndpointRequest(setup)
		return resp, "standard/endpoint:" + setup.RequestNumberString(), err

	case setup.Kind() == RequestClass:
		return d.classOrVendorRequest(setup, true)

	case setup.Kind() == RequestVendor:
		return d.classOrVendorRequest(setup, false)

	default:
		return nil, "handle_unknown", &UnsupportedRequest{Recipient: setup.Recipient(), Request: setup.Request}
	}
}

func (d *Device) standardDeviceRequest(setup *SetupPacket) ([]byte, error) {
	switch setup.Request {
	case GET_STATUS:
		return []byte{0x00, 0x00}, nil

	case GET_DESCRIPTOR:
		return d.getDescriptor(setup)

	case SET_ADDRESS:
		d.onSetAddress(uint8(setup.Value & 0xff))
		return nil, nil

	case GET_CONFIGURATION:
		return []byte{d.configurationValue()}, nil

	case SET_CONFIGURATION:
		if err := d.onSetConfiguration(uint8(setup.Value & 0xff)); err != nil {
			return nil, err
		}
		return nil, nil

	case SET_FEATURE, CLEAR_FEATURE:
		// No device-level remote-wakeup/test-mode state is modeled;
		// acknowledge so hosts that probe it don't stall the pipe.
		return nil, nil

	default:
		return nil, &UnsupportedRequest{Recipient: RecipientDevice, Request: setup.Request}
	}
}

func (d *Device) getDescriptor(setup *SetupPacket) ([]byte, error) {
	switch setup.DescriptorType() {
	case DEVICE:
		return d.Descriptor(), nil
	case CONFIGURATION:
		return d.ConfigurationBytes(setup.DescriptorIndex(), false)
	case OTHER_SPEED_CONFIGURATION:
		return d.ConfigurationBytes(setup.DescriptorIndex(), true)
	case STRING:
		b := d.Strings.Descriptor(setup.DescriptorIndex())
		if b == nil {
			return nil, &UnsupportedRequest{Recipient: RecipientDevice, Request: GET_DESCRIPTOR}
		}
		return b, nil
	case DEVICE_QUALIFIER:
		q := d.Qualifier()
		if q == nil {
			return nil, &UnsupportedRequest{Recipient: RecipientDevice, Request: GET_DESCRIPTOR}
		}
		return q, nil
	case BOS:
		b := d.BOSBytes()
		if b == nil {
			return nil, &UnsupportedRequest{Recipient: RecipientDevice, Request: GET_DESCRIPTOR}
		}
		return b, nil
	default:
		return nil, &UnsupportedRequest{Recipient: RecipientDevice, Request: GET_DESCRIPTOR}
	}
}

func (d *Device) configurationValue() uint8 {
	conf := d.activeConfiguration()
	if conf == nil {
		return 0
	}
	return conf.ConfigurationValue
}

func (d *Device) standardInterfaceRequest(setup *SetupPacket) ([]byte, error) {
	alt, _, err := d.targetInterface(setup)
	if err != nil {
		return nil, err
	}

	switch setup.Request {
	case GET_INTERFACE:
		return []byte{alt.Alternate()}, nil
	case SET_INTERFACE:
		return nil, alt.SetAlternate(uint8(setup.Value & 0xff))
	case GET_STATUS:
		return []byte{0x00, 0x00}, nil
	default:
		return nil, &UnsupportedRequest{Recipient: RecipientInterface, Request: setup.Request}
	}
}

func (d *Device) standardEndpointRequest(setup *SetupPacket) ([]byte, error) {
	ep, err := d.targetEndpoint(setup)
	if err != nil {
		return nil, err
	}

	switch setup.Request {
	case GET_STATUS:
		if ep.Stalled() {
			return []byte{0x01, 0x00}, nil
		}
		return []byte{0x00, 0x00}, nil
	case CLEAR_FEATURE:
		if setup.Value == ENDPOINT_HALT {
			ep.ClearHalt()
			return nil, nil
		}
		return nil, &UnsupportedRequest{Recipient: RecipientEndpoint, Request: setup.Request}
	case SET_FEATURE:
		if setup.Value == ENDPOINT_HALT {
			ep.Stall()
			return nil, nil
		}
		return nil, &UnsupportedRequest{Recipient: RecipientEndpoint, Request: setup.Request}
	default:
		return nil, &UnsupportedRequest{Recipient: RecipientEndpoint, Request: setup.Request}
	}
}

// classOrVendorRequest resolves the target interface via wIndex's low byte
// and looks the request up in its class or vendor handler table (spec.md
// 4.F steps 4-5).
func (d *Device) classOrVendorRequest(setup *SetupPacket, class bool) ([]byte, string, error) {
	_, itf, err := d.targetInterface(setup)
	if err != nil {
		return nil, "handle_unknown", err
	}

	table := itf.VendorHandlers
	if class {
		table = itf.ClassHandlers
	}
	if table == nil {
		return nil, "handle_unknown", &UnsupportedRequest{Recipient: setup.Recipient(), Request: setup.Request}
	}

	fn, ok := table.Lookup(setup.Request)
	name := table.Name(setup.Request)
	if !ok {
		return nil, name, &UnsupportedRequest{Recipient: setup.Recipient(), Request: setup.Request}
	}

	resp, err := fn(setup)
	resp, err = d.Mutators.Apply(name, resp, err)
	if err != nil {
		return resp, name, &HandlerFailure{Handler: name, Err: err}
	}
	return resp, name, nil
}

func (d *Device) targetInterface(setup *SetupPacket) (*AltSetting, *Interface, error) {
	conf := d.activeConfiguration()
	if conf == nil {
		return nil, nil, &UnsupportedRequest{Recipient: RecipientInterface, Request: setup.Request}
	}
	alt, ok := conf.Interface(uint8(setup.Index & 0xff))
	if !ok {
		return nil, nil, &UnsupportedRequest{Recipient: RecipientInterface, Request: setup.Request}
	}
	return alt, alt.Active(), nil
}

func (d *Device) targetEndpoint(setup *SetupPacket) (*Endpoint, error) {
	number := int(setup.Index & 0x0f)
	dir := DirectionOut
	if setup.Index&0x80 != 0 {
		dir = DirectionIn
	}
	if ep := d.EndpointByNumber(number, dir); ep != nil {
		return ep, nil
	}
	return nil, &UnsupportedRequest{Recipient: RecipientEndpoint, Request: setup.Request}
}
