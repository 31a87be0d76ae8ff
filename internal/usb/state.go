package usb

// DeviceState is the device lifecycle state machine of spec.md 4.E.
type DeviceState uint8

const (
	StateAttached DeviceState = iota
	StatePowered
	StateDefault
	StateAddress
	StateConfigured
)

func (s DeviceState) String() string {
	switch s {
	case StateAttached:
		return "ATTACHED"
	case StatePowered:
		return "POWERED"
	case StateDefault:
		return "DEFAULT"
	case StateAddress:
		return "ADDRESS"
	case StateConfigured:
		return "CONFIGURED"
	default:
		return "UNKNOWN"
	}
}

// onConnect implements the ATTACHED -> POWERED edge, triggered by
// phy.connect.
func (d *Device) onConnect() {
	d.State = StatePowered
}

// onBusReset implements the POWERED/any -> DEFAULT edge: reset address and
// deactivate the configuration (spec.md 4.E, 4.J "BusReset").
func (d *Device) onBusReset() {
	d.State = StateDefault
	d.Address = 0
	d.ActiveConfigurationIndex = 0
}

// onSetAddress implements DEFAULT -> ADDRESS, triggered by
// SET_ADDRESS(nonzero).
func (d *Device) onSetAddress(addr uint8) {
	d.Address = addr
	if addr != 0 {
		d.State = StateAddress
	}
}

// onSetConfiguration implements ADDRESS -> CONFIGURED on a nonzero value
// and CONFIGURED -> ADDRESS on zero. Fires OnConfigurationOccurred on the
// ADDRESS -> CONFIGURED edge only (spec.md 4.E).
func (d *Device) onSetConfiguration(value uint8) error {
	if value == 0 {
		d.ActiveConfigurationIndex = 0
		if d.State == StateConfigured {
			d.State = StateAddress
		}
		return nil
	}

	idx, err := d.configurationIndexByValue(value)
	if err != nil {
		return err
	}

	wasConfigured := d.State == StateConfigured
	d.ActiveConfigurationIndex = idx
	d.State = StateConfigured

	if !wasConfigured && d.OnConfigurationOccurred != nil {
		d.OnConfigurationOccurred()
	}
	return nil
}

// onDisconnect implements any -> ATTACHED, triggered by phy.disconnect.
func (d *Device) onDisconnect() {
	d.State = StateAttached
	d.Address = 0
	d.ActiveConfigurationIndex = 0
}

// ResetForBusReset is the exported entry point the emulation loop calls on
// a BusReset event (spec.md 4.J): reset to DEFAULT, clear address,
// deactivate the configuration.
func (d *Device) ResetForBusReset() {
	d.onBusReset()
}

// EndpointByNumber returns the active configuration's endpoint matching
// number and direction, or nil if none matches (unconfigured device, or no
// such endpoint in the active alternate setting).
func (d *Device) EndpointByNumber(number int, dir Direction) *Endpoint {
	conf := d.activeConfiguration()
	if conf == nil {
		return nil
	}
	for _, alt := range conf.Interfaces() {
		itf := alt.Active()
		for _, ep := range itf.Endpoints {
			if ep.Number == number && ep.Direction == dir {
				return ep
			}
		}
	}
	return nil
}

func (d *Device) configurationIndexByValue(value uint8) (uint8, error) {
	for i, conf := range d.Configurations {
		if conf.ConfigurationValue == value {
			return uint8(i + 1), nil
		}
	}
	return 0, &ConfigurationError{Reason: "no configuration with that value"}
}

// activeConfiguration returns the currently selected Configuration, or nil
// if unconfigured (testable property 3: CONFIGURED always implies a
// nonzero, valid ActiveConfigurationIndex).
func (d *Device) activeConfiguration() *Configuration {
	if d.ActiveConfigurationIndex == 0 || int(d.ActiveConfigurationIndex) > len(d.Configurations) {
		return nil
	}
	return d.Configurations[d.ActiveConfigurationIndex-1]
}
