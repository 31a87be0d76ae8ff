package usb

import (
	"bytes"
)

// Configuration implements p293, Table 9-10. Standard Configuration
// Descriptor, USB2.0, plus the interfaces it groups. Interfaces are kept in
// a map keyed by interface number so each can hold several alternate
// settings (spec.md 3/4.C/4.D).
type Configuration struct {
	Index              uint8
	StringIndex        uint8
	Attributes         uint8
	MaxPower           uint8
	ConfigurationValue uint8

	interfaces     map[uint8]*AltSetting
	interfaceOrder []uint8
}

// NewConfiguration builds an empty configuration, ready to accept
// interfaces via AddInterface.
func NewConfiguration(value, stringIndex, attributes, maxPower uint8) *Configuration {
	return &Configuration{
		ConfigurationValue: value,
		StringIndex:        stringIndex,
		Attributes:         attributes | 0x80, // bit 7 reserved, must be set
		MaxPower:           maxPower,
		interfaces:         map[uint8]*AltSetting{},
	}
}

// AddInterface registers one alternate setting of an interface, creating
// its AltSetting group on first use. Interface numbers must be 0-based
// dense (spec.md 3); they may be added in any order and are kept sorted
// ascending.
func (c *Configuration) AddInterface(itf *Interface) {
	alt, ok := c.interfaces[itf.InterfaceNumber]
	if !ok {
		alt = NewAltSetting(itf.InterfaceNumber)
		c.interfaces[itf.InterfaceNumber] = alt
		c.interfaceOrder = append(c.interfaceOrder, itf.InterfaceNumber)
		for i := len(c.interfaceOrder) - 1; i > 0 && c.interfaceOrder[i-1] > c.interfaceOrder[i]; i-- {
			c.interfaceOrder[i-1], c.interfaceOrder[i] = c.interfaceOrder[i], c.interfaceOrder[i-1]
		}
	}
	alt.Add(itf)
}

// Interface returns the alternate-setting group for an interface number.
func (c *Configuration) Interface(number uint8) (*AltSetting, bool) {
	alt, ok := c.interfaces[number]
	return alt, ok
}

// Interfaces returns every interface's AltSetting group, ordered by
// interface number ascending (spec.md 4.C: stable ordering by
// (interface_number, alternate_setting)).
func (c *Configuration) Interfaces() []*AltSetting {
	out := make([]*AltSetting, 0, len(c.interfaceOrder))
	for _, n := range c.interfaceOrder {
		out = append(out, c.interfaces[n])
	}
	return out
}

// NumInterfaces reports the distinct interface-number count.
func (c *Configuration) NumInterfaces() int {
	return len(c.interfaces)
}

// Bytes assembles the full configuration descriptor: the 9-byte
// configuration header, followed by every interface's every alternate
// setting (each an IAD-if-present + interface header + class descriptors +
// endpoint descriptors), in (interface_number, alternate_setting) order,
// with wTotalLength computed to match the actual concatenation (spec.md
// 4.C, testable property 1).
func (c *Configuration) Bytes() ([]byte, error) {
	body := new(bytes.Buffer)
	for _, n := range c.interfaceOrder {
		alt := c.interfaces[n]
		for _, altNum := range sortedAlternateNumbers(alt) {
			body.Write(alt.alternates[altNum].bytes())
		}
	}

	total := ConfigurationDescriptorLength + body.Len()
	if total > 0xffff {
		return trimDescriptorTooLong("CONFIGURATION", total)
	}

	head := &ConfigurationDescriptor{
		Length:             ConfigurationDescriptorLength,
		DescriptorType:     CONFIGURATION,
		TotalLength:        uint16(total),
		NumInterfaces:      uint8(c.NumInterfaces()),
		ConfigurationValue: c.ConfigurationValue,
		ConfigurationIndex: c.StringIndex,
		Attributes:         c.Attributes,
		MaxPower:           c.MaxPower,
	}

	out := append(head.head(), body.Bytes()...)
	return out, nil
}

func trimDescriptorTooLong(name string, length int) ([]byte, error) {
	return nil, &DescriptorTooLong{Descriptor: name, Length: length, Max: 0xffff}
}

func sortedAlternateNumbers(alt *AltSetting) []uint8 {
	nums := make([]uint8, 0, len(alt.alternates))
	for n := range alt.alternates {
		nums = append(nums, n)
	}
	for i := 1; i < len(nums); i++ {
		for j := i; j > 0 && nums[j-1] > nums[j]; j-- {
			nums[j-1], nums[j] = nums[j], nums[j-1]
		}
	}
	return nums
}

// otherSpeedBytes mirrors Bytes but with bDescriptorType=
// OTHER_SPEED_CONFIGURATION, for the OTHER_SPEED_CONFIGURATION descriptor
// request (spec.md 4.A: "mirror of config").
func (c *Configuration) otherSpeedBytes() ([]byte, error) {
	full, err := c.Bytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(full))
	copy(out, full)
	out[1] = OTHER_SPEED_CONFIGURATION
	return out, nil
}
