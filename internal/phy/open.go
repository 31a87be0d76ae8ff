package phy

import "strings"

// Open resolves the single-string transport selector spec.md 6 defines:
// "fd:<serial_port>" for the Facedancer-style serial transport, or the
// literal "gadgetfs" for a mounted GadgetFS mountpoint at the conventional
// /dev/gadget path.
func Open(spec string) (Phy, error) {
	if rest, ok := strings.CutPrefix(spec, "fd:"); ok {
		return NewSerial(rest)
	}
	if spec == "gadgetfs" {
		return NewGadgetFS("/dev/gadget")
	}
	return nil, &UnknownTransportError{Spec: spec}
}

// UnknownTransportError is spec.md 7's ConfigurationError equivalent for
// an unrecognized -P transport selector.
type UnknownTransportError struct {
	Spec string
}

func (e *UnknownTransportError) Error() string {
	return "unknown transport spec: " + e.Spec
}
