package usb

import "fmt"

// MalformedSetupPacket reports a setup stage that could not be parsed into
// a SetupPacket (wrong length, truncated transport frame).
type MalformedSetupPacket struct {
	Reason string
}

func (e *MalformedSetupPacket) Error() string {
	return fmt.Sprintf("malformed setup packet: %s", e.Reason)
}

// UnsupportedRequest reports a standard/class/vendor request number this
// device (or the active configuration/interface) does not implement. The
// dispatcher stalls the endpoint in response.
type UnsupportedRequest struct {
	Recipient Recipient
	Request   uint8
}

func (e *UnsupportedRequest) Error() string {
	return fmt.Sprintf("unsupported request %#x for recipient %d", e.Request, e.Recipient)
}

// HandlerFailure wraps an error returned by a class/vendor handler
// function, attaching the handler name for the request log.
type HandlerFailure struct {
	Handler string
	Err     error
}

func (e *HandlerFailure) Error() string {
	return fmt.Sprintf("handler %q failed: %v", e.Handler, e.Err)
}

func (e *HandlerFailure) Unwrap() error {
	return e.Err
}

// DescriptorTooLong reports a descriptor whose assembled length cannot be
// represented in its length-prefix field (wTotalLength's uint16, a string
// descriptor's uint8 length byte).
type DescriptorTooLong struct {
	Descriptor string
	Length     int
	Max        int
}

func (e *DescriptorTooLong) Error() string {
	return fmt.Sprintf("%s descriptor too long: %d bytes (max %d)", e.Descriptor, e.Length, e.Max)
}

// TransportError wraps an error surfaced by package phy (a read/write
// failure on the underlying transport).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid configuration/interface/alternate
// selection (SET_CONFIGURATION/SET_INTERFACE naming a value that does not
// exist on this device).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// UserValidationError reports rejected user input to the string table or
// the strings REPL (bad index, oversize payload, malformed command; spec.md
// 7), distinct from a handler's own internal failure.
type UserValidationError struct {
	Reason string
}

func (e *UserValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}
