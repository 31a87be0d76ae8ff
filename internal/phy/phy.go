// Package phy defines the transport contract the emulation loop drives:
// byte-level send/receive on an endpoint number, connect/disconnect, and a
// poll loop producing bus events. Concrete transports (serial-framed
// Facedancer, GadgetFS) live in their own files and satisfy Phy; neither is
// part of the device-state engine's core.
package phy

import (
	"context"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

// EventKind discriminates the Event union Poll returns.
type EventKind uint8

const (
	EventBusReset EventKind = iota
	EventSetup
	EventOutData
	EventInTokenReady
)

// Event is the single type Poll returns; only the fields relevant to Kind
// are populated.
type Event struct {
	Kind     EventKind
	Setup    usb.SetupPacket
	Endpoint int
	Data     []byte
}

// Phy is the physical-layer transport contract of spec.md 4.I. Two
// concrete transports exist (serial-framed Facedancer, GadgetFS) but
// neither is part of the spec; they must conform to this event shape.
type Phy interface {
	// Connect negotiates with the downstream controller.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Poll blocks briefly waiting for the next bus event.
	Poll(ctx context.Context) (Event, error)

	SendOnEndpoint(ctx context.Context, endpoint int, data []byte) error
	StallEndpoint(ctx context.Context, endpoint int) error
	AckStatusStage(ctx context.Context) error
}
