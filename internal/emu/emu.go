// Package emu implements the emulation loop: it drives a phy.Phy,
// dispatches setup packets through a usb.Device, invokes endpoint data
// handlers, and stops on either a caller-provided predicate or a
// transport error (spec.md 4.J).
package emu

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VBMCBoy/nu-map/internal/phy"
	"github.com/VBMCBoy/nu-map/internal/usb"
)

var log = logrus.WithField("component", "emu")

// pollTimeout bounds each phy.Poll call; the loop re-evaluates
// ShouldStopPhy after every event regardless of whether Poll produced one.
const pollTimeout = 50 * time.Millisecond

// Loop runs one device emulation session against one phy until
// ShouldStopPhy returns true or the transport errors.
type Loop struct {
	Phy    phy.Phy
	Device *usb.Device

	// ShouldStopPhy is polled after every event; when it returns true the
	// loop disconnects the phy and returns (spec.md 4.J step 3).
	ShouldStopPhy func() bool
}

// ErrTransport wraps a phy I/O failure the loop could not recover from,
// distinguishing it from a normal ShouldStopPhy-triggered return so the
// scan/detect-os harnesses can treat the device run as incomplete
// (spec.md 7).
var ErrTransport = errors.New("transport error")

// Run implements the cooperative single-threaded loop of spec.md 4.J.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Phy.Connect(ctx); err != nil {
		return err
	}
	l.Device.State = usb.StatePowered

	for {
		pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
		event, err := l.Phy.Poll(pollCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				l.disconnect(ctx)
				return ctx.Err()
			}
			// A poll timeout is not a transport failure; it is how the
			// loop gets a chance to re-check ShouldStopPhy.
			if !isTimeout(err) {
				log.WithError(err).Warn("transport error, disconnecting")
				l.disconnect(ctx)
				return errors.Join(ErrTransport, err)
			}
		} else {
			if err := l.handle(ctx, event); err != nil {
				log.WithError(err).Warn("event handling error")
			}
		}

		if l.ShouldStopPhy != nil && l.ShouldStopPhy() {
			l.disconnect(ctx)
			return nil
		}
	}
}

func (l *Loop) handle(ctx context.Context, event phy.Event) error {
	switch event.Kind {
	case phy.EventBusReset:
		l.Device.ResetForBusReset()
		return nil

	case phy.EventSetup:
		return l.handleSetup(ctx, event.Setup)

	case phy.EventOutData:
		return l.handleOutData(ctx, event.Endpoint, event.Data)

	case phy.EventInTokenReady:
		return l.handleInTokenReady(ctx, event.Endpoint)

	default:
		return nil
	}
}

func (l *Loop) handleSetup(ctx context.Context, setup usb.SetupPacket) error {
	resp, err := l.Device.Dispatch(&setup)

	if err != nil {
		return l.Phy.StallEndpoint(ctx, 0)
	}

	if setup.Direction() == usb.DeviceToHost {
		return l.sendChunked(ctx, 0, resp)
	}

	return l.Phy.AckStatusStage(ctx)
}

// sendChunked writes the IN data stage in chunks no larger than
// MaxPacketSizeEP0, matching how ep0 transfers are naturally bounded on
// real controllers (spec.md 4.J step 2).
func (l *Loop) sendChunked(ctx context.Context, endpoint int, data []byte) error {
	mps := int(l.Device.MaxPacketSizeEP0)
	if mps == 0 {
		mps = 64
	}
	for len(data) > 0 {
		n := mps
		if n > len(data) {
			n = len(data)
		}
		if err := l.Phy.SendOnEndpoint(ctx, endpoint, data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return l.Phy.AckStatusStage(ctx)
}

func (l *Loop) handleOutData(ctx context.Context, endpoint int, data []byte) error {
	ep := l.Device.EndpointByNumber(endpoint, usb.DirectionOut)
	if ep == nil {
		return nil
	}
	if err := ep.HandleOut(data); err != nil {
		ep.Stall()
		return errors.Join(err, l.Phy.StallEndpoint(ctx, endpoint))
	}
	return nil
}

func (l *Loop) handleInTokenReady(ctx context.Context, endpoint int) error {
	ep := l.Device.EndpointByNumber(endpoint, usb.DirectionIn)
	if ep == nil {
		return nil
	}
	data, err := ep.HandleBufferAvailable()
	if err != nil || len(data) == 0 {
		return err
	}
	return l.Phy.SendOnEndpoint(ctx, endpoint, data)
}

func (l *Loop) disconnect(ctx context.Context) {
	if err := l.Phy.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("disconnect failed")
	}
	l.Device.State = usb.StateAttached
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
