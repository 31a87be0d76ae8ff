package usb

import "sync"

// Direction of an endpoint's data flow.
type Direction uint8

const (
	DirectionOut Direction = 0
	DirectionIn  Direction = 1
)

// TransferType of an endpoint, p296 Table 9-13 bmAttributes bits 1:0.
type TransferType uint8

const (
	TransferControl     TransferType = 0
	TransferIsochronous TransferType = 1
	TransferBulk        TransferType = 2
	TransferInterrupt   TransferType = 3
)

// SyncType and UsageType apply only to isochronous endpoints (bmAttributes
// bits 3:2 and 5:4).
type SyncType uint8
type UsageType uint8

const (
	SyncNone     SyncType = 0
	SyncAsync    SyncType = 1
	SyncAdaptive SyncType = 2
	SyncSync     SyncType = 3
)

const (
	UsageData           UsageType = 0
	UsageFeedback        UsageType = 1
	UsageImplicitFeedback UsageType = 2
)

// OnDataFunc is invoked by the emulation loop when an OUT token arrives
// with data. A non-nil error stalls the endpoint.
type OnDataFunc func(data []byte) error

// OnBufferAvailableFunc is invoked when an IN endpoint is polled and has no
// data queued; it may push a burst by returning bytes to transmit.
type OnBufferAvailableFunc func() ([]byte, error)

// Endpoint implements p297, Table 9-13. Standard Endpoint Descriptor,
// USB2.0, plus the behavioral hooks the dispatcher and emulation loop use
// to drive it.
type Endpoint struct {
	Number        int
	Direction     Direction
	TransferType  TransferType
	SyncType      SyncType
	UsageType     UsageType
	MaxPacketSize uint16
	Interval      uint8

	OnData             OnDataFunc
	OnBufferAvailable  OnBufferAvailableFunc

	mu      sync.Mutex
	stalled bool
	queue   [][]byte
}

// Write enqueues bytes for the next IN token on this endpoint.
func (ep *Endpoint) Write(b []byte) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.queue = append(ep.queue, b)
}

// dequeue pops the next queued IN payload, if any.
func (ep *Endpoint) dequeue() ([]byte, bool) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if len(ep.queue) == 0 {
		return nil, false
	}
	b := ep.queue[0]
	ep.queue = ep.queue[1:]
	return b, true
}

// Stall marks the endpoint halted; cleared by CLEAR_FEATURE(ENDPOINT_HALT).
func (ep *Endpoint) Stall() {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.stalled = true
}

// ClearHalt clears the endpoint's stall state.
func (ep *Endpoint) ClearHalt() {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.stalled = false
}

// Stalled reports the endpoint's current stall state.
func (ep *Endpoint) Stalled() bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.stalled
}

// HandleOut invokes the data handler, if any, and reports a transfer
// error back to the caller so it can stall and log. Called by the
// emulation loop on an OutData event (spec.md 4.B/4.J).
func (ep *Endpoint) HandleOut(data []byte) error {
	if ep.OnData == nil {
		return nil
	}
	return ep.OnData(data)
}

// HandleBufferAvailable invokes the IN-refill hook, if any, preferring any
// data already queued by Write. Called by the emulation loop on an
// InTokenReady event (spec.md 4.B/4.J).
func (ep *Endpoint) HandleBufferAvailable() ([]byte, error) {
	if b, ok := ep.dequeue(); ok {
		return b, nil
	}
	if ep.OnBufferAvailable == nil {
		return nil, nil
	}
	return ep.OnBufferAvailable()
}
