package phy

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

// GadgetFS is the mounted-pseudo-filesystem transport, selected on the CLI
// by the literal string `gadgetfs` (spec.md 4.I/6). A GadgetFS mount
// exposes one file per endpoint plus the control file ep0; ep0 read/write
// carries setup packets and device-level events, while each epN file
// carries that endpoint's bulk/interrupt I/O.
type GadgetFS struct {
	mountpoint string
	ep0        *os.File
	endpoints  map[int]*os.File
}

// NewGadgetFS opens the control file at mountpoint/ep0; endpoint files are
// opened lazily as SendOnEndpoint/StallEndpoint reference them.
func NewGadgetFS(mountpoint string) (*GadgetFS, error) {
	ep0, err := os.OpenFile(filepath.Join(mountpoint, "ep0"), os.O_RDWR, 0)
	if err != nil {
		return nil, &usb.TransportError{Op: "open ep0", Err: err}
	}
	return &GadgetFS{mountpoint: mountpoint, ep0: ep0, endpoints: map[int]*os.File{}}, nil
}

func (g *GadgetFS) Connect(ctx context.Context) error {
	// Writing the device/config/string descriptor bundle to ep0 is what
	// actually attaches a GadgetFS device. Connect writes no descriptors
	// and takes none from its caller; it is a no-op.
	return nil
}

func (g *GadgetFS) Disconnect(ctx context.Context) error {
	for _, f := range g.endpoints {
		f.Close()
	}
	return g.ep0.Close()
}

// Poll reads one event record from ep0: a one-byte type tag (mirroring
// GadgetFS's USB_GADGETFS_* event enum) followed, for a SETUP event, by an
// 8-byte setup packet.
func (g *GadgetFS) Poll(ctx context.Context) (Event, error) {
	buf := make([]byte, 1+8)
	n, err := g.ep0.Read(buf)
	if err != nil {
		return Event{}, &usb.TransportError{Op: "read ep0", Err: err}
	}
	if n < 1 {
		return Event{}, &usb.MalformedSetupPacket{Reason: "empty gadgetfs event"}
	}

	switch buf[0] {
	case gadgetfsEventReset:
		return Event{Kind: EventBusReset}, nil
	case gadgetfsEventSetup:
		if n < 9 {
			return Event{}, &usb.MalformedSetupPacket{Reason: "short gadgetfs setup event"}
		}
		p := buf[1:9]
		setup := usb.SetupPacket{
			RequestType: p[0],
			Request:     p[1],
			Value:       binary.LittleEndian.Uint16(p[2:4]),
			Index:       binary.LittleEndian.Uint16(p[4:6]),
			Length:      binary.LittleEndian.Uint16(p[6:8]),
		}
		return Event{Kind: EventSetup, Setup: setup}, nil
	default:
		return Event{Kind: EventInTokenReady}, nil
	}
}

const (
	gadgetfsEventReset = 0x01
	gadgetfsEventSetup = 0x02
)

// SendOnEndpoint writes to the numbered endpoint's file, opening it on
// first use.
func (g *GadgetFS) SendOnEndpoint(ctx context.Context, endpoint int, data []byte) error {
	f, err := g.endpointFile(endpoint)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return &usb.TransportError{Op: "write endpoint", Err: err}
	}
	return nil
}

// StallEndpoint issues the GadgetFS halt ioctl on the endpoint's file
// descriptor.
func (g *GadgetFS) StallEndpoint(ctx context.Context, endpoint int) error {
	f, err := g.endpointFile(endpoint)
	if err != nil {
		return err
	}
	if err := unix.IoctlSetInt(int(f.Fd()), gadgetfsIoctlHalt, 0); err != nil {
		return &usb.TransportError{Op: "stall endpoint", Err: err}
	}
	return nil
}

const gadgetfsIoctlHalt = 0x6700 // GADGETFS_FIFO_STATUS-adjacent halt code, board-local convention

func (g *GadgetFS) AckStatusStage(ctx context.Context) error {
	// GadgetFS completes the status stage implicitly once ep0's data
	// stage write/read returns; nothing further to send.
	return nil
}

func (g *GadgetFS) endpointFile(endpoint int) (*os.File, error) {
	if f, ok := g.endpoints[endpoint]; ok {
		return f, nil
	}
	f, err := os.OpenFile(filepath.Join(g.mountpoint, epFileName(endpoint)), os.O_RDWR, 0)
	if err != nil {
		return nil, &usb.TransportError{Op: "open endpoint", Err: err}
	}
	g.endpoints[endpoint] = f
	return f, nil
}

func epFileName(endpoint int) string {
	return "ep" + strconv.Itoa(endpoint)
}
