package phy

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

// Facedancer-style frame tags on the wire: one byte tag, then a
// little-endian uint16 payload length, then the payload. This mirrors the
// framing a serial-attached Facedancer board uses to carry bus events and
// endpoint I/O over a single byte stream.
const (
	frameBusReset      = 0x01
	frameSetup         = 0x02
	frameOutData       = 0x03
	frameInTokenReady  = 0x04
	frameSend          = 0x10
	frameStall         = 0x11
	frameAckStatus     = 0x12
)

var log = logrus.WithField("component", "phy")

// termios ioctl numbers (asm-generic/ioctls.h), used to put the serial
// port into a clean 8N1 raw mode before framing begins.
var (
	ctlTCGETS = ioctl.IOR('T', 0x13, unsafe.Sizeof(unix.Termios{}))
	ctlTCSETS = ioctl.IOW('T', 0x14, unsafe.Sizeof(unix.Termios{}))
)

// Serial is the serial-framed Facedancer transport, selected on the CLI by
// `fd:<serial_port>` (spec.md 4.I/6). It is a thin framer over a byte
// stream; the actual board-side USB behavior is out of scope.
type Serial struct {
	port string
	f    *os.File
}

// NewSerial opens and configures the named serial device.
func NewSerial(port string) (*Serial, error) {
	f, err := os.OpenFile(port, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, &usb.TransportError{Op: "open", Err: err}
	}

	s := &Serial{port: port, f: f}
	if err := s.configure(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// configure puts the port into raw 8N1 mode via TCGETS/TCSETS, grounded on
// the ioctl-number pattern usbfs uses for USBDEVFS_* requests.
func (s *Serial) configure() error {
	var t unix.Termios
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, s.f.Fd(), uintptr(ctlTCGETS), uintptr(unsafe.Pointer(&t))); errno != 0 {
		return &usb.TransportError{Op: "tcgetattr", Err: errno}
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8

	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, s.f.Fd(), uintptr(ctlTCSETS), uintptr(unsafe.Pointer(&t))); errno != 0 {
		return &usb.TransportError{Op: "tcsetattr", Err: errno}
	}
	return nil
}

// Connect sends no board-level handshake beyond opening the port; the
// serial link itself is the connect signal for a Facedancer board.
func (s *Serial) Connect(ctx context.Context) error {
	log.WithField("port", s.port).Info("phy connected")
	return nil
}

func (s *Serial) Disconnect(ctx context.Context) error {
	log.WithField("port", s.port).Info("phy disconnected")
	return s.f.Close()
}

// Poll reads one frame and decodes it to an Event.
func (s *Serial) Poll(ctx context.Context) (Event, error) {
	tag, payload, err := s.readFrame()
	if err != nil {
		return Event{}, err
	}

	switch tag {
	case frameBusReset:
		return Event{Kind: EventBusReset}, nil

	case frameSetup:
		if len(payload) < 8 {
			return Event{}, &usb.MalformedSetupPacket{Reason: "short setup frame"}
		}
		setup := usb.SetupPacket{
			RequestType: payload[0],
			Request:     payload[1],
			Value:       binary.LittleEndian.Uint16(payload[2:4]),
			Index:       binary.LittleEndian.Uint16(payload[4:6]),
			Length:      binary.LittleEndian.Uint16(payload[6:8]),
		}
		if len(payload) > 8 {
			setup.Data = payload[8:]
		}
		return Event{Kind: EventSetup, Setup: setup}, nil

	case frameOutData:
		if len(payload) < 1 {
			return Event{}, &usb.MalformedSetupPacket{Reason: "short OUT-data frame"}
		}
		return Event{Kind: EventOutData, Endpoint: int(payload[0]), Data: payload[1:]}, nil

	case frameInTokenReady:
		if len(payload) < 1 {
			return Event{}, &usb.MalformedSetupPacket{Reason: "short IN-token frame"}
		}
		return Event{Kind: EventInTokenReady, Endpoint: int(payload[0])}, nil

	default:
		return Event{}, &usb.TransportError{Op: "poll", Err: fmt.Errorf("unknown frame tag %#x", tag)}
	}
}

func (s *Serial) SendOnEndpoint(ctx context.Context, endpoint int, data []byte) error {
	payload := append([]byte{uint8(endpoint)}, data...)
	return s.writeFrame(frameSend, payload)
}

func (s *Serial) StallEndpoint(ctx context.Context, endpoint int) error {
	return s.writeFrame(frameStall, []byte{uint8(endpoint)})
}

func (s *Serial) AckStatusStage(ctx context.Context) error {
	return s.writeFrame(frameAckStatus, nil)
}

func (s *Serial) readFrame() (uint8, []byte, error) {
	header := make([]byte, 3)
	if _, err := io.ReadFull(s.f, header); err != nil {
		return 0, nil, &usb.TransportError{Op: "read", Err: err}
	}
	tag := header[0]
	length := binary.LittleEndian.Uint16(header[1:3])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(s.f, payload); err != nil {
			return 0, nil, &usb.TransportError{Op: "read", Err: err}
		}
	}
	return tag, payload, nil
}

func (s *Serial) writeFrame(tag uint8, payload []byte) error {
	header := make([]byte, 3)
	header[0] = tag
	binary.LittleEndian.PutUint16(header[1:3], uint16(len(payload)))

	if _, err := s.f.Write(header); err != nil {
		return &usb.TransportError{Op: "write", Err: err}
	}
	if len(payload) > 0 {
		if _, err := s.f.Write(payload); err != nil {
			return &usb.TransportError{Op: "write", Err: err}
		}
	}
	return nil
}
