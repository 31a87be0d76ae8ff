package devices

import (
	"bytes"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

var printerLog = logrus.WithField("component", "devices.printer")

// defaultPrinterDeviceID is the IEEE-1284 Device ID string every emulated
// printer reports by default, ported verbatim from printer.py's
// DEFAULT_DEVICE_ID (semicolon-joined key:value pairs).
var defaultPrinterDeviceID = strings.Join([]string{
	"MFG:Hewlett-Packard",
	"CMD:PJL,PML,POSTSCRIPT,PCL,PCLXL",
	"MDL:HP Color LaserJet CP1515n",
	"CLS:PRINTER",
	"DES:Hewlett-Packard Color LaserJet CP1515n",
}, ";") + ";"

const (
	printerGetDeviceID  = 0x00
	printerGetPortStatus = 0x01
	printerSoftReset    = 0x02
)

// printerJob accumulates job bytes in memory until the literal "EOJ\n"
// marker appears, mirroring handle_data_available's end-of-job detection in
// printer.py. The completed job is handed to onComplete and the buffer is
// reset; no .pcl file is written, and nothing flushes a partial job when
// the host disconnects.
type printerJob struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (j *printerJob) append(data []byte, onComplete func(job []byte)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buf.Write(data)
	if bytes.Contains(j.buf.Bytes(), []byte("EOJ\n")) {
		job := append([]byte(nil), j.buf.Bytes()...)
		j.buf.Reset()
		if onComplete != nil {
			onComplete(job)
		}
	}
}

// NewPrinter builds an emulated USB printer: a single interface (printer
// class, subclass 1 "printer", protocol 2 "bidirectional") with a bulk OUT
// endpoint that accumulates print jobs and reports PRINT_JOB on every
// "EOJ\n" job boundary, a bulk IN endpoint, and the class requests
// GET_DEVICE_ID, GET_PORT_STATUS and SOFT_RESET.
func NewPrinter() *usb.Device {
	dev := usb.NewDevice(0x03f0, 0x4417)
	dev.USBSpecVersion = 0x0200
	dev.DeviceRelease = 0x0001
	dev.DeviceClass = 0 // unspecified at the device level; class lives on the interface
	dev.MaxPacketSizeEP0 = 64

	mustAddString(dev, &dev.ManufacturerIndex, "Hewlett-Packard")
	mustAddString(dev, &dev.ProductIndex, "HP Color LaserJet CP1515n")
	mustAddString(dev, &dev.SerialNumberIndex, "00CNC2A1234F")

	deviceIDIndex, err := dev.Strings.AddRaw(encodeDeviceID(defaultPrinterDeviceID))
	if err != nil {
		panic(err)
	}

	epOut := &usb.Endpoint{Number: 1, Direction: usb.DirectionOut, TransferType: usb.TransferBulk, MaxPacketSize: 64}
	epIn := &usb.Endpoint{Number: 2, Direction: usb.DirectionIn, TransferType: usb.TransferBulk, MaxPacketSize: 64}

	job := &printerJob{}
	jobCount := 0
	epOut.OnData = func(data []byte) error {
		job.append(data, func(completed []byte) {
			jobCount++
			printerLog.WithField("bytes", len(completed)).Info("print job completed")
			dev.UsbFunctionSupported("PRINT_JOB")
		})
		return nil
	}

	classHandlers := usb.NewHandlerTable(nil, nil)
	classHandlers.Override(printerGetDeviceID, "get_device_id", func(setup *usb.SetupPacket) ([]byte, error) {
		dev.UsbFunctionSupported("GET_DEVICE_ID")
		return dev.Strings.Raw(deviceIDIndex), nil // already length-prefixed; not STRING-descriptor-framed
	})
	classHandlers.Override(printerGetPortStatus, "get_port_status", func(setup *usb.SetupPacket) ([]byte, error) {
		return []byte{0x18}, nil // selected, no error, no paper-empty
	})
	classHandlers.Override(printerSoftReset, "soft_reset", func(setup *usb.SetupPacket) ([]byte, error) {
		return nil, nil
	})

	itf := &usb.Interface{
		InterfaceNumber:  0,
		AlternateSetting: 0,
		Class:            0x07, // printer
		SubClass:         0x01,
		Protocol:         0x02, // bidirectional
		Endpoints:        []*usb.Endpoint{epOut, epIn},
		ClassHandlers:    classHandlers,
	}

	conf := usb.NewConfiguration(1, 0, 0xc0, 0x32)
	conf.AddInterface(itf)
	dev.Configurations = []*usb.Configuration{conf}

	return dev
}

// encodeDeviceID renders a printer Device-ID string with its big-endian
// 16-bit length prefix, matching struct.pack('>H', len(s)) + s in the
// original (the same framing internal/replstrings.EncodeDeviceID uses for
// user-supplied replacements).
func encodeDeviceID(s string) []byte {
	buf := make([]byte, 2+len(s))
	buf[0] = byte(len(s) >> 8)
	buf[1] = byte(len(s))
	copy(buf[2:], s)
	return buf
}
