// Package massstorage implements an emulated USB Mass Storage device:
// Bulk-Only Transport (BOT, bInterfaceProtocol 0x50) framing a SCSI
// sub-dispatcher: a package-local table keyed by SCSI opcode, separate
// from usb.HandlerTable.
package massstorage

import (
	"encoding/binary"
)

// SCSI primary command set opcodes this emulation answers.
const (
	scsiTestUnitReady = 0x00
	scsiRequestSense  = 0x03
	scsiInquiry       = 0x12
	scsiModeSense6    = 0x1a
	scsiReadCapacity10 = 0x25
	scsiRead10        = 0x28
	scsiWrite10       = 0x2a
)

// cbwSignature and cswSignature are the Bulk-Only Transport's fixed magic
// numbers (USB Mass Storage Class Bulk-Only Transport 1.0, section 5).
const (
	cbwSignature = 0x43425355
	cswSignature = 0x53425355
)

const (
	cbwLength = 31
	cswLength = 13
)

// blockSize and blockCount describe a small backing store: a synthetic
// 1MB, 512-byte-sector disk.
const (
	blockSize  = 512
	blockCount = 2048
)

// commandBlockWrapper is the host->device envelope (CBW).
type commandBlockWrapper struct {
	tag           uint32
	dataLength    uint32
	flags         uint8
	lun           uint8
	cbLength      uint8
	commandBlock  [16]byte
}

func parseCBW(data []byte) (commandBlockWrapper, bool) {
	var cbw commandBlockWrapper
	if len(data) < cbwLength {
		return cbw, false
	}
	if binary.LittleEndian.Uint32(data[0:4]) != cbwSignature {
		return cbw, false
	}
	cbw.tag = binary.LittleEndian.Uint32(data[4:8])
	cbw.dataLength = binary.LittleEndian.Uint32(data[8:12])
	cbw.flags = data[12]
	cbw.lun = data[13]
	cbw.cbLength = data[14]
	copy(cbw.commandBlock[:], data[15:31])
	return cbw, true
}

// commandStatusWrapper is the device->host completion envelope (CSW).
func buildCSW(tag uint32, residue uint32, status uint8) []byte {
	buf := make([]byte, cswLength)
	binary.LittleEndian.PutUint32(buf[0:4], cswSignature)
	binary.LittleEndian.PutUint32(buf[4:8], tag)
	binary.LittleEndian.PutUint32(buf[8:12], residue)
	buf[12] = status
	return buf
}

const (
	cswStatusGood = 0x00
	cswStatusFail = 0x01
)

// backingStore is a fixed-size in-memory disk image; Read10/Write10 index
// into it by logical block address.
type backingStore struct {
	data [blockSize * blockCount]byte
}

func (b *backingStore) readBlocks(lba, count uint32) []byte {
	start := int64(lba) * blockSize
	length := int64(count) * blockSize
	if start < 0 || start+length > int64(len(b.data)) {
		return nil
	}
	out := make([]byte, length)
	copy(out, b.data[start:start+length])
	return out
}

func (b *backingStore) writeBlocks(lba uint32, payload []byte) {
	start := int64(lba) * blockSize
	if start < 0 || start+int64(len(payload)) > int64(len(b.data)) {
		return
	}
	copy(b.data[start:], payload)
}

// scsiHandlerFunc answers one SCSI command block, returning the data-stage
// payload (nil for no data) and the CSW status byte.
type scsiHandlerFunc func(cb [16]byte, allocationLength uint32) ([]byte, uint8)

// scsiTable is the SCSI-opcode-keyed dispatcher. usb.HandlerTable's
// HandlerFunc takes a *usb.SetupPacket, which SCSI command blocks have no
// use for, so this is a plain opcode -> scsiHandlerFunc map with names for
// logging. It offers only register and lookup; it has no inherited/local
// layering, Override or FillRange.
type scsiTable struct {
	handlers map[uint8]scsiHandlerFunc
	names    map[uint8]string
}

func newSCSITable(store *backingStore) *scsiTable {
	t := &scsiTable{handlers: map[uint8]scsiHandlerFunc{}, names: map[uint8]string{}}

	t.register(scsiTestUnitReady, "test_unit_ready", func(cb [16]byte, allocLen uint32) ([]byte, uint8) {
		return nil, cswStatusGood
	})
	t.register(scsiRequestSense, "request_sense", func(cb [16]byte, allocLen uint32) ([]byte, uint8) {
		sense := make([]byte, 18)
		sense[0] = 0x70 // fixed format, current errors
		return trimTo(sense, allocLen), cswStatusGood
	})
	t.register(scsiInquiry, "inquiry", func(cb [16]byte, allocLen uint32) ([]byte, uint8) {
		resp := make([]byte, 36)
		resp[0] = 0x00 // direct-access block device
		resp[1] = 0x80 // removable
		resp[2] = 0x04 // SPC-2
		resp[4] = 31   // additional length
		copy(resp[8:16], []byte("nu-map  "))
		copy(resp[16:32], []byte("Emulated Disk   "))
		copy(resp[32:36], []byte("1.0 "))
		return trimTo(resp, allocLen), cswStatusGood
	})
	t.register(scsiModeSense6, "mode_sense6", func(cb [16]byte, allocLen uint32) ([]byte, uint8) {
		return trimTo([]byte{0x03, 0x00, 0x00, 0x00}, allocLen), cswStatusGood
	})
	t.register(scsiReadCapacity10, "read_capacity10", func(cb [16]byte, allocLen uint32) ([]byte, uint8) {
		resp := make([]byte, 8)
		binary.BigEndian.PutUint32(resp[0:4], blockCount-1)
		binary.BigEndian.PutUint32(resp[4:8], blockSize)
		return resp, cswStatusGood
	})
	t.register(scsiRead10, "read10", func(cb [16]byte, allocLen uint32) ([]byte, uint8) {
		lba := binary.BigEndian.Uint32(cb[2:6])
		count := uint32(binary.BigEndian.Uint16(cb[7:9]))
		data := store.readBlocks(lba, count)
		if data == nil {
			return nil, cswStatusFail
		}
		return data, cswStatusGood
	})
	t.register(scsiWrite10, "write10", func(cb [16]byte, allocLen uint32) ([]byte, uint8) {
		// the data stage payload is supplied by the caller via the OUT
		// endpoint, handled in device.go's write10 accumulation; this
		// entry exists so the opcode resolves to a known name for logging.
		return nil, cswStatusGood
	})

	return t
}

func (t *scsiTable) register(opcode uint8, name string, fn scsiHandlerFunc) {
	t.handlers[opcode] = fn
	t.names[opcode] = name
}

func (t *scsiTable) lookup(opcode uint8) (scsiHandlerFunc, string, bool) {
	fn, ok := t.handlers[opcode]
	return fn, t.names[opcode], ok
}

func trimTo(b []byte, allocationLength uint32) []byte {
	if allocationLength > 0 && uint32(len(b)) > allocationLength {
		return b[:allocationLength]
	}
	return b
}
