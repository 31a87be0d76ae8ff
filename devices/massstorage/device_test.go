package massstorage

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/VBMCBoy/nu-map/internal/usb"
)

func buildCBW(tag uint32, dataLength uint32, cb [16]byte) []byte {
	buf := make([]byte, cbwLength)
	binary.LittleEndian.PutUint32(buf[0:4], cbwSignature)
	binary.LittleEndian.PutUint32(buf[4:8], tag)
	binary.LittleEndian.PutUint32(buf[8:12], dataLength)
	buf[12] = 0x80 // direction: data-in
	buf[13] = 0    // LUN
	buf[14] = 10   // cbLength
	copy(buf[15:31], cb[:])
	return buf
}

func configureDevice(t *testing.T, dev *usb.Device) {
	t.Helper()
	if _, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0x00, Request: usb.SET_ADDRESS, Value: 1}); err != nil {
		t.Fatalf("SET_ADDRESS: %v", err)
	}
	if _, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0x00, Request: usb.SET_CONFIGURATION, Value: 1}); err != nil {
		t.Fatalf("SET_CONFIGURATION: %v", err)
	}
}

func TestCBWCSWRoundTripInquiry(t *testing.T) {
	dev := New()
	configureDevice(t, dev)

	epOut := dev.EndpointByNumber(1, usb.DirectionOut)
	epIn := dev.EndpointByNumber(1, usb.DirectionIn)
	if epOut == nil || epIn == nil {
		t.Fatal("expected bulk in/out endpoint 1 to exist")
	}

	var cb [16]byte
	cb[0] = scsiInquiry
	cbw := buildCBW(0x1234, 36, cb)

	if err := epOut.HandleOut(cbw); err != nil {
		t.Fatalf("HandleOut: %v", err)
	}

	inquiryResp, err := epIn.HandleBufferAvailable()
	if err != nil {
		t.Fatalf("HandleBufferAvailable (inquiry data): %v", err)
	}
	if len(inquiryResp) != 36 {
		t.Fatalf("expected 36-byte INQUIRY response, got %d", len(inquiryResp))
	}

	csw, err := epIn.HandleBufferAvailable()
	if err != nil {
		t.Fatalf("HandleBufferAvailable (CSW): %v", err)
	}
	if len(csw) != cswLength {
		t.Fatalf("expected %d-byte CSW, got %d", cswLength, len(csw))
	}
	if binary.LittleEndian.Uint32(csw[0:4]) != cswSignature {
		t.Fatal("expected CSW signature")
	}
	if binary.LittleEndian.Uint32(csw[4:8]) != 0x1234 {
		t.Fatal("expected CSW tag to echo the CBW tag")
	}
	if csw[12] != cswStatusGood {
		t.Fatalf("expected good status, got %#x", csw[12])
	}
}

func TestUnknownOpcodeFailsImmediately(t *testing.T) {
	dev := New()
	configureDevice(t, dev)

	epOut := dev.EndpointByNumber(1, usb.DirectionOut)
	epIn := dev.EndpointByNumber(1, usb.DirectionIn)

	var cb [16]byte
	cb[0] = 0xff // not a recognized opcode
	cbw := buildCBW(0x5555, 0, cb)

	if err := epOut.HandleOut(cbw); err != nil {
		t.Fatalf("HandleOut: %v", err)
	}

	csw, err := epIn.HandleBufferAvailable()
	if err != nil {
		t.Fatalf("HandleBufferAvailable: %v", err)
	}
	if csw[12] != cswStatusFail {
		t.Fatalf("expected fail status for unknown opcode, got %#x", csw[12])
	}
}

func TestWrite10AccumulatesAcrossPacketsAndPersistsToStore(t *testing.T) {
	dev := New()
	configureDevice(t, dev)

	epOut := dev.EndpointByNumber(1, usb.DirectionOut)
	epIn := dev.EndpointByNumber(1, usb.DirectionIn)

	var cb [16]byte
	cb[0] = scsiWrite10
	cb[2], cb[3], cb[4], cb[5] = 0, 0, 0, 1 // LBA 1
	cb[7], cb[8] = 0, 1                     // one block

	if err := epOut.HandleOut(buildCBW(0x9999, blockSize, cb)); err != nil {
		t.Fatalf("HandleOut (CBW): %v", err)
	}

	payload := bytes.Repeat([]byte{0xab}, blockSize)
	first, second := payload[:200], payload[200:]

	if err := epOut.HandleOut(first); err != nil {
		t.Fatalf("HandleOut (data part 1): %v", err)
	}
	if err := epOut.HandleOut(second); err != nil {
		t.Fatalf("HandleOut (data part 2): %v", err)
	}

	csw, err := epIn.HandleBufferAvailable()
	if err != nil {
		t.Fatalf("HandleBufferAvailable: %v", err)
	}
	if csw[12] != cswStatusGood {
		t.Fatalf("expected good status after write completes, got %#x", csw[12])
	}

	var readCb [16]byte
	readCb[0] = scsiRead10
	readCb[2], readCb[3], readCb[4], readCb[5] = 0, 0, 0, 1
	readCb[7], readCb[8] = 0, 1

	if err := epOut.HandleOut(buildCBW(0xaaaa, blockSize, readCb)); err != nil {
		t.Fatalf("HandleOut (read CBW): %v", err)
	}
	readData, err := epIn.HandleBufferAvailable()
	if err != nil {
		t.Fatalf("HandleBufferAvailable (read data): %v", err)
	}
	if !bytes.Equal(readData, payload) {
		t.Fatal("expected read10 to return the bytes just written")
	}
}

func TestGetMaxLUNAndMassStorageReset(t *testing.T) {
	dev := New()
	configureDevice(t, dev)

	resp, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0xc1, Request: msRequestGetMaxLUN, Index: 0, Length: 1})
	if err != nil {
		t.Fatalf("GET_MAX_LUN: %v", err)
	}
	if len(resp) != 1 || resp[0] != 0x00 {
		t.Fatalf("expected single zero byte for GET_MAX_LUN, got %x", resp)
	}

	if _, err := dev.Dispatch(&usb.SetupPacket{RequestType: 0x41, Request: msRequestMassStorageReset, Index: 0}); err != nil {
		t.Fatalf("MASS_STORAGE_RESET: %v", err)
	}
}
