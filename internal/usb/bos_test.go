package usb

import (
	"bytes"
	"testing"
)

// S3 Billboard BOS: a device with one ContainerID capability and one
// Billboard capability (one alternate mode, SVID=0x8312, mode=0, string
// index k) serializes as BOS header + ContainerID (16-byte body) +
// Billboard with bNumberOfAlternateModes=1 and the mode record at offset
// 0x1C from the start of the BOS descriptor.
func TestBOSBillboardLayout(t *testing.T) {
	const stringIdx = 5

	bos := &BOS{
		Capabilities: []*DeviceCapability{
			NewContainerID([16]byte{}),
			NewBillboard(0, 0, 0, [16]byte{}, []AlternateMode{
				{SVID: 0x8312, AlternateMode: 0, StringIndex: stringIdx},
			}),
		},
	}

	b := bos.Bytes()

	if b[0] != bosHeaderLength || b[1] != BOS {
		t.Fatalf("unexpected BOS header: %x", b[:5])
	}
	if b[4] != 2 {
		t.Fatalf("expected 2 device capabilities, got %d", b[4])
	}

	// ContainerID capability: bLength=3+16=19, type=DEVICE_CAPABILITY,
	// devCapType=DCContainerIDType, 16-byte payload.
	containerOffset := bosHeaderLength
	if b[containerOffset] != 19 || b[containerOffset+2] != DCContainerIDType {
		t.Fatalf("unexpected ContainerID capability header at offset %d: %x", containerOffset, b[containerOffset:containerOffset+3])
	}

	billboardOffset := containerOffset + 19
	if b[billboardOffset+2] != DCBillboardType {
		t.Fatalf("expected Billboard capability at offset %d, got type %#x", billboardOffset, b[billboardOffset+2])
	}

	payloadOffset := billboardOffset + 3
	numAltModes := b[payloadOffset+1]
	if numAltModes != 1 {
		t.Fatalf("expected bNumberOfAlternateModes=1, got %d", numAltModes)
	}

	// Billboard payload: iAdditionalInfoURL(1) + bNumberOfAlternateModes(1)
	// + bPreferredAlternateMode(1) + VCONNPower(2) + bmConfigured(16) +
	// reserved(4) = 25 bytes before the first alternate-mode record.
	modeOffset := payloadOffset + 25
	if b[billboardOffset]-3 < 25+4 {
		t.Fatalf("billboard payload too short for one alternate mode")
	}

	gotSVID := uint16(b[modeOffset]) | uint16(b[modeOffset+1])<<8
	if gotSVID != 0x8312 {
		t.Fatalf("expected SVID 0x8312 at mode offset %d, got %#x", modeOffset, gotSVID)
	}
	if b[modeOffset+3] != stringIdx {
		t.Fatalf("expected string index %d, got %d", stringIdx, b[modeOffset+3])
	}

	if !bytes.Contains(b, []byte{0x12, 0x83}) {
		t.Fatal("expected little-endian SVID bytes present in BOS descriptor")
	}
}
