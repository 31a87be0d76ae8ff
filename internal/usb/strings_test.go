package usb

import (
	"bytes"
	"testing"
)

// Testable property 4: writing strings[i]=b then serializing STRING
// descriptor i yields \x{len}\x03 b for any byte string of length <=255.
func TestStringTableRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x41},
		bytes.Repeat([]byte{0x42}, 255),
	}

	for _, payload := range cases {
		table := NewStringTable()
		idx, err := table.AddRaw(make([]byte, len(payload)))
		if err != nil {
			t.Fatalf("AddRaw: %v", err)
		}
		if err := table.SetRaw(idx, payload); err != nil {
			t.Fatalf("SetRaw: %v", err)
		}

		got := table.Descriptor(idx)
		want := append([]byte{byte(2 + len(payload)), STRING}, payload...)
		if !bytes.Equal(got, want) {
			t.Fatalf("round trip mismatch for length %d: got %x want %x", len(payload), got, want)
		}
	}
}

func TestStringTableRejectsOversizePayload(t *testing.T) {
	table := NewStringTable()
	_, err := table.AddRaw(make([]byte, 256))
	if err == nil {
		t.Fatal("expected error for 256-byte payload")
	}
}

func TestStringTableSetRawUncheckedBypassesCap(t *testing.T) {
	table := NewStringTable()
	idx, err := table.AddRaw([]byte("placeholder"))
	if err != nil {
		t.Fatalf("AddRaw: %v", err)
	}

	oversize := make([]byte, 1000)
	if err := table.SetRawUnchecked(idx, oversize); err != nil {
		t.Fatalf("SetRawUnchecked: %v", err)
	}
	if got := table.Raw(idx); len(got) != len(oversize) {
		t.Fatalf("expected raw payload of length %d, got %d", len(oversize), len(got))
	}
}

func TestStringTableDescriptorOutOfRange(t *testing.T) {
	table := NewStringTable()
	if d := table.Descriptor(5); d != nil {
		t.Fatalf("expected nil for out-of-range index, got %x", d)
	}
}
