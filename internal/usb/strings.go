package usb

import (
	"encoding/binary"
	"unicode/utf16"
)

// defaultLangID is the language ID USB devices conventionally report at
// string index 0 (en-US).
const defaultLangID = 0x0409

// maxStringPayload is the 255-byte cap spec.md 3/4.L places on ordinary
// string slots; the printer Device-ID slot is explicitly exempt.
const maxStringPayload = 255

// StringTable is the device's mutable string table: index 0 is the LANGID
// list, indices 1..N are either UTF-16-encodable text or raw bytes
// (spec.md 3). Entries are addressed by the iX fields on descriptors.
type StringTable struct {
	slots [][]byte
}

// NewStringTable builds a table seeded with the index-0 LANGID list.
func NewStringTable(langIDs ...uint16) *StringTable {
	if len(langIDs) == 0 {
		langIDs = []uint16{defaultLangID}
	}
	t := &StringTable{slots: make([][]byte, 1)}
	payload := make([]byte, 2*len(langIDs))
	for i, id := range langIDs {
		binary.LittleEndian.PutUint16(payload[2*i:], id)
	}
	t.slots[0] = payload
	return t
}

// Add appends a UTF-16-encoded text string, returning its 1-based index.
func (t *StringTable) Add(s string) (uint8, error) {
	encoded := encodeUTF16(s)
	return t.addRaw(encoded)
}

// AddRaw appends a raw byte payload (already wire-ready), returning its
// 1-based index.
func (t *StringTable) AddRaw(b []byte) (uint8, error) {
	return t.addRaw(b)
}

func (t *StringTable) addRaw(payload []byte) (uint8, error) {
	if len(payload) > maxStringPayload {
		return 0, &UserValidationError{Reason: "string payload exceeds 255 bytes"}
	}
	t.slots = append(t.slots, payload)
	return uint8(len(t.slots) - 1), nil
}

// Set replaces an existing slot's text, re-encoding to UTF-16LE. Index 0
// (the LANGID list) cannot be replaced this way.
func (t *StringTable) Set(index uint8, s string) error {
	return t.SetRaw(index, encodeUTF16(s))
}

// SetRaw replaces an existing slot's raw bytes, enforcing the 255-byte cap
// (spec.md 4.L; the printer Device-ID slot, which is exempt, is written
// through SetRawUnchecked instead).
func (t *StringTable) SetRaw(index uint8, payload []byte) error {
	if index == 0 || int(index) >= len(t.slots) {
		return &UserValidationError{Reason: "string index out of range"}
	}
	if len(payload) > maxStringPayload {
		return &UserValidationError{Reason: "string payload exceeds 255 bytes"}
	}
	t.slots[index] = payload
	return nil
}

// SetRawUnchecked replaces a slot's raw bytes without the 255-byte cap,
// for the one exempt slot spec.md 4.L names: the printer Device-ID, which
// serializes with its own big-endian length prefix rather than the
// ordinary STRING descriptor framing.
func (t *StringTable) SetRawUnchecked(index uint8, payload []byte) error {
	if index == 0 || int(index) >= len(t.slots) {
		return &UserValidationError{Reason: "string index out of range"}
	}
	t.slots[index] = payload
	return nil
}

// Raw returns a slot's raw payload bytes with no STRING descriptor framing,
// for the printer Device-ID slot (spec.md 4.L), which is serialized with
// its own length prefix rather than the ordinary descriptor wrapper.
func (t *StringTable) Raw(index uint8) []byte {
	if int(index) >= len(t.slots) {
		return nil
	}
	return t.slots[index]
}

// Len reports the number of slots, including index 0.
func (t *StringTable) Len() int {
	return len(t.slots)
}

// Descriptor renders slot index as a wire STRING descriptor, or nil if out
// of range (the dispatcher stalls on a nil result).
func (t *StringTable) Descriptor(index uint8) []byte {
	if int(index) >= len(t.slots) {
		return nil
	}
	payload := t.slots[index]
	d := &StringDescriptor{
		Length:         uint8(2 + len(payload)),
		DescriptorType: STRING,
		Payload:        payload,
	}
	return d.Bytes()
}

// encodeUTF16 renders s as UTF-16LE bytes, matching how every non-index-0
// string slot is put on the wire (spec.md 3).
func encodeUTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2*i:], u)
	}
	return buf
}
