package usb

import "testing"

// Testable property 2: a local override wins over an inherited handler for
// the same request number.
func TestHandlerTableOverridePrecedence(t *testing.T) {
	inherited := map[uint8]HandlerFunc{
		0x01: func(*SetupPacket) ([]byte, error) { return []byte("base"), nil },
	}
	table := NewHandlerTable(inherited, nil)

	fn, ok := table.Lookup(0x01)
	if !ok {
		t.Fatal("expected inherited handler present")
	}
	resp, _ := fn(nil)
	if string(resp) != "base" {
		t.Fatalf("expected base response before override, got %q", resp)
	}

	table.Override(0x01, "overridden", func(*SetupPacket) ([]byte, error) {
		return []byte("local"), nil
	})

	fn, ok = table.Lookup(0x01)
	if !ok {
		t.Fatal("expected handler present after override")
	}
	resp, _ = fn(nil)
	if string(resp) != "local" {
		t.Fatalf("expected local override to win, got %q", resp)
	}
	if table.Name(0x01) != "overridden" {
		t.Fatalf("expected overridden name, got %q", table.Name(0x01))
	}
}

func TestHandlerTableFillRange(t *testing.T) {
	table := NewHandlerTable(nil, nil)
	table.FillRange(0x00, 0xff, "handle_unknown", func(*SetupPacket) ([]byte, error) {
		return []byte{}, nil
	})

	for _, n := range []uint8{0x00, 0x20, 0x7f, 0xff} {
		if _, ok := table.Lookup(n); !ok {
			t.Fatalf("expected request %#x to be filled", n)
		}
	}
}

func TestHandlerTableCopyIsIndependent(t *testing.T) {
	base := NewHandlerTable(map[uint8]HandlerFunc{
		0x01: func(*SetupPacket) ([]byte, error) { return []byte("base"), nil },
	}, nil)

	cp := base.Copy()
	cp.Override(0x01, "copied", func(*SetupPacket) ([]byte, error) {
		return []byte("copied"), nil
	})

	fn, _ := base.Lookup(0x01)
	resp, _ := fn(nil)
	if string(resp) != "base" {
		t.Fatalf("expected original table unaffected by copy's override, got %q", resp)
	}
}

func TestHandlerTableWrapObserves(t *testing.T) {
	base := NewHandlerTable(map[uint8]HandlerFunc{
		0x01: func(*SetupPacket) ([]byte, error) { return []byte("base"), nil },
	}, nil)

	var observed []string
	wrapped := base.Wrap(func(name string, h HandlerFunc) HandlerFunc {
		return func(s *SetupPacket) ([]byte, error) {
			observed = append(observed, name)
			return h(s)
		}
	})

	fn, _ := wrapped.Lookup(0x01)
	if _, err := fn(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(observed) != 1 {
		t.Fatalf("expected wrapped handler to be observed once, got %v", observed)
	}

	if _, ok := base.Lookup(0x01); !ok {
		t.Fatal("expected original table to still have its handler")
	}
}
