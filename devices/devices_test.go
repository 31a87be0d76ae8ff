package devices

import "testing"

// Every fixed device assembly must produce a valid 18-byte DEVICE
// descriptor and a configuration that serializes without error, and must
// be reachable through the template/name tables the CLIs and harnesses key
// off of.
func TestEveryConstructorAssemblesCleanly(t *testing.T) {
	for name, build := range All {
		t.Run(name, func(t *testing.T) {
			dev := build()
			if dev == nil {
				t.Fatal("constructor returned nil device")
			}

			desc := dev.Descriptor()
			if len(desc) != 18 {
				t.Fatalf("expected 18-byte DEVICE descriptor, got %d bytes", len(desc))
			}

			if len(dev.Configurations) == 0 {
				t.Fatal("expected at least one configuration")
			}
			for _, conf := range dev.Configurations {
				if _, err := conf.Bytes(); err != nil {
					t.Fatalf("configuration failed to serialize: %v", err)
				}
			}
		})
	}
}

func TestTemplatesMatchFixedDeviceList(t *testing.T) {
	want := []string{"keyboard", "audio", "mass_storage", "printer", "cdc_acm", "rndis"}
	if len(Templates) != len(want) {
		t.Fatalf("expected %d templates, got %d", len(want), len(Templates))
	}
	for i, name := range want {
		if Templates[i].Name != name {
			t.Fatalf("template %d: expected %q, got %q", i, name, Templates[i].Name)
		}
		if Templates[i].Build == nil {
			t.Fatalf("template %d (%s): nil Build func", i, name)
		}
	}
}

func TestByNameResolvesEveryTemplate(t *testing.T) {
	for _, tmpl := range Templates {
		if _, ok := ByName(tmpl.Name); !ok {
			t.Fatalf("ByName(%q) not found despite appearing in Templates", tmpl.Name)
		}
	}
}

func TestByNameRejectsUnknown(t *testing.T) {
	if _, ok := ByName("not-a-real-device"); ok {
		t.Fatal("expected ByName to reject an unknown device class")
	}
}
