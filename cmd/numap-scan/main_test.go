package main

import "testing"

func TestSelectTemplatesDefaultsToFullList(t *testing.T) {
	templates, err := selectTemplates(nil, nil)
	if err != nil {
		t.Fatalf("selectTemplates: %v", err)
	}
	if len(templates) != 6 {
		t.Fatalf("expected all 6 fixed templates, got %d", len(templates))
	}
}

func TestSelectTemplatesHonorsOnlyAndIgnore(t *testing.T) {
	templates, err := selectTemplates([]string{"keyboard", "printer", "audio"}, []string{"printer"})
	if err != nil {
		t.Fatalf("selectTemplates: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("expected 2 templates after ignoring printer, got %d", len(templates))
	}
	for _, tmpl := range templates {
		if tmpl.Name == "printer" {
			t.Fatal("expected printer to be excluded by -i")
		}
	}
}

func TestSelectTemplatesRejectsUnknownDeviceName(t *testing.T) {
	_, err := selectTemplates([]string{"not-a-real-device"}, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown device class")
	}
	if _, ok := err.(*badDeviceNameError); !ok {
		t.Fatalf("expected *badDeviceNameError, got %T", err)
	}
}

func TestSelectTemplatesIgnoresUnknownIgnoreName(t *testing.T) {
	// an unknown name in -i alone is silently inert (nothing to ignore);
	// only -d/--device names are validated against the device registry.
	templates, err := selectTemplates(nil, []string{"not-a-real-device"})
	if err != nil {
		t.Fatalf("selectTemplates: %v", err)
	}
	if len(templates) != 6 {
		t.Fatalf("expected all 6 templates when ignoring an unknown name, got %d", len(templates))
	}
}
