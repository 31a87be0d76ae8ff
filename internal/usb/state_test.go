package usb

import "testing"

func newStateTestDevice() *Device {
	dev := NewDevice(0x1234, 0x5678)
	conf := NewConfiguration(1, 0, 0x80, 0x32)
	conf.AddInterface(&Interface{InterfaceNumber: 0})
	dev.Configurations = []*Configuration{conf}
	return dev
}

// Testable property 3: no reachable sequence can leave the device
// CONFIGURED with ActiveConfigurationIndex == 0.
func TestStateMachineConfiguredImpliesNonzeroIndex(t *testing.T) {
	dev := newStateTestDevice()
	dev.onBusReset()
	dev.onSetAddress(5)

	if err := dev.onSetConfiguration(1); err != nil {
		t.Fatalf("onSetConfiguration: %v", err)
	}
	if dev.State != StateConfigured {
		t.Fatalf("expected CONFIGURED, got %v", dev.State)
	}
	if dev.ActiveConfigurationIndex == 0 {
		t.Fatal("CONFIGURED with ActiveConfigurationIndex == 0")
	}
}

func TestStateMachineUnknownConfigurationValueRejected(t *testing.T) {
	dev := newStateTestDevice()
	dev.onBusReset()
	dev.onSetAddress(5)

	err := dev.onSetConfiguration(99)
	if err == nil {
		t.Fatal("expected error for unknown configuration value")
	}
	if dev.State == StateConfigured {
		t.Fatal("device must not become CONFIGURED on a rejected SET_CONFIGURATION")
	}
}

func TestStateMachineDeconfigureReturnsToAddress(t *testing.T) {
	dev := newStateTestDevice()
	dev.onBusReset()
	dev.onSetAddress(5)
	_ = dev.onSetConfiguration(1)

	if err := dev.onSetConfiguration(0); err != nil {
		t.Fatalf("onSetConfiguration(0): %v", err)
	}
	if dev.State != StateAddress {
		t.Fatalf("expected ADDRESS after deconfigure, got %v", dev.State)
	}
	if dev.ActiveConfigurationIndex != 0 {
		t.Fatalf("expected ActiveConfigurationIndex reset to 0, got %d", dev.ActiveConfigurationIndex)
	}
}

func TestOnConfigurationOccurredFiresOnlyOnAddressToConfiguredEdge(t *testing.T) {
	dev := newStateTestDevice()
	dev.onBusReset()
	dev.onSetAddress(5)

	fired := 0
	dev.OnConfigurationOccurred = func() { fired++ }

	if err := dev.onSetConfiguration(1); err != nil {
		t.Fatalf("onSetConfiguration: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected exactly 1 fire on first configuration, got %d", fired)
	}

	// Re-setting the same configuration value while already configured must
	// not re-fire the callback.
	if err := dev.onSetConfiguration(1); err != nil {
		t.Fatalf("onSetConfiguration (re-set): %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected callback not to re-fire while already configured, got %d", fired)
	}
}

func TestBusResetClearsAddressAndConfiguration(t *testing.T) {
	dev := newStateTestDevice()
	dev.onBusReset()
	dev.onSetAddress(5)
	_ = dev.onSetConfiguration(1)

	dev.ResetForBusReset()

	if dev.State != StateDefault {
		t.Fatalf("expected DEFAULT after bus reset, got %v", dev.State)
	}
	if dev.Address != 0 || dev.ActiveConfigurationIndex != 0 {
		t.Fatalf("expected address and configuration cleared, got address=%d configIndex=%d", dev.Address, dev.ActiveConfigurationIndex)
	}
}
