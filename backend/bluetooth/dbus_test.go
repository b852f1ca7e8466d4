package bluetooth

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestDevicePathRoundTrip(t *testing.T) {
	p := &bluezPlatform{adapterPath: "/org/bluez/hci0"}

	objPath := p.devicePath("AA:BB:CC:DD:EE:FF")
	if objPath != "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF" {
		t.Fatalf("devicePath = %s", objPath)
	}

	addr, ok := p.addressFromPath(objPath)
	if !ok || addr != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("addressFromPath(%s) = %q, %v", objPath, addr, ok)
	}
}

func TestAddressFromPathRejectsForeignPaths(t *testing.T) {
	p := &bluezPlatform{adapterPath: "/org/bluez/hci0"}

	tests := []struct {
		name    string
		objPath dbus.ObjectPath
	}{
		{"other adapter", "/org/bluez/hci1/dev_AA_BB_CC_DD_EE_FF"},
		{"adapter itself", "/org/bluez/hci0"},
		{"nested child", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF/sep1"},
		{"empty suffix", "/org/bluez/hci0/dev_"},
		{"unrelated", "/org/freedesktop/UPower"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if addr, ok := p.addressFromPath(tt.objPath); ok {
				t.Errorf("addressFromPath(%s) accepted as %q", tt.objPath, addr)
			}
		})
	}
}

func TestExtractHelpers(t *testing.T) {
	props := map[string]dbus.Variant{
		"Name":      dbus.MakeVariant("Headphones"),
		"Connected": dbus.MakeVariant(true),
		"Mistyped":  dbus.MakeVariant(uint32(1)),
	}

	if got := extractString(props, "Name"); got != "Headphones" {
		t.Errorf("extractString(Name) = %q", got)
	}
	if got := extractString(props, "Missing"); got != "" {
		t.Errorf("extractString(Missing) = %q", got)
	}
	if got := extractString(props, "Mistyped"); got != "" {
		t.Errorf("extractString(Mistyped) = %q", got)
	}

	if !extractBool(props, "Connected") {
		t.Error("extractBool(Connected) = false")
	}
	if extractBool(props, "Missing") || extractBool(props, "Mistyped") {
		t.Error("extractBool should default to false")
	}
}
