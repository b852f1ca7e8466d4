package backend

import (
	"strings"
	"testing"
)

func TestParseKeyValue(t *testing.T) {
	input := `NAME="Debian GNU/Linux"
PRETTY_NAME="Debian GNU/Linux 13 (trixie)"
ID=debian
# not a pair
VERSION_ID="13"
`
	content, err := parseKeyValue(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseKeyValue: %v", err)
	}

	if content["PRETTY_NAME"] != "Debian GNU/Linux 13 (trixie)" {
		t.Errorf("PRETTY_NAME = %q", content["PRETTY_NAME"])
	}
	if content["ID"] != "debian" {
		t.Errorf("ID = %q", content["ID"])
	}
	if _, ok := content["# not a pair"]; ok {
		t.Error("lines without = should be skipped")
	}
}

func TestGetServerDeviceInfo(t *testing.T) {
	b := &Backend{}

	info, err := b.GetServerDeviceInfo()
	if err != nil {
		t.Fatalf("GetServerDeviceInfo: %v", err)
	}
	if info.Hostname == "" {
		t.Error("hostname should never be empty")
	}
	if info.Backends.Bluetooth || info.Backends.Zeroconf {
		t.Error("empty backend should report no sub-backends")
	}
}
