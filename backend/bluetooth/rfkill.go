package bluetooth

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nroccia/go-bluez-api/config"
)

// Constants from the kernel rfkill uapi.
const (
	rfkillTypeBluetooth = 2 // RFKILL_TYPE_BLUETOOTH
	rfkillOpChange      = 2 // RFKILL_OP_CHANGE
)

// rfkill drives the kernel soft-block switch directly, used when the
// adapter's Powered property cannot be set through BlueZ.
type rfkill struct {
	sysfsDir string
	device   string
}

func newRfkill(cfg config.RfkillConfig) rfkill {
	return rfkill{sysfsDir: cfg.SysfsDir, device: cfg.Device}
}

// findAdapterIndex scans the rfkill sysfs entries for the bluetooth switch
// whose declared name matches the adapter.
func (r rfkill) findAdapterIndex(adapterName string) (uint32, error) {
	entries, err := os.ReadDir(r.sysfsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", r.sysfsDir, err)
	}

	for _, entry := range entries {
		dir := filepath.Join(r.sysfsDir, entry.Name())

		if readSysfsValue(filepath.Join(dir, "type")) != "bluetooth" {
			continue
		}
		if readSysfsValue(filepath.Join(dir, "name")) != adapterName {
			continue
		}

		idx, err := strconv.ParseUint(readSysfsValue(filepath.Join(dir, "index")), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("failed to parse rfkill index for %s: %w", adapterName, err)
		}
		return uint32(idx), nil
	}

	return 0, fmt.Errorf("no rfkill bluetooth device with name %s", adapterName)
}

// setEnabled writes one change event to the rfkill control device:
// open, write, close, no retry.
func (r rfkill) setEnabled(idx uint32, enable bool) error {
	file, err := os.OpenFile(r.device, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.device, err)
	}
	defer file.Close()

	if _, err := file.Write(rfkillEventBytes(idx, enable)); err != nil {
		return fmt.Errorf("failed to write rfkill event: %w", err)
	}
	return nil
}

// rfkillEventBytes encodes a struct rfkill_event by hand, field by field,
// to avoid any dependence on struct memory layout:
//
//	idx  uint32 little-endian
//	type uint8  (2, bluetooth)
//	op   uint8  (2, change)
//	soft uint8  (0 enables, 1 blocks)
//	hard uint8  (always 0)
func rfkillEventBytes(idx uint32, enable bool) []byte {
	soft := byte(1)
	if enable {
		soft = 0
	}

	buf := make([]byte, 0, 8)
	buf = binary.LittleEndian.AppendUint32(buf, idx)
	buf = append(buf, rfkillTypeBluetooth, rfkillOpChange, soft, 0)
	return buf
}

func readSysfsValue(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
