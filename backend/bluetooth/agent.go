package bluetooth

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/nroccia/go-bluez-api/logger"
)

// bluezAgent is the org.bluez.Agent1 object exported on the system bus.
// It owns no state: each confirmation challenge is translated into a
// ConfirmRequest with a single-use reply channel and forwarded to the
// coordinator, then the exported method suspends on the answer.
type bluezAgent struct {
	requests chan<- ConfirmRequest
}

func registerAgent(conn *dbus.Conn, requests chan<- ConfirmRequest) error {
	agent := &bluezAgent{requests: requests}
	if err := exportAgent(conn, agent); err != nil {
		return err
	}

	manager := conn.Object(BLUETOOTH_PREFIX, dbus.ObjectPath(BLUEZ_PATH))
	return manager.Call(
		REGISTER_AGENT,
		0,
		dbus.ObjectPath(AGENT_PATH),
		AGENT_CAPABILITY,
	).Err
}

func unregisterAgent(conn *dbus.Conn) {
	manager := conn.Object(BLUETOOTH_PREFIX, dbus.ObjectPath(BLUEZ_PATH))
	if err := manager.Call(
		UNREGISTER_AGENT,
		0,
		dbus.ObjectPath(AGENT_PATH),
	).Err; err != nil {
		logger.Debug("[bluetooth] failed to unregister agent %s: %v", AGENT_PATH, err)
	}
}

func exportAgent(conn *dbus.Conn, agent *bluezAgent) error {
	if err := conn.Export(agent, dbus.ObjectPath(AGENT_PATH), AGENT_IFACE); err != nil {
		return err
	}

	// Export introspection data so BlueZ can discover the agent's methods
	node := &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    AGENT_IFACE,
				Methods: introspect.Methods(agent),
			},
		},
	}
	return conn.Export(
		introspect.NewIntrospectable(node),
		dbus.ObjectPath(AGENT_PATH),
		DBUS_INTROSPECTABLE,
	)
}

func (a *bluezAgent) Release() *dbus.Error {
	logger.Debug("[bluetooth] agent Release() called")
	return nil
}

// RequestConfirmation forwards the challenge and blocks until the
// coordinator answers. A closed or false reply is reported to BlueZ as a
// rejection.
func (a *bluezAgent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	addr, ok := addressFromDevicePath(device)
	if !ok {
		logger.Warn("[bluetooth] confirmation request for unparseable path %v", device)
		return &dbus.Error{Name: BLUEZ_ERROR_REJECTED}
	}

	// Both devices display the same zero-padded six digit code.
	code := fmt.Sprintf("%06d", passkey)
	logger.Info("[bluetooth] confirmation request for %s", addr)

	reply := make(chan bool, 1)
	a.requests <- ConfirmRequest{Addr: addr, Code: code, Reply: reply}

	if accepted := <-reply; !accepted {
		return &dbus.Error{Name: BLUEZ_ERROR_REJECTED}
	}
	return nil
}

func (a *bluezAgent) Cancel() *dbus.Error {
	logger.Debug("[bluetooth] agent Cancel() called")
	return nil
}

// addressFromDevicePath recovers the hardware address from any adapter's
// device object path (.../dev_AA_BB_CC_DD_EE_FF).
func addressFromDevicePath(objPath dbus.ObjectPath) (Address, bool) {
	raw := string(objPath)
	idx := strings.LastIndex(raw, "/dev_")
	if idx < 0 {
		return "", false
	}
	addr := strings.ReplaceAll(raw[idx+len("/dev_"):], "_", ":")
	if addr == "" || strings.ContainsRune(addr, '/') {
		return "", false
	}
	return Address(addr), true
}
