package bluetooth

const (
	BLUETOOTH_PREFIX  = "org.bluez"
	BLUETOOTH_ADAPTER = BLUETOOTH_PREFIX + ".Adapter1"
	BLUETOOTH_DEVICE  = BLUETOOTH_PREFIX + ".Device1"
	BLUETOOTH_BATTERY = BLUETOOTH_PREFIX + ".Battery1"

	DBUS_INTERFACE           = "org.freedesktop.DBus"
	DBUS_PROP_IFACE          = DBUS_INTERFACE + ".Properties"
	DBUS_PROP_GET            = DBUS_PROP_IFACE + ".Get"
	DBUS_PROP_GET_ALL        = DBUS_PROP_IFACE + ".GetAll"
	DBUS_PROP_SET            = DBUS_PROP_IFACE + ".Set"
	DBUS_PROP_CHANGED_SIGNAL = DBUS_PROP_IFACE + ".PropertiesChanged"
	DBUS_INTROSPECTABLE      = DBUS_INTERFACE + ".Introspectable"

	OBJECT_MANAGER_IFACE      = DBUS_INTERFACE + ".ObjectManager"
	MANAGED_OBJECTS           = OBJECT_MANAGER_IFACE + ".GetManagedObjects"
	INTERFACES_ADDED_SIGNAL   = OBJECT_MANAGER_IFACE + ".InterfacesAdded"
	INTERFACES_REMOVED_SIGNAL = OBJECT_MANAGER_IFACE + ".InterfacesRemoved"

	AGENT_IFACE   = BLUETOOTH_PREFIX + ".Agent1"
	AGENT_MANAGER = BLUETOOTH_PREFIX + ".AgentManager1"

	REGISTER_AGENT   = AGENT_MANAGER + ".RegisterAgent"
	UNREGISTER_AGENT = AGENT_MANAGER + ".UnregisterAgent"

	DEVICE_CONNECT_METHOD    = BLUETOOTH_DEVICE + ".Connect"
	DEVICE_DISCONNECT_METHOD = BLUETOOTH_DEVICE + ".Disconnect"
	START_DISCOVERY_METHOD   = BLUETOOTH_ADAPTER + ".StartDiscovery"
	STOP_DISCOVERY_METHOD    = BLUETOOTH_ADAPTER + ".StopDiscovery"

	BLUEZ_ERROR_REJECTED = BLUETOOTH_PREFIX + ".Error.Rejected"

	BLUEZ_PATH = "/org/bluez"
	AGENT_PATH = BLUEZ_PATH + "/bluez_api_agent"

	// DisplayYesNo: both sides show a code, the user confirms they match.
	AGENT_CAPABILITY = "DisplayYesNo"
)

// Adapter properties
const (
	BT_PROP_POWERED     = "Powered"
	BT_PROP_DISCOVERING = "Discovering"
)

// Device properties
const (
	BT_PROP_ADDRESS    = "Address"
	BT_PROP_NAME       = "Name"
	BT_PROP_ICON       = "Icon"
	BT_PROP_PAIRED     = "Paired"
	BT_PROP_CONNECTED  = "Connected"
	BT_PROP_PERCENTAGE = "Percentage"
)
