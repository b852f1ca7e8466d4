package events

const (
	TypeServerInfo    = "server.info"
	TypeReady         = "bluetooth.ready"
	TypeDeviceMap     = "bluetooth.deviceMap"
	TypeDeviceAdded   = "bluetooth.deviceAdded"
	TypeDeviceRemoved = "bluetooth.deviceRemoved"
	TypeDeviceUpdate  = "bluetooth.deviceUpdate"
	TypeEnabled       = "bluetooth.enabled"
	TypeConnectFailed = "bluetooth.connectFailed"
	TypeConfirmCode   = "bluetooth.confirmCode"
	TypeError         = "bluetooth.error"
)

type Event struct {
	Type string
	Data any
}

// BackendTypes maps a backend name (as used in the ?backend= SSE filter)
// to the event types it emits.
var BackendTypes = map[string][]string{
	"bluetooth": {
		TypeReady,
		TypeDeviceMap,
		TypeDeviceAdded,
		TypeDeviceRemoved,
		TypeDeviceUpdate,
		TypeEnabled,
		TypeConnectFailed,
		TypeConfirmCode,
		TypeError,
	},
}

// NewFilter builds an event predicate from include and exclude type lists.
// A nil return means "pass everything". Exclusions win over inclusions.
func NewFilter(include, exclude []string) func(Event) bool {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}

	included := toSet(include)
	excluded := toSet(exclude)

	return func(e Event) bool {
		if _, skip := excluded[e.Type]; skip {
			return false
		}
		if len(included) == 0 {
			return true
		}
		_, ok := included[e.Type]
		return ok
	}
}

func toSet(types []string) map[string]struct{} {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}
