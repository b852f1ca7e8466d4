package events

import "testing"

func TestNewFilter_Nil(t *testing.T) {
	if NewFilter(nil, nil) != nil {
		t.Error("NewFilter(nil, nil) should return nil (pass-all)")
	}
	if NewFilter([]string{}, []string{}) != nil {
		t.Error("NewFilter with empty slices should return nil (pass-all)")
	}
}

func TestNewFilter_Include(t *testing.T) {
	f := NewFilter([]string{TypeDeviceAdded, TypeDeviceRemoved}, nil)
	if f == nil {
		t.Fatal("expected non-nil filter")
	}
	if !f(Event{Type: TypeDeviceAdded}) {
		t.Errorf("filter should pass %s", TypeDeviceAdded)
	}
	if !f(Event{Type: TypeDeviceRemoved}) {
		t.Errorf("filter should pass %s", TypeDeviceRemoved)
	}
	if f(Event{Type: TypeEnabled}) {
		t.Errorf("filter should block %s", TypeEnabled)
	}
}

func TestNewFilter_Exclude(t *testing.T) {
	f := NewFilter(nil, []string{TypeDeviceUpdate})
	if f == nil {
		t.Fatal("expected non-nil filter")
	}
	if f(Event{Type: TypeDeviceUpdate}) {
		t.Errorf("filter should block %s", TypeDeviceUpdate)
	}
	if !f(Event{Type: TypeDeviceAdded}) {
		t.Errorf("filter should pass %s", TypeDeviceAdded)
	}
}

func TestNewFilter_ExcludeWinsOverInclude(t *testing.T) {
	f := NewFilter([]string{TypeDeviceAdded, TypeDeviceUpdate}, []string{TypeDeviceUpdate})
	if f(Event{Type: TypeDeviceUpdate}) {
		t.Error("excluded type should be blocked even when included")
	}
	if !f(Event{Type: TypeDeviceAdded}) {
		t.Error("included type should pass")
	}
}

func TestBackendTypes_Bluetooth(t *testing.T) {
	types, ok := BackendTypes["bluetooth"]
	if !ok {
		t.Fatal("bluetooth backend types missing")
	}
	f := NewFilter(types, nil)
	for _, typ := range types {
		if !f(Event{Type: typ}) {
			t.Errorf("bluetooth filter should pass %s", typ)
		}
	}
	if f(Event{Type: TypeServerInfo}) {
		t.Error("bluetooth filter should block server.info")
	}
}
