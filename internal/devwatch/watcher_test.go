package devwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

type recordingTarget struct {
	mu     sync.Mutex
	states []bool
}

func (r *recordingTarget) SetAvailable(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, ok)
}

func (r *recordingTarget) last() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return false, false
	}
	return r.states[len(r.states)-1], true
}

func TestNew(t *testing.T) {
	t.Run("empty device returns nil", func(t *testing.T) {
		if w := New("  ", &recordingTarget{}, nil); w != nil {
			t.Error("expected nil watcher for empty device")
		}
	})

	t.Run("nil target returns nil", func(t *testing.T) {
		if w := New("/dev/aesdchar", nil, nil); w != nil {
			t.Error("expected nil watcher for nil target")
		}
	})

	t.Run("valid arguments create watcher", func(t *testing.T) {
		w := New("/dev/aesdchar", &recordingTarget{}, nil)
		if w == nil {
			t.Fatal("expected non-nil watcher")
		}
		if w.device != "/dev/aesdchar" {
			t.Errorf("expected device /dev/aesdchar, got %s", w.device)
		}
	})
}

func TestNilWatcherIsSafe(t *testing.T) {
	var w *Watcher
	if w.Running() {
		t.Error("expected Running() false for nil watcher")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil watcher should return nil, got: %v", err)
	}
	w.Stop()
}

func TestStartSyncsCurrentState(t *testing.T) {
	node := filepath.Join(t.TempDir(), "aesdchar")
	if err := os.WriteFile(node, nil, 0o644); err != nil {
		t.Fatalf("write node: %v", err)
	}
	target := &recordingTarget{}
	w := New(node, target, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Netlink may be unavailable in the test environment; Start must not fail either way.
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer w.Stop()

	state, ok := target.last()
	if !ok || !state {
		t.Fatalf("expected target marked available, got %v (set=%v)", state, ok)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := New("/dev/aesdchar", &recordingTarget{}, nil)
	w.Stop()
	w.Stop()
	if w.Running() {
		t.Error("expected Running() false after Stop")
	}
}

func TestMatcher(t *testing.T) {
	m := matcher()
	for _, action := range []netlink.KObjAction{netlink.ADD, netlink.REMOVE} {
		if !m.Evaluate(netlink.UEvent{Action: action, Env: map[string]string{"DEVNAME": "aesdchar"}}) {
			t.Errorf("expected matcher to accept %s", action)
		}
	}
	if m.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"DEVNAME": "aesdchar"}}) {
		t.Error("expected matcher to reject change events")
	}
}

func TestHandleEvent(t *testing.T) {
	t.Run("add and remove toggle availability", func(t *testing.T) {
		target := &recordingTarget{}
		w := New("/dev/aesdchar", target, nil)

		w.handleEvent(netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"DEVNAME": "aesdchar"}})
		if state, _ := target.last(); state {
			t.Error("expected unavailable after remove")
		}
		w.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVNAME": "/dev/aesdchar"}})
		if state, _ := target.last(); !state {
			t.Error("expected available after add")
		}
	})

	t.Run("ignores other devices", func(t *testing.T) {
		target := &recordingTarget{}
		w := New("/dev/aesdchar", target, nil)
		w.handleEvent(netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"DEVNAME": "/dev/sr0"}})
		if _, set := target.last(); set {
			t.Error("target should not change for another device")
		}
	})

	t.Run("falls back to DEVPATH", func(t *testing.T) {
		target := &recordingTarget{}
		w := New("/dev/aesdchar", target, nil)
		w.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVPATH": "/devices/virtual/aesdchar/aesdchar"}})
		if state, set := target.last(); !set || !state {
			t.Error("expected DEVPATH fallback to resolve the device")
		}
	})

	t.Run("ignores events without a name", func(t *testing.T) {
		target := &recordingTarget{}
		w := New("/dev/aesdchar", target, nil)
		w.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{}})
		if _, set := target.last(); set {
			t.Error("target should not change without a device name")
		}
	})
}
