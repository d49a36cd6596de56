// Package devwatch follows udev netlink events for the character device node
// and reports whether it is present.
package devwatch

import (
	"context"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"ringlog/internal/logging"
)

// Target receives availability changes.
type Target interface {
	SetAvailable(ok bool)
}

// Watcher toggles a Target when the device node is added or removed.
type Watcher struct {
	device string
	target Target
	logger *slog.Logger

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New creates a watcher for the device node at devicePath. It returns nil when
// devicePath is empty or target is nil; a nil Watcher is safe to use.
func New(devicePath string, target Target, logger *slog.Logger) *Watcher {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" || target == nil {
		return nil
	}
	return &Watcher{
		device: devicePath,
		target: target,
		logger: logging.NewComponentLogger(logger, "devwatch"),
	}
}

// Start syncs the target with the current state of the node and begins
// listening for udev events. A netlink failure is logged, not returned.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	_, statErr := os.Stat(w.device)
	w.target.SetAvailable(statErr == nil)

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(w.logger, "netlink connect failed; device availability will not be tracked", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "device hotplug goes unnoticed"),
		)
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true
	go w.loop(ctx, conn, w.quit)

	w.logger.Info("device watcher started",
		logging.String(logging.FieldEventType, "devwatch_started"),
		logging.String("device", w.device),
		logging.Bool("present", statErr == nil),
	)
	return nil
}

// Stop closes the netlink connection.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false
	w.logger.Info("device watcher stopped", logging.String(logging.FieldEventType, "devwatch_stopped"))
}

// Running reports whether the watcher is listening.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, matcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(w.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "device hotplug may go unnoticed"),
			)
		}
	}
}

// matcher accepts add and remove events for any device.
func matcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{Action: &action})
	return rules
}

func (w *Watcher) handleEvent(uevent netlink.UEvent) {
	name := deviceName(uevent)
	if name == "" || name != w.device {
		return
	}
	switch uevent.Action {
	case netlink.ADD:
		w.target.SetAvailable(true)
	case netlink.REMOVE:
		w.target.SetAvailable(false)
	default:
		return
	}
	w.logger.Info("device node event",
		logging.String(logging.FieldEventType, "devwatch_event"),
		logging.String("device", name),
		logging.String("action", string(uevent.Action)),
	)
}

// deviceName resolves the /dev path of a uevent from DEVNAME, falling back to
// the last DEVPATH element.
func deviceName(uevent netlink.UEvent) string {
	name := uevent.Env["DEVNAME"]
	if name == "" {
		devpath := uevent.Env["DEVPATH"]
		if devpath == "" {
			return ""
		}
		name = path.Base(devpath)
	}
	if !strings.HasPrefix(name, "/") {
		name = "/dev/" + name
	}
	return name
}
