// Package desktop sends freedesktop notifications over the D-Bus session bus.
package desktop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/benjamonnguyen/pomod"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod      = notificationsDest + ".Notify"
	DefaultExpiration = 5 * time.Second
	appIcon           = ""
)

// Notifier connects lazily and reconnects after a failed call.
type Notifier struct {
	appName string
	expire  time.Duration

	mu     sync.Mutex
	conn   *dbus.Conn
	object dbus.BusObject
	dial   func(...dbus.ConnOption) (*dbus.Conn, error)
}

func NewNotifier(appName string, expire time.Duration) *Notifier {
	return &Notifier{
		appName: appName,
		expire:  expire,
		dial:    dbus.ConnectSessionBus,
	}
}

func (n *Notifier) Notify(ctx context.Context, notification pomod.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	obj, err := n.busObject()
	if err != nil {
		return err
	}

	call := obj.CallWithContext(ctx, notifyMethod, 0,
		n.appName,
		uint32(0), // replaces_id
		appIcon,
		notification.Title,
		notification.Body,
		[]string{},
		map[string]dbus.Variant{},
		int32(n.expire/time.Millisecond),
	)
	if call.Err != nil {
		n.reset()
		return fmt.Errorf("dbus notify: %w", call.Err)
	}
	return nil
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn, n.object = nil, nil
	return err
}

func (n *Notifier) busObject() (dbus.BusObject, error) {
	if n.object != nil {
		return n.object, nil
	}
	conn, err := n.dial()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	n.conn = conn
	n.object = conn.Object(notificationsDest, notificationsPath)
	return n.object, nil
}

func (n *Notifier) reset() {
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
	n.object = nil
}
