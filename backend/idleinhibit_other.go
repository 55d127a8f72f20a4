//go:build !windows

package backend

import (
	"log"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	screenSaverName  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = "/org/freedesktop/ScreenSaver"
	screenSaverIface = "org.freedesktop.ScreenSaver"
)

var inhibitor struct {
	sync.Mutex
	cookie    uint32
	inhibited bool
}

// SetIdleInhibited keeps the screen saver from activating while a video
// is playing. It is a no-op where no session bus is available.
func SetIdleInhibited(inhibit bool) {
	inhibitor.Lock()
	defer inhibitor.Unlock()
	if inhibitor.inhibited == inhibit {
		return
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return
	}
	obj := conn.Object(screenSaverName, screenSaverPath)
	if inhibit {
		var cookie uint32
		if err := obj.Call(screenSaverIface+".Inhibit", 0, "Cine", "Playing video").Store(&cookie); err != nil {
			log.Printf("failed to inhibit screen saver: %v", err)
			return
		}
		inhibitor.cookie = cookie
	} else if err := obj.Call(screenSaverIface+".UnInhibit", 0, inhibitor.cookie).Err; err != nil {
		log.Printf("failed to release screen saver inhibit: %v", err)
	}
	inhibitor.inhibited = inhibit
}
