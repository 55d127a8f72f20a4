package ui

import (
	"slices"

	"fyne.io/fyne/v2"
	"github.com/cineplayer/cine/backend"
)

// WindowManager tracks the open player windows and which one is active.
type WindowManager struct {
	app       fyne.App
	windows   []backend.Window
	active    backend.Window
	onChanged []func()
}

var _ backend.Application = (*WindowManager)(nil)

func NewWindowManager(app fyne.App) *WindowManager {
	wm := &WindowManager{app: app}
	app.Lifecycle().SetOnEnteredForeground(wm.notifyChanged)
	return wm
}

// Add registers a newly opened window and makes it active.
func (wm *WindowManager) Add(w backend.Window) {
	wm.windows = append(wm.windows, w)
	wm.SetActive(w)
}

// Remove forgets a closed window. If it was active, the most recently
// opened remaining window becomes active.
func (wm *WindowManager) Remove(w backend.Window) {
	i := slices.Index(wm.windows, w)
	if i < 0 {
		return
	}
	wm.windows = slices.Delete(wm.windows, i, i+1)
	if wm.active != w {
		return
	}
	wm.active = nil
	if n := len(wm.windows); n > 0 {
		wm.active = wm.windows[n-1]
	}
	wm.notifyChanged()
}

func (wm *WindowManager) SetActive(w backend.Window) {
	if wm.active == w {
		return
	}
	wm.active = w
	wm.notifyChanged()
}

func (wm *WindowManager) ActiveWindow() backend.Window {
	return wm.active
}

func (wm *WindowManager) OnActiveWindowChanged(f func()) {
	wm.onChanged = append(wm.onChanged, f)
}

func (wm *WindowManager) Quit() {
	wm.app.Quit()
}

func (wm *WindowManager) notifyChanged() {
	for _, f := range wm.onChanged {
		f()
	}
}
