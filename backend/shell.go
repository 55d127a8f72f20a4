package backend

import "github.com/cineplayer/cine/backend/player"

// Loop runs callbacks on the UI event loop.
// All player and window access happens from callbacks run by the Loop.
type Loop interface {
	// Do queues f to run on the loop and returns immediately.
	Do(f func())

	// DoAndWait runs f on the loop and returns once it has completed.
	DoAndWait(f func())
}

// Window is a player window as seen by the desktop integration layer.
type Window interface {
	// Player returns the window's player, or nil if it has none.
	Player() player.Handle

	CanGoNext() bool
	CanGoPrevious() bool
	Next()
	Previous()

	// Present brings the window to the front and focuses it.
	Present()

	// SetShuffleToggle sets the window's shuffle toggle, which
	// reshuffles or restores the playlist order.
	SetShuffleToggle(on bool)
}

// Application is the windowing shell of the app.
type Application interface {
	// ActiveWindow returns the currently active window, or nil.
	ActiveWindow() Window

	// OnActiveWindowChanged registers a callback invoked on the loop
	// whenever the active window changes.
	OnActiveWindowChanged(func())

	Quit()
}
