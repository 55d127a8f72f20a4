package ui

import (
	"time"

	"fyne.io/fyne/v2"
	"github.com/cineplayer/cine/backend"
)

// FyneLoop runs callbacks on the fyne event loop.
type FyneLoop struct{}

var _ backend.Loop = FyneLoop{}

func (FyneLoop) Do(f func()) { fyne.Do(f) }

func (FyneLoop) DoAndWait(f func()) { fyne.DoAndWait(f) }

// afterOnLoop runs f on loop once d has elapsed.
func afterOnLoop(loop backend.Loop) func(time.Duration, func()) {
	return func(d time.Duration, f func()) {
		time.AfterFunc(d, func() { loop.Do(f) })
	}
}
