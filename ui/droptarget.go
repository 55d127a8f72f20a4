package ui

import (
	"errors"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/storage"
	"github.com/cineplayer/cine/backend"
)

const dropIndicatorDelay = 10 * time.Millisecond

// DropTarget sequences the feedback shown while files are dropped
// onto a view: drop indicator, busy indicator and error toasts.
//
// fyne only reports completed drops, so HandleDropped runs the whole
// enter, validate, drop and leave sequence for each of them.
// All callbacks run on the loop.
type DropTarget struct {
	SetIndicatorVisible func(bool)
	SetBusy             func(bool)
	ShowError           func(message string)

	// OnDrop imports the dropped paths.
	OnDrop func(paths []string)

	// Validate checks that the dropped items can be read.
	// It runs off the loop.
	Validate func(uris []fyne.URI) error

	loop  backend.Loop
	after func(time.Duration, func())
}

func NewDropTarget(loop backend.Loop) *DropTarget {
	return &DropTarget{
		Validate: validateReadable,
		loop:     loop,
		after:    afterOnLoop(loop),
	}
}

// HandleDropped is meant to be installed as the window's drop callback.
func (d *DropTarget) HandleDropped(_ fyne.Position, uris []fyne.URI) {
	if len(uris) == 0 {
		return
	}
	d.enter()
	go func() {
		err := d.Validate(uris)
		d.loop.Do(func() {
			if err != nil {
				d.showError(fmt.Sprintf("%s: %s", lang.L("File Error"), err.Error()))
			} else {
				d.setBusy(true)
				d.drop(uris)
			}
			d.leave()
		})
	}()
}

func (d *DropTarget) enter() {
	d.after(dropIndicatorDelay, func() { d.setIndicatorVisible(true) })
}

func (d *DropTarget) leave() {
	d.setBusy(false)
	d.after(dropIndicatorDelay, func() { d.setIndicatorVisible(false) })
}

func (d *DropTarget) drop(uris []fyne.URI) {
	paths := make([]string, 0, len(uris))
	for _, u := range uris {
		paths = append(paths, uriPath(u))
	}
	if d.OnDrop != nil {
		d.OnDrop(paths)
	}
	d.setBusy(false)
}

func (d *DropTarget) setIndicatorVisible(v bool) {
	if d.SetIndicatorVisible != nil {
		d.SetIndicatorVisible(v)
	}
}

func (d *DropTarget) setBusy(b bool) {
	if d.SetBusy != nil {
		d.SetBusy(b)
	}
}

func (d *DropTarget) showError(msg string) {
	if d.ShowError != nil {
		d.ShowError(msg)
	}
}

// uriPath returns the local path of file URIs and the full URI otherwise.
func uriPath(u fyne.URI) string {
	if u.Scheme() == "file" {
		return u.Path()
	}
	return u.String()
}

func validateReadable(uris []fyne.URI) error {
	for _, u := range uris {
		ok, err := storage.CanRead(u)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(lang.L("Cannot read") + " " + uriPath(u))
		}
	}
	return nil
}
