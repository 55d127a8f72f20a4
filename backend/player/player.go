package player

import (
	"errors"
	"strconv"

	"github.com/quarckster/go-mpris-server/pkg/types"
)

// Error returned by player functions called before the player has been initialized.
var ErrUninitialized = errors.New("player uninitialized")

// LoopMode is the value of a loop-file or loop-playlist setting:
// "inf", "no", or a decimal repeat count.
type LoopMode string

const (
	LoopInf LoopMode = "inf"
	LoopNo  LoopMode = "no"
)

// LoopCount returns the LoopMode for a finite repeat count.
func LoopCount(n int) LoopMode {
	if n <= 0 {
		return LoopNo
	}
	return LoopMode(strconv.Itoa(n))
}

// One of "append-play", "append", or "replace"
type LoadMode string

const (
	LoadAppendPlay LoadMode = "append-play"
	LoadAppend     LoadMode = "append"
	LoadReplace    LoadMode = "replace"
)

// PlaylistEntry is one item of the player's playlist.
type PlaylistEntry struct {
	Filename string
	Title    string
	Current  bool
}

// Handle is the set of properties and commands every player exposes.
// Nullable properties return ok == false when the player has no value
// (e.g. no file loaded).
type Handle interface {
	Paused() bool
	SetPaused(bool) error

	TimePos() (float64, bool)
	SetTimePos(float64) error
	Duration() (float64, bool)
	MediaTitle() (string, bool)

	Playlist() []PlaylistEntry
	PlaylistPos() int
	SetPlaylistPos(int) error

	Stop() error
	LoadFile(path string, mode LoadMode) error
}

// VolumeController is implemented by players with a software volume (0-100).
// Players without it report a volume of 0.
type VolumeController interface {
	Volume() float64
	SetVolume(float64) error
}

// Looper is implemented by players with per-file and per-playlist repeat.
// Players without it report LoopNo for both modes.
type Looper interface {
	LoopFile() LoopMode
	SetLoopFile(LoopMode) error
	LoopPlaylist() LoopMode
	SetLoopPlaylist(LoopMode) error
}

// Shuffler is implemented by players that track a shuffle flag.
// Players without it report false.
type Shuffler interface {
	Shuffle() bool
	SetShuffle(bool) error
}

// VolumeOf returns the volume of h, or 0 if h has no volume control.
func VolumeOf(h Handle) float64 {
	if v, ok := h.(VolumeController); ok {
		return v.Volume()
	}
	return 0
}

// SetVolume sets the volume of h, if it supports one.
func SetVolume(h Handle, vol float64) error {
	if v, ok := h.(VolumeController); ok {
		return v.SetVolume(vol)
	}
	return errors.New("player has no volume control")
}

// LoopModesOf returns the file and playlist loop modes of h.
func LoopModesOf(h Handle) (file, playlist LoopMode) {
	if l, ok := h.(Looper); ok {
		return l.LoopFile(), l.LoopPlaylist()
	}
	return LoopNo, LoopNo
}

// SetLoopModes sets both loop modes of h, if it supports looping.
func SetLoopModes(h Handle, file, playlist LoopMode) error {
	l, ok := h.(Looper)
	if !ok {
		return errors.New("player does not support looping")
	}
	if err := l.SetLoopFile(file); err != nil {
		return err
	}
	return l.SetLoopPlaylist(playlist)
}

// ShuffleOf returns the shuffle flag of h, or false if h does not track one.
func ShuffleOf(h Handle) bool {
	if s, ok := h.(Shuffler); ok {
		return s.Shuffle()
	}
	return false
}

// SetShuffle sets the shuffle flag of h, if it tracks one.
func SetShuffle(h Handle, shuffle bool) error {
	if s, ok := h.(Shuffler); ok {
		return s.SetShuffle(shuffle)
	}
	return errors.New("player does not support shuffle")
}

// LoopStatusOf derives the tri-state loop status from the two loop modes.
// Finite repeat counts are not distinguished from "no".
func LoopStatusOf(file, playlist LoopMode) types.LoopStatus {
	if file == LoopInf {
		return types.LoopStatusTrack
	}
	if playlist == LoopInf {
		return types.LoopStatusPlaylist
	}
	return types.LoopStatusNone
}

// LoopModesFor is the inverse of LoopStatusOf.
func LoopModesFor(status types.LoopStatus) (file, playlist LoopMode, err error) {
	switch status {
	case types.LoopStatusNone:
		return LoopNo, LoopNo, nil
	case types.LoopStatusTrack:
		return LoopInf, LoopNo, nil
	case types.LoopStatusPlaylist:
		return LoopNo, LoopInf, nil
	}
	return "", "", errors.New("unknown loop status: " + string(status))
}

type BaseCallbackImpl struct {
	onFileLoaded   []func()
	onIdle         []func()
	onPauseChanged []func()
	onShutdown     []func()
}

// Registers a callback which is invoked when a new file starts playing.
func (p *BaseCallbackImpl) OnFileLoaded(cb func()) {
	p.onFileLoaded = append(p.onFileLoaded, cb)
}

// Registers a callback which is invoked when the player runs out of things to play.
func (p *BaseCallbackImpl) OnIdle(cb func()) {
	p.onIdle = append(p.onIdle, cb)
}

// Registers a callback which is invoked when the pause state changes,
// whichever client changed it.
func (p *BaseCallbackImpl) OnPauseChanged(cb func()) {
	p.onPauseChanged = append(p.onPauseChanged, cb)
}

// Registers a callback which is invoked when the player shuts down on its own,
// e.g. because the user closed its video window.
func (p *BaseCallbackImpl) OnShutdown(cb func()) {
	p.onShutdown = append(p.onShutdown, cb)
}

func (p *BaseCallbackImpl) InvokeOnFileLoaded() {
	for _, cb := range p.onFileLoaded {
		cb()
	}
}

func (p *BaseCallbackImpl) InvokeOnIdle() {
	for _, cb := range p.onIdle {
		cb()
	}
}

func (p *BaseCallbackImpl) InvokeOnPauseChanged() {
	for _, cb := range p.onPauseChanged {
		cb()
	}
}

func (p *BaseCallbackImpl) InvokeOnShutdown() {
	for _, cb := range p.onShutdown {
		cb()
	}
}
