// Package playertest provides an in-memory player handle for tests.
package playertest

import (
	"errors"
	"fmt"

	"github.com/cineplayer/cine/backend/player"
)

var (
	_ player.Handle           = (*Player)(nil)
	_ player.VolumeController = (*Player)(nil)
	_ player.Looper           = (*Player)(nil)
	_ player.Shuffler         = (*Player)(nil)
)

// LoadCall records one LoadFile invocation.
type LoadCall struct {
	Path string
	Mode player.LoadMode
}

// Player is a fake player handle. Its fields may be read and written
// directly by tests; nil pointer fields model absent nullable properties.
type Player struct {
	Pause       bool
	Vol         float64
	Time        *float64
	Dur         *float64
	Title       *string
	FileLoop    player.LoopMode
	ListLoop    player.LoopMode
	ShuffleFlag bool
	Entries     []player.PlaylistEntry
	Pos         int

	Stopped int
	Loads   []LoadCall
}

// New returns a fake player with both loop modes "no" and no playlist.
func New() *Player {
	return &Player{FileLoop: player.LoopNo, ListLoop: player.LoopNo, Pos: -1}
}

// WithFiles appends the given filenames to the fake playlist.
func (p *Player) WithFiles(names ...string) *Player {
	for _, n := range names {
		p.Entries = append(p.Entries, player.PlaylistEntry{Filename: n})
	}
	if p.Pos < 0 && len(p.Entries) > 0 {
		p.Pos = 0
	}
	return p
}

func (p *Player) Paused() bool { return p.Pause }

func (p *Player) SetPaused(paused bool) error {
	p.Pause = paused
	return nil
}

func (p *Player) TimePos() (float64, bool) {
	if p.Time == nil {
		return 0, false
	}
	return *p.Time, true
}

func (p *Player) SetTimePos(secs float64) error {
	p.Time = &secs
	return nil
}

func (p *Player) Duration() (float64, bool) {
	if p.Dur == nil {
		return 0, false
	}
	return *p.Dur, true
}

func (p *Player) MediaTitle() (string, bool) {
	if p.Title == nil {
		return "", false
	}
	return *p.Title, true
}

// SetTitle sets the media title; an empty string clears it.
func (p *Player) SetTitle(t string) {
	if t == "" {
		p.Title = nil
		return
	}
	p.Title = &t
}

func (p *Player) Playlist() []player.PlaylistEntry {
	return append([]player.PlaylistEntry(nil), p.Entries...)
}

func (p *Player) PlaylistPos() int { return p.Pos }

func (p *Player) SetPlaylistPos(idx int) error {
	if idx < 0 || idx >= len(p.Entries) {
		return fmt.Errorf("playlist index %d out of range", idx)
	}
	p.Pos = idx
	return nil
}

func (p *Player) Stop() error {
	p.Stopped++
	p.Pause = false
	p.Time = nil
	return nil
}

func (p *Player) LoadFile(path string, mode player.LoadMode) error {
	if path == "" {
		return errors.New("empty path")
	}
	p.Loads = append(p.Loads, LoadCall{Path: path, Mode: mode})
	if mode == player.LoadReplace {
		p.Entries = p.Entries[:0]
	}
	p.Entries = append(p.Entries, player.PlaylistEntry{Filename: path})
	if p.Pos < 0 {
		p.Pos = 0
	}
	return nil
}

func (p *Player) Volume() float64 { return p.Vol }

func (p *Player) SetVolume(v float64) error {
	p.Vol = v
	return nil
}

func (p *Player) LoopFile() player.LoopMode { return p.FileLoop }

func (p *Player) SetLoopFile(m player.LoopMode) error {
	p.FileLoop = m
	return nil
}

func (p *Player) LoopPlaylist() player.LoopMode { return p.ListLoop }

func (p *Player) SetLoopPlaylist(m player.LoopMode) error {
	p.ListLoop = m
	return nil
}

func (p *Player) Shuffle() bool { return p.ShuffleFlag }

func (p *Player) SetShuffle(s bool) error {
	p.ShuffleFlag = s
	return nil
}
