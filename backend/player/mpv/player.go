package mpv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cineplayer/cine/backend/player"
	"github.com/supersonic-app/go-mpv"
)

var (
	_ player.Handle           = (*Player)(nil)
	_ player.VolumeController = (*Player)(nil)
	_ player.Looper           = (*Player)(nil)
	_ player.Shuffler         = (*Player)(nil)
)

// reply userdata identifying the pause property observer
const pauseObserverID = 1

// Options applied to the mpv instance before it is initialized.
type Options struct {
	// Value of mpv's hwdec option ("no", "auto-safe", ...). Empty leaves mpv's default.
	HardwareDecoding string

	// Keep the last frame on screen when the playlist ends instead of going idle.
	KeepOpen bool

	Volume       float64
	LoopFile     player.LoopMode
	LoopPlaylist player.LoopMode
}

// Player encapsulates the mpv instance and exposes it as a player.Handle.
type Player struct {
	player.BaseCallbackImpl

	mpv         *mpv.Mpv
	initialized bool
	clientName  string
	shuffle     bool

	bgCancel context.CancelFunc
}

// Returns a new player.
// Must call Init on the player before it is ready for playback.
func New() *Player {
	return NewWithClientName("")
}

// Same as New, but sets the application name that mpv
// reports to the system audio API.
func NewWithClientName(c string) *Player {
	return &Player{clientName: c}
}

// Initializes the Player and makes it ready for playback.
// Most Player functions will return player.ErrUninitialized if called before Init.
func (p *Player) Init(opts Options) error {
	if !p.initialized {
		m := mpv.Create()

		m.SetOptionString("idle", "yes")
		m.SetOptionString("force-window", "yes")
		m.SetOptionString("terminal", "no")
		m.SetOptionString("input-default-bindings", "yes")
		m.SetOptionString("input-vo-keyboard", "yes")
		m.SetOptionString("osc", "yes")
		if opts.KeepOpen {
			m.SetOptionString("keep-open", "yes")
		}
		if opts.HardwareDecoding != "" {
			m.SetOptionString("hwdec", opts.HardwareDecoding)
		}
		if p.clientName != "" {
			m.SetOptionString("audio-client-name", p.clientName)
		}
		m.SetOption("volume", mpv.FORMAT_DOUBLE, clampVolume(opts.Volume))
		if opts.LoopFile != "" {
			m.SetOptionString("loop-file", string(opts.LoopFile))
		}
		if opts.LoopPlaylist != "" {
			m.SetOptionString("loop-playlist", string(opts.LoopPlaylist))
		}

		if err := m.Initialize(); err != nil {
			return fmt.Errorf("error initializing mpv: %s", err.Error())
		}
		if err := m.ObserveProperty(pauseObserverID, "pause", mpv.FORMAT_FLAG); err != nil {
			return fmt.Errorf("error observing pause: %s", err.Error())
		}
		p.mpv = m
	}
	ctx, cancel := context.WithCancel(context.Background())
	go p.eventHandler(ctx)
	p.bgCancel = cancel
	p.initialized = true
	return nil
}

func (p *Player) Paused() bool {
	if !p.initialized {
		return false
	}
	v, err := p.mpv.GetProperty("pause", mpv.FORMAT_FLAG)
	if err != nil || v == nil {
		return false
	}
	return v.(bool)
}

func (p *Player) SetPaused(paused bool) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	return p.mpv.SetProperty("pause", mpv.FORMAT_FLAG, paused)
}

func (p *Player) TimePos() (float64, bool) {
	return p.getDouble("time-pos")
}

func (p *Player) SetTimePos(secs float64) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	if secs < 0 {
		secs = 0
	}
	return p.mpv.SetProperty("time-pos", mpv.FORMAT_DOUBLE, secs)
}

func (p *Player) Duration() (float64, bool) {
	return p.getDouble("duration")
}

func (p *Player) MediaTitle() (string, bool) {
	if !p.initialized {
		return "", false
	}
	t := p.mpv.GetPropertyString("media-title")
	return t, t != ""
}

func (p *Player) Playlist() []player.PlaylistEntry {
	if !p.initialized {
		return nil
	}
	n, err := p.mpv.GetProperty("playlist", mpv.FORMAT_NODE)
	if err != nil || n == nil {
		return nil
	}
	nodeArr, ok := n.(*mpv.Node).Data.([]*mpv.Node)
	if !ok {
		return nil
	}

	entries := make([]player.PlaylistEntry, 0, len(nodeArr))
	for _, node := range nodeArr {
		item, ok := node.Data.(map[string]*mpv.Node)
		if !ok {
			continue
		}
		var e player.PlaylistEntry
		if f, ok := item["filename"]; ok {
			e.Filename, _ = f.Data.(string)
		}
		if t, ok := item["title"]; ok {
			e.Title, _ = t.Data.(string)
		}
		if c, ok := item["current"]; ok {
			e.Current, _ = c.Data.(bool)
		}
		entries = append(entries, e)
	}
	return entries
}

func (p *Player) PlaylistPos() int {
	pos, err := p.getInt64Property("playlist-pos")
	if err != nil {
		return -1
	}
	return int(pos)
}

func (p *Player) SetPlaylistPos(idx int) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	return p.mpv.Command([]string{"playlist-play-index", strconv.Itoa(idx)})
}

// PlaylistCount returns the number of entries in the playlist.
func (p *Player) PlaylistCount() int {
	c, err := p.getInt64Property("playlist-count")
	if err != nil {
		return 0
	}
	return int(c)
}

// Stops playback and clears the playlist.
func (p *Player) Stop() error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	if err := p.mpv.Command([]string{"stop"}); err != nil {
		return err
	}
	// if player was paused, stop command actually doesn't clear pause state
	return p.SetPaused(false)
}

func (p *Player) LoadFile(path string, mode player.LoadMode) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	if mode == "" {
		mode = player.LoadAppendPlay
	}
	return p.mpv.Command([]string{"loadfile", path, string(mode)})
}

// Plays the next entry of the playlist, if any.
func (p *Player) PlaylistNext() error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	return p.mpv.Command([]string{"playlist-next"})
}

// Plays the previous entry of the playlist, if any.
func (p *Player) PlaylistPrev() error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	return p.mpv.Command([]string{"playlist-prev"})
}

// Gets the current volume of the player (0-100).
func (p *Player) Volume() float64 {
	v, _ := p.getDouble("volume")
	return v
}

// Sets the volume of the player (0-100).
func (p *Player) SetVolume(vol float64) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	return p.mpv.SetProperty("volume", mpv.FORMAT_DOUBLE, clampVolume(vol))
}

func (p *Player) LoopFile() player.LoopMode {
	return p.getLoopMode("loop-file")
}

func (p *Player) SetLoopFile(m player.LoopMode) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	return p.mpv.SetPropertyString("loop-file", string(m))
}

func (p *Player) LoopPlaylist() player.LoopMode {
	return p.getLoopMode("loop-playlist")
}

func (p *Player) SetLoopPlaylist(m player.LoopMode) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	return p.mpv.SetPropertyString("loop-playlist", string(m))
}

// Shuffle reports the shuffle flag last set with SetShuffle.
func (p *Player) Shuffle() bool {
	return p.shuffle
}

// SetShuffle records the shuffle flag. It does not reorder the playlist;
// see ShufflePlaylist.
func (p *Player) SetShuffle(s bool) error {
	p.shuffle = s
	return nil
}

// ShufflePlaylist shuffles the playlist if shuffle is true and restores
// the original order otherwise.
func (p *Player) ShufflePlaylist(shuffle bool) error {
	if !p.initialized {
		return player.ErrUninitialized
	}
	if shuffle {
		return p.mpv.Command([]string{"playlist-shuffle"})
	}
	return p.mpv.Command([]string{"playlist-unshuffle"})
}

// Destroy the player.
func (p *Player) Destroy() {
	if p.bgCancel != nil {
		p.bgCancel()
	}
	if p.initialized {
		p.mpv.Command([]string{"stop"})
		p.mpv.TerminateDestroy()
		p.initialized = false
	}
}

func (p *Player) getDouble(propName string) (float64, bool) {
	if !p.initialized {
		return 0, false
	}
	v, err := p.mpv.GetProperty(propName, mpv.FORMAT_DOUBLE)
	if err != nil || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (p *Player) getInt64Property(propName string) (int64, error) {
	if !p.initialized {
		return -1, player.ErrUninitialized
	}
	v, err := p.mpv.GetProperty(propName, mpv.FORMAT_INT64)
	if err != nil {
		return -1, err
	}
	if v != nil {
		return v.(int64), nil
	}
	return -1, errors.New("mpv did not report " + propName)
}

func (p *Player) getLoopMode(propName string) player.LoopMode {
	if !p.initialized {
		return player.LoopNo
	}
	return parseLoopMode(p.mpv.GetPropertyString(propName))
}

// mpv reports loop options as "inf", "no", or a count; older versions
// also use "yes" as a synonym for "inf".
func parseLoopMode(s string) player.LoopMode {
	switch s {
	case "inf", "yes":
		return player.LoopInf
	case "", "no", "0":
		return player.LoopNo
	}
	if n, err := strconv.Atoi(s); err == nil {
		return player.LoopCount(n)
	}
	return player.LoopNo
}

func clampVolume(vol float64) float64 {
	if vol > 100 {
		return 100
	} else if vol < 0 {
		return 0
	}
	return vol
}

func (p *Player) eventHandler(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			e := p.mpv.WaitEvent(1 /*timeout seconds*/)
			switch e.Event_Id {
			case mpv.EVENT_FILE_LOADED:
				p.InvokeOnFileLoaded()
			case mpv.EVENT_IDLE:
				p.InvokeOnIdle()
			case mpv.EVENT_PROPERTY_CHANGE:
				if e.Reply_Userdata == pauseObserverID {
					p.InvokeOnPauseChanged()
				}
			case mpv.EVENT_SHUTDOWN:
				p.InvokeOnShutdown()
				return
			}
		}
	}
}
