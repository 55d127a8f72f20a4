package backend

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"fyne.io/fyne/v2/lang"
	"github.com/cineplayer/cine/backend/player"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/quarckster/go-mpris-server/pkg/types"
)

const (
	mprisPath        dbus.ObjectPath = "/org/mpris/MediaPlayer2"
	mprisBusPrefix                   = "org.mpris.MediaPlayer2."
	mprisRootIface                   = "org.mpris.MediaPlayer2"
	mprisPlayerIface                 = "org.mpris.MediaPlayer2.Player"
	propertiesIface                  = "org.freedesktop.DBus.Properties"
	introspectIface                  = "org.freedesktop.DBus.Introspectable"

	// there is no real track list, so the single track has a fixed id
	singleTrackID dbus.ObjectPath = "/org/mpris/MediaPlayer2/Track/0"

	mprisSyncInterval = 500 * time.Millisecond
	volumeDeadband    = 0.01
)

// PlaybackStatus, Metadata and CanSeek are left out of the schema on purpose:
// declaring them makes some shells poll them and playback stutters.
// They are announced only from the window-activation burst.
const mprisSchemaXML = `<!DOCTYPE node PUBLIC
'-//freedesktop//DTD D-BUS Object Introspection 1.0//EN'
'http://www.freedesktop.org/standards/dbus/1.0/introspect.dtd'>
<node>
    <interface name='org.mpris.MediaPlayer2'>
        <method name='Raise'/>
        <method name='Quit'/>
        <property name='Identity' type='s' access='read'/>
        <property name='DesktopEntry' type='s' access='read'/>
        <property name='CanQuit' type='b' access='read'/>
        <property name='CanRaise' type='b' access='read'/>
        <property name='HasTrackList' type='b' access='read'/>
        <property name='SupportedUriSchemes' type='as' access='read'/>
        <property name='SupportedMimeTypes' type='as' access='read'/>
    </interface>
    <interface name='org.mpris.MediaPlayer2.Player'>
        <method name='Next'/>
        <method name='Previous'/>
        <method name='Pause'/>
        <method name='PlayPause'/>
        <method name='Stop'/>
        <method name='Play'/>
        <method name='Seek'>
            <arg direction='in' name='Offset' type='x'/>
        </method>
        <method name='SetPosition'>
            <arg direction='in' name='TrackId' type='o'/>
            <arg direction='in' name='Position' type='x'/>
        </method>
        <signal name='Seeked'>
            <arg name='Position' type='x'/>
        </signal>
        <property name='LoopStatus' type='s' access='readwrite'/>
        <property name='Volume' type='d' access='readwrite'/>
        <property name='Position' type='x' access='read'/>
        <property name='CanGoNext' type='b' access='read'/>
        <property name='CanGoPrevious' type='b' access='read'/>
        <property name='CanPlay' type='b' access='read'/>
        <property name='CanPause' type='b' access='read'/>
        <property name='CanControl' type='b' access='read'/>
        <property name='Shuffle' type='b' access='readwrite'/>
    </interface>
</node>`

var (
	rootProps   = []string{"Identity", "DesktopEntry", "CanQuit", "CanRaise", "HasTrackList", "SupportedUriSchemes", "SupportedMimeTypes"}
	playerProps = []string{"PlaybackStatus", "LoopStatus", "Volume", "Position", "Metadata", "Shuffle",
		"CanGoNext", "CanGoPrevious", "CanPlay", "CanPause", "CanSeek", "CanControl"}

	errNoPlayer = dbus.NewError("org.freedesktop.DBus.Error.Failed", []interface{}{"no active player"})
)

// busConn is the part of *dbus.Conn used by MPRISHandler.
type busConn interface {
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// MPRISHandler publishes the active window's player on the session bus
// as an MPRIS media player, and applies MPRIS commands to it.
//
// The player is always resolved from the application's active window,
// never cached. All player access happens on the UI loop.
type MPRISHandler struct {
	// Placeholder title reported when the player has no media title.
	UnknownTitle string

	identity     string
	desktopEntry string
	busName      string

	app    Application
	loop   Loop
	schema *introspect.Node
	dial   func() (busConn, error)

	// nil until the bus connection and object registration succeed
	conn busConn
	last lastKnownState
}

// NewMPRISHandler creates a handler publishing under the bus name
// org.mpris.MediaPlayer2.<appID>. Start must be called to connect.
func NewMPRISHandler(identity, appID string, app Application, loop Loop) (*MPRISHandler, error) {
	schema, err := parseSchema(mprisSchemaXML)
	if err != nil {
		return nil, err
	}
	return &MPRISHandler{
		UnknownTitle: lang.L("Unknown title"),
		identity:     identity,
		desktopEntry: appID,
		busName:      mprisBusPrefix + appID,
		app:          app,
		loop:         loop,
		schema:       schema,
		dial: func() (busConn, error) {
			return dbus.ConnectSessionBus()
		},
	}, nil
}

// Start connects to the session bus in the background and starts
// mirroring player state. Mirroring stops when ctx is done.
func (m *MPRISHandler) Start(ctx context.Context) {
	go func() {
		conn, err := m.dial()
		m.loop.Do(func() { m.onBusAcquired(conn, err) })
	}()

	m.app.OnActiveWindowChanged(m.updateProps)

	go func() {
		t := time.NewTicker(mprisSyncInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.loop.Do(m.syncPlayerState)
			}
		}
	}()
}

// Connected reports whether the handler is published on the bus.
func (m *MPRISHandler) Connected() bool {
	return m.conn != nil
}

func (m *MPRISHandler) onBusAcquired(conn busConn, err error) {
	if err != nil {
		log.Printf("MPRIS: bus error: %v", err)
		return
	}
	if err := m.register(conn); err != nil {
		log.Printf("MPRIS: bus error: %v", err)
		return
	}
	m.conn = conn
}

func (m *MPRISHandler) register(conn busConn) error {
	reply, err := conn.RequestName(m.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		log.Printf("MPRIS: failed to request name %s: %v", m.busName, err)
	} else if reply != dbus.RequestNameReplyPrimaryOwner {
		log.Printf("MPRIS: name %s is owned by another process", m.busName)
	}

	node := *m.schema
	node.Interfaces = append([]introspect.Interface{introspect.IntrospectData, prop.IntrospectData}, node.Interfaces...)

	exports := []struct {
		v     interface{}
		iface string
	}{
		{mprisRoot{m}, mprisRootIface},
		{mprisPlayer{m}, mprisPlayerIface},
		{mprisProperties{m}, propertiesIface},
		{introspect.NewIntrospectable(&node), introspectIface},
	}
	for _, e := range exports {
		if err := conn.Export(e.v, mprisPath, e.iface); err != nil {
			return fmt.Errorf("failed to export %s: %w", e.iface, err)
		}
	}
	return nil
}

func (m *MPRISHandler) activePlayer() (player.Handle, Window) {
	w := m.app.ActiveWindow()
	if w == nil {
		return nil, nil
	}
	return w.Player(), w
}

// emitPropertiesChanged is a no-op until the handler is connected.
func (m *MPRISHandler) emitPropertiesChanged(iface string, changed map[string]dbus.Variant) {
	if m.conn == nil {
		return
	}
	if err := m.conn.Emit(mprisPath, propertiesIface+".PropertiesChanged", iface, changed, []string{}); err != nil {
		log.Printf("MPRIS: failed to emit PropertiesChanged: %v", err)
	}
}

func (m *MPRISHandler) emitSeeked(p player.Handle) {
	if m.conn == nil || p == nil {
		return
	}
	pos, _ := p.TimePos()
	if err := m.conn.Emit(mprisPath, mprisPlayerIface+".Seeked", int64(secondsToMicroseconds(pos))); err != nil {
		log.Printf("MPRIS: failed to emit Seeked: %v", err)
	}
}

// updateProps announces the identity and the full player state when the
// active window changes, regardless of what was announced before.
func (m *MPRISHandler) updateProps() {
	if m.conn == nil {
		return
	}
	m.emitPropertiesChanged(mprisRootIface, map[string]dbus.Variant{
		"Identity":     dbus.MakeVariant(m.identity),
		"DesktopEntry": dbus.MakeVariant(m.desktopEntry),
	})

	p, _ := m.activePlayer()
	if p == nil {
		return
	}
	status := playbackStatus(p)
	title := m.title(p)
	loop := loopStatus(p)
	m.emitPropertiesChanged(mprisPlayerIface, map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(string(status)),
		"LoopStatus":     dbus.MakeVariant(string(loop)),
		"Metadata":       dbus.MakeVariant(m.metadata(p, title)),
		"CanPlay":        dbus.MakeVariant(true),
		"CanPause":       dbus.MakeVariant(true),
		"CanSeek":        dbus.MakeVariant(true),
		"CanControl":     dbus.MakeVariant(true),
	})
	m.last.status.force(status)
	m.last.title.force(title)
	m.last.loop.force(loop)
}

// syncPlayerState runs every mprisSyncInterval and announces the player
// properties that changed since they were last announced.
func (m *MPRISHandler) syncPlayerState() {
	if m.conn == nil {
		return
	}
	p, w := m.activePlayer()
	if p == nil {
		return
	}

	// Tracked but never announced from here, see mprisSchemaXML.
	m.last.status.update(playbackStatus(p))
	m.last.title.update(m.title(p))

	changed := make(map[string]dbus.Variant)
	if vol := player.VolumeOf(p) / 100; m.last.volume.updateOutside(vol, volumeDeadband) {
		changed["Volume"] = dbus.MakeVariant(vol)
	}
	if loop := loopStatus(p); m.last.loop.update(loop) {
		changed["LoopStatus"] = dbus.MakeVariant(string(loop))
	}
	if canNext := w.CanGoNext(); m.last.canNext.update(canNext) {
		changed["CanGoNext"] = dbus.MakeVariant(canNext)
	}
	if canPrev := w.CanGoPrevious(); m.last.canPrev.update(canPrev) {
		changed["CanGoPrevious"] = dbus.MakeVariant(canPrev)
	}
	if shuffle := player.ShuffleOf(p); m.last.shuffle.update(shuffle) {
		changed["Shuffle"] = dbus.MakeVariant(shuffle)
	}
	if len(changed) > 0 {
		m.emitPropertiesChanged(mprisPlayerIface, changed)
	}
}

// enqueue runs f on the loop against the active window's player.
// It does nothing if there is no player at that time.
func (m *MPRISHandler) enqueue(f func(p player.Handle, w Window)) {
	m.loop.Do(func() {
		p, w := m.activePlayer()
		if p == nil {
			return
		}
		f(p, w)
	})
}

func (m *MPRISHandler) title(p player.Handle) string {
	if t, ok := p.MediaTitle(); ok && t != "" {
		return t
	}
	return m.UnknownTitle
}

func (m *MPRISHandler) metadata(p player.Handle, title string) map[string]dbus.Variant {
	var dur float64
	if p != nil {
		dur, _ = p.Duration()
	}
	return map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(singleTrackID),
		"xesam:title":   dbus.MakeVariant(title),
		"mpris:length":  dbus.MakeVariant(int64(secondsToMicroseconds(dur))),
	}
}

// getProperty computes the current value of a property.
// A nil player yields defaults.
func (m *MPRISHandler) getProperty(iface, name string) (dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisRootIface:
		switch name {
		case "Identity":
			return dbus.MakeVariant(m.identity), nil
		case "DesktopEntry":
			return dbus.MakeVariant(m.desktopEntry), nil
		case "CanQuit", "CanRaise":
			return dbus.MakeVariant(true), nil
		case "HasTrackList":
			return dbus.MakeVariant(false), nil
		case "SupportedUriSchemes", "SupportedMimeTypes":
			return dbus.MakeVariant([]string{}), nil
		}
		return dbus.Variant{}, prop.ErrPropNotFound
	case mprisPlayerIface:
		p, w := m.activePlayer()
		switch name {
		case "CanGoNext":
			return dbus.MakeVariant(w != nil && w.CanGoNext()), nil
		case "CanGoPrevious":
			return dbus.MakeVariant(w != nil && w.CanGoPrevious()), nil
		case "CanPlay", "CanPause", "CanSeek", "CanControl":
			return dbus.MakeVariant(true), nil
		case "Volume":
			var vol float64
			if p != nil {
				vol = player.VolumeOf(p) / 100
			}
			return dbus.MakeVariant(vol), nil
		case "PlaybackStatus":
			status := types.PlaybackStatusPlaying
			if p != nil {
				status = playbackStatus(p)
			}
			return dbus.MakeVariant(string(status)), nil
		case "LoopStatus":
			loop := types.LoopStatusNone
			if p != nil {
				loop = loopStatus(p)
			}
			return dbus.MakeVariant(string(loop)), nil
		case "Position":
			var pos float64
			if p != nil {
				pos, _ = p.TimePos()
			}
			return dbus.MakeVariant(int64(secondsToMicroseconds(pos))), nil
		case "Metadata":
			title := m.UnknownTitle
			if p != nil {
				title = m.title(p)
			}
			return dbus.MakeVariant(m.metadata(p, title)), nil
		case "Shuffle":
			return dbus.MakeVariant(p != nil && player.ShuffleOf(p)), nil
		}
		return dbus.Variant{}, prop.ErrPropNotFound
	}
	return dbus.Variant{}, prop.ErrIfaceNotFound
}

// setProperty applies a write to one of the schema's read-write properties
// and echoes the new value in a PropertiesChanged signal.
func (m *MPRISHandler) setProperty(iface, name string, value dbus.Variant) *dbus.Error {
	if err := m.checkWritable(iface, name); err != nil {
		return err
	}
	p, w := m.activePlayer()
	if p == nil {
		return errNoPlayer
	}

	switch name {
	case "Volume":
		vol, ok := value.Value().(float64)
		if !ok {
			return prop.ErrInvalidArg
		}
		if err := player.SetVolume(p, vol*100); err != nil {
			return dbus.MakeFailedError(err)
		}
		m.last.volume.force(vol)
		m.emitPropertiesChanged(mprisPlayerIface, map[string]dbus.Variant{"Volume": dbus.MakeVariant(vol)})
	case "LoopStatus":
		s, ok := value.Value().(string)
		if !ok {
			return prop.ErrInvalidArg
		}
		loop := types.LoopStatus(s)
		file, list, err := player.LoopModesFor(loop)
		if err != nil {
			return prop.ErrInvalidArg
		}
		if err := player.SetLoopModes(p, file, list); err != nil {
			return dbus.MakeFailedError(err)
		}
		m.last.loop.force(loop)
		m.emitPropertiesChanged(mprisPlayerIface, map[string]dbus.Variant{"LoopStatus": dbus.MakeVariant(s)})
	case "Shuffle":
		shuffle, ok := value.Value().(bool)
		if !ok {
			return prop.ErrInvalidArg
		}
		if err := player.SetShuffle(p, shuffle); err != nil {
			return dbus.MakeFailedError(err)
		}
		w.SetShuffleToggle(shuffle)
		m.last.shuffle.force(shuffle)
		m.emitPropertiesChanged(mprisPlayerIface, map[string]dbus.Variant{"Shuffle": dbus.MakeVariant(shuffle)})
	default:
		return prop.ErrReadOnly
	}
	return nil
}

func (m *MPRISHandler) checkWritable(iface, name string) *dbus.Error {
	for _, i := range m.schema.Interfaces {
		if i.Name != iface {
			continue
		}
		for _, p := range i.Properties {
			if p.Name == name {
				if p.Access != "readwrite" && p.Access != "write" {
					return prop.ErrReadOnly
				}
				return nil
			}
		}
		return prop.ErrPropNotFound
	}
	return prop.ErrIfaceNotFound
}

func parseSchema(doc string) (*introspect.Node, error) {
	var node introspect.Node
	if err := xml.Unmarshal([]byte(doc), &node); err != nil {
		return nil, fmt.Errorf("invalid MPRIS schema: %w", err)
	}
	if len(node.Interfaces) == 0 {
		return nil, errors.New("invalid MPRIS schema: no interfaces")
	}
	return &node, nil
}

func playbackStatus(p player.Handle) types.PlaybackStatus {
	if p.Paused() {
		return types.PlaybackStatusPaused
	}
	return types.PlaybackStatusPlaying
}

func loopStatus(p player.Handle) types.LoopStatus {
	return player.LoopStatusOf(player.LoopModesOf(p))
}

func microsecondsToSeconds(m types.Microseconds) float64 {
	return float64(m) / 1_000_000
}

func secondsToMicroseconds(s float64) types.Microseconds {
	return types.Microseconds(s * 1_000_000)
}

// org.mpris.MediaPlayer2
type mprisRoot struct{ m *MPRISHandler }

func (r mprisRoot) Raise() *dbus.Error {
	r.m.enqueue(func(_ player.Handle, w Window) { w.Present() })
	return nil
}

func (r mprisRoot) Quit() *dbus.Error {
	r.m.enqueue(func(player.Handle, Window) { r.m.app.Quit() })
	return nil
}

// org.mpris.MediaPlayer2.Player
//
// Every method replies immediately; the effect runs later on the UI loop.
type mprisPlayer struct{ m *MPRISHandler }

func (mp mprisPlayer) Next() *dbus.Error {
	mp.m.enqueue(func(_ player.Handle, w Window) { w.Next() })
	return nil
}

func (mp mprisPlayer) Previous() *dbus.Error {
	mp.m.enqueue(func(_ player.Handle, w Window) { w.Previous() })
	return nil
}

func (mp mprisPlayer) Pause() *dbus.Error {
	mp.m.enqueue(func(p player.Handle, _ Window) { logErr("Pause", p.SetPaused(true)) })
	return nil
}

func (mp mprisPlayer) Play() *dbus.Error {
	mp.m.enqueue(func(p player.Handle, _ Window) { logErr("Play", p.SetPaused(false)) })
	return nil
}

func (mp mprisPlayer) PlayPause() *dbus.Error {
	mp.m.enqueue(func(p player.Handle, _ Window) { logErr("PlayPause", p.SetPaused(!p.Paused())) })
	return nil
}

func (mp mprisPlayer) Stop() *dbus.Error {
	mp.m.enqueue(func(p player.Handle, _ Window) { logErr("Stop", p.Stop()) })
	return nil
}

// Seek is relative to the current position.
func (mp mprisPlayer) Seek(offset int64) *dbus.Error {
	mp.m.enqueue(func(p player.Handle, _ Window) {
		cur, _ := p.TimePos()
		logErr("Seek", p.SetTimePos(cur+microsecondsToSeconds(types.Microseconds(offset))))
		mp.m.emitSeeked(p)
	})
	return nil
}

// SetPosition ignores trackID; there is only ever one track.
func (mp mprisPlayer) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	mp.m.enqueue(func(p player.Handle, _ Window) {
		logErr("SetPosition", p.SetTimePos(microsecondsToSeconds(types.Microseconds(position))))
		mp.m.emitSeeked(p)
	})
	return nil
}

// org.freedesktop.DBus.Properties
type mprisProperties struct{ m *MPRISHandler }

func (mp mprisProperties) Get(iface, name string) (dbus.Variant, *dbus.Error) {
	var v dbus.Variant
	var err *dbus.Error
	mp.m.loop.DoAndWait(func() { v, err = mp.m.getProperty(iface, name) })
	return v, err
}

func (mp mprisProperties) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	var names []string
	switch iface {
	case mprisRootIface:
		names = rootProps
	case mprisPlayerIface:
		names = playerProps
	default:
		return nil, prop.ErrIfaceNotFound
	}
	all := make(map[string]dbus.Variant, len(names))
	var err *dbus.Error
	mp.m.loop.DoAndWait(func() {
		for _, n := range names {
			var v dbus.Variant
			if v, err = mp.m.getProperty(iface, n); err != nil {
				return
			}
			all[n] = v
		}
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

func (mp mprisProperties) Set(iface, name string, value dbus.Variant) *dbus.Error {
	var err *dbus.Error
	mp.m.loop.DoAndWait(func() { err = mp.m.setProperty(iface, name, value) })
	return err
}

func logErr(what string, err error) {
	if err != nil {
		log.Printf("MPRIS: %s failed: %v", what, err)
	}
}

// cached is the last announced value of one property.
// It is unset until the first observation.
type cached[T comparable] struct {
	val T
	set bool
}

// update stores v and reports whether it differs from the stored value.
func (c *cached[T]) update(v T) bool {
	if c.set && c.val == v {
		return false
	}
	c.force(v)
	return true
}

func (c *cached[T]) force(v T) {
	c.val = v
	c.set = true
}

type deadbanded struct {
	cached[float64]
}

// updateOutside stores v if it moved by more than band.
func (d *deadbanded) updateOutside(v, band float64) bool {
	if d.set && math.Abs(v-d.val) <= band {
		return false
	}
	d.force(v)
	return true
}

// lastKnownState suppresses redundant PropertiesChanged signals.
// It is never authoritative and never reset.
type lastKnownState struct {
	status  cached[types.PlaybackStatus]
	title   cached[string]
	volume  deadbanded
	loop    cached[types.LoopStatus]
	canNext cached[bool]
	canPrev cached[bool]
	shuffle cached[bool]
}
