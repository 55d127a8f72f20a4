package backend

import (
	"errors"
	"testing"

	"github.com/cineplayer/cine/backend/player"
	"github.com/cineplayer/cine/backend/player/playertest"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

type emitted struct {
	name   string
	values []interface{}
}

type fakeBus struct {
	exported  map[string]interface{}
	emits     []emitted
	exportErr error
	nameReply dbus.RequestNameReply
}

func newFakeBus() *fakeBus {
	return &fakeBus{exported: make(map[string]interface{}), nameReply: dbus.RequestNameReplyPrimaryOwner}
}

func (b *fakeBus) RequestName(string, dbus.RequestNameFlags) (dbus.RequestNameReply, error) {
	return b.nameReply, nil
}

func (b *fakeBus) Export(v interface{}, _ dbus.ObjectPath, iface string) error {
	if b.exportErr != nil {
		return b.exportErr
	}
	b.exported[iface] = v
	return nil
}

func (b *fakeBus) Emit(_ dbus.ObjectPath, name string, values ...interface{}) error {
	b.emits = append(b.emits, emitted{name: name, values: values})
	return nil
}

// propertiesChanged returns the changed-property maps emitted for iface.
func (b *fakeBus) propertiesChanged(iface string) []map[string]dbus.Variant {
	var out []map[string]dbus.Variant
	for _, e := range b.emits {
		if e.name != propertiesIface+".PropertiesChanged" || e.values[0] != iface {
			continue
		}
		out = append(out, e.values[1].(map[string]dbus.Variant))
	}
	return out
}

func (b *fakeBus) seeked() []int64 {
	var out []int64
	for _, e := range b.emits {
		if e.name == mprisPlayerIface+".Seeked" {
			out = append(out, e.values[0].(int64))
		}
	}
	return out
}

func (b *fakeBus) reset() { b.emits = nil }

type syncLoop struct {
	queued []func()
}

func (l *syncLoop) Do(f func())        { l.queued = append(l.queued, f) }
func (l *syncLoop) DoAndWait(f func()) { f() }

// drain runs queued callbacks, including ones queued while draining.
func (l *syncLoop) drain() {
	for len(l.queued) > 0 {
		f := l.queued[0]
		l.queued = l.queued[1:]
		f()
	}
}

type fakeWindow struct {
	p                 *playertest.Player
	canNext, canPrev  bool
	next, prev        int
	presented         int
	shuffleToggle     bool
	shuffleToggleSets int
}

func (w *fakeWindow) Player() player.Handle {
	if w.p == nil {
		return nil
	}
	return w.p
}
func (w *fakeWindow) CanGoNext() bool     { return w.canNext }
func (w *fakeWindow) CanGoPrevious() bool { return w.canPrev }
func (w *fakeWindow) Next()               { w.next++ }
func (w *fakeWindow) Previous()           { w.prev++ }
func (w *fakeWindow) Present()            { w.presented++ }
func (w *fakeWindow) SetShuffleToggle(on bool) {
	w.shuffleToggle = on
	w.shuffleToggleSets++
}

type fakeApp struct {
	win       *fakeWindow
	quit      int
	onChanged []func()
}

func (a *fakeApp) ActiveWindow() Window {
	if a.win == nil {
		return nil
	}
	return a.win
}
func (a *fakeApp) OnActiveWindowChanged(f func()) { a.onChanged = append(a.onChanged, f) }
func (a *fakeApp) Quit()                          { a.quit++ }

func (a *fakeApp) activate(w *fakeWindow) {
	a.win = w
	for _, f := range a.onChanged {
		f()
	}
}

func newTestHandler(t *testing.T) (*MPRISHandler, *fakeApp, *fakeWindow, *fakeBus, *syncLoop) {
	t.Helper()
	loop := &syncLoop{}
	win := &fakeWindow{p: playertest.New()}
	app := &fakeApp{win: win}
	m, err := NewMPRISHandler("Cine", "io.github.cineplayer.Cine", app, loop)
	if err != nil {
		t.Fatalf("NewMPRISHandler: %v", err)
	}
	m.UnknownTitle = "Unknown title"
	bus := newFakeBus()
	m.onBusAcquired(bus, nil)
	if !m.Connected() {
		t.Fatal("handler did not connect to fake bus")
	}
	app.OnActiveWindowChanged(m.updateProps)
	return m, app, win, bus, loop
}

func floatPtr(f float64) *float64 { return &f }

func TestRegisterExportsAllInterfaces(t *testing.T) {
	_, _, _, bus, _ := newTestHandler(t)
	for _, iface := range []string{mprisRootIface, mprisPlayerIface, propertiesIface, introspectIface} {
		if _, ok := bus.exported[iface]; !ok {
			t.Errorf("interface %s not exported", iface)
		}
	}
}

func TestRegistrationFailureLeavesHandlerDisabled(t *testing.T) {
	app := &fakeApp{win: &fakeWindow{p: playertest.New()}}
	m, err := NewMPRISHandler("Cine", "io.github.cineplayer.Cine", app, &syncLoop{})
	if err != nil {
		t.Fatal(err)
	}

	m.onBusAcquired(nil, errors.New("no session bus"))
	if m.Connected() {
		t.Error("handler connected despite bus error")
	}

	bus := newFakeBus()
	bus.exportErr = errors.New("object already exported")
	m.onBusAcquired(bus, nil)
	if m.Connected() {
		t.Error("handler connected despite export error")
	}

	// emissions are silently skipped
	m.updateProps()
	m.syncPlayerState()
	if len(bus.emits) != 0 {
		t.Errorf("disabled handler emitted %d signals", len(bus.emits))
	}
}

func TestNameNotOwnedIsNotFatal(t *testing.T) {
	app := &fakeApp{}
	m, _ := NewMPRISHandler("Cine", "io.github.cineplayer.Cine", app, &syncLoop{})
	bus := newFakeBus()
	bus.nameReply = dbus.RequestNameReplyExists
	m.onBusAcquired(bus, nil)
	if !m.Connected() {
		t.Error("handler should stay usable when the bus name is taken")
	}
}

func TestSyncEmitsOnlyChangedProperties(t *testing.T) {
	m, _, win, bus, _ := newTestHandler(t)
	p := win.p
	p.Vol = 50

	m.syncPlayerState()
	first := bus.propertiesChanged(mprisPlayerIface)
	if len(first) != 1 {
		t.Fatalf("first sync emitted %d signals, want 1", len(first))
	}
	for _, name := range []string{"Volume", "LoopStatus", "CanGoNext", "CanGoPrevious", "Shuffle"} {
		if _, ok := first[0][name]; !ok {
			t.Errorf("first sync did not announce %s", name)
		}
	}

	bus.reset()
	m.syncPlayerState()
	if n := len(bus.emits); n != 0 {
		t.Errorf("sync without changes emitted %d signals", n)
	}

	p.ShuffleFlag = true
	win.canNext = true
	m.syncPlayerState()
	got := bus.propertiesChanged(mprisPlayerIface)
	if len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("got %v, want one signal with Shuffle and CanGoNext", got)
	}
	if v := got[0]["Shuffle"].Value(); v != true {
		t.Errorf("Shuffle = %v, want true", v)
	}
	if v := got[0]["CanGoNext"].Value(); v != true {
		t.Errorf("CanGoNext = %v, want true", v)
	}
}

func TestSyncVolumeDeadband(t *testing.T) {
	m, _, win, bus, _ := newTestHandler(t)
	win.p.Vol = 50
	m.syncPlayerState()
	bus.reset()

	win.p.Vol = 50.5 // 0.005 on the MPRIS scale
	m.syncPlayerState()
	if n := len(bus.emits); n != 0 {
		t.Errorf("volume jitter emitted %d signals", n)
	}

	win.p.Vol = 52
	m.syncPlayerState()
	got := bus.propertiesChanged(mprisPlayerIface)
	if len(got) != 1 {
		t.Fatalf("volume change emitted %d signals, want 1", len(got))
	}
	if v := got[0]["Volume"].Value().(float64); v != 0.52 {
		t.Errorf("Volume = %v, want 0.52", v)
	}
}

func TestSyncNeverAnnouncesStatusMetadataOrCanSeek(t *testing.T) {
	m, _, win, bus, _ := newTestHandler(t)
	p := win.p
	for i := 0; i < 4; i++ {
		p.Pause = !p.Pause
		p.SetTitle([]string{"a", "b", "", "c"}[i])
		p.Vol = float64(i * 10)
		m.syncPlayerState()
	}
	for _, changed := range bus.propertiesChanged(mprisPlayerIface) {
		for _, name := range []string{"PlaybackStatus", "Metadata", "CanSeek"} {
			if _, ok := changed[name]; ok {
				t.Errorf("periodic sync announced %s", name)
			}
		}
	}
}

func TestSyncWithoutPlayerIsNoop(t *testing.T) {
	m, app, _, bus, _ := newTestHandler(t)
	app.win = nil
	m.syncPlayerState()
	app.win = &fakeWindow{}
	m.syncPlayerState()
	if n := len(bus.emits); n != 0 {
		t.Errorf("sync without player emitted %d signals", n)
	}
}

func TestWindowActivationEmitsFullBurst(t *testing.T) {
	m, app, win, bus, _ := newTestHandler(t)
	win.p.Pause = true
	win.p.SetTitle("Big Buck Bunny")
	win.p.Dur = floatPtr(596.5)
	win.p.FileLoop = player.LoopInf

	for round := 0; round < 2; round++ {
		bus.reset()
		app.activate(win)

		root := bus.propertiesChanged(mprisRootIface)
		if len(root) != 1 {
			t.Fatalf("round %d: %d root signals, want 1", round, len(root))
		}
		if v := root[0]["Identity"].Value(); v != "Cine" {
			t.Errorf("Identity = %v", v)
		}
		if v := root[0]["DesktopEntry"].Value(); v != "io.github.cineplayer.Cine" {
			t.Errorf("DesktopEntry = %v", v)
		}

		pl := bus.propertiesChanged(mprisPlayerIface)
		if len(pl) != 1 {
			t.Fatalf("round %d: %d player signals, want 1", round, len(pl))
		}
		burst := pl[0]
		for _, name := range []string{"PlaybackStatus", "LoopStatus", "Metadata", "CanPlay", "CanPause", "CanSeek", "CanControl"} {
			if _, ok := burst[name]; !ok {
				t.Errorf("round %d: burst missing %s", round, name)
			}
		}
		if v := burst["PlaybackStatus"].Value(); v != "Paused" {
			t.Errorf("PlaybackStatus = %v, want Paused", v)
		}
		if v := burst["LoopStatus"].Value(); v != "Track" {
			t.Errorf("LoopStatus = %v, want Track", v)
		}
		md := burst["Metadata"].Value().(map[string]dbus.Variant)
		if v := md["xesam:title"].Value(); v != "Big Buck Bunny" {
			t.Errorf("xesam:title = %v", v)
		}
		if v := md["mpris:length"].Value(); v != int64(596_500_000) {
			t.Errorf("mpris:length = %v", v)
		}
		if v := md["mpris:trackid"].Value(); v != singleTrackID {
			t.Errorf("mpris:trackid = %v", v)
		}
	}

	if !m.last.status.set || m.last.status.val != "Paused" {
		t.Errorf("status cache = %+v, want Paused", m.last.status)
	}
	if !m.last.loop.set || m.last.loop.val != "Track" {
		t.Errorf("loop cache = %+v, want Track", m.last.loop)
	}
}

func TestWindowActivationWithoutPlayerEmitsIdentityOnly(t *testing.T) {
	_, app, _, bus, _ := newTestHandler(t)
	app.activate(&fakeWindow{})
	if n := len(bus.propertiesChanged(mprisRootIface)); n != 1 {
		t.Errorf("%d root signals, want 1", n)
	}
	if n := len(bus.propertiesChanged(mprisPlayerIface)); n != 0 {
		t.Errorf("%d player signals, want 0", n)
	}
}

func TestMethodsAcknowledgeThenEnqueue(t *testing.T) {
	m, app, win, _, loop := newTestHandler(t)
	pl := mprisPlayer{m}
	root := mprisRoot{m}

	if err := pl.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if win.p.Pause {
		t.Error("Pause applied before the loop ran")
	}
	loop.drain()
	if !win.p.Pause {
		t.Error("Pause not applied")
	}

	pl.PlayPause()
	loop.drain()
	if win.p.Pause {
		t.Error("PlayPause did not unpause")
	}
	pl.PlayPause()
	pl.Play()
	loop.drain()
	if win.p.Pause {
		t.Error("Play did not unpause")
	}

	pl.Next()
	pl.Next()
	pl.Previous()
	pl.Stop()
	root.Raise()
	root.Quit()
	loop.drain()
	if win.next != 2 || win.prev != 1 {
		t.Errorf("next/prev = %d/%d, want 2/1", win.next, win.prev)
	}
	if win.p.Stopped != 1 {
		t.Errorf("Stop called %d times, want 1", win.p.Stopped)
	}
	if win.presented != 1 || app.quit != 1 {
		t.Errorf("presented/quit = %d/%d, want 1/1", win.presented, app.quit)
	}
}

func TestMethodsWithoutPlayerAreNoops(t *testing.T) {
	m, app, _, bus, loop := newTestHandler(t)
	app.win = nil
	mprisPlayer{m}.Seek(1_000_000)
	mprisRoot{m}.Quit()
	loop.drain()
	if app.quit != 0 {
		t.Error("Quit ran without an active window")
	}
	if n := len(bus.seeked()); n != 0 {
		t.Errorf("Seeked emitted %d times without a player", n)
	}
}

func TestSeekAndSetPositionEmitSeeked(t *testing.T) {
	m, _, win, bus, loop := newTestHandler(t)
	pl := mprisPlayer{m}

	// no time position yet counts as zero
	pl.Seek(2_500_000)
	loop.drain()
	pl.Seek(-1_000_000)
	loop.drain()
	pl.SetPosition("/some/track", 10_250_000)
	loop.drain()
	pl.Seek(500_000)
	loop.drain()

	got := bus.seeked()
	if len(got) != 4 {
		t.Fatalf("got %d Seeked signals, want 4", len(got))
	}
	want := []int64{2_500_000, 1_500_000, 10_250_000, 10_750_000}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Seeked[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	tp, _ := win.p.TimePos()
	if last := got[len(got)-1]; last != int64(tp*1_000_000) {
		t.Errorf("Seeked %d does not match time_pos %v", last, tp)
	}
}

func TestGetPropertyDefaultsWithoutPlayer(t *testing.T) {
	m, app, _, _, _ := newTestHandler(t)
	app.win = nil
	props := mprisProperties{m}

	all, err := props.GetAll(mprisPlayerIface)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	checks := map[string]interface{}{
		"CanGoNext":      false,
		"CanGoPrevious":  false,
		"Volume":         0.0,
		"PlaybackStatus": "Playing",
		"LoopStatus":     "None",
		"Position":       int64(0),
		"Shuffle":        false,
		"CanControl":     true,
	}
	for name, want := range checks {
		if got := all[name].Value(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	md := all["Metadata"].Value().(map[string]dbus.Variant)
	if v := md["xesam:title"].Value(); v != "Unknown title" {
		t.Errorf("xesam:title = %v", v)
	}
}

func TestGetProperty(t *testing.T) {
	m, _, win, _, _ := newTestHandler(t)
	props := mprisProperties{m}
	win.p.Vol = 80
	win.p.Time = floatPtr(12.3456784)
	win.p.ListLoop = player.LoopInf
	win.canPrev = true

	tests := []struct {
		iface, name string
		want        interface{}
	}{
		{mprisRootIface, "Identity", "Cine"},
		{mprisRootIface, "CanQuit", true},
		{mprisRootIface, "CanRaise", true},
		{mprisRootIface, "HasTrackList", false},
		{mprisPlayerIface, "Volume", 0.8},
		{mprisPlayerIface, "Position", int64(12_345_678)},
		{mprisPlayerIface, "LoopStatus", "Playlist"},
		{mprisPlayerIface, "CanGoPrevious", true},
		{mprisPlayerIface, "CanGoNext", false},
	}
	for _, tt := range tests {
		v, err := props.Get(tt.iface, tt.name)
		if err != nil {
			t.Errorf("Get(%s): %v", tt.name, err)
			continue
		}
		if got := v.Value(); got != tt.want {
			t.Errorf("Get(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if v, _ := props.Get(mprisRootIface, "SupportedMimeTypes"); len(v.Value().([]string)) != 0 {
		t.Error("SupportedMimeTypes not empty")
	}
	if _, err := props.Get(mprisPlayerIface, "Rate"); err != prop.ErrPropNotFound {
		t.Errorf("Get(Rate) err = %v, want ErrPropNotFound", err)
	}
	if _, err := props.Get("org.example.Nope", "Volume"); err != prop.ErrIfaceNotFound {
		t.Errorf("Get on unknown iface err = %v, want ErrIfaceNotFound", err)
	}
}

func TestSetLoopStatusRoundTrip(t *testing.T) {
	m, _, win, bus, _ := newTestHandler(t)
	props := mprisProperties{m}

	tests := []struct {
		status         string
		file, playlist player.LoopMode
	}{
		{"Track", player.LoopInf, player.LoopNo},
		{"Playlist", player.LoopNo, player.LoopInf},
		{"None", player.LoopNo, player.LoopNo},
	}
	for _, tt := range tests {
		bus.reset()
		if err := props.Set(mprisPlayerIface, "LoopStatus", dbus.MakeVariant(tt.status)); err != nil {
			t.Fatalf("Set(LoopStatus=%s): %v", tt.status, err)
		}
		if win.p.FileLoop != tt.file || win.p.ListLoop != tt.playlist {
			t.Errorf("%s: loop modes = (%q, %q), want (%q, %q)", tt.status, win.p.FileLoop, win.p.ListLoop, tt.file, tt.playlist)
		}
		v, _ := props.Get(mprisPlayerIface, "LoopStatus")
		if v.Value() != tt.status {
			t.Errorf("LoopStatus read back %v, want %s", v.Value(), tt.status)
		}
		echo := bus.propertiesChanged(mprisPlayerIface)
		if len(echo) != 1 || echo[0]["LoopStatus"].Value() != tt.status {
			t.Errorf("%s: echo = %v", tt.status, echo)
		}
	}

	if err := props.Set(mprisPlayerIface, "LoopStatus", dbus.MakeVariant("Sometimes")); err != prop.ErrInvalidArg {
		t.Errorf("invalid LoopStatus err = %v, want ErrInvalidArg", err)
	}
}

func TestSetVolumeAndShuffle(t *testing.T) {
	m, _, win, bus, _ := newTestHandler(t)
	props := mprisProperties{m}

	if err := props.Set(mprisPlayerIface, "Volume", dbus.MakeVariant(0.25)); err != nil {
		t.Fatalf("Set(Volume): %v", err)
	}
	if win.p.Vol != 25 {
		t.Errorf("player volume = %v, want 25", win.p.Vol)
	}
	if err := props.Set(mprisPlayerIface, "Shuffle", dbus.MakeVariant(true)); err != nil {
		t.Fatalf("Set(Shuffle): %v", err)
	}
	if !win.p.ShuffleFlag || !win.shuffleToggle || win.shuffleToggleSets != 1 {
		t.Errorf("shuffle not applied: player=%v toggle=%v", win.p.ShuffleFlag, win.shuffleToggle)
	}
	echo := bus.propertiesChanged(mprisPlayerIface)
	if len(echo) != 2 || echo[0]["Volume"].Value() != 0.25 || echo[1]["Shuffle"].Value() != true {
		t.Errorf("echoes = %v", echo)
	}

	// echoed values are not announced again by the next sweep
	bus.reset()
	m.syncPlayerState()
	for _, changed := range bus.propertiesChanged(mprisPlayerIface) {
		if _, ok := changed["Volume"]; ok {
			t.Error("sweep re-announced echoed Volume")
		}
		if _, ok := changed["Shuffle"]; ok {
			t.Error("sweep re-announced echoed Shuffle")
		}
	}
}

func TestSetRejected(t *testing.T) {
	m, app, _, _, _ := newTestHandler(t)
	props := mprisProperties{m}

	if err := props.Set(mprisPlayerIface, "Position", dbus.MakeVariant(int64(5))); err != prop.ErrReadOnly {
		t.Errorf("Set(Position) err = %v, want ErrReadOnly", err)
	}
	if err := props.Set(mprisRootIface, "Identity", dbus.MakeVariant("x")); err != prop.ErrReadOnly {
		t.Errorf("Set(Identity) err = %v, want ErrReadOnly", err)
	}
	if err := props.Set(mprisPlayerIface, "Rate", dbus.MakeVariant(2.0)); err != prop.ErrPropNotFound {
		t.Errorf("Set(Rate) err = %v, want ErrPropNotFound", err)
	}
	if err := props.Set(mprisPlayerIface, "Volume", dbus.MakeVariant("loud")); err != prop.ErrInvalidArg {
		t.Errorf("Set(Volume=string) err = %v, want ErrInvalidArg", err)
	}

	app.win = nil
	if err := props.Set(mprisPlayerIface, "Volume", dbus.MakeVariant(0.5)); err != errNoPlayer {
		t.Errorf("Set without player err = %v, want errNoPlayer", err)
	}
}
