package player

import (
	"reflect"
	"testing"

	"github.com/quarckster/go-mpris-server/pkg/types"
)

func TestLoopStatusOf(t *testing.T) {
	tests := []struct {
		file, playlist LoopMode
		want           types.LoopStatus
	}{
		{LoopInf, LoopNo, types.LoopStatusTrack},
		{LoopInf, LoopInf, types.LoopStatusTrack},
		{LoopNo, LoopInf, types.LoopStatusPlaylist},
		{LoopCount(3), LoopInf, types.LoopStatusPlaylist},
		{LoopNo, LoopNo, types.LoopStatusNone},
		{LoopCount(2), LoopNo, types.LoopStatusNone},
		{LoopNo, LoopCount(5), types.LoopStatusNone},
	}
	for _, tt := range tests {
		if got := LoopStatusOf(tt.file, tt.playlist); got != tt.want {
			t.Errorf("LoopStatusOf(%q, %q) = %q, want %q", tt.file, tt.playlist, got, tt.want)
		}
	}
}

func TestLoopModesFor_RoundTrip(t *testing.T) {
	tests := []struct {
		status         types.LoopStatus
		file, playlist LoopMode
	}{
		{types.LoopStatusTrack, LoopInf, LoopNo},
		{types.LoopStatusPlaylist, LoopNo, LoopInf},
		{types.LoopStatusNone, LoopNo, LoopNo},
	}
	for _, tt := range tests {
		file, playlist, err := LoopModesFor(tt.status)
		if err != nil {
			t.Fatalf("LoopModesFor(%q): unexpected error %v", tt.status, err)
		}
		if file != tt.file || playlist != tt.playlist {
			t.Errorf("LoopModesFor(%q) = (%q, %q), want (%q, %q)", tt.status, file, playlist, tt.file, tt.playlist)
		}
		if back := LoopStatusOf(file, playlist); back != tt.status {
			t.Errorf("round trip of %q gave %q", tt.status, back)
		}
	}

	if _, _, err := LoopModesFor("Forever"); err == nil {
		t.Error("expected error for unknown loop status")
	}
}

func TestLoopCount(t *testing.T) {
	if got := LoopCount(0); got != LoopNo {
		t.Errorf("LoopCount(0) = %q, want %q", got, LoopNo)
	}
	if got := LoopCount(4); got != "4" {
		t.Errorf("LoopCount(4) = %q, want %q", got, "4")
	}
}

// bareHandle implements only the required Handle methods.
type bareHandle struct{}

func (bareHandle) Paused() bool                    { return false }
func (bareHandle) SetPaused(bool) error            { return nil }
func (bareHandle) TimePos() (float64, bool)        { return 0, false }
func (bareHandle) SetTimePos(float64) error        { return nil }
func (bareHandle) Duration() (float64, bool)       { return 0, false }
func (bareHandle) MediaTitle() (string, bool)      { return "", false }
func (bareHandle) Playlist() []PlaylistEntry       { return nil }
func (bareHandle) PlaylistPos() int                { return -1 }
func (bareHandle) SetPlaylistPos(int) error        { return nil }
func (bareHandle) Stop() error                     { return nil }
func (bareHandle) LoadFile(string, LoadMode) error { return nil }

func TestOptionalCapabilityDefaults(t *testing.T) {
	var h Handle = bareHandle{}
	if v := VolumeOf(h); v != 0 {
		t.Errorf("VolumeOf = %v, want 0", v)
	}
	if f, p := LoopModesOf(h); f != LoopNo || p != LoopNo {
		t.Errorf("LoopModesOf = (%q, %q), want (no, no)", f, p)
	}
	if ShuffleOf(h) {
		t.Error("ShuffleOf = true, want false")
	}
	if err := SetVolume(h, 50); err == nil {
		t.Error("expected SetVolume to fail without VolumeController")
	}
	if err := SetLoopModes(h, LoopInf, LoopNo); err == nil {
		t.Error("expected SetLoopModes to fail without Looper")
	}
	if err := SetShuffle(h, true); err == nil {
		t.Error("expected SetShuffle to fail without Shuffler")
	}
}

func TestBaseCallbackImpl(t *testing.T) {
	var cb BaseCallbackImpl
	var got []string
	cb.OnFileLoaded(func() { got = append(got, "loaded") })
	cb.OnPauseChanged(func() { got = append(got, "pause1") })
	cb.OnPauseChanged(func() { got = append(got, "pause2") })
	cb.OnIdle(func() { got = append(got, "idle") })

	cb.InvokeOnPauseChanged()
	cb.InvokeOnIdle()
	cb.InvokeOnShutdown()

	want := []string{"pause1", "pause2", "idle"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("callbacks = %v, want %v", got, want)
	}
}
