package ui

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/cineplayer/cine/backend/player"
)

type stubWindow struct{ name string }

func (*stubWindow) Player() player.Handle { return nil }
func (*stubWindow) CanGoNext() bool       { return false }
func (*stubWindow) CanGoPrevious() bool   { return false }
func (*stubWindow) Next()                 {}
func (*stubWindow) Previous()             {}
func (*stubWindow) Present()              {}
func (*stubWindow) SetShuffleToggle(bool) {}

func TestWindowManagerActiveWindow(t *testing.T) {
	wm := NewWindowManager(test.NewApp())
	changes := 0
	wm.OnActiveWindowChanged(func() { changes++ })

	if wm.ActiveWindow() != nil {
		t.Fatal("active window set before any window was added")
	}

	a, b := &stubWindow{"a"}, &stubWindow{"b"}
	wm.Add(a)
	wm.Add(b)
	if wm.ActiveWindow() != b {
		t.Errorf("active = %v, want b", wm.ActiveWindow())
	}
	if changes != 2 {
		t.Errorf("changes = %d, want 2", changes)
	}

	wm.SetActive(b)
	if changes != 2 {
		t.Errorf("re-activating the active window notified; changes = %d", changes)
	}
	wm.SetActive(a)
	wm.Remove(b) // not active, no change
	if wm.ActiveWindow() != a || changes != 3 {
		t.Errorf("active = %v, changes = %d; want a, 3", wm.ActiveWindow(), changes)
	}
	wm.Remove(a)
	if wm.ActiveWindow() != nil || changes != 4 {
		t.Errorf("active = %v, changes = %d; want nil, 4", wm.ActiveWindow(), changes)
	}
}

func TestCanGoNextPrevious(t *testing.T) {
	tests := []struct {
		pos, count       int
		loop             player.LoopMode
		wantNext, wantPv bool
	}{
		{-1, 0, player.LoopInf, false, false},
		{0, 1, player.LoopNo, false, false},
		{0, 1, player.LoopInf, true, true},
		{0, 3, player.LoopNo, true, false},
		{1, 3, player.LoopNo, true, true},
		{2, 3, player.LoopNo, false, true},
		{2, 3, "5", false, true},
	}
	for _, tt := range tests {
		if got := canGoNext(tt.pos, tt.count, tt.loop); got != tt.wantNext {
			t.Errorf("canGoNext(%d, %d, %q) = %v, want %v", tt.pos, tt.count, tt.loop, got, tt.wantNext)
		}
		if got := canGoPrevious(tt.pos, tt.count, tt.loop); got != tt.wantPv {
			t.Errorf("canGoPrevious(%d, %d, %q) = %v, want %v", tt.pos, tt.count, tt.loop, got, tt.wantPv)
		}
	}
}
