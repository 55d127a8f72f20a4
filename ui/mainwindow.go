package ui

import (
	"fmt"
	"log"
	"math"

	"github.com/cineplayer/cine/backend"
	"github.com/cineplayer/cine/backend/ipc"
	"github.com/cineplayer/cine/backend/player"
	"github.com/cineplayer/cine/backend/playlist"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

var (
	ShortcutPlaylist    = desktop.CustomShortcut{KeyName: fyne.KeyP, Modifier: fyne.KeyModifierShortcutDefault}
	ShortcutAddFiles    = desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}
	ShortcutCloseWindow = desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierShortcutDefault}
)

// WindowPlayer is the player a MainWindow controls.
type WindowPlayer interface {
	player.Handle
	player.Looper
	player.Shuffler

	PlaylistCount() int
	PlaylistNext() error
	PlaylistPrev() error
	ShufflePlaylist(shuffle bool) error
	OnFileLoaded(func())
	OnIdle(func())
	OnPauseChanged(func())
	OnShutdown(func())
}

// MainWindow is the control window of one player.
type MainWindow struct {
	Window fyne.Window

	App *backend.App

	displayAppName string
	player         WindowPlayer
	loop           backend.Loop
	prober         playlist.Prober
	windows        *WindowManager

	setIdleInhibited func(bool)

	titleLabel   *widget.Label
	playPauseBtn *ttwidget.Button
	shuffleCheck *widget.Check
	toast        *ToastOverlay
	drop         *DropTarget

	playlistDlg *PlaylistDialog
	playlistPop *widget.PopUp
}

var _ backend.Window = (*MainWindow)(nil)

func NewMainWindow(fyneApp fyne.App, displayAppName string, app *backend.App, p WindowPlayer, wm *WindowManager, size fyne.Size) *MainWindow {
	return newMainWindow(fyneApp, displayAppName, app, p, wm, size, FyneLoop{}, playlist.FileProber{})
}

func newMainWindow(fyneApp fyne.App, displayAppName string, app *backend.App, p WindowPlayer, wm *WindowManager, size fyne.Size, loop backend.Loop, prober playlist.Prober) *MainWindow {
	m := &MainWindow{
		App:              app,
		Window:           fyneApp.NewWindow(displayAppName),
		displayAppName:   displayAppName,
		player:           p,
		loop:             loop,
		prober:           prober,
		windows:          wm,
		setIdleInhibited: backend.SetIdleInhibited,
	}

	m.titleLabel = widget.NewLabelWithStyle(lang.L("Nothing playing"), fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	m.titleLabel.Truncation = fyne.TextTruncateEllipsis

	prevBtn := ttwidget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), m.Previous)
	prevBtn.SetToolTip(lang.L("Previous"))
	m.playPauseBtn = ttwidget.NewButtonWithIcon("", theme.MediaPlayIcon(), m.PlayPause)
	m.playPauseBtn.SetToolTip(lang.L("Play/Pause"))
	m.playPauseBtn.Importance = widget.HighImportance
	nextBtn := ttwidget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), m.Next)
	nextBtn.SetToolTip(lang.L("Next"))
	stopBtn := ttwidget.NewButtonWithIcon("", theme.MediaStopIcon(), func() {
		if err := m.player.Stop(); err != nil {
			log.Printf("failed to stop: %v", err)
		}
		m.updateTitle()
	})
	stopBtn.SetToolTip(lang.L("Stop"))
	addBtn := ttwidget.NewButtonWithIcon("", theme.ContentAddIcon(), func() { m.ShowAddFilesDialog(false) })
	addBtn.SetToolTip(lang.L("Add Files"))
	playlistBtn := ttwidget.NewButtonWithIcon("", theme.ListIcon(), m.ShowPlaylist)
	playlistBtn.SetToolTip(lang.L("Playlist"))

	m.shuffleCheck = widget.NewCheck(lang.L("Shuffle"), m.applyShuffle)
	m.shuffleCheck.Checked = player.ShuffleOf(p)

	m.toast = NewToastOverlay()
	m.drop = NewDropTarget(m.loop)
	m.drop.ShowError = m.toast.ShowErrorToast
	m.drop.OnDrop = func(paths []string) {
		if n := playlist.ImportDropped(m.player, paths, m.prober); n > 0 {
			m.loop.Do(m.reapplyShuffle)
		}
	}
	m.Window.SetOnDropped(func(pos fyne.Position, uris []fyne.URI) {
		if m.playlistDlg != nil {
			m.playlistDlg.DropTarget().HandleDropped(pos, uris)
			return
		}
		m.drop.HandleDropped(pos, uris)
	})

	controls := container.NewHBox(
		layout.NewSpacer(),
		prevBtn, m.playPauseBtn, nextBtn, stopBtn,
		widget.NewSeparator(),
		m.shuffleCheck, addBtn, playlistBtn,
		layout.NewSpacer(),
	)
	content := container.NewStack(
		container.NewBorder(nil, controls, nil, nil, container.NewCenter(m.titleLabel)),
		m.toast,
	)
	m.Window.SetContent(fynetooltip.AddWindowToolTipLayer(content, m.Window.Canvas()))
	m.Window.Resize(size)

	p.OnFileLoaded(func() { m.loop.Do(m.onFileLoaded) })
	p.OnPauseChanged(func() { m.loop.Do(m.updatePlayPauseIcon) })
	p.OnIdle(func() { m.loop.Do(m.onIdle) })
	p.OnShutdown(func() { m.loop.Do(m.Quit) })
	m.addShortcuts()
	m.Window.SetCloseIntercept(m.Quit)
	return m
}

func (m *MainWindow) Player() player.Handle {
	return m.player
}

func (m *MainWindow) CanGoNext() bool {
	_, loopPlaylist := player.LoopModesOf(m.player)
	return canGoNext(m.player.PlaylistPos(), m.player.PlaylistCount(), loopPlaylist)
}

func (m *MainWindow) CanGoPrevious() bool {
	_, loopPlaylist := player.LoopModesOf(m.player)
	return canGoPrevious(m.player.PlaylistPos(), m.player.PlaylistCount(), loopPlaylist)
}

func canGoNext(pos, count int, loopPlaylist player.LoopMode) bool {
	if count == 0 {
		return false
	}
	return pos < count-1 || loopPlaylist == player.LoopInf
}

func canGoPrevious(pos, count int, loopPlaylist player.LoopMode) bool {
	if count == 0 {
		return false
	}
	return pos > 0 || loopPlaylist == player.LoopInf
}

func (m *MainWindow) Next() {
	if err := m.player.PlaylistNext(); err != nil {
		log.Printf("failed to play next: %v", err)
	}
}

func (m *MainWindow) Previous() {
	if err := m.player.PlaylistPrev(); err != nil {
		log.Printf("failed to play previous: %v", err)
	}
}

func (m *MainWindow) PlayPause() {
	if err := m.player.SetPaused(!m.player.Paused()); err != nil {
		log.Printf("failed to toggle pause: %v", err)
	}
	m.updatePlayPauseIcon()
}

func (m *MainWindow) Present() {
	m.Window.Show()
	m.Window.RequestFocus()
	m.windows.SetActive(m)
}

func (m *MainWindow) SetShuffleToggle(on bool) {
	if m.shuffleCheck.Checked == on {
		return
	}
	// OnChanged applies the new state
	m.shuffleCheck.SetChecked(on)
}

func (m *MainWindow) reapplyShuffle() {
	m.applyShuffle(m.shuffleCheck.Checked)
}

func (m *MainWindow) applyShuffle(on bool) {
	if err := player.SetShuffle(m.player, on); err != nil {
		log.Printf("failed to set shuffle: %v", err)
	}
	if err := m.player.ShufflePlaylist(on); err != nil {
		log.Printf("failed to reorder playlist: %v", err)
	}
	if m.playlistDlg != nil {
		m.playlistDlg.Populate()
	}
}

// OpenFiles appends files to the playlist, starting playback if idle.
func (m *MainWindow) OpenFiles(files []string) error {
	var firstErr error
	for _, f := range files {
		if err := m.player.LoadFile(f, player.LoadAppendPlay); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.reapplyShuffle()
	return firstErr
}

// ShowAddFilesDialog lets the user pick a file to append to the playlist.
func (m *MainWindow) ShowAddFilesDialog(fromPlaylist bool) {
	dlg := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			m.toast.ShowErrorToast(fmt.Sprintf("%s: %s", lang.L("File Error"), err.Error()))
			return
		}
		if rc == nil {
			return // canceled
		}
		path := uriPath(rc.URI())
		rc.Close()
		if err := m.OpenFiles([]string{path}); err != nil {
			m.toast.ShowErrorToast(fmt.Sprintf("%s: %s", lang.L("File Error"), err.Error()))
			return
		}
		if fromPlaylist && m.playlistDlg != nil {
			m.playlistDlg.Populate()
		}
	}, m.Window)
	dlg.Show()
}

// ShowPlaylist opens the playlist dialog over the window.
func (m *MainWindow) ShowPlaylist() {
	if m.playlistDlg != nil {
		return
	}
	d := NewPlaylistDialog(m.player, m.prober, m.loop)
	pop := widget.NewModalPopUp(d, m.Window.Canvas())
	fynetooltip.AddPopUpToolTipLayer(pop)
	d.OnAddFiles = func() { m.ShowAddFilesDialog(true) }
	d.OnDropped = m.reapplyShuffle
	d.OnClose = m.closePlaylist
	m.playlistDlg = d
	m.playlistPop = pop

	s := m.Window.Canvas().Size()
	popS := fyne.NewSize(fyne.Min(500, s.Width*0.9), s.Height*0.9)
	pop.Resize(popS)
	pop.ShowAtPosition(fyne.NewPos((s.Width-popS.Width)/2, (s.Height-popS.Height)/2))
}

func (m *MainWindow) closePlaylist() {
	if m.playlistDlg == nil {
		return
	}
	m.playlistDlg.Close()
	fynetooltip.DestroyPopUpToolTipLayer(m.playlistPop)
	m.playlistPop.Hide()
	m.playlistDlg = nil
	m.playlistPop = nil
}

func (m *MainWindow) onFileLoaded() {
	m.updateTitle()
	m.updatePlayPauseIcon()
	if m.playlistDlg != nil {
		m.playlistDlg.Populate()
	}
}

func (m *MainWindow) onIdle() {
	m.updateTitle()
	m.updatePlayPauseIcon()
}

func (m *MainWindow) updateTitle() {
	title, ok := m.player.MediaTitle()
	if !ok || title == "" {
		m.titleLabel.SetText(lang.L("Nothing playing"))
		m.Window.SetTitle(m.displayAppName)
		return
	}
	m.titleLabel.SetText(title)
	m.Window.SetTitle(fmt.Sprintf("%s · %s", title, m.displayAppName))
}

func (m *MainWindow) updatePlayPauseIcon() {
	paused := m.player.Paused()
	if paused {
		m.playPauseBtn.SetIcon(theme.MediaPlayIcon())
	} else {
		m.playPauseBtn.SetIcon(theme.MediaPauseIcon())
	}
	m.setIdleInhibited(!paused && m.player.PlaylistPos() >= 0)
}

func (m *MainWindow) addShortcuts() {
	m.Canvas().AddShortcut(&ShortcutPlaylist, func(_ fyne.Shortcut) {
		m.ShowPlaylist()
	})
	m.Canvas().AddShortcut(&ShortcutAddFiles, func(_ fyne.Shortcut) {
		m.ShowAddFilesDialog(false)
	})
	m.Canvas().AddShortcut(&ShortcutCloseWindow, func(_ fyne.Shortcut) {
		m.Quit()
	})

	m.Canvas().SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyEscape:
			m.closePlaylist()
		case fyne.KeySpace:
			m.PlayPause()
		}
	})
}

func (m *MainWindow) Show() {
	m.Window.Show()
}

func (m *MainWindow) Canvas() fyne.Canvas {
	return m.Window.Canvas()
}

func (m *MainWindow) Quit() {
	m.setIdleInhibited(false)
	m.SaveWindowSize()
	m.windows.Quit()
}

func (m *MainWindow) SaveWindowSize() {
	// round sizes to even to avoid Wayland issues with 2x scaling factor
	m.App.Config.Application.WindowHeight = int(math.RoundToEven(float64(m.Window.Canvas().Size().Height)))
	m.App.Config.Application.WindowWidth = int(math.RoundToEven(float64(m.Window.Canvas().Size().Width)))
}

// IPCHandler adapts a window to IPC playback commands,
// which arrive off the UI loop.
type IPCHandler struct {
	m *MainWindow
}

var _ ipc.PlaybackHandler = (*IPCHandler)(nil)

func (m *MainWindow) IPCHandler() *IPCHandler {
	return &IPCHandler{m: m}
}

func (h *IPCHandler) PlayPause() error {
	fyne.Do(h.m.PlayPause)
	return nil
}

func (h *IPCHandler) Next() error {
	fyne.Do(h.m.Next)
	return nil
}

func (h *IPCHandler) Previous() error {
	fyne.Do(h.m.Previous)
	return nil
}

func (h *IPCHandler) OpenFiles(files []string) error {
	var err error
	fyne.DoAndWait(func() { err = h.m.OpenFiles(files) })
	return err
}
