package ui

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/lang"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/cineplayer/cine/backend"
	"github.com/cineplayer/cine/backend/player"
	"github.com/cineplayer/cine/backend/playlist"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"
)

// PlaylistDialog lists the player's playlist and accepts dropped files.
type PlaylistDialog struct {
	widget.BaseWidget

	OnClose    func()
	OnAddFiles func()

	// OnDropped is called after dropped files have been imported,
	// before the rows are rebuilt.
	OnDropped func()

	player player.Handle
	prober playlist.Prober
	loop   backend.Loop

	rows       []playlist.Row
	playingIdx int

	list          *widget.List
	toast         *ToastOverlay
	busy          *widget.Activity
	dropIndicator *fyne.Container
	drop          *DropTarget
	watcher       *playlist.DirWatcher
	container     *fyne.Container
}

func NewPlaylistDialog(p player.Handle, prober playlist.Prober, loop backend.Loop) *PlaylistDialog {
	d := &PlaylistDialog{
		player:     p,
		prober:     prober,
		loop:       loop,
		playingIdx: -1,
	}
	d.ExtendBaseWidget(d)

	d.list = widget.NewList(
		func() int { return len(d.rows) },
		func() fyne.CanvasObject { return newPlaylistRow() },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id < len(d.rows) {
				o.(*playlistRow).Update(d.rows[id], id == d.playingIdx)
			}
		},
	)
	d.list.OnSelected = func(id widget.ListItemID) {
		d.list.Unselect(id)
		d.activate(id)
	}

	d.toast = NewToastOverlay()
	d.busy = widget.NewActivity()
	d.busy.Hide()

	dropBg := canvas.NewRectangle(theme.Color(theme.ColorNameHover))
	dropBg.CornerRadius = theme.InputRadiusSize()
	dropBg.StrokeColor = theme.Color(theme.ColorNamePrimary)
	dropBg.StrokeWidth = 2
	dropLabel := widget.NewLabelWithStyle(lang.L("Drop files to add them to the playlist"), fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	d.dropIndicator = container.NewStack(dropBg, container.NewCenter(dropLabel))
	d.dropIndicator.Hide()

	d.drop = NewDropTarget(loop)
	d.drop.SetIndicatorVisible = func(v bool) {
		d.dropIndicator.Hidden = !v
		d.dropIndicator.Refresh()
	}
	d.drop.SetBusy = func(b bool) {
		if b {
			d.busy.Show()
			d.busy.Start()
		} else {
			d.busy.Stop()
			d.busy.Hide()
		}
	}
	d.drop.ShowError = d.toast.ShowErrorToast
	d.drop.OnDrop = d.importDropped

	addBtn := ttwidget.NewButtonWithIcon(lang.L("Add Files"), theme.ContentAddIcon(), func() {
		if d.OnAddFiles != nil {
			d.OnAddFiles()
		}
	})
	addBtn.SetToolTip(lang.L("Add files to the playlist"))
	closeBtn := ttwidget.NewButtonWithIcon("", theme.CancelIcon(), d.close)
	closeBtn.SetToolTip(lang.L("Close"))
	closeBtn.Importance = widget.LowImportance

	header := container.NewHBox(
		widget.NewLabelWithStyle(lang.L("Playlist"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		layout.NewSpacer(),
		d.busy,
		addBtn,
		closeBtn,
	)
	d.container = container.NewStack(
		container.NewBorder(header, nil, nil, nil, d.list),
		d.dropIndicator,
		d.toast,
	)

	if w, err := playlist.NewDirWatcher(func() { loop.Do(d.Populate) }); err == nil {
		d.watcher = w
	} else {
		log.Printf("playlist: directory watching unavailable: %v", err)
	}

	d.Populate()
	return d
}

// DropTarget returns the handler for files dropped while the dialog is shown.
func (d *PlaylistDialog) DropTarget() *DropTarget {
	return d.drop
}

// Populate rebuilds every row from the player's playlist and marks the
// playing entry on the next loop cycle.
func (d *PlaylistDialog) Populate() {
	entries := d.player.Playlist()
	d.rows = playlist.BuildRows(entries, d.prober)
	d.list.UnselectAll()
	d.list.Refresh()
	d.watchDirs(entries)
	d.loop.Do(d.scrollToPlaying)
}

func (d *PlaylistDialog) scrollToPlaying() {
	pos := d.player.PlaylistPos()
	if pos < 0 || pos >= len(d.rows) {
		pos = -1
	}
	d.playingIdx = pos
	d.list.Refresh()
	if pos >= 0 {
		d.list.ScrollTo(pos)
	}
}

func (d *PlaylistDialog) activate(idx int) {
	if idx < 0 || idx >= len(d.rows) || d.rows[idx].Disabled {
		return
	}
	if err := d.player.SetPlaylistPos(idx); err != nil {
		log.Printf("playlist: failed to play entry %d: %v", idx, err)
		return
	}
	if err := d.player.SetPaused(false); err != nil {
		log.Printf("playlist: failed to unpause: %v", err)
	}
	d.close()
}

// importDropped appends the dropped files, then on the next loop cycle
// runs OnDropped and rebuilds the rows.
func (d *PlaylistDialog) importDropped(paths []string) {
	playlist.ImportDropped(d.player, paths, d.prober)
	d.loop.Do(func() {
		if d.OnDropped != nil {
			d.OnDropped()
		}
		d.Populate()
	})
}

func (d *PlaylistDialog) watchDirs(entries []player.PlaylistEntry) {
	if d.watcher == nil {
		return
	}
	var dirs []string
	for _, r := range d.rows {
		if r.Icon == playlist.IconFolder {
			dirs = append(dirs, entries[r.Index].Filename)
		}
	}
	d.watcher.SetDirs(dirs)
}

// Close releases the dialog's resources. It does not hide the dialog.
func (d *PlaylistDialog) Close() {
	if d.watcher != nil {
		d.watcher.Close()
		d.watcher = nil
	}
}

func (d *PlaylistDialog) close() {
	if d.OnClose != nil {
		d.OnClose()
	}
}

func (d *PlaylistDialog) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.container)
}

type playlistRow struct {
	widget.BaseWidget

	icon     *widget.Icon
	playing  *widget.Icon
	title    *widget.Label
	subtitle *widget.Label

	container *fyne.Container
}

func newPlaylistRow() *playlistRow {
	r := &playlistRow{
		icon:     widget.NewIcon(theme.FileIcon()),
		playing:  widget.NewIcon(theme.MediaPlayIcon()),
		title:    widget.NewLabel(""),
		subtitle: widget.NewLabel(""),
	}
	r.ExtendBaseWidget(r)
	r.title.Truncation = fyne.TextTruncateEllipsis
	r.subtitle.Truncation = fyne.TextTruncateEllipsis
	r.playing.Hide()
	r.container = container.NewBorder(nil, nil, r.icon, r.playing,
		container.New(layout.NewCustomPaddedVBoxLayout(0), r.title, r.subtitle))
	return r
}

func (r *playlistRow) Update(row playlist.Row, playing bool) {
	r.icon.SetResource(iconResource(row.Icon))
	r.title.Text = row.Title
	r.title.TextStyle.Bold = playing
	r.subtitle.Text = row.Subtitle
	importance := widget.MediumImportance
	if row.Disabled {
		importance = widget.LowImportance
	}
	r.title.Importance = importance
	r.subtitle.Importance = importance
	r.playing.Hidden = !playing
	r.Refresh()
}

func (r *playlistRow) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(r.container)
}

func iconResource(c playlist.IconClass) fyne.Resource {
	switch c {
	case playlist.IconFolder:
		return theme.FolderIcon()
	case playlist.IconPlaylist:
		return theme.ListIcon()
	case playlist.IconAudio:
		return theme.MediaMusicIcon()
	case playlist.IconVideo:
		return theme.MediaVideoIcon()
	case playlist.IconImage:
		return theme.MediaPhotoIcon()
	}
	return theme.FileIcon()
}
