// Package playlist builds the rows shown by the playlist dialog and
// imports dropped files into a player's playlist.
package playlist

import (
	"path/filepath"
	"strings"

	"github.com/charlievieth/strcase"
	"github.com/cineplayer/cine/backend/player"
)

type IconClass int

const (
	IconMedia IconClass = iota
	IconFolder
	IconPlaylist
	IconAudio
	IconVideo
	IconImage
)

// Row is one entry of the playlist dialog.
type Row struct {
	// Index of the entry in the player's playlist.
	Index    int
	Title    string
	Subtitle string
	Icon     IconClass

	// Disabled rows cannot be activated (empty directories).
	Disabled bool
}

// BuildRows computes one row per playlist entry, in playlist order.
func BuildRows(entries []player.PlaylistEntry, prober Prober) []Row {
	rows := make([]Row, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, buildRow(i, e.Filename, prober.Probe(e.Filename)))
	}
	return rows
}

func buildRow(idx int, path string, info Info) Row {
	base := baseName(path)
	row := Row{
		Index:    idx,
		Title:    parentName(path),
		Subtitle: base,
		Icon:     IconMedia,
	}
	if info.IsDir() {
		row.Icon = IconFolder
		row.Disabled = info.Empty
	} else if info.ContentType != "" {
		row.Icon = IconFor(info.ContentType)
		row.Subtitle = stripExt(base)
	}
	return row
}

// IconFor picks the icon class for a non-directory content type.
func IconFor(contentType string) IconClass {
	switch {
	case strcase.Contains(contentType, "mpegurl"):
		return IconPlaylist
	case strcase.Contains(contentType, "audio"):
		return IconAudio
	case strcase.Contains(contentType, "video"):
		return IconVideo
	case strcase.Contains(contentType, "image"):
		return IconImage
	}
	return IconMedia
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, separators); i >= 0 {
		return path[i+1:]
	}
	return path
}

// parentName is the name of the directory containing path,
// or path itself when it has no named parent ("/movie.mkv", "movie.mkv").
func parentName(path string) string {
	i := strings.LastIndexAny(path, separators)
	if i < 0 {
		return path
	}
	if name := baseName(strings.TrimRight(path[:i], separators)); name != "" {
		return name
	}
	return path
}

// stripExt removes the extension, ignoring leading dots (".hidden" stays as is).
func stripExt(name string) string {
	lead := len(name) - len(strings.TrimLeft(name, "."))
	if i := strings.LastIndexByte(name, '.'); i > lead {
		return name[:i]
	}
	return name
}

var separators = func() string {
	if filepath.Separator != '/' {
		return "/" + string(filepath.Separator)
	}
	return "/"
}()
