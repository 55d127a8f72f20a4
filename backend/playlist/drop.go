package playlist

import (
	"log"
	"strings"

	"github.com/cineplayer/cine/backend/player"
)

var importableTypes = []string{"video/", "audio/", "image/"}

// Importable reports whether a dropped path with the given probe
// result should be added to the playlist.
func Importable(info Info) bool {
	if info.IsDir() {
		return true
	}
	for _, prefix := range importableTypes {
		if strings.HasPrefix(info.ContentType, prefix) {
			return true
		}
	}
	return false
}

// ImportDropped appends the importable paths to the player's playlist,
// starting playback if the player is idle. It returns the number of
// paths appended.
func ImportDropped(p player.Handle, paths []string, prober Prober) int {
	n := 0
	for _, path := range paths {
		if !Importable(prober.Probe(path)) {
			continue
		}
		if err := p.LoadFile(path, player.LoadAppendPlay); err != nil {
			log.Printf("playlist: failed to append %s: %v", path, err)
			continue
		}
		n++
	}
	return n
}
