package playlist

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// DirectoryType is the content type reported for directories.
const DirectoryType = "inode/directory"

// Info describes a playlist path as seen by a Prober.
type Info struct {
	// Empty when the type could not be determined.
	ContentType string

	// Only meaningful for directories.
	Empty bool
}

// IsDir reports whether the probed path is a directory.
func (i Info) IsDir() bool {
	return i.ContentType == DirectoryType
}

// Prober determines the content type of playlist paths.
type Prober interface {
	Probe(path string) Info
}

// types filetype does not know about
var extraTypes = map[string]string{
	"m3u":  "audio/x-mpegurl",
	"m3u8": "audio/x-mpegurl",
	"pls":  "audio/x-scpls",
	"txt":  "text/plain",
}

// FileProber probes local files, sniffing their content and falling back
// to the file extension. Non-local paths (URLs) have no content type.
type FileProber struct{}

var _ Prober = FileProber{}

func (FileProber) Probe(path string) Info {
	if isURL(path) {
		return Info{}
	}
	st, err := os.Stat(path)
	if err == nil && st.IsDir() {
		return Info{ContentType: DirectoryType, Empty: dirEmpty(path)}
	}
	if err == nil && st.Mode().IsRegular() {
		if t, err := filetype.MatchFile(path); err == nil && t != filetype.Unknown {
			return Info{ContentType: t.MIME.Value}
		}
	}
	return Info{ContentType: TypeByExtension(path)}
}

// TypeByExtension guesses a content type from the file name alone.
func TypeByExtension(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return ""
	}
	if t, ok := extraTypes[ext]; ok {
		return t
	}
	if t := filetype.GetType(ext); t != filetype.Unknown {
		return t.MIME.Value
	}
	return ""
}

func dirEmpty(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	names, _ := f.Readdirnames(1)
	return len(names) == 0
}

func isURL(path string) bool {
	i := strings.Index(path, "://")
	return i > 1 && !strings.ContainsAny(path[:i], `/\`)
}
