package backend

import (
	"os"
	"slices"
	"sync"

	"github.com/cineplayer/cine/backend/player"
	"github.com/pelletier/go-toml/v2"
)

type AppConfig struct {
	WindowWidth        int
	WindowHeight       int
	AllowMultiInstance bool
	EnableMPRIS        bool
}

type PlaybackConfig struct {
	Volume       int
	LoopFile     string
	LoopPlaylist string
	Shuffle      bool

	// Passed to mpv's hwdec option
	HardwareDecoding string
	KeepOpen         bool
}

type Config struct {
	Application AppConfig
	Playback    PlaybackConfig
}

var SupportedHardwareDecoding = []string{"no", "auto-safe", "auto", "auto-copy"}

func DefaultConfig() *Config {
	return &Config{
		Application: AppConfig{
			WindowWidth:        960,
			WindowHeight:       540,
			AllowMultiInstance: false,
			EnableMPRIS:        true,
		},
		Playback: PlaybackConfig{
			Volume:           100,
			LoopFile:         string(player.LoopNo),
			LoopPlaylist:     string(player.LoopNo),
			Shuffle:          false,
			HardwareDecoding: "auto-safe",
			KeepOpen:         false,
		},
	}
}

func ReadConfigFile(filepath string) (*Config, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := DefaultConfig()
	if err := toml.NewDecoder(f).Decode(c); err != nil {
		return nil, err
	}
	c.sanitize()
	return c, nil
}

// sanitize replaces out-of-range values with defaults.
func (c *Config) sanitize() {
	def := DefaultConfig()
	if c.Application.WindowWidth <= 1 {
		c.Application.WindowWidth = def.Application.WindowWidth
	}
	if c.Application.WindowHeight <= 1 {
		c.Application.WindowHeight = def.Application.WindowHeight
	}
	c.Playback.Volume = clamp(c.Playback.Volume, 0, 100)
	if !validLoopMode(c.Playback.LoopFile) {
		c.Playback.LoopFile = def.Playback.LoopFile
	}
	if !validLoopMode(c.Playback.LoopPlaylist) {
		c.Playback.LoopPlaylist = def.Playback.LoopPlaylist
	}
	if !slices.Contains(SupportedHardwareDecoding, c.Playback.HardwareDecoding) {
		c.Playback.HardwareDecoding = def.Playback.HardwareDecoding
	}
}

// only "inf" and "no" are persisted; repeat counts are per-session
func validLoopMode(m string) bool {
	return m == string(player.LoopInf) || m == string(player.LoopNo)
}

var writeLock sync.Mutex

func (c *Config) WriteConfigFile(filepath string) error {
	if !writeLock.TryLock() {
		return nil // another write in progress
	}
	defer writeLock.Unlock()

	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, b, 0644)
}

func clamp(i, min, max int) int {
	if i < min {
		i = min
	} else if i > max {
		i = max
	}
	return i
}
