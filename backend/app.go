package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"time"

	"github.com/20after4/configdir"
	"github.com/cineplayer/cine/backend/ipc"
	"github.com/cineplayer/cine/backend/player"
	"github.com/cineplayer/cine/backend/player/mpv"
	"github.com/cineplayer/cine/backend/util"
)

const (
	configFile  = "config.toml"
	portableDir = "cine_portable"
)

var ErrAnotherInstance = errors.New("another instance is running")

type App struct {
	Config       *Config
	Player       *mpv.Player
	MPRISHandler *MPRISHandler

	// UI callbacks to be set in main
	OnReactivate func()
	OnExit       func()

	appName      string
	appID        string
	configDir    string
	portableMode bool

	isFirstLaunch bool // set by config file reader
	bgrndCtx      context.Context
	cancel        context.CancelFunc
	ipcServer     *http.Server

	lastWrittenCfg Config
}

// StartupApp reads the config and initializes the player. If another
// instance is running and multiple instances are not allowed, the command
// line is forwarded to it and ErrAnotherInstance is returned.
func StartupApp(appName, appID string) (*App, error) {
	var confDir string
	portableMode := false
	if p := checkPortablePath(); p != "" {
		confDir = path.Join(p, "config")
		portableMode = true
	} else {
		confDir = configdir.LocalConfig(appName)
	}
	// ensure config dir exists
	configdir.MakePath(confDir)

	a := &App{
		appName:      appName,
		appID:        appID,
		configDir:    confDir,
		portableMode: portableMode,
	}
	a.readConfig()

	if !a.Config.Application.AllowMultiInstance || HaveCommandLineOptions() {
		if cli, err := ipc.Connect(); err == nil {
			log.Println("Another instance is running. Forwarding command line to it...")
			if err := forwardToRunningInstance(cli, FileArgs()); err != nil {
				log.Printf("failed to forward command line: %v", err)
			}
			return nil, ErrAnotherInstance
		}
	}

	log.Printf("Starting %s...", appName)
	log.Printf("Using config dir: %s", confDir)

	a.bgrndCtx, a.cancel = context.WithCancel(context.Background())
	a.startConfigWriter(a.bgrndCtx)

	if err := a.initMPV(); err != nil {
		return nil, err
	}
	for _, f := range FileArgs() {
		if err := a.Player.LoadFile(f, player.LoadAppendPlay); err != nil {
			log.Printf("failed to load %s: %v", f, err)
		}
	}
	return a, nil
}

func (a *App) IsFirstLaunch() bool {
	return a.isFirstLaunch
}

func (a *App) IsPortableMode() bool {
	return a.portableMode
}

func checkPortablePath() string {
	if p, err := os.Executable(); err == nil {
		pdirPath := path.Join(filepath.Dir(p), portableDir)
		if s, err := os.Stat(pdirPath); err == nil && s.IsDir() {
			return pdirPath
		}
	}
	return ""
}

func (a *App) readConfig() {
	cfgPath := a.configFilePath()
	var cfgExists bool
	if _, err := os.Stat(cfgPath); err == nil {
		cfgExists = true
	}
	a.isFirstLaunch = !cfgExists
	cfg, err := ReadConfigFile(cfgPath)
	if err != nil {
		if cfgExists {
			log.Printf("Error reading app config file: %v", err)
		}
		cfg = DefaultConfig()
		if cfgExists {
			backupCfgName := fmt.Sprintf("%s.bak", configFile)
			log.Printf("Config file may be malformed: copying to %s", backupCfgName)
			_ = util.CopyFile(cfgPath, path.Join(a.configDir, backupCfgName))
		}
	}
	a.Config = cfg
}

// periodically save config file so abnormal exit won't lose settings
func (a *App) startConfigWriter(ctx context.Context) {
	tick := time.NewTicker(2 * time.Minute)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if !reflect.DeepEqual(&a.lastWrittenCfg, a.Config) {
					a.SaveConfigFile()
				}
			}
		}
	}()
}

func (a *App) callOnReactivate() {
	if a.OnReactivate != nil {
		a.OnReactivate()
	}
}

func (a *App) initMPV() error {
	p := mpv.NewWithClientName(a.appName)
	c := a.Config.Playback
	err := p.Init(mpv.Options{
		HardwareDecoding: c.HardwareDecoding,
		KeepOpen:         c.KeepOpen,
		Volume:           float64(c.Volume),
		LoopFile:         player.LoopMode(c.LoopFile),
		LoopPlaylist:     player.LoopMode(c.LoopPlaylist),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mpv player: %s", err.Error())
	}
	p.SetShuffle(c.Shuffle)
	a.Player = p
	return nil
}

// StartIPCServer serves the single-instance control socket, dispatching
// playback commands to pb. Window commands go to OnReactivate and OnExit.
func (a *App) StartIPCServer(pb ipc.PlaybackHandler) {
	listener, err := ipc.Listen()
	if err != nil {
		log.Printf("failed to listen on IPC socket: %v", err)
		return
	}
	a.ipcServer = ipc.NewServer(pb, ipcWindowHandler{a})
	go a.ipcServer.Serve(listener)
}

// StartMPRIS publishes the active window's player on the session bus,
// if enabled in the config.
func (a *App) StartMPRIS(identity string, app Application, loop Loop) {
	if !a.Config.Application.EnableMPRIS {
		return
	}
	m, err := NewMPRISHandler(identity, a.appID, app, loop)
	if err != nil {
		log.Printf("MPRIS: %v", err)
		return
	}
	a.MPRISHandler = m
	m.Start(a.bgrndCtx)
}

func (a *App) Shutdown() {
	if a.ipcServer != nil {
		a.ipcServer.Close()
		ipc.DestroyConn()
	}
	a.Config.Playback.Volume = int(player.VolumeOf(a.Player) + 0.5)
	loopFile, loopPlaylist := player.LoopModesOf(a.Player)
	if validLoopMode(string(loopFile)) {
		a.Config.Playback.LoopFile = string(loopFile)
	}
	if validLoopMode(string(loopPlaylist)) {
		a.Config.Playback.LoopPlaylist = string(loopPlaylist)
	}
	a.Config.Playback.Shuffle = player.ShuffleOf(a.Player)
	a.cancel()
	a.Player.Destroy()
	a.Config.WriteConfigFile(a.configFilePath())
}

func (a *App) SaveConfigFile() {
	a.Config.WriteConfigFile(a.configFilePath())
	a.lastWrittenCfg = *a.Config
}

func (a *App) configFilePath() string {
	return path.Join(a.configDir, configFile)
}

type ipcWindowHandler struct {
	a *App
}

func (h ipcWindowHandler) Show() {
	h.a.callOnReactivate()
}

func (h ipcWindowHandler) Quit() {
	if h.a.OnExit != nil {
		h.a.OnExit()
	}
}
