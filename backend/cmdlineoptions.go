package backend

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cineplayer/cine/backend/ipc"
)

var (
	FlagPlayPause = flag.Bool("play-pause", false, "toggle play/pause state")
	FlagPrevious  = flag.Bool("previous", false, "play the previous playlist entry")
	FlagNext      = flag.Bool("next", false, "play the next playlist entry")
	FlagQuit      = flag.Bool("quit", false, "quit the running instance")
	FlagVersion   = flag.Bool("version", false, "print app version and exit")
	FlagHelp      = flag.Bool("help", false, "print command line options and exit")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] [file|url ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
}

func HaveCommandLineOptions() bool {
	visitedAny := false
	flag.Visit(func(*flag.Flag) {
		visitedAny = true
	})
	return visitedAny
}

// FileArgs returns the positional arguments as absolute paths.
// URLs are returned unchanged.
func FileArgs() []string {
	var files []string
	for _, arg := range flag.Args() {
		if strings.Contains(arg, "://") {
			files = append(files, arg)
			continue
		}
		if abs, err := filepath.Abs(arg); err == nil {
			arg = abs
		}
		files = append(files, arg)
	}
	return files
}

// forwardToRunningInstance sends the command line files and commands to
// another instance. With nothing to forward, it raises that instance's window.
func forwardToRunningInstance(cli *ipc.Client, files []string) error {
	if len(files) > 0 {
		if err := cli.Open(files); err != nil {
			return err
		}
	}
	var err error
	switch {
	case *FlagQuit:
		err = cli.Quit()
	case *FlagPlayPause:
		err = cli.PlayPause()
	case *FlagNext:
		err = cli.Next()
	case *FlagPrevious:
		err = cli.Previous()
	case len(files) == 0:
		err = cli.Show()
	}
	return err
}
