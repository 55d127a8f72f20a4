package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/cineplayer/cine/backend"
	"github.com/cineplayer/cine/res"
	"github.com/cineplayer/cine/ui"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/lang"
)

func main() {
	flag.Parse()
	if *backend.FlagVersion {
		fmt.Println(res.AppVersion)
		return
	}
	if *backend.FlagHelp {
		flag.Usage()
		return
	}

	myApp, err := backend.StartupApp(res.AppName, res.AppID)
	if err != nil {
		if err == backend.ErrAnotherInstance {
			return
		}
		log.Fatalf("fatal startup error: %v", err.Error())
	}

	if err := lang.AddTranslationsFS(res.Translations, res.TranslationsDir); err != nil {
		log.Printf("failed to load translations: %v", err)
	}

	fyneApp := app.NewWithID(res.AppID)
	wm := ui.NewWindowManager(fyneApp)

	size := fyne.NewSize(float32(myApp.Config.Application.WindowWidth), float32(myApp.Config.Application.WindowHeight))
	mainWindow := ui.NewMainWindow(fyneApp, res.DisplayName, myApp, myApp.Player, wm, size)
	wm.Add(mainWindow)
	myApp.OnReactivate = func() { fyne.Do(mainWindow.Present) }
	myApp.OnExit = func() { fyne.Do(mainWindow.Quit) }

	myApp.StartIPCServer(mainWindow.IPCHandler())
	myApp.StartMPRIS(res.DisplayName, wm, ui.FyneLoop{})

	mainWindow.Show()
	fyneApp.Run()

	log.Println("Running shutdown tasks...")
	myApp.Shutdown()
}
