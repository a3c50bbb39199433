package main

/*
	File Viewer

	A small read only web file browser. Serves the files under one
	directory with HTML listings, image and video previews and an
	optional read only WebDAV mount.
*/

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	webbrowser "github.com/pkg/browser"
	"golang.org/x/sync/errgroup"
	"imuslab.com/fileviewer/mod/netutils"
	"imuslab.com/fileviewer/mod/utils"
)

func main() {
	//Parse startup flags, malformed flags exit with 1 like any other startup failure
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if *showver {
		fmt.Println(SYSTEM_NAME + " - Version " + SYSTEM_VERSION)
		os.Exit(0)
	}

	if !utils.ValidateListeningAddress(*listeningAddress) {
		fmt.Println("Malformed -port (listening address) parameter. Do you mean -port=:" + *listeningAddress + "?")
		os.Exit(1)
	}
	if *webdavAddress != "" && !utils.ValidateListeningAddress(*webdavAddress) {
		fmt.Println("Malformed -webdav (listening address) parameter: " + *webdavAddress)
		os.Exit(1)
	}

	//Check the ports before opening anything else
	if netutils.CheckIfPortOccupied(*listeningAddress) {
		fmt.Println("Port already in use or access denied by host OS: " + *listeningAddress)
		os.Exit(1)
	}
	if *webdavAddress != "" && netutils.CheckIfPortOccupied(*webdavAddress) {
		fmt.Println("Port already in use or access denied by host OS: " + *webdavAddress)
		os.Exit(1)
	}

	//Startup all modules, see start.go
	if err := startupSequence(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		ShutdownSeq()
		os.Exit(1)
	}

	//Bind before reporting the start, so a busy port fails fast
	if err := webServer.Listen(); err != nil {
		SystemWideLogger.Log("browser", "Unable to start "+SYSTEM_NAME, err, true)
		ShutdownSeq()
		os.Exit(1)
	}
	if webdavServer != nil {
		if err := webdavServer.Listen(); err != nil {
			SystemWideLogger.Log("webdav", "Unable to start WebDAV server", err, true)
			webServer.Stop()
			ShutdownSeq()
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webServer.Serve(gctx)
	})
	if webdavServer != nil {
		g.Go(func() error {
			return webdavServer.Serve(gctx)
		})
	}

	visitURL := netutils.BrowsableURL(webServer.Addr())
	SystemWideLogger.Println(SYSTEM_NAME + " started. Visit " + visitURL)
	if webdavServer != nil {
		SystemWideLogger.Println("Read only WebDAV available at " + netutils.BrowsableURL(webdavServer.Addr()))
	}
	if *openBrowser {
		if err := webbrowser.OpenURL(visitURL); err != nil {
			SystemWideLogger.PrintAndLog("browser", "Unable to open web browser", err)
		}
	}

	err := g.Wait()
	stop()
	ShutdownSeq()
	if err != nil {
		os.Exit(1)
	}
}
