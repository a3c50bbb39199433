package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"imuslab.com/fileviewer/mod/browser"
	"imuslab.com/fileviewer/mod/database"
	"imuslab.com/fileviewer/mod/database/dbinc"
	"imuslab.com/fileviewer/mod/info/logger"
	"imuslab.com/fileviewer/mod/preview"
	"imuslab.com/fileviewer/mod/utils"
	"imuslab.com/fileviewer/mod/webserv"
)

/*
	Startup Sequence

	This function starts the startup sequence of all
	required modules
*/

func startupSequence() error {
	//Create the system logger
	var err error
	if *path_logFile == "" {
		SystemWideLogger, err = logger.NewFmtLogger()
	} else {
		SystemWideLogger, err = logger.NewLogger(LOG_PREFIX, *path_logFile)
	}
	if err != nil {
		return fmt.Errorf("unable to create logger: %w", err)
	}

	//Open the directory to serve
	rootDir := *path_root
	if rootDir == "" {
		rootDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("unable to read working directory: %w", err)
		}
	}
	serveRoot, err = browser.NewRoot(rootDir)
	if err != nil {
		return fmt.Errorf("invalid root directory %q: %w", rootDir, err)
	}
	SystemWideLogger.PrintAndLog("root", "Serving files from "+serveRoot.Path(), nil)

	/*
		Preview Services

		Thumbnail index and generator, only created when previews
		are enabled
	*/
	var previewer browser.Previewer
	if *enablePreview {
		previewer, err = startPreviewServices()
		if err != nil {
			return err
		}
	}

	fileBrowser = browser.NewBrowser(&browser.Options{
		Root:      serveRoot,
		Logger:    SystemWideLogger,
		Previewer: previewer,
	})

	webServer = webserv.NewWebServer(&webserv.WebServerOptions{
		Name:             "browser",
		ListeningAddress: *listeningAddress,
		Handler:          fileBrowser,
		Logger:           SystemWideLogger,
	})

	if *webdavAddress != "" {
		webdavServer = webserv.NewWebServer(&webserv.WebServerOptions{
			Name:             "webdav",
			ListeningAddress: *webdavAddress,
			Handler:          webserv.NewWebDAVHandler(serveRoot, SystemWideLogger),
			Logger:           SystemWideLogger,
		})
	}
	return nil
}

func startPreviewServices() (browser.Previewer, error) {
	backend, err := dbinc.ParseBackendType(*databaseBackend)
	if err != nil {
		return nil, fmt.Errorf("invalid -db value %q: %w", *databaseBackend, err)
	}

	if utils.FileExists(*path_thumbnail) && !utils.IsDir(*path_thumbnail) {
		return nil, fmt.Errorf("thumbnail folder %q is not a directory", *path_thumbnail)
	}
	folder := preview.CacheFolder(*path_thumbnail, serveRoot)
	if err := os.MkdirAll(folder, 0775); err != nil {
		return nil, fmt.Errorf("unable to create thumbnail folder: %w", err)
	}
	sysdb = openThumbnailIndex(folder, backend)

	if _, err := exec.LookPath(*ffmpegPath); err != nil {
		SystemWideLogger.PrintAndLog("preview", "ffmpeg not found, video thumbnails will not be available", err)
	}

	previewGenerator, err = preview.NewGenerator(&preview.Options{
		Root:         serveRoot,
		ThumbnailDir: *path_thumbnail,
		FFmpegPath:   *ffmpegPath,
		Database:     sysdb,
		Logger:       SystemWideLogger,
		CacheTTL:     PREVIEW_CACHE_TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to start preview generator: %w", err)
	}

	removed, err := previewGenerator.Prune()
	if err != nil {
		SystemWideLogger.PrintAndLog("preview", "Unable to prune thumbnail cache", err)
	} else if removed > 0 {
		SystemWideLogger.PrintAndLog("preview", fmt.Sprintf("Removed %d stale thumbnails", removed), nil)
	}
	return previewGenerator, nil
}

// openThumbnailIndex opens the index database inside the cache folder of
// the served root. If it cannot be opened (e.g. another instance serving
// the same root holds the lock) previews keep working on file timestamps.
func openThumbnailIndex(folder string, backend dbinc.BackendType) *database.Database {
	db, err := database.NewDatabase(filepath.Join(folder, THUMBNAIL_DB_NAME), backend)
	if err != nil {
		if errors.Is(err, dbinc.ErrLocked) {
			SystemWideLogger.PrintAndLog("preview", "Thumbnail index is in use by another instance, continuing without it", err)
		} else {
			SystemWideLogger.PrintAndLog("preview", "Unable to open thumbnail index, continuing without it", err)
		}
		return nil
	}
	SystemWideLogger.PrintAndLog("preview", "Thumbnail index opened using "+db.BackendType.String()+" backend", nil)
	return db
}

/* Shutdown Sequence, release all opened resources */
func ShutdownSeq() {
	if SystemWideLogger != nil {
		//Synchronous, the process exits right after
		SystemWideLogger.Log("internal", "Shutting down "+SYSTEM_NAME, nil, true)
	}
	if previewGenerator != nil {
		previewGenerator.Close()
	}
	if sysdb != nil {
		sysdb.Close()
	}
	if serveRoot != nil {
		serveRoot.Close()
	}
	if SystemWideLogger != nil {
		SystemWideLogger.Close()
	}
}
