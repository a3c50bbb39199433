package main

/*
	Type and flag definations

	This file contains all the constants, flags and
	global handlers of the file viewer
*/

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"imuslab.com/fileviewer/mod/browser"
	"imuslab.com/fileviewer/mod/database"
	"imuslab.com/fileviewer/mod/info/logger"
	"imuslab.com/fileviewer/mod/preview"
	"imuslab.com/fileviewer/mod/webserv"
)

const (
	/* Build Constants */
	SYSTEM_NAME    = "File Viewer"
	SYSTEM_VERSION = "1.0.0"

	/* System Constants */
	LOG_PREFIX            = "fv"
	THUMBNAIL_FOLDER_NAME = "web_file_viewer"
	THUMBNAIL_DB_NAME     = "index.db"
	PREVIEW_CACHE_TTL     = 10 * time.Minute
)

/* System Startup Flags */
var (
	listeningAddress = flag.String("port", ":8080", "Listening address, e.g. :8080 or 127.0.0.1:8080")
	enablePreview    = flag.Bool("preview", true, "Enable image and video previews in directory listings")
	ffmpegPath       = flag.String("ffmpeg", "ffmpeg", "ffmpeg binary used to render video thumbnails")
	databaseBackend  = flag.String("db", "auto", "Thumbnail index backend to use (leveldb, boltdb, auto)")
	webdavAddress    = flag.String("webdav", "", "Read only WebDAV listening address, leave empty to disable")
	openBrowser      = flag.Bool("open", false, "Open the file viewer in the default web browser after startup")
	showver          = flag.Bool("version", false, "Show version of this server")

	/* Path Configuration Flags */
	path_root      = flag.String("root", "", "Directory to serve, leave empty for the current working directory")
	path_thumbnail = flag.String("thumbdir", filepath.Join(os.TempDir(), THUMBNAIL_FOLDER_NAME), "Folder for generated thumbnails and their index")
	path_logFile   = flag.String("log", "", "Log folder path, leave empty to log to STDOUT only")
)

/* Global Variables and Handlers */
var (
	SystemWideLogger *logger.Logger     //Logger for the file viewer
	serveRoot        *browser.Root      //The directory being served
	sysdb            *database.Database //Thumbnail index, nil when previews are disabled
	previewGenerator *preview.Generator //Preview descriptors and video thumbnails
	fileBrowser      *browser.Browser   //HTTP handler of the file browser
	webServer        *webserv.WebServer //Main listener
	webdavServer     *webserv.WebServer //Read only WebDAV listener, nil if disabled
)
