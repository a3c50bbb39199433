package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
)

/*
	File Viewer Logger

	This script is designed to make a managed log for the file viewer.
	Every line is printed to STDOUT and, if a log folder is given,
	appended to a log file that rolls over every month.
*/

const timestampFormat = "2006-01-02 15:04:05.000000"

var (
	infoTag  = color.New(color.FgCyan).SprintFunc()
	errorTag = color.New(color.FgRed, color.Bold).SprintFunc()
)

type Logger struct {
	Prefix         string //Prefix for log files
	LogFolder      string //Folder to store the log file, empty for STDOUT only
	CurrentLogFile string //Current writing filename
	logger         *log.Logger
	file           *os.File
	stdout         io.Writer
	mu             sync.Mutex
}

// Create a new logger that log to files
func NewLogger(logFilePrefix string, logFolder string) (*Logger, error) {
	err := os.MkdirAll(logFolder, 0775)
	if err != nil {
		return nil, err
	}

	thisLogger := Logger{
		Prefix:    logFilePrefix,
		LogFolder: logFolder,
		stdout:    color.Output,
	}

	//Create the log file if not exists
	logFilePath := thisLogger.getLogFilepath()
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	thisLogger.CurrentLogFile = logFilePath
	thisLogger.file = f
	thisLogger.logger = log.New(f, "", 0)
	return &thisLogger, nil
}

// Create a fmt logger that only log to STDOUT
func NewFmtLogger() (*Logger, error) {
	return &Logger{
		stdout: color.Output,
	}, nil
}

// SetStdout redirects the console copy of the log, mostly for tests
func (l *Logger) SetStdout(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = w
}

func (l *Logger) getLogFilepath() string {
	year, month, _ := time.Now().Date()
	return filepath.Join(l.LogFolder, l.Prefix+"_"+strconv.Itoa(year)+"-"+strconv.Itoa(int(month))+".log")
}

// PrintAndLog will log the message to file and print the log to STDOUT
func (l *Logger) PrintAndLog(title string, message string, originalError error) {
	go func() {
		l.Log(title, message, originalError, true)
	}()
}

// Println is a fast snap-in replacement for log.Println
func (l *Logger) Println(v ...interface{}) {
	message := fmt.Sprint(v...)
	go func() {
		l.Log("internal", message, nil, true)
	}()
}

func (l *Logger) Log(title string, message string, originalError error, copyToSTDOUT bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.validateAndUpdateLogFilepath()

	timestamp := "[" + time.Now().Format(timestampFormat) + "] [" + title + "] "
	level, plainLevel := infoTag("[system:info]"), "[system:info]"
	if originalError != nil {
		level, plainLevel = errorTag("[system:error]"), "[system:error]"
		message = message + ": " + originalError.Error()
	}

	if (l.logger == nil || copyToSTDOUT) && l.stdout != nil {
		fmt.Fprintln(l.stdout, timestamp+level+" "+message)
	}

	if l.logger != nil {
		l.logger.Println(timestamp + plainLevel + " " + message)
	}
}

// Validate if the logging target is still valid (detect any months change)
func (l *Logger) validateAndUpdateLogFilepath() {
	if l.file == nil {
		return
	}
	expectedCurrentLogFilepath := l.getLogFilepath()
	if l.CurrentLogFile != expectedCurrentLogFilepath {
		//Change of month. Update to a new log file
		l.file.Close()
		l.file = nil

		f, err := os.OpenFile(expectedCurrentLogFilepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Println("Unable to create new log. Logging is disabled: ", err.Error())
			l.logger = nil
			return
		}
		l.CurrentLogFile = expectedCurrentLogFilepath
		l.file = f
		l.logger = log.New(f, "", 0)
	}
}

// Close the current log file
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	l.logger = nil
}
