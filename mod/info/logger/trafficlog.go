package logger

/*
	Traffic Log

	This script log the traffic of HTTP requests
*/
import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"imuslab.com/fileviewer/mod/netutils"
)

// Log HTTP request. Runs in a go routine so a slow disk never delays a response
func (l *Logger) LogHTTPRequest(r *http.Request, reqclass string, statusCode int, requestID string) {
	line := formatTrafficLine(r, reqclass, statusCode, requestID)
	go func() {
		l.writeTraffic(line)
	}()
}

func formatTrafficLine(r *http.Request, reqclass string, statusCode int, requestID string) string {
	clientIP := netutils.GetRequesterIP(r)
	return "[" + time.Now().Format(timestampFormat) + "] [router:" + reqclass + "] [client " + clientIP + "] [reqid " + requestID + "] " + r.Method + " " + r.RequestURI + " " + strconv.Itoa(statusCode)
}

func (l *Logger) writeTraffic(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.validateAndUpdateLogFilepath()
	if l.logger != nil {
		l.logger.Println(line)
		return
	}
	if l.stdout != nil {
		fmt.Fprintln(l.stdout, line)
	}
}
