package webserv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"imuslab.com/fileviewer/mod/info/logger"
)

/*
	Web Server package

	Lifecycle wrapper around net/http used by both the file browser
	and the WebDAV listener: bind, serve until the context is done,
	then shut down gracefully
*/

var ErrBind = errors.New("unable to bind listening address")

const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	ShutdownTimeout          = 5 * time.Second
)

type WebServerOptions struct {
	Name              string //Used as log title, e.g. "browser" or "webdav"
	ListeningAddress  string //host:port or :port
	Handler           http.Handler
	Logger            *logger.Logger
	ReadHeaderTimeout time.Duration //0 for DefaultReadHeaderTimeout
	IdleTimeout       time.Duration //0 for DefaultIdleTimeout
}

type WebServer struct {
	option    *WebServerOptions
	server    *http.Server
	listener  net.Listener
	isRunning bool
	mu        sync.Mutex
}

func NewWebServer(option *WebServerOptions) *WebServer {
	if option.Name == "" {
		option.Name = "webserv"
	}
	if option.ReadHeaderTimeout <= 0 {
		option.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if option.IdleTimeout <= 0 {
		option.IdleTimeout = DefaultIdleTimeout
	}

	return &WebServer{
		option: option,
		server: &http.Server{
			Addr:              option.ListeningAddress,
			Handler:           option.Handler,
			ReadHeaderTimeout: option.ReadHeaderTimeout,
			IdleTimeout:       option.IdleTimeout,
		},
	}
}

// Listen binds the listening address. Failures are wrapped in ErrBind.
func (ws *WebServer) Listen() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.listener != nil {
		return fmt.Errorf("%s server is already listening", ws.option.Name)
	}
	ln, err := net.Listen("tcp", ws.option.ListeningAddress)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrBind, ws.option.ListeningAddress, err)
	}
	ws.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen
func (ws *WebServer) Addr() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.listener != nil {
		return ws.listener.Addr().String()
	}
	return ws.option.ListeningAddress
}

// Serve accepts connections until ctx is done, then waits up to
// ShutdownTimeout for in-flight requests. Listen is called if needed.
func (ws *WebServer) Serve(ctx context.Context) error {
	ws.mu.Lock()
	needListen := ws.listener == nil
	ws.mu.Unlock()
	if needListen {
		if err := ws.Listen(); err != nil {
			return err
		}
	}

	ws.mu.Lock()
	if ws.isRunning {
		ws.mu.Unlock()
		return fmt.Errorf("%s server is already running", ws.option.Name)
	}
	ws.isRunning = true
	ln := ws.listener
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		ws.isRunning = false
		ws.listener = nil
		ws.mu.Unlock()
	}()

	ws.logf("Listening on "+ln.Addr().String(), nil)
	errCh := make(chan error, 1)
	go func() {
		errCh <- ws.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		ws.logf("Server stopped unexpectedly", err)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		err := ws.server.Shutdown(shutdownCtx)
		<-errCh
		if err != nil {
			ws.logf("Graceful shutdown timed out", err)
			ws.server.Close()
			return err
		}
		ws.logf("Server stopped", nil)
		return nil
	}
}

// IsRunning returns the running state of the server
func (ws *WebServer) IsRunning() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.isRunning
}

// Stop closes the server immediately without waiting for requests
func (ws *WebServer) Stop() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.isRunning {
		if ws.listener != nil {
			err := ws.listener.Close()
			ws.listener = nil
			return err
		}
		return fmt.Errorf("%s server is not running", ws.option.Name)
	}
	return ws.server.Close()
}

func (ws *WebServer) logf(message string, err error) {
	if ws.option.Logger != nil {
		ws.option.Logger.PrintAndLog(ws.option.Name, message, err)
	}
}
