package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/server/store"
	"github.com/zjrosen/regform/internal/watcher"
)

// Server wraps the Handler with an http.Server for lifecycle management.
type Server struct {
	handler       *Handler
	store         Store
	server        *http.Server
	listener      net.Listener
	port          int
	countriesFile string
}

// Config configures the server.
type Config struct {
	// Addr is the address to listen on (e.g. "localhost:3000" or ":0").
	Addr string
	// Handler serves the routes. Required.
	Handler *Handler
	// Store receives reloaded countries. Required when CountriesFile is set.
	Store Store
	// CountriesFile is an optional YAML seed that is reloaded on change.
	CountriesFile string
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
}

// New creates the server and binds its listener.
// With port 0 the OS picks a port; Port reports it.
func New(cfg Config) (*Server, error) {
	if cfg.Handler == nil {
		return nil, errors.New("server: handler is required")
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		handler:       cfg.Handler,
		store:         cfg.Store,
		listener:      listener,
		port:          port,
		countriesFile: cfg.CountriesFile,
		server: &http.Server{
			Handler:           cfg.Handler.Routes(),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
	}, nil
}

// Start serves until Stop. Returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Info(log.CatServer, "Starting registration backend", "addr", s.listener.Addr().String())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatServer, "Stopping registration backend")
	return s.server.Shutdown(ctx)
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// URL returns the base URL clients should use.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.listener.Addr().String())
}

// ReloadCountries replaces the stored countries with the seed file content
// and drops the cached list. A bad file leaves the current list in place.
func (s *Server) ReloadCountries(ctx context.Context) error {
	if s.countriesFile == "" {
		return nil
	}
	if s.store == nil {
		return errors.New("server: store is required to reload countries")
	}
	countries, err := store.LoadCountriesFile(s.countriesFile)
	if err == nil {
		err = s.store.ReplaceCountries(ctx, countries)
	}
	s.handler.metrics.ObserveCountriesReload(err == nil)
	if err != nil {
		log.ErrorErr(log.CatServer, "Failed to reload countries", err, "file", s.countriesFile)
		return err
	}
	s.handler.InvalidateCountries()
	log.Info(log.CatServer, "countries reloaded", "file", s.countriesFile, "count", len(countries))
	return nil
}

// WatchCountries reloads the seed file whenever it changes, until ctx ends.
// Returns immediately when no seed file is configured.
func (s *Server) WatchCountries(ctx context.Context, debounce time.Duration) error {
	if s.countriesFile == "" {
		return nil
	}
	w, err := watcher.New(s.countriesFile, watcher.WithDelay(debounce))
	if err != nil {
		return err
	}
	// Reload errors are logged and counted; keep watching.
	return w.Run(ctx, func(string) { _ = s.ReloadCountries(ctx) })
}
