package httpserver

import (
	"net/http"
	"time"
)

// New builds the intake gateway's HTTP server. Every endpoint exchanges
// small JSON bodies, so the read and write timeouts are tight; idle
// connections are kept around for browser keep-alive during the step flow.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
