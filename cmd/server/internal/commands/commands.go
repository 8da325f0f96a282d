package commands

import (
	"crypto/tls"
	"net/http"
	"time"
)

type Globals struct {
	Debug   bool
	Version string
}

// newHTTPServer sizes timeouts for chain invocations, which can run for minutes when the
// virtualizer is slow. tlsConfig may be nil for plain HTTP.
func newHTTPServer(addr string, handler http.Handler, tlsConfig *tls.Config) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    16 * 1024,
	}
}
