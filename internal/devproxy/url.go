package devproxy

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// DefaultPort is used when the proxy URL does not carry one.
const DefaultPort = "8080"

// ErrNotHTTPS is returned for proxy URLs that do not use the https scheme.
var ErrNotHTTPS = errors.New("proxy URL should be HTTPS")

// ParseProxyURL validates raw and returns the normalised base URL https://host:port.
func ParseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrNotHTTPS, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: missing host", raw)
	}

	port := u.Port()
	if port == "" {
		port = DefaultPort
	}

	return &url.URL{
		Scheme: u.Scheme,
		Host:   net.JoinHostPort(u.Hostname(), port),
	}, nil
}
