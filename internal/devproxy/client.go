package devproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"

	"github.com/wolfeidau/genai-devkit/internal/certs"
)

// Banner is expected somewhere in the proxy's root response.
const Banner = "Welcome to GenAI Developer Proxy!"

const maxBodySize = 10 * 1024 * 1024

// ErrUnexpectedBanner is returned in strict mode when the banner is missing.
var ErrUnexpectedBanner = errors.New("proxy URL response is not as expected")

// StatusError is returned when the proxy answers with anything but 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("proxy URL response status is not 200. HTTP status: %d Response: %s", e.StatusCode, e.Body)
}

// Config holds probe settings
type Config struct {
	Timeout      time.Duration
	Attempts     uint
	StrictBanner bool
}

// DefaultConfig returns a single attempt probe with a 30 second timeout.
func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		Attempts: 1,
	}
}

// Result is what a successful probe learned about the proxy.
type Result struct {
	// BaseURL is the normalised https://host:port of the proxy.
	BaseURL         string
	Registry        *Registry
	EnabledServices []string
	GenAIAPI        ServiceName
	BannerFound     bool
}

// Client talks to the developer proxy over mutual TLS.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client presenting the bundle's certificate and trusting its CA.
func NewClient(bundle *certs.Bundle, cfg Config) (*Client, error) {
	tlsConfig, err := bundle.ClientTLSConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to enable HTTP/2: %w", err)
	}

	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// Probe issues GET / against the proxy and resolves the GenAI API service name from the
// returned registry. Transport errors are retried when more than one attempt is configured;
// HTTP and decoding errors are not.
func (c *Client) Probe(ctx context.Context, rawURL string) (*Result, error) {
	baseURL, err := ParseProxyURL(rawURL)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("url", baseURL.String()).Uint("attempts", c.cfg.Attempts).Msg("Checking proxy URL")

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.fetch(ctx, baseURL.String()+"/")
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.cfg.Attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("next_retry", next).Msg("Proxy request failed, will retry")
		}),
	)
	if err != nil {
		return nil, err
	}

	result := &Result{
		BaseURL:     baseURL.String(),
		BannerFound: strings.Contains(string(body), Banner),
	}

	if !result.BannerFound {
		if c.cfg.StrictBanner {
			return nil, fmt.Errorf("%w. Response: %s", ErrUnexpectedBanner, body)
		}
		log.Warn().Str("response", string(body)).Msg("Proxy URL response is not as expected")
	}

	registry := &Registry{}
	if err := json.Unmarshal(body, registry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	if registry.Services == nil {
		return nil, fmt.Errorf("%w: missing services", ErrInvalidRegistry)
	}
	result.Registry = registry
	result.EnabledServices = registry.EnabledServices()

	log.Info().Strs("services", result.EnabledServices).Msg("Enabled services")

	host, err := registry.ServiceHost(GenAIAPIService)
	if err != nil {
		return nil, err
	}

	result.GenAIAPI, err = ParseServiceName(host)
	if err != nil {
		return nil, err
	}

	log.Info().Str("service_name", result.GenAIAPI.Host).Str("tenant", result.GenAIAPI.Tenant).Msg("GenAI API service name")

	return result, nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach proxy: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	return body, nil
}
