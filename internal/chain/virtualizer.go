package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/genai-devkit/internal/certs"
)

// VirtualizerName is the registry name of the virtualizer relay chain.
const VirtualizerName = "virtualizer"

// Headers carrying the caller identity to the virtualizer.
const (
	HeaderUser     = "X-Genai-User"
	HeaderTenant   = "X-Genai-Tenant"
	HeaderAuthType = "X-Genai-Auth-Type"
)

const maxResponseSize = 10 * 1024 * 1024

func init() {
	Register(VirtualizerName, NewVirtualizerChain)
}

// VirtualizerChain forwards the invocation input to the virtualizer query endpoint and
// returns its JSON answer as the chain output.
type VirtualizerChain struct {
	endpoint   string
	httpClient *http.Client
}

// NewVirtualizerChain builds the relay. When VAULT_LOCAL_* paths are configured the
// virtualizer is reached over mutual TLS.
func NewVirtualizerChain(cfg Config) (Chain, error) {
	if cfg.VirtualizerHost == "" || cfg.VirtualizerPort == 0 {
		return nil, fmt.Errorf("%w: virtualizer host and port are required", ErrInvalidConfig)
	}

	scheme := cfg.VirtualizerScheme
	if scheme == "" {
		scheme = "https"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.HasTLS() {
		bundle, err := certs.FromFiles(cfg.ClientCert, cfg.ClientKey, cfg.CACert)
		if err != nil {
			return nil, err
		}
		tlsConfig, err := bundle.ClientTLSConfig("")
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsConfig
	}

	basePath := "/" + strings.Trim(cfg.VirtualizerBasePath, "/")
	if basePath == "/" {
		basePath = ""
	}

	return &VirtualizerChain{
		endpoint: fmt.Sprintf("%s://%s%s/query", scheme,
			net.JoinHostPort(cfg.VirtualizerHost, strconv.Itoa(cfg.VirtualizerPort)), basePath),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   5 * time.Minute,
		},
	}, nil
}

// Endpoint returns the URL queries are posted to.
func (v *VirtualizerChain) Endpoint() string {
	return v.endpoint
}

func (v *VirtualizerChain) Invoke(ctx context.Context, req Request) (*Response, error) {
	if len(req.Input) == 0 || !json.Valid(req.Input) {
		return nil, fmt.Errorf("input must be a JSON document")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(req.Input))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtualizer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderUser, req.State.ClientUserID)
	httpReq.Header.Set(HeaderTenant, req.State.ClientTenant)
	httpReq.Header.Set(HeaderAuthType, req.State.ClientAuthType)

	started := time.Now()
	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach virtualizer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read virtualizer response: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("endpoint", v.endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("virtualizer query")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("virtualizer returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("virtualizer returned a non JSON response")
	}

	return &Response{Output: body}, nil
}
