// Package chain hosts request processing units behind the local GenAI server.
//
// A chain is looked up by name in a registry, built from a Config assembled from the
// environment and invoked once per request with the caller's GenAI state.
package chain

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrChainNotFound is returned when no chain is registered under a name.
	ErrChainNotFound = errors.New("chain not found")

	// ErrInvalidConfig is returned when the environment does not describe a usable chain config.
	ErrInvalidConfig = errors.New("invalid chain config")
)

// AuthTypeMTLS marks state derived from a verified client certificate.
const AuthTypeMTLS = "mtls"

// State is the caller identity the GenAI API attaches to every invocation.
type State struct {
	ClientAuthType string `json:"client_auth_type"`
	ClientUserID   string `json:"client_user_id"`
	ClientTenant   string `json:"client_tenant"`
}

// Valid reports whether the state names a user and a tenant.
func (s State) Valid() bool {
	return s.ClientUserID != "" && s.ClientTenant != ""
}

// Request is a single chain invocation.
type Request struct {
	Input json.RawMessage
	State State
}

// Response carries the chain output verbatim.
type Response struct {
	Output json.RawMessage
}

// Chain processes invocations. Implementations must be safe for concurrent use.
type Chain interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Factory builds a chain from its configuration.
type Factory func(cfg Config) (Chain, error)
