package chain

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the chain configuration assembled from the environment.
type Config struct {
	VirtualizerHost     string         `json:"virtualizer_host" yaml:"virtualizer_host"`
	VirtualizerPort     int            `json:"virtualizer_port" yaml:"virtualizer_port"`
	VirtualizerBasePath string         `json:"virtualizer_base_path,omitempty" yaml:"virtualizer_base_path,omitempty"`
	VirtualizerScheme   string         `json:"virtualizer_scheme,omitempty" yaml:"virtualizer_scheme,omitempty"`
	Extra               map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`

	// TLS paths are used to reach the virtualizer through the developer proxy and are
	// never serialised back to clients.
	ClientCert string `json:"-" yaml:"-"`
	ClientKey  string `json:"-" yaml:"-"`
	CACert     string `json:"-" yaml:"-"`
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ConfigFromEnv reads VIRTUALIZER_HOST and VIRTUALIZER_PORT, both required, plus the
// optional VIRTUALIZER_BASE_PATH, VIRTUALIZER_SCHEME and VAULT_LOCAL_* certificate paths.
func ConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	host, ok := lookup("VIRTUALIZER_HOST")
	if !ok || host == "" {
		return Config{}, fmt.Errorf("%w: VIRTUALIZER_HOST is required", ErrInvalidConfig)
	}

	rawPort, ok := lookup("VIRTUALIZER_PORT")
	if !ok || rawPort == "" {
		return Config{}, fmt.Errorf("%w: VIRTUALIZER_PORT is required", ErrInvalidConfig)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("%w: VIRTUALIZER_PORT %q is not a valid port", ErrInvalidConfig, rawPort)
	}

	cfg := Config{
		VirtualizerHost:   host,
		VirtualizerPort:   port,
		VirtualizerScheme: "https",
	}
	cfg.VirtualizerBasePath, _ = lookup("VIRTUALIZER_BASE_PATH")
	if scheme, ok := lookup("VIRTUALIZER_SCHEME"); ok && scheme != "" {
		cfg.VirtualizerScheme = scheme
	}
	cfg.ClientCert, _ = lookup("VAULT_LOCAL_CLIENT_CERT")
	cfg.ClientKey, _ = lookup("VAULT_LOCAL_CLIENT_KEY")
	cfg.CACert, _ = lookup("VAULT_LOCAL_CA_CERTS")

	return cfg, nil
}

// LoadExtra merges the YAML document at path into cfg.Extra. Keys already present are
// overwritten by the file.
func (c *Config) LoadExtra(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read chain config: %w", err)
	}

	extra := map[string]any{}
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if c.Extra == nil {
		c.Extra = map[string]any{}
	}
	for k, v := range extra {
		c.Extra[k] = v
	}

	return nil
}

// HasTLS reports whether client certificate paths were provided.
func (c Config) HasTLS() bool {
	return c.ClientCert != "" && c.ClientKey != "" && c.CACert != ""
}
