package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/wolfeidau/genai-devkit/internal/certs"
	"github.com/wolfeidau/genai-devkit/internal/devproxy"
)

type Globals struct {
	Debug   bool
	Version string
}

// CertsFlags locate the user certificates.
type CertsFlags struct {
	CertsPath string `name:"certs_path" help:"Folder with user certificates." required:"" env:"GENAI_CERTS_PATH" type:"path"`
}

func (f CertsFlags) discover() (*certs.Bundle, error) {
	bundle, err := certs.Discover(f.CertsPath)
	if err != nil {
		return nil, err
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("certificates in %s are not usable: %w", bundle.Dir, err)
	}
	return bundle, nil
}

// ProxyFlags configure the request to the developer proxy.
type ProxyFlags struct {
	ProxyURL     string        `name:"proxy_url" help:"GenAI Developer Proxy URL." required:"" env:"GENAI_PROXY_URL"`
	Timeout      time.Duration `help:"timeout for the proxy request" default:"30s"`
	Attempts     uint          `help:"attempts for the proxy request, only transport errors are retried" default:"1"`
	StrictBanner bool          `help:"fail when the proxy welcome banner is missing from the response" default:"false"`
}

func (f ProxyFlags) config() devproxy.Config {
	cfg := devproxy.DefaultConfig()
	cfg.Timeout = f.Timeout
	cfg.Attempts = f.Attempts
	cfg.StrictBanner = f.StrictBanner
	return cfg
}

// workingDir is where the env files land by default, the directory the command is run from.
func workingDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return dir, nil
}
