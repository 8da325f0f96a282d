package commands

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/wolfeidau/genai-devkit/internal/certs"
	"github.com/wolfeidau/genai-devkit/internal/chain"
	"github.com/wolfeidau/genai-devkit/internal/envfile"
	"github.com/wolfeidau/genai-devkit/internal/logger"
	"github.com/wolfeidau/genai-devkit/internal/server"
	"github.com/wolfeidau/genai-devkit/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen   string `help:"HTTP server listen address" default:"localhost:8080" env:"GENAI_SERVER_LISTEN"`
	Cert     string `help:"path to TLS cert file, enables HTTPS" default:"" env:"GENAI_SERVER_TLS_CERT" type:"path"`
	Key      string `help:"path to TLS key file" default:"" env:"GENAI_SERVER_TLS_KEY" type:"path"`
	ClientCA string `help:"CA used to verify optional client certificates" default:"" env:"GENAI_SERVER_CLIENT_CA" type:"path"`

	CORSOrigins []string `help:"allowed CORS origins" env:"GENAI_CORS_ORIGINS"`

	// Chain configuration, the virtualizer settings are read from VIRTUALIZER_* variables
	Chain       string `help:"name of the chain to serve" default:"virtualizer" env:"GENAI_CHAIN"`
	ChainConfig string `help:"YAML file with extra chain configuration" default:"" env:"GENAI_CHAIN_CONFIG" type:"path"`
	EnvFile     string `help:"genai-env.env file loaded into the environment before the configuration is read" default:"" type:"path"`
	ServiceName string `help:"GenAI API service name, the tenant of mTLS callers is derived from it" default:"" env:"GENAI_API_SERVICE_NAME"`

	// Telemetry
	Tracing          bool    `help:"enable tracing and metrics export over OTLP" default:"false" env:"GENAI_TRACING"`
	TraceSampleRatio float64 `help:"fraction of traces to keep" default:"1"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	zlog.Logger = log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting chain server")

	if c.EnvFile != "" {
		if err := envfile.Load(c.EnvFile); err != nil {
			return err
		}
		log.Info().Str("path", c.EnvFile).Msg("Loaded environment file")
	}
	if c.ServiceName == "" {
		c.ServiceName = os.Getenv("GENAI_API_SERVICE_NAME")
	}

	if err := c.validateTLS(); err != nil {
		return err
	}

	chainConfig, err := chain.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		return err
	}
	if c.ChainConfig != "" {
		if err := chainConfig.LoadExtra(c.ChainConfig); err != nil {
			return err
		}
	}

	if c.Tracing {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: "genai-chain-server",
			Version:     globals.Version,
			SampleRatio: c.TraceSampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	ch, err := chain.Build(c.Chain, chainConfig)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		ChainName:   c.Chain,
		ChainConfig: chainConfig,
		ServiceName: c.ServiceName,
		CORSOrigins: c.CORSOrigins,
		Logger:      log,
	}, ch)
	if err != nil {
		return err
	}

	var tlsConfig *tls.Config
	if c.Cert != "" {
		tlsConfig, err = certs.ServerTLSConfig(c.Cert, c.Key, c.ClientCA)
		if err != nil {
			return err
		}
	}
	httpServer := newHTTPServer(c.Listen, srv.Handler(), tlsConfig)

	log.Info().
		Str("addr", c.Listen).
		Str("chain", c.Chain).
		Str("virtualizer_host", chainConfig.VirtualizerHost).
		Int("virtualizer_port", chainConfig.VirtualizerPort).
		Bool("tls", httpServer.TLSConfig != nil).
		Msg("Serving chain")

	errCh := make(chan error, 1)
	go func() {
		if httpServer.TLSConfig != nil {
			errCh <- httpServer.ListenAndServeTLS("", "")
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down chain server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (c *ServeCmd) validateTLS() error {
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be provided together (--cert and --key)")
	}
	if c.ClientCA != "" && c.Cert == "" {
		return errors.New("--client-ca requires --cert and --key")
	}
	for _, path := range []string{c.Cert, c.Key, c.ClientCA} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("TLS file not found at %s: %w", path, err)
		}
	}
	return nil
}

// ChainsCmd lists registered chains.
type ChainsCmd struct{}

func (c *ChainsCmd) Run(globals *Globals) error {
	for _, name := range chain.Names() {
		fmt.Println(name)
	}
	return nil
}
