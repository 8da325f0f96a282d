package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	zlog "github.com/rs/zerolog/log"

	"github.com/wolfeidau/genai-devkit/internal/devproxy"
	"github.com/wolfeidau/genai-devkit/internal/envfile"
	"github.com/wolfeidau/genai-devkit/internal/logger"
)

type EnvCmd struct {
	CertsFlags
	ProxyFlags

	OutputDir string   `help:"directory the env files are written to, defaults to the current directory" default:"" type:"path"`
	Formats   []string `help:"env file formats to write" default:"env,bash" enum:"env,bash"`

	Out io.Writer `kong:"-"`
}

func (c *EnvCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Console(globals.Debug)
	zlog.Logger = log

	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	bundle, err := c.discover()
	if err != nil {
		return err
	}
	log.Info().Str("username", bundle.Username).Str("dir", bundle.Dir).Msg("Certificates OK!")

	client, err := devproxy.NewClient(bundle, c.config())
	if err != nil {
		return err
	}

	result, err := client.Probe(ctx, c.ProxyURL)
	if err != nil {
		return err
	}
	log.Info().Str("url", result.BaseURL).Msg("Proxy URL OK!")

	dir := c.OutputDir
	if dir == "" {
		dir, err = workingDir()
		if err != nil {
			return err
		}
	}

	env := envfile.GenAIEnv(envfile.Settings{
		ProxyURL:    result.BaseURL,
		ServiceName: result.GenAIAPI.Host,
		Tenant:      result.GenAIAPI.Tenant,
		ClientCert:  bundle.ClientCert,
		ClientKey:   bundle.ClientKey,
		CACert:      bundle.CACert,
	})

	formats := c.Formats
	if len(formats) == 0 {
		formats = []string{string(envfile.FormatEnv), string(envfile.FormatBash)}
	}

	for _, name := range formats {
		format, err := envfile.ParseFormat(name)
		if err != nil {
			return err
		}
		path, err := env.WriteFile(dir, format)
		if err != nil {
			return err
		}
		log.Debug().Str("path", path).Str("format", string(format)).Msg("Wrote env file")
		fmt.Fprintf(out, "Wrote %s\n", path)
	}

	fmt.Fprintf(out, "GENAI_API_SERVICE_NAME=%s\n", result.GenAIAPI.Host)
	fmt.Fprintf(out, "GENAI_API_TENANT=%s\n", result.GenAIAPI.Tenant)

	return nil
}
