package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/genai-devkit/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Env     commands.EnvCmd   `cmd:"" help:"Probe the developer proxy and write genai-env.env and genai-env.sh"`
		Probe   commands.ProbeCmd `cmd:"" help:"Probe the developer proxy and list its services"`
		Certs   commands.CertsCmd `cmd:"" help:"Check the user certificates"`
		Debug   bool              `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Description("GenAI developer tooling for working through the GenAI Developer Proxy."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
