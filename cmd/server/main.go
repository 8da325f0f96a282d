package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/genai-devkit/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool               `help:"Enable debug mode."`
		Version kong.VersionFlag
		Serve   commands.ServeCmd  `cmd:"" help:"Serve a chain locally behind a GenAI API like HTTP interface"`
		Chains  commands.ChainsCmd `cmd:"" help:"List the chains that can be served"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Description("Local GenAI chain server for development against the GenAI Developer Proxy."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
