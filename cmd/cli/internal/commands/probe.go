package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	zlog "github.com/rs/zerolog/log"

	"github.com/wolfeidau/genai-devkit/internal/devproxy"
	"github.com/wolfeidau/genai-devkit/internal/logger"
)

type ProbeCmd struct {
	CertsFlags
	ProxyFlags

	All bool `help:"include disabled services" default:"false"`

	Out io.Writer `kong:"-"`
}

func (c *ProbeCmd) Run(ctx context.Context, globals *Globals) error {
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

	client, err := devproxy.NewClient(bundle, c.config())
	if err != nil {
		return err
	}

	result, err := client.Probe(ctx, c.ProxyURL)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Proxy: %s\n", result.BaseURL)
	if result.Registry.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", result.Registry.Message)
	}
	fmt.Fprintf(out, "Service name: %s\n", result.GenAIAPI.Host)
	fmt.Fprintf(out, "Tenant: %s\n\n", result.GenAIAPI.Tenant)

	return renderServices(out, result.Registry, c.All)
}

func renderServices(out io.Writer, registry *devproxy.Registry, all bool) error {
	names := make([]string, 0, len(registry.Services))
	for name, svc := range registry.Services {
		if svc.Enabled || all {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		svc := registry.Services[name]
		rows = append(rows, []string{name, strconv.FormatBool(svc.Enabled), svc.InternalURL})
	}

	table := tablewriter.NewTable(out)
	table.Header([]string{"Service", "Enabled", "Internal URL"})
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render services: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render services: %w", err)
	}
	return nil
}
