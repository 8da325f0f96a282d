package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/wolfeidau/genai-devkit/internal/logger"
)

// CertsCmd reports on the certificates found in the certificate folder.
type CertsCmd struct {
	CertsFlags

	Out io.Writer `kong:"-"`
}

func (c *CertsCmd) Run(ctx context.Context, globals *Globals) error {
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

	details, err := bundle.Inspect()
	if err != nil {
		return err
	}

	if details.Expired {
		log.Warn().Time("not_after", details.NotAfter).Msg("Client certificate has expired")
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Username:\t%s\n", details.Username)
	fmt.Fprintf(w, "Subject:\t%s\n", details.Subject)
	fmt.Fprintf(w, "Issuer:\t%s\n", details.Issuer)
	fmt.Fprintf(w, "Valid from:\t%s\n", details.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(w, "Valid until:\t%s (%d days)\n", details.NotAfter.Format(time.RFC3339), details.DaysRemaining)
	fmt.Fprintf(w, "Fingerprint:\t%s\n", details.Fingerprint)
	fmt.Fprintf(w, "Client cert:\t%s\n", bundle.ClientCert)
	fmt.Fprintf(w, "Client key:\t%s\n", bundle.ClientKey)
	fmt.Fprintf(w, "CA cert:\t%s\n", bundle.CACert)
	return w.Flush()
}
