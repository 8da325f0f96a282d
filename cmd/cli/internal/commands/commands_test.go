package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/genai-devkit/internal/certs"
	"github.com/wolfeidau/genai-devkit/internal/certs/certstest"
	"github.com/wolfeidau/genai-devkit/internal/devproxy"
	"github.com/wolfeidau/genai-devkit/internal/envfile"
)

const registryBody = `{"message":"Welcome to GenAI Developer Proxy!","services":{` +
	`"genai-api":{"enabled":true,"internal_url":"https://genai-api.t1-genai:8080"},` +
	`"genai-gateway":{"enabled":true,"internal_url":"https://genai-gateway.t1-genai:8080"},` +
	`"virtualizer":{"enabled":false,"internal_url":"https://virtualizer.t1-genai:8080"}}}`

func startProxy(t *testing.T, pki *certstest.PKI, status int, body string) string {
	t.Helper()
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	srv.TLS = pki.ServerTLSConfig()
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv.URL
}

func proxyFlags(url string) ProxyFlags {
	return ProxyFlags{ProxyURL: url, Timeout: 5 * time.Second, Attempts: 1}
}

func TestEnvCmd(t *testing.T) {
	pki := certstest.New(t, "alice")
	proxyURL := startProxy(t, pki, http.StatusOK, registryBody)
	outDir := t.TempDir()

	var out bytes.Buffer
	cmd := &EnvCmd{
		CertsFlags: CertsFlags{CertsPath: pki.Dir},
		ProxyFlags: proxyFlags(proxyURL),
		OutputDir:  outDir,
		Out:        &out,
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	assert.Contains(t, out.String(), "GENAI_API_SERVICE_NAME=genai-api.t1-genai")
	assert.Contains(t, out.String(), "GENAI_API_TENANT=t1")

	for _, format := range []envfile.Format{envfile.FormatEnv, envfile.FormatBash} {
		path := filepath.Join(outDir, format.FileName())

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		f, err := os.Open(path)
		require.NoError(t, err)
		values, err := envfile.Parse(f)
		f.Close()
		require.NoError(t, err)

		assert.Equal(t, "genai-api.t1-genai", values["GENAI_API_SERVICE_NAME"])
		assert.Equal(t, "t1", values["GENAI_API_TENANT"])
		assert.Equal(t, proxyURL+"/service/genai-api", values["GENAI_API_REST_URL"])
		assert.Equal(t, "true", values["GENAI_API_REST_USE_SSL"])
		assert.Equal(t, pki.ClientCertPath, values["VAULT_LOCAL_CLIENT_CERT"])
		assert.Equal(t, pki.ClientKeyPath, values["VAULT_LOCAL_CLIENT_KEY"])
		assert.Equal(t, pki.CACertPath, values["VAULT_LOCAL_CA_CERTS"])
		assert.Equal(t, envfile.VirtualizerBasePath, values["VIRTUALIZER_BASE_PATH"])
	}
}

func TestEnvCmd_Failures(t *testing.T) {
	pki := certstest.New(t, "alice")

	t.Run("missing certificate folder", func(t *testing.T) {
		cmd := &EnvCmd{
			CertsFlags: CertsFlags{CertsPath: filepath.Join(t.TempDir(), "missing")},
			ProxyFlags: proxyFlags("https://localhost:1"),
			OutputDir:  t.TempDir(),
			Out:        &bytes.Buffer{},
		}
		assert.ErrorIs(t, cmd.Run(context.Background(), &Globals{}), certs.ErrCertsDirNotFound)
	})

	t.Run("http proxy url", func(t *testing.T) {
		outDir := t.TempDir()
		cmd := &EnvCmd{
			CertsFlags: CertsFlags{CertsPath: pki.Dir},
			ProxyFlags: proxyFlags("http://localhost:8080"),
			OutputDir:  outDir,
			Out:        &bytes.Buffer{},
		}
		assert.ErrorIs(t, cmd.Run(context.Background(), &Globals{}), devproxy.ErrNotHTTPS)

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("non 200 response", func(t *testing.T) {
		outDir := t.TempDir()
		cmd := &EnvCmd{
			CertsFlags: CertsFlags{CertsPath: pki.Dir},
			ProxyFlags: proxyFlags(startProxy(t, pki, http.StatusForbidden, "denied")),
			OutputDir:  outDir,
			Out:        &bytes.Buffer{},
		}
		err := cmd.Run(context.Background(), &Globals{})

		var statusErr *devproxy.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("strict banner", func(t *testing.T) {
		body := `{"services":{"genai-api":{"enabled":true,"internal_url":"https://genai-api.t1-genai:8080"}}}`
		proxy := proxyFlags(startProxy(t, pki, http.StatusOK, body))

		cmd := &EnvCmd{CertsFlags: CertsFlags{CertsPath: pki.Dir}, ProxyFlags: proxy, OutputDir: t.TempDir(), Out: &bytes.Buffer{}}
		require.NoError(t, cmd.Run(context.Background(), &Globals{}))

		proxy.StrictBanner = true
		cmd = &EnvCmd{CertsFlags: CertsFlags{CertsPath: pki.Dir}, ProxyFlags: proxy, OutputDir: t.TempDir(), Out: &bytes.Buffer{}}
		assert.ErrorIs(t, cmd.Run(context.Background(), &Globals{}), devproxy.ErrUnexpectedBanner)
	})
}

func TestEnvCmd_SingleFormat(t *testing.T) {
	pki := certstest.New(t, "alice")
	outDir := t.TempDir()

	cmd := &EnvCmd{
		CertsFlags: CertsFlags{CertsPath: pki.Dir},
		ProxyFlags: proxyFlags(startProxy(t, pki, http.StatusOK, registryBody)),
		OutputDir:  outDir,
		Formats:    []string{"bash"},
		Out:        &bytes.Buffer{},
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	assert.FileExists(t, filepath.Join(outDir, "genai-env.sh"))
	assert.NoFileExists(t, filepath.Join(outDir, "genai-env.env"))
}

func TestEnvCmd_DefaultsToWorkingDirectory(t *testing.T) {
	pki := certstest.New(t, "alice")
	workDir := t.TempDir()
	t.Chdir(workDir)

	var out bytes.Buffer
	cmd := &EnvCmd{
		CertsFlags: CertsFlags{CertsPath: pki.Dir},
		ProxyFlags: proxyFlags(startProxy(t, pki, http.StatusOK, registryBody)),
		Out:        &out,
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	for _, name := range []string{"genai-env.env", "genai-env.sh"} {
		path := filepath.Join(workDir, name)
		assert.FileExists(t, path)
		assert.Contains(t, out.String(), "Wrote "+path)
	}
}

func TestProbeCmd(t *testing.T) {
	pki := certstest.New(t, "alice")
	proxyURL := startProxy(t, pki, http.StatusOK, registryBody)

	var out bytes.Buffer
	cmd := &ProbeCmd{
		CertsFlags: CertsFlags{CertsPath: pki.Dir},
		ProxyFlags: proxyFlags(proxyURL),
		Out:        &out,
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	assert.Contains(t, out.String(), "Service name: genai-api.t1-genai")
	assert.Contains(t, out.String(), "Tenant: t1")
	assert.Contains(t, out.String(), "genai-gateway")
	assert.NotContains(t, out.String(), "virtualizer")

	out.Reset()
	cmd.All = true
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))
	assert.Contains(t, out.String(), "https://virtualizer.t1-genai:8080")
}

func TestCertsCmd(t *testing.T) {
	pki := certstest.New(t, "alice")

	var out bytes.Buffer
	cmd := &CertsCmd{CertsFlags: CertsFlags{CertsPath: pki.Dir}, Out: &out}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	assert.Contains(t, out.String(), "Username:")
	assert.Contains(t, out.String(), "alice")
	assert.Contains(t, out.String(), pki.ClientKeyPath)
	assert.Contains(t, out.String(), "Fingerprint:")
}

func TestCertsCmd_DebugLogsHiddenByDefault(t *testing.T) {
	pki := certstest.New(t, "alice")

	previous := zlog.Logger
	t.Cleanup(func() { zlog.Logger = previous })

	var logs bytes.Buffer
	zlog.Logger = zerolog.New(&logs).Level(zerolog.TraceLevel)

	cmd := &CertsCmd{CertsFlags: CertsFlags{CertsPath: pki.Dir}, Out: &bytes.Buffer{}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	assert.Empty(t, logs.String())
	assert.Equal(t, zerolog.InfoLevel, zlog.Logger.GetLevel())
}

func TestCertsCmd_MissingCA(t *testing.T) {
	pki := certstest.New(t, "alice")
	require.NoError(t, os.Remove(pki.CACertPath))

	cmd := &CertsCmd{CertsFlags: CertsFlags{CertsPath: pki.Dir}, Out: &bytes.Buffer{}}
	assert.ErrorIs(t, cmd.Run(context.Background(), &Globals{}), certs.ErrCACertNotFound)
}
