package certs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/genai-devkit/internal/certs/certstest"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
}

func TestDiscover(t *testing.T) {
	t.Run("returns absolute paths for the detected user", func(t *testing.T) {
		tmpDir := t.TempDir()
		touch(t, tmpDir, "alice.crt", "alice_private.key", "ca-cert.crt")

		bundle, err := Discover(tmpDir)
		require.NoError(t, err)

		assert.Equal(t, "alice", bundle.Username)
		assert.Equal(t, filepath.Join(tmpDir, "alice.crt"), bundle.ClientCert)
		assert.Equal(t, filepath.Join(tmpDir, "alice_private.key"), bundle.ClientKey)
		assert.Equal(t, filepath.Join(tmpDir, "ca-cert.crt"), bundle.CACert)
		assert.True(t, filepath.IsAbs(bundle.ClientCert))
		assert.True(t, filepath.IsAbs(bundle.ClientKey))
		assert.True(t, filepath.IsAbs(bundle.CACert))
	})

	t.Run("resolves relative folders", func(t *testing.T) {
		tmpDir := t.TempDir()
		touch(t, tmpDir, "bob.crt", "bob_private.key", "ca-cert.crt")
		t.Chdir(tmpDir)

		bundle, err := Discover(".")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(bundle.Dir))
		assert.Equal(t, "bob", bundle.Username)
	})

	t.Run("first private key in directory order wins", func(t *testing.T) {
		tmpDir := t.TempDir()
		touch(t, tmpDir, "alice.crt", "alice_private.key", "zed_private.key", "ca-cert.crt")

		bundle, err := Discover(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, "alice", bundle.Username)
	})

	t.Run("ignores directories named like keys", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "aaa_private.key"), 0700))
		touch(t, tmpDir, "alice.crt", "alice_private.key", "ca-cert.crt")

		bundle, err := Discover(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, "alice", bundle.Username)
	})

	tests := []struct {
		name  string
		files []string
		want  error
	}{
		{name: "no private key", files: []string{"alice.crt", "ca-cert.crt"}, want: ErrPrivateKeyNotFound},
		{name: "bare suffix is not a user", files: []string{"_private.key", "ca-cert.crt"}, want: ErrPrivateKeyNotFound},
		{name: "missing client certificate", files: []string{"alice_private.key", "ca-cert.crt"}, want: ErrClientCertNotFound},
		{name: "missing CA certificate", files: []string{"alice.crt", "alice_private.key"}, want: ErrCACertNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			touch(t, tmpDir, tt.files...)

			_, err := Discover(tmpDir)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("missing folder", func(t *testing.T) {
		_, err := Discover(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCertsDirNotFound)
	})
}

func TestFromFiles(t *testing.T) {
	pki := certstest.New(t, "carol")

	bundle, err := FromFiles(pki.ClientCertPath, pki.ClientKeyPath, pki.CACertPath)
	require.NoError(t, err)
	assert.Equal(t, "carol", bundle.Username)

	_, err = FromFiles(pki.ClientCertPath, "", pki.CACertPath)
	assert.ErrorIs(t, err, ErrClientKeyNotFound)
}

func TestBundle_TLS(t *testing.T) {
	pki := certstest.New(t, "alice")

	bundle, err := Discover(pki.Dir)
	require.NoError(t, err)

	t.Run("validate", func(t *testing.T) {
		require.NoError(t, bundle.Validate())
	})

	t.Run("client config presents certificate and trusts CA", func(t *testing.T) {
		cfg, err := bundle.ClientTLSConfig("localhost")
		require.NoError(t, err)
		assert.Len(t, cfg.Certificates, 1)
		assert.NotNil(t, cfg.RootCAs)
		assert.Equal(t, "localhost", cfg.ServerName)
	})

	t.Run("inspect", func(t *testing.T) {
		details, err := bundle.Inspect()
		require.NoError(t, err)
		assert.Equal(t, "alice", details.Subject)
		assert.Equal(t, "Test CA", details.Issuer)
		assert.False(t, details.Expired)
		assert.NotEmpty(t, details.Fingerprint)
	})

	t.Run("invalid key pair", func(t *testing.T) {
		broken := *bundle
		broken.ClientKey = pki.ServerKeyPath
		assert.Error(t, broken.Validate())
	})

	t.Run("server config with client CA", func(t *testing.T) {
		cfg, err := ServerTLSConfig(pki.ServerCertPath, pki.ServerKeyPath, pki.CACertPath)
		require.NoError(t, err)
		assert.NotNil(t, cfg.ClientCAs)
	})
}
