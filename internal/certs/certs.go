package certs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// PrivateKeySuffix identifies the user's private key, named <username>_private.key.
	PrivateKeySuffix = "_private.key"

	// CACertName is the shared CA certificate expected next to the user's key pair.
	CACertName = "ca-cert.crt"
)

// Sentinel errors
var (
	// ErrCertsDirNotFound is returned when the certificates directory does not exist.
	ErrCertsDirNotFound = errors.New("certificates folder does not exist")

	// ErrPrivateKeyNotFound is returned when no <username>_private.key file is present.
	ErrPrivateKeyNotFound = errors.New("private key not found, it should be named as <username>" + PrivateKeySuffix)

	// ErrClientCertNotFound is returned when <username>.crt is missing.
	ErrClientCertNotFound = errors.New("client certificate not found")

	// ErrClientKeyNotFound is returned when the private key disappears between listing and validation.
	ErrClientKeyNotFound = errors.New("client key not found")

	// ErrCACertNotFound is returned when ca-cert.crt is missing.
	ErrCACertNotFound = errors.New("CA certificate not found")
)

// Bundle holds the absolute paths of a user's client certificate, key and the shared CA.
type Bundle struct {
	Dir        string
	Username   string
	ClientCert string
	ClientKey  string
	CACert     string
}

// Discover scans dir for a <username>_private.key file and checks that the matching
// <username>.crt and the shared ca-cert.crt exist. The first private key in directory
// order wins.
func Discover(dir string) (*Bundle, error) {
	log.Debug().Str("path", dir).Msg("Checking certificates")

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve certificates folder %s: %w", dir, err)
	}

	info, err := os.Stat(absDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrCertsDirNotFound, absDir)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates folder %s: %w", absDir, err)
	}

	username := ""
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), PrivateKeySuffix)
		if name != entry.Name() && name != "" {
			username = name
			break
		}
	}
	if username == "" {
		return nil, fmt.Errorf("%w in %s", ErrPrivateKeyNotFound, absDir)
	}

	log.Debug().Str("username", username).Msg("Detected certificates for user")

	bundle := &Bundle{
		Dir:        absDir,
		Username:   username,
		ClientCert: filepath.Join(absDir, username+".crt"),
		ClientKey:  filepath.Join(absDir, username+PrivateKeySuffix),
		CACert:     filepath.Join(absDir, CACertName),
	}

	if !fileExists(bundle.ClientCert) {
		return nil, fmt.Errorf("%w: %s", ErrClientCertNotFound, bundle.ClientCert)
	}
	if !fileExists(bundle.ClientKey) {
		return nil, fmt.Errorf("%w: %s", ErrClientKeyNotFound, bundle.ClientKey)
	}
	if !fileExists(bundle.CACert) {
		return nil, fmt.Errorf("%w: %s", ErrCACertNotFound, bundle.CACert)
	}

	return bundle, nil
}

// FromFiles builds a bundle from explicit paths, such as the VAULT_LOCAL_* variables
// written into the generated environment files.
func FromFiles(clientCert, clientKey, caCert string) (*Bundle, error) {
	paths := []struct {
		path string
		err  error
	}{
		{clientCert, ErrClientCertNotFound},
		{clientKey, ErrClientKeyNotFound},
		{caCert, ErrCACertNotFound},
	}
	for _, p := range paths {
		if p.path == "" || !fileExists(p.path) {
			return nil, fmt.Errorf("%w: %q", p.err, p.path)
		}
	}

	return &Bundle{
		Dir:        filepath.Dir(clientCert),
		Username:   strings.TrimSuffix(filepath.Base(clientCert), filepath.Ext(clientCert)),
		ClientCert: clientCert,
		ClientKey:  clientKey,
		CACert:     caCert,
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
