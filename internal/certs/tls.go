package certs

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mr-tron/base58"
)

// Material holds PEM data read from a bundle.
type Material struct {
	CACert     []byte
	ClientCert []byte
	ClientKey  []byte
}

// Details describes the client certificate of a bundle.
type Details struct {
	Username      string
	Subject       string
	Issuer        string
	NotBefore     time.Time
	NotAfter      time.Time
	DaysRemaining int
	Expired       bool
	Fingerprint   string
}

// Load reads the PEM files of the bundle.
func (b *Bundle) Load() (*Material, error) {
	m := &Material{}

	caCert, err := os.ReadFile(b.CACert)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	m.CACert = caCert

	clientCert, err := os.ReadFile(b.ClientCert)
	if err != nil {
		return nil, fmt.Errorf("failed to read client cert: %w", err)
	}
	m.ClientCert = clientCert

	clientKey, err := os.ReadFile(b.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read client key: %w", err)
	}
	m.ClientKey = clientKey

	return m, nil
}

// Validate checks that the bundle files contain a usable key pair and CA.
func (b *Bundle) Validate() error {
	m, err := b.Load()
	if err != nil {
		return err
	}
	return m.Validate()
}

// Validate validates that certificate data is valid PEM
func (m *Material) Validate() error {
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(m.CACert) {
		return errors.New("invalid CA certificate PEM")
	}

	if _, err := tls.X509KeyPair(m.ClientCert, m.ClientKey); err != nil {
		return fmt.Errorf("invalid client certificate/key: %w", err)
	}

	return nil
}

// ClientTLSConfig creates a tls.Config which presents the client certificate and only
// trusts servers signed by the bundle's CA. serverName may be empty to use the dialed host.
func (b *Bundle) ClientTLSConfig(serverName string) (*tls.Config, error) {
	m, err := b.Load()
	if err != nil {
		return nil, err
	}

	clientCert, err := tls.X509KeyPair(m.ClientCert, m.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(m.CACert) {
		return nil, errors.New("failed to parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{clientCert},
		RootCAs:      caCertPool,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ServerTLSConfig creates a server side tls.Config. When clientCAPath is set, client
// certificates signed by that CA are verified if presented.
func ServerTLSConfig(certPath, keyPath, clientCAPath string) (*tls.Config, error) {
	serverCert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS12,
	}

	if clientCAPath == "" {
		return cfg, nil
	}

	caCert, err := os.ReadFile(clientCAPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA cert: %w", err)
	}
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse client CA certificate")
	}
	cfg.ClientCAs = caCertPool
	cfg.ClientAuth = tls.VerifyClientCertIfGiven

	return cfg, nil
}

// Inspect parses the client certificate and reports its identity and validity.
func (b *Bundle) Inspect() (*Details, error) {
	data, err := os.ReadFile(b.ClientCert)
	if err != nil {
		return nil, fmt.Errorf("failed to read client cert: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no PEM certificate found in %s", b.ClientCert)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client cert: %w", err)
	}

	fingerprint, err := Fingerprint(cert)
	if err != nil {
		return nil, err
	}

	return &Details{
		Username:      b.Username,
		Subject:       cert.Subject.CommonName,
		Issuer:        cert.Issuer.CommonName,
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		DaysRemaining: int(time.Until(cert.NotAfter).Hours() / 24),
		Expired:       time.Now().After(cert.NotAfter),
		Fingerprint:   fingerprint,
	}, nil
}

// Fingerprint returns the base58 encoded SHA-256 of the certificate's public key.
func Fingerprint(cert *x509.Certificate) (string, error) {
	publicKeyDER, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	hash := sha256.Sum256(publicKeyDER)
	return base58.Encode(hash[:]), nil
}
