// Package certstest generates a throwaway PKI laid out the way the developer proxy hands
// out user certificates.
package certstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// PKI is a CA with one server certificate and one client certificate on disk.
type PKI struct {
	Dir      string
	Username string

	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string
	ServerCertPath string
	ServerKeyPath  string

	CACert     *x509.Certificate
	CAPool     *x509.CertPool
	ServerCert tls.Certificate

	caKey *ecdsa.PrivateKey
}

// New writes <username>.crt, <username>_private.key and ca-cert.crt into a temporary
// directory, plus server.crt/server.key valid for localhost and 127.0.0.1.
func New(t *testing.T, username string) *PKI {
	t.Helper()
	dir := t.TempDir()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	caTemplate := &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: "Test CA", Organization: []string{"GenAI"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	p := &PKI{
		Dir:            dir,
		Username:       username,
		CACertPath:     filepath.Join(dir, "ca-cert.crt"),
		ClientCertPath: filepath.Join(dir, username+".crt"),
		ClientKeyPath:  filepath.Join(dir, username+"_private.key"),
		ServerCertPath: filepath.Join(dir, "server.crt"),
		ServerKeyPath:  filepath.Join(dir, "server.key"),
		CACert:         caCert,
		CAPool:         x509.NewCertPool(),
		caKey:          caKey,
	}
	p.CAPool.AddCert(caCert)

	writePEM(t, p.CACertPath, "CERTIFICATE", caDER)

	clientDER, clientKey := p.Issue(t, &x509.Certificate{
		Subject:     pkix.Name{CommonName: username},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	writePEM(t, p.ClientCertPath, "CERTIFICATE", clientDER)
	writeKey(t, p.ClientKeyPath, clientKey)

	serverDER, serverKey := p.Issue(t, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "localhost"},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1")},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	writePEM(t, p.ServerCertPath, "CERTIFICATE", serverDER)
	writeKey(t, p.ServerKeyPath, serverKey)

	p.ServerCert, err = tls.LoadX509KeyPair(p.ServerCertPath, p.ServerKeyPath)
	require.NoError(t, err)

	return p
}

// Issue signs template with the CA, filling in serial, validity and key usage.
func (p *PKI) Issue(t *testing.T, template *x509.Certificate) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template.SerialNumber = serial(t)
	template.NotBefore = time.Now().Add(-time.Hour)
	template.NotAfter = time.Now().Add(12 * time.Hour)
	template.KeyUsage = x509.KeyUsageDigitalSignature

	der, err := x509.CreateCertificate(rand.Reader, template, p.CACert, &key.PublicKey, p.caKey)
	require.NoError(t, err)

	return der, key
}

// ServerTLSConfig requires and verifies client certificates signed by the CA.
func (p *PKI) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{p.ServerCert},
		ClientCAs:    p.CAPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

func serial(t *testing.T) *big.Int {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)
	return n
}

func writePEM(t *testing.T, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func writeKey(t *testing.T, path string, key *ecdsa.PrivateKey) {
	t.Helper()
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	writePEM(t, path, "EC PRIVATE KEY", der)
}
