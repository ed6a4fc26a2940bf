package network

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/MixinNetwork/tickquic/config"
)

// ClientCredentials is the trust configuration used to originate
// connections. It is passed through untouched except for the server name.
type ClientCredentials struct {
	tls *tls.Config
}

// ServerCredentials is the certificate configuration used to accept
// connections.
type ServerCredentials struct {
	tls *tls.Config
}

func NewClientCredentials(conf *tls.Config) *ClientCredentials {
	return &ClientCredentials{tls: withProtocol(conf)}
}

// InsecureClientCredentials trusts any server certificate.
func InsecureClientCredentials() *ClientCredentials {
	return NewClientCredentials(&tls.Config{InsecureSkipVerify: true})
}

func LoadClientCredentials(caFile string) (*ClientCredentials, error) {
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificate found in %s", caFile)
	}
	return NewClientCredentials(&tls.Config{RootCAs: pool}), nil
}

func (c *ClientCredentials) config(serverName string) *tls.Config {
	conf := c.tls.Clone()
	conf.ServerName = serverName
	return conf
}

func NewServerCredentials(conf *tls.Config) *ServerCredentials {
	return &ServerCredentials{tls: withProtocol(conf)}
}

func LoadServerCredentials(certFile, keyFile string) (*ServerCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return NewServerCredentials(&tls.Config{Certificates: []tls.Certificate{cert}}), nil
}

func SelfSignedServerCredentials(names ...string) (*ServerCredentials, error) {
	certPEM, keyPEM, err := GenerateCertificate(names...)
	if err != nil {
		return nil, err
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return NewServerCredentials(&tls.Config{Certificates: []tls.Certificate{cert}}), nil
}

func (c *ServerCredentials) config() *tls.Config {
	return c.tls.Clone()
}

// GenerateCertificate returns a PEM encoded self signed certificate and its
// key, valid for names, which may be host names or IP addresses.
func GenerateCertificate(names ...string) ([]byte, []byte, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: config.ApplicationProtocol},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour * 24 * 30),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, n := range names {
		if ip := net.ParseIP(n); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, n)
		}
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, err
	}
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

func withProtocol(conf *tls.Config) *tls.Config {
	conf = conf.Clone()
	if len(conf.NextProtos) == 0 {
		conf.NextProtos = []string{config.ApplicationProtocol}
	}
	return conf
}
