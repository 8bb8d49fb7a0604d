// Package identity holds the transport-level identity of geyser peers: an
// ed25519 keypair presented as a self-signed TLS certificate.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ridge/geyser/defaults"
	"github.com/ridge/geyser/event"
)

const certificateValidity = 10 * 365 * 24 * time.Hour

// ErrNoIdentity is returned when the peer presented no usable certificate
var ErrNoIdentity = errors.New("peer presented no ed25519 certificate")

// ErrUnexpectedPeer means the peer presented a key other than the pinned one
var ErrUnexpectedPeer = errors.New("unexpected peer identity")

// Keypair is an ed25519 keypair
type Keypair struct {
	private ed25519.PrivateKey
}

// Generate creates a random keypair
func Generate() (Keypair, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return Keypair{private: private}, nil
}

// FromSeed derives a keypair from a 32-byte seed
func FromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// Pubkey returns the public half of the keypair
func (k Keypair) Pubkey() event.Pubkey {
	var pk event.Pubkey
	copy(pk[:], k.private.Public().(ed25519.PublicKey))
	return pk
}

func (k Keypair) String() string {
	return k.Pubkey().String()
}

// Certificate builds a self-signed TLS certificate for the keypair
func (k Keypair) Certificate() (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 63))
	if err != nil {
		return tls.Certificate{}, err
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: k.String()},
		DNSNames:              []string{"localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certificateValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true, // self-signed: the certificate is its own issuer
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, k.private.Public(), k.private)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: k.private}, nil
}

// ServerTLS returns the TLS configuration of a server with the given
// identity. Clients must present a certificate, which is not verified
// beyond carrying an ed25519 key.
func ServerTLS(k Keypair) (*tls.Config, error) {
	cert, err := k.Certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:          []tls.Certificate{cert},
		NextProtos:            []string{defaults.ALPN},
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: verifyPeer(nil),
		MinVersion:            tls.VersionTLS13,
	}, nil
}

// ClientTLS returns the TLS configuration of a client with the given
// identity. If server is not nil, the server must present that key.
func ClientTLS(k Keypair, server *event.Pubkey) (*tls.Config, error) {
	cert, err := k.Certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{defaults.ALPN},
		// Self-signed server certificates cannot be verified against a CA
		InsecureSkipVerify:    true, //nolint:gosec
		VerifyPeerCertificate: verifyPeer(server),
		MinVersion:            tls.VersionTLS13,
	}, nil
}

func verifyPeer(expected *event.Pubkey) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return ErrNoIdentity
		}
		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("invalid peer certificate: %w", err)
		}
		pk, err := certificatePubkey(cert)
		if err != nil {
			return err
		}
		if expected != nil && pk != *expected {
			return fmt.Errorf("%w %s, expected %s", ErrUnexpectedPeer, pk, *expected)
		}
		return cert.CheckSignatureFrom(cert)
	}
}

func certificatePubkey(cert *x509.Certificate) (event.Pubkey, error) {
	public, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return event.Pubkey{}, ErrNoIdentity
	}
	var pk event.Pubkey
	copy(pk[:], public)
	return pk, nil
}

// PeerPubkey returns the identity presented by the peer of a TLS connection
func PeerPubkey(state tls.ConnectionState) (event.Pubkey, error) {
	if len(state.PeerCertificates) == 0 {
		return event.Pubkey{}, ErrNoIdentity
	}
	return certificatePubkey(state.PeerCertificates[0])
}
