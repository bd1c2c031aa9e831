// Package pkitest generates throwaway CAs and CRLs for tests. Nothing
// here is safe for production use.
package pkitest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"
)

// CA is a generated test authority.
type CA struct {
	Key  *ecdsa.PrivateKey
	Cert *x509.Certificate
	DER  []byte
}

// NewCA generates a self-signed ECDSA P-256 authority. The subject key
// identifier is derived from the public key by CreateCertificate.
func NewCA(t *testing.T, commonName string) *CA {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate CA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"Test PKI"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create CA certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse CA certificate: %v", err)
	}

	return &CA{Key: key, Cert: cert, DER: der}
}

// CRLOptions shapes a generated CRL.
type CRLOptions struct {
	Number     int64
	BaseNumber int64 // non-zero marks the CRL delta
	ThisUpdate time.Time
	NextUpdate time.Time
	Revoked    []x509.RevocationListEntry
}

// CRL signs a revocation list with the CA's key and returns its DER.
func (ca *CA) CRL(t *testing.T, opt CRLOptions) []byte {
	t.Helper()

	if opt.ThisUpdate.IsZero() {
		opt.ThisUpdate = time.Now().Add(-time.Minute)
	}
	if opt.NextUpdate.IsZero() {
		opt.NextUpdate = opt.ThisUpdate.Add(24 * time.Hour)
	}

	template := &x509.RevocationList{
		Number:                    big.NewInt(opt.Number),
		ThisUpdate:                opt.ThisUpdate,
		NextUpdate:                opt.NextUpdate,
		RevokedCertificateEntries: opt.Revoked,
	}

	if opt.BaseNumber != 0 {
		raw, err := asn1.Marshal(big.NewInt(opt.BaseNumber))
		if err != nil {
			t.Fatalf("failed to marshal delta indicator: %v", err)
		}
		template.ExtraExtensions = append(template.ExtraExtensions, pkix.Extension{
			Id:       asn1.ObjectIdentifier{2, 5, 29, 27},
			Critical: true,
			Value:    raw,
		})
	}

	der, err := x509.CreateRevocationList(rand.Reader, template, ca.Cert, ca.Key)
	if err != nil {
		t.Fatalf("failed to create CRL: %v", err)
	}
	return der
}

// Revocation builds one revoked entry.
func Revocation(serial int64, at time.Time, reason int) x509.RevocationListEntry {
	return x509.RevocationListEntry{
		SerialNumber:   big.NewInt(serial),
		RevocationTime: at,
		ReasonCode:     reason,
	}
}
