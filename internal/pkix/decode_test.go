package pkix

import (
	"bytes"
	"crypto/x509"
	"math/big"
	"testing"
	"time"

	"github.com/gateway-fm/crl-publisher/internal/pkitest"
)

func Test_DecodePEM(t *testing.T) {
	ca := pkitest.NewCA(t, "Decode Test CA")
	crlDER := ca.CRL(t, pkitest.CRLOptions{Number: 1})

	var tests = map[string]struct {
		input       []byte
		blockType   string
		shouldError bool
	}{
		"crl block": {
			input:     EncodePEM(crlDER, PEMTypeCRL),
			blockType: PEMTypeCRL,
		},
		"certificate block": {
			input:     EncodePEM(ca.DER, PEMTypeCertificate),
			blockType: PEMTypeCertificate,
		},
		"crl block after unrelated blocks": {
			input:     append(EncodePEM(ca.DER, PEMTypeCertificate), EncodePEM(crlDER, PEMTypeCRL)...),
			blockType: PEMTypeCRL,
		},
		"wrong block type": {
			input:       EncodePEM(ca.DER, PEMTypeCertificate),
			blockType:   PEMTypeCRL,
			shouldError: true,
		},
		"no pem at all": {
			input:       []byte("this is not pem"),
			blockType:   PEMTypeCRL,
			shouldError: true,
		},
		"empty input": {
			input:       nil,
			blockType:   PEMTypeCRL,
			shouldError: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			der, err := DecodePEM(test.input, test.blockType)
			if test.shouldError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(der) == 0 {
				t.Errorf("expected DER payload, got none")
			}
		})
	}
}

func Test_ParseCRL(t *testing.T) {
	ca := pkitest.NewCA(t, "Parse Test CA")
	revokedAt := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	der := ca.CRL(t, pkitest.CRLOptions{
		Number: 42,
		Revoked: []x509.RevocationListEntry{
			pkitest.Revocation(1001, revokedAt, 1),
			pkitest.Revocation(1002, revokedAt, 0),
		},
	})

	crl, err := ParseCRL(der)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if crl.Issuer.CommonName != "Parse Test CA" {
		t.Errorf("expected issuer CN 'Parse Test CA', got %q", crl.Issuer.CommonName)
	}
	if crl.Number == nil || crl.Number.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("expected crl number 42, got %v", crl.Number)
	}
	if crl.IsDelta() {
		t.Errorf("expected a full crl, got delta")
	}
	if len(crl.AuthorityKeyID) == 0 {
		t.Errorf("expected an authority key identifier")
	}
	if !bytes.Equal(crl.AuthorityKeyID, ca.Cert.SubjectKeyId) {
		t.Errorf("expected AKI to match issuer SKI")
	}
	if len(crl.Revoked) != 2 {
		t.Fatalf("expected 2 revoked entries, got %d", len(crl.Revoked))
	}
	if crl.Revoked[0].SerialNumber.Cmp(big.NewInt(1001)) != 0 {
		t.Errorf("expected serial 1001, got %v", crl.Revoked[0].SerialNumber)
	}
	if crl.Revoked[0].Reason != 1 {
		t.Errorf("expected reason 1, got %d", crl.Revoked[0].Reason)
	}
}

func Test_ParseCRL_Delta(t *testing.T) {
	ca := pkitest.NewCA(t, "Delta Test CA")
	der := ca.CRL(t, pkitest.CRLOptions{Number: 7, BaseNumber: 5})

	crl, err := ParseCRL(der)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !crl.IsDelta() {
		t.Fatalf("expected a delta crl")
	}
	if crl.BaseNumber.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("expected base number 5, got %v", crl.BaseNumber)
	}
}

func Test_ParseCRL_InvalidDER(t *testing.T) {
	if _, err := ParseCRL([]byte{0x30, 0x01, 0xff}); err == nil {
		t.Fatalf("expected error for junk DER")
	}
}

// PEM wrapping is transparent: decoding a wrapped CRL gives the same
// model as decoding the DER directly.
func Test_PEMRoundTrip(t *testing.T) {
	ca := pkitest.NewCA(t, "Round Trip CA")
	der := ca.CRL(t, pkitest.CRLOptions{Number: 9})

	direct, err := ParseCRL(der)
	if err != nil {
		t.Fatalf("direct parse failed: %v", err)
	}

	unwrapped, err := DecodePEM(EncodePEM(der, PEMTypeCRL), PEMTypeCRL)
	if err != nil {
		t.Fatalf("pem unwrap failed: %v", err)
	}
	viaPEM, err := ParseCRL(unwrapped)
	if err != nil {
		t.Fatalf("parse via pem failed: %v", err)
	}

	if !bytes.Equal(direct.Raw, viaPEM.Raw) {
		t.Errorf("expected identical raw bytes")
	}
	if direct.Number.Cmp(viaPEM.Number) != 0 {
		t.Errorf("expected identical crl numbers")
	}
	if !bytes.Equal(direct.RawIssuer, viaPEM.RawIssuer) {
		t.Errorf("expected identical issuer DNs")
	}
}

func Test_ParseCertificate(t *testing.T) {
	ca := pkitest.NewCA(t, "Anchor CA")

	cert, err := ParseCertificate(ca.DER)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cert.Subject.CommonName != "Anchor CA" {
		t.Errorf("expected subject CN 'Anchor CA', got %q", cert.Subject.CommonName)
	}
	if len(cert.SubjectKeyID) == 0 {
		t.Errorf("expected a subject key identifier")
	}
	if !bytes.Equal(cert.RawSubject, ca.Cert.RawSubject) {
		t.Errorf("expected raw subject to round-trip")
	}
}
