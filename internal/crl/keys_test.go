package crl

import (
	cryptopkix "crypto/x509/pkix"
	"math/big"
	"strings"
	"testing"

	"github.com/gateway-fm/crl-publisher/internal/pkix"
	"github.com/gateway-fm/crl-publisher/internal/store"
)

func Test_IssuerSlug(t *testing.T) {
	var tests = map[string]struct {
		commonName string
		expected   string
	}{
		"simple name":        {"Acme Root CA", "acme-root-ca"},
		"punctuation folded": {"Acme (EU) Root, G2", "acme-eu-root-g2"},
		"already clean":      {"rootca1", "rootca1"},
		"trailing symbols":   {"Root CA!!", "root-ca"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c := &pkix.CRL{Issuer: cryptopkix.Name{CommonName: test.commonName}}
			if got := issuerSlug(c); got != test.expected {
				t.Errorf("expected %q, got %q", test.expected, got)
			}
		})
	}
}

func Test_IssuerSlug_EmptyCommonName(t *testing.T) {
	c := &pkix.CRL{RawIssuer: []byte{0x30, 0x00}}
	slug := issuerSlug(c)
	if len(slug) != archiveTagLen {
		t.Fatalf("expected a %d-char digest fallback, got %q", archiveTagLen, slug)
	}
	// Distinct DNs must not collide on the fallback.
	other := &pkix.CRL{RawIssuer: []byte{0x30, 0x01, 0x05}}
	if issuerSlug(other) == slug {
		t.Errorf("expected distinct fallbacks for distinct DNs")
	}
}

func Test_CanonicalKeys(t *testing.T) {
	full := &pkix.CRL{
		Issuer:         cryptopkix.Name{CommonName: "Acme Root CA"},
		AuthorityKeyID: []byte{0xab, 0xcd},
	}
	derKey, pemKey, aliasKey := canonicalKeys(full)
	if derKey != "crl/acme-root-ca.crl" {
		t.Errorf("unexpected der key %q", derKey)
	}
	if pemKey != "crl/acme-root-ca.crl.pem" {
		t.Errorf("unexpected pem key %q", pemKey)
	}
	if aliasKey != "crl/by-keyid/abcd.crl" {
		t.Errorf("unexpected alias key %q", aliasKey)
	}

	delta := &pkix.CRL{
		Issuer:     cryptopkix.Name{CommonName: "Acme Root CA"},
		BaseNumber: big.NewInt(4),
	}
	derKey, _, aliasKey = canonicalKeys(delta)
	if derKey != "dcrl/acme-root-ca.crl" {
		t.Errorf("unexpected delta der key %q", derKey)
	}
	if aliasKey != "" {
		t.Errorf("expected no alias without an AKI, got %q", aliasKey)
	}
}

func Test_ArchiveKey(t *testing.T) {
	prior := &store.Object{Body: []byte("old crl bytes")}

	withNumber := archiveKey(PrefixCRL, "acme", prior, &pkix.CRL{Number: big.NewInt(16)})
	if withNumber != "crl/archive/acme-16.crl" {
		t.Errorf("unexpected archive key %q", withNumber)
	}

	withoutNumber := archiveKey(PrefixCRL, "acme", prior, &pkix.CRL{})
	if !strings.HasPrefix(withoutNumber, "crl/archive/acme-") || !strings.HasSuffix(withoutNumber, ".crl") {
		t.Fatalf("unexpected archive key shape %q", withoutNumber)
	}
	tag := strings.TrimSuffix(strings.TrimPrefix(withoutNumber, "crl/archive/acme-"), ".crl")
	if len(tag) != archiveTagLen {
		t.Errorf("expected a %d-char digest tag, got %q", archiveTagLen, tag)
	}
}
