package pkix

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"
)

// Certificate is a trust anchor loaded from the store. It wraps the parsed
// x509 certificate with the fields the pipeline matches and displays on.
type Certificate struct {
	Raw          []byte
	Subject      pkix.Name
	Issuer       pkix.Name
	RawSubject   []byte
	SubjectKeyID []byte
	NotBefore    time.Time
	NotAfter     time.Time
	Extensions   []Extension

	cert *x509.Certificate
}

// CRL is a parsed revocation list. Number and BaseNumber are
// arbitrary-precision; BaseNumber is non-nil only for delta CRLs.
type CRL struct {
	Raw            []byte
	Issuer         pkix.Name
	RawIssuer      []byte
	AuthorityKeyID []byte
	Number         *big.Int
	BaseNumber     *big.Int
	ThisUpdate     time.Time
	NextUpdate     time.Time
	Revoked        []RevokedEntry
	Extensions     []Extension

	list *x509.RevocationList
}

// RevokedEntry is one revoked certificate within a CRL.
type RevokedEntry struct {
	SerialNumber *big.Int
	RevokedAt    time.Time
	Reason       int
	InvalidityAt *time.Time
}

// IsDelta reports whether the CRL carries a Delta CRL Indicator.
func (c *CRL) IsDelta() bool {
	return c.BaseNumber != nil
}

// CheckSignatureFrom verifies the CRL's outer signature against the
// issuer's public key, dispatching on the CRL's own algorithm identifier.
func (c *CRL) CheckSignatureFrom(issuer *Certificate) error {
	return c.list.CheckSignatureFrom(issuer.cert)
}

// IssuedBy reports whether the candidate's subject DN is structurally
// identical to the CRL's issuer DN. Comparing the raw DER of the encoded
// names matches every attribute in order, not just the common name.
func (c *CRL) IssuedBy(candidate *Certificate) bool {
	return bytes.Equal(c.RawIssuer, candidate.RawSubject)
}
