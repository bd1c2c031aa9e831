// Package summary derives the lightweight display projection persisted
// as custom metadata on each stored artifact, so list and detail views
// never re-decode ASN.1 per request.
package summary

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gateway-fm/crl-publisher/internal/pkix"
)

// schemaVersion tags projected metadata. Bump it when the projection
// shape changes; the projector recomputes anything tagged lower.
const schemaVersion = 2

// Metadata field names shared by the committer and the projector.
const (
	MetaSchema       = "summary-schema"
	MetaKind         = "kind"
	MetaDisplayName  = "display-name"
	MetaIssuerCN     = "issuer-cn"
	MetaSubjectCN    = "subject-cn"
	MetaKeyID        = "key-id"
	MetaCRLNumber    = "crl-number"
	MetaCRLType      = "crl-type"
	MetaThisUpdate   = "this-update"
	MetaNextUpdate   = "next-update"
	MetaNotBefore    = "not-before"
	MetaNotAfter     = "not-after"
	MetaRevokedCount = "revoked-count"
)

// Kind values for MetaKind.
const (
	KindCertificate = "certificate"
	KindCRL         = "crl"
)

// CRL type values for MetaCRLType.
const (
	CRLTypeFull  = "full"
	CRLTypeDelta = "delta"
)

// ForCRL builds the projection for a revocation list.
func ForCRL(c *pkix.CRL) map[string]string {
	crlType := CRLTypeFull
	if c.IsDelta() {
		crlType = CRLTypeDelta
	}

	m := map[string]string{
		MetaSchema:       strconv.Itoa(schemaVersion),
		MetaKind:         KindCRL,
		MetaIssuerCN:     c.Issuer.CommonName,
		MetaCRLType:      crlType,
		MetaThisUpdate:   c.ThisUpdate.UTC().Format(time.RFC3339),
		MetaRevokedCount: strconv.Itoa(len(c.Revoked)),
		MetaDisplayName:  fmt.Sprintf("%s (%s CRL)", c.Issuer.CommonName, crlType),
	}
	if !c.NextUpdate.IsZero() {
		m[MetaNextUpdate] = c.NextUpdate.UTC().Format(time.RFC3339)
	}
	if c.Number != nil {
		m[MetaCRLNumber] = c.Number.String()
	}
	if len(c.AuthorityKeyID) > 0 {
		m[MetaKeyID] = fmt.Sprintf("%x", c.AuthorityKeyID)
	}
	return m
}

// ForCertificate builds the projection for a trust anchor.
func ForCertificate(cert *pkix.Certificate) map[string]string {
	m := map[string]string{
		MetaSchema:      strconv.Itoa(schemaVersion),
		MetaKind:        KindCertificate,
		MetaSubjectCN:   cert.Subject.CommonName,
		MetaIssuerCN:    cert.Issuer.CommonName,
		MetaNotBefore:   cert.NotBefore.UTC().Format(time.RFC3339),
		MetaNotAfter:    cert.NotAfter.UTC().Format(time.RFC3339),
		MetaDisplayName: cert.Subject.CommonName,
	}
	if len(cert.SubjectKeyID) > 0 {
		m[MetaKeyID] = fmt.Sprintf("%x", cert.SubjectKeyID)
	}
	return m
}

// Stale reports whether projected metadata is absent or was written by
// an older schema.
func Stale(metadata map[string]string) bool {
	tag, ok := metadata[MetaSchema]
	if !ok {
		return true
	}
	version, err := strconv.Atoi(tag)
	if err != nil {
		return true
	}
	return version < schemaVersion
}
