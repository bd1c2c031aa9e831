package crl

import (
	"fmt"
	"strings"

	"github.com/gateway-fm/crl-publisher/internal/pkix"
	"github.com/gateway-fm/crl-publisher/internal/store"
)

// Storage key layout. Stable and compatibility-relevant: consumers fetch
// these keys directly.
const (
	PrefixCA    = "ca/"
	PrefixCRL   = "crl/"
	PrefixDelta = "dcrl/"
)

// archiveTagLen is how many hex characters of the content digest tag an
// archive snapshot of a number-less CRL.
const archiveTagLen = 16

// typePrefix returns the canonical prefix for the CRL's type.
func typePrefix(c *pkix.CRL) string {
	if c.IsDelta() {
		return PrefixDelta
	}
	return PrefixCRL
}

// issuerSlug derives the stable key component for an issuer: the
// lowercased common name with non-alphanumeric runs collapsed to a
// single dash. An empty common name falls back to a digest of the raw
// issuer DN so distinct issuers can never collide on an empty slug.
func issuerSlug(c *pkix.CRL) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(c.Issuer.CommonName)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return store.ContentETag(c.RawIssuer)[:archiveTagLen]
	}
	return slug
}

// canonicalKeys returns the DER key, the PEM key, and the AKI alias key
// (empty when the CRL carries no AKI) for a CRL. Every accepted version
// for one (issuer, type) pair replaces the same addresses.
func canonicalKeys(c *pkix.CRL) (derKey, pemKey, aliasKey string) {
	prefix := typePrefix(c)
	slug := issuerSlug(c)
	derKey = prefix + slug + ".crl"
	pemKey = derKey + ".pem"
	if len(c.AuthorityKeyID) > 0 {
		aliasKey = fmt.Sprintf("%sby-keyid/%x.crl", prefix, c.AuthorityKeyID)
	}
	return derKey, pemKey, aliasKey
}

// archiveKey addresses the snapshot of a superseded CRL, tagged by its
// own CRL number or, absent one, a prefix of its content digest.
func archiveKey(prefix, slug string, superseded *store.Object, parsed *pkix.CRL) string {
	tag := store.ContentETag(superseded.Body)[:archiveTagLen]
	if parsed != nil && parsed.Number != nil {
		tag = parsed.Number.String()
	}
	return fmt.Sprintf("%sarchive/%s-%s.crl", prefix, slug, tag)
}
