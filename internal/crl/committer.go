package crl

import (
	"context"
	"time"

	"github.com/gateway-fm/crl-publisher/internal/pkix"
	"github.com/gateway-fm/crl-publisher/internal/store"
	"github.com/gateway-fm/crl-publisher/internal/summary"
)

// Replaced describes the superseded CRL an accepted upload displaced.
type Replaced struct {
	CRLNumber  string `json:"crlNumber,omitempty"`
	ArchiveKey string `json:"archiveKey"`
}

// commitResult reports the keys an accepted CRL was written under.
type commitResult struct {
	DERKey   string
	PEMKey   string
	AliasKey string
	Keys     []string
	Replaced *Replaced
}

// committer writes the canonical artifacts for an accepted CRL and
// snapshots the version it displaces. The backing store gives only
// last-write-wins per key; there is deliberately no lock around the
// caller's check-then-write sequence.
type committer struct {
	store store.ObjectStore
}

// commit archives the prior version (when one exists), then writes the
// canonical DER artifact, a PEM re-encoding of the same bytes, and an
// AKI-indexed alias when the CRL carries an authority key identifier.
// All copies carry identical derived metadata.
func (c *committer) commit(ctx context.Context, incoming *pkix.CRL, prior *store.Object, priorParsed *pkix.CRL) (*commitResult, error) {
	derKey, pemKey, aliasKey := canonicalKeys(incoming)

	result := &commitResult{
		DERKey:   derKey,
		PEMKey:   pemKey,
		AliasKey: aliasKey,
		Keys:     []string{derKey, pemKey},
	}
	if aliasKey != "" {
		result.Keys = append(result.Keys, aliasKey)
	}

	if prior != nil {
		replaced, err := c.archive(ctx, incoming, prior, priorParsed)
		if err != nil {
			return nil, err
		}
		result.Replaced = replaced
	}

	metadata := summary.ForCRL(incoming)
	for _, key := range result.Keys {
		body := incoming.Raw
		if key == pemKey {
			body = pkix.EncodePEM(incoming.Raw, pkix.PEMTypeCRL)
		}
		if err := c.store.Put(ctx, key, body, store.PutOptions{Metadata: metadata}); err != nil {
			return nil, newError("commit artifact", CodeStorageUnavailable, err)
		}
	}

	return result, nil
}

// archive copies the superseded CRL's raw DER bytes unmodified into an
// archive key tagged by its own CRL number or a content-digest prefix.
func (c *committer) archive(ctx context.Context, incoming *pkix.CRL, prior *store.Object, priorParsed *pkix.CRL) (*Replaced, error) {
	key := archiveKey(typePrefix(incoming), issuerSlug(incoming), prior, priorParsed)

	metadata := map[string]string{
		"issuer-cn":   incoming.Issuer.CommonName,
		"archived-at": time.Now().UTC().Format(time.RFC3339),
	}
	if priorParsed != nil && priorParsed.Number != nil {
		metadata["crl-number"] = priorParsed.Number.String()
	}

	if err := c.store.Put(ctx, key, prior.Body, store.PutOptions{Metadata: metadata}); err != nil {
		return nil, newError("archive superseded crl", CodeStorageUnavailable, err)
	}

	replaced := &Replaced{ArchiveKey: key}
	if priorParsed != nil && priorParsed.Number != nil {
		replaced.CRLNumber = priorParsed.Number.String()
	}
	return replaced, nil
}
