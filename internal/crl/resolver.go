package crl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gateway-fm/crl-publisher/internal/pkix"
	"github.com/gateway-fm/crl-publisher/internal/store"
)

// Resolver finds the stored trust anchor that issued a CRL. Matching is
// strict: an Authority Key Identifier match against a candidate's
// Subject Key Identifier wins first; otherwise the issuer DN must be
// structurally identical to a candidate's subject DN. There is no
// closest-candidate fallback.
type Resolver struct {
	store store.ObjectStore
}

// NewResolver creates a resolver over the trust-anchor prefix.
func NewResolver(objects store.ObjectStore) *Resolver {
	return &Resolver{store: objects}
}

// Resolve returns the issuing certificate for the CRL or an
// issuer_not_found error. Candidates under ca/ are decoded at most once
// per resolution pass.
func (r *Resolver) Resolve(ctx context.Context, c *pkix.CRL) (*pkix.Certificate, error) {
	infos, err := r.store.List(ctx, PrefixCA)
	if err != nil {
		return nil, newError("resolve issuer", CodeStorageUnavailable, err)
	}

	candidates, err := r.loadCandidates(ctx, infos)
	if err != nil {
		return nil, err
	}

	if len(c.AuthorityKeyID) > 0 {
		akiHex := fmt.Sprintf("%x", c.AuthorityKeyID)
		for _, cand := range candidates {
			if len(cand.SubjectKeyID) == 0 {
				continue
			}
			if strings.EqualFold(akiHex, fmt.Sprintf("%x", cand.SubjectKeyID)) {
				return cand, nil
			}
		}
	}

	for _, cand := range candidates {
		if c.IssuedBy(cand) {
			return cand, nil
		}
	}

	return nil, newError("resolve issuer", CodeIssuerNotFound,
		fmt.Errorf("no trust anchor matches issuer %q", c.Issuer.CommonName))
}

// loadCandidates fetches and decodes every trust anchor once. A PEM copy
// of an anchor whose DER copy already decoded is skipped. Distinct
// anchors sharing a subject DN are both kept.
func (r *Resolver) loadCandidates(ctx context.Context, infos []store.ObjectInfo) ([]*pkix.Certificate, error) {
	var candidates []*pkix.Certificate
	seen := make(map[string]bool)

	for _, info := range infos {
		var pemWrapped bool
		switch {
		case strings.HasSuffix(info.Key, ".crt.pem"):
			pemWrapped = true
		case strings.HasSuffix(info.Key, ".crt"):
		default:
			continue
		}

		obj, err := r.store.Get(ctx, info.Key)
		if err != nil {
			return nil, newError("resolve issuer", CodeStorageUnavailable, err)
		}

		der := obj.Body
		if pemWrapped {
			der, err = pkix.DecodePEM(obj.Body, pkix.PEMTypeCertificate)
			if err != nil {
				slog.Warn("skipping undecodable trust anchor", "key", info.Key, "err", err)
				continue
			}
		}

		cand, err := pkix.ParseCertificate(der)
		if err != nil {
			slog.Warn("skipping unparseable trust anchor", "key", info.Key, "err", err)
			continue
		}

		raw := string(cand.Raw)
		if seen[raw] {
			continue
		}
		seen[raw] = true
		candidates = append(candidates, cand)
	}

	return candidates, nil
}
