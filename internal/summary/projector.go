package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gateway-fm/crl-publisher/internal/cache"
	"github.com/gateway-fm/crl-publisher/internal/pkix"
	"github.com/gateway-fm/crl-publisher/internal/store"
)

// Projector recomputes display metadata for stored artifacts whose
// projection is absent or stale-schema. The write-back is conditional on
// the object's current entity tag: losing that race means another writer
// already did the work, so the recomputation is discarded silently.
type Projector struct {
	store     store.ObjectStore
	coherency *cache.Coherency
}

// NewProjector creates a projector over the given store. The coherency
// manager is used to drop stale meta cache entries after a write-back.
func NewProjector(objects store.ObjectStore, coherency *cache.Coherency) *Projector {
	return &Projector{store: objects, coherency: coherency}
}

// Project returns current summary metadata for the key, recomputing and
// writing it back when needed.
func (p *Projector) Project(ctx context.Context, key string) (map[string]string, error) {
	obj, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if !Stale(obj.Metadata) {
		return obj.Metadata, nil
	}

	metadata, err := Compute(key, obj.Body)
	if err != nil {
		return nil, err
	}

	err = p.store.Put(ctx, key, obj.Body, store.PutOptions{Metadata: metadata, IfMatch: obj.ETag})
	switch {
	case errors.Is(err, store.ErrPreconditionFailed):
		// Another writer updated the object between our read and write.
	case err != nil:
		return nil, fmt.Errorf("failed to write back summary for %s: %w", key, err)
	default:
		p.coherency.InvalidateObject(ctx, key)
	}

	return metadata, nil
}

// Sweep walks the artifact prefixes and reprojects anything stale.
// Archive snapshots are immutable history and are skipped.
func (p *Projector) Sweep(ctx context.Context, prefixes []string) {
	for _, prefix := range prefixes {
		infos, err := p.store.List(ctx, prefix)
		if err != nil {
			slog.Error("summary sweep: listing failed", "prefix", prefix, "err", err)
			continue
		}
		for _, info := range infos {
			if strings.Contains(info.Key, "archive/") {
				continue
			}
			if _, err := p.Project(ctx, info.Key); err != nil {
				slog.Warn("summary sweep: projection failed", "key", info.Key, "err", err)
			}
		}
	}
}

// Compute derives the projection from an artifact body. The key suffix
// selects the decode path: .pem keys unwrap a PEM armor first, .crt keys
// parse as certificates and .crl keys as revocation lists.
func Compute(key string, body []byte) (map[string]string, error) {
	isCert := strings.Contains(key, ".crt")

	der := body
	if strings.HasSuffix(key, ".pem") {
		blockType := pkix.PEMTypeCRL
		if isCert {
			blockType = pkix.PEMTypeCertificate
		}
		unwrapped, err := pkix.DecodePEM(body, blockType)
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap %s: %w", key, err)
		}
		der = unwrapped
	}

	if isCert {
		cert, err := pkix.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate %s: %w", key, err)
		}
		return ForCertificate(cert), nil
	}

	crl, err := pkix.ParseCRL(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse crl %s: %w", key, err)
	}
	return ForCRL(crl), nil
}
