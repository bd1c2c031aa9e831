package crl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gateway-fm/crl-publisher/internal/cache"
	"github.com/gateway-fm/crl-publisher/internal/metrics"
	"github.com/gateway-fm/crl-publisher/internal/pkix"
	"github.com/gateway-fm/crl-publisher/internal/store"
	"github.com/gateway-fm/crl-publisher/internal/summary"
)

// Service runs the ingestion pipeline: decode, resolve the issuing
// authority, verify the signature, arbitrate freshness, commit and
// archive, then bring the read caches back in line. Each call runs the
// whole pipeline synchronously; all durable state lives in the store and
// the cache tiers.
//
// There is no mutual exclusion around the freshness check and the
// writes that follow it. Two concurrent uploads for one issuer can both
// pass arbitration against the same prior state; the store's
// last-write-wins semantics decide the outcome and the archive trail
// records both.
type Service struct {
	store     store.ObjectStore
	cache     cache.ResponseCache
	coherency *cache.Coherency
	resolver  *Resolver
	committer *committer
	projector *summary.Projector
	updater   *metrics.Updater

	listTTL time.Duration
	metaTTL time.Duration
}

// Options tunes the read-through cache windows.
type Options struct {
	ListTTL time.Duration
	MetaTTL time.Duration
}

// NewService wires the pipeline over its injected collaborators. The
// updater may be nil when gauge recounts are not wanted (tests).
func NewService(objects store.ObjectStore, responses cache.ResponseCache, coherency *cache.Coherency, projector *summary.Projector, updater *metrics.Updater, opt Options) *Service {
	if opt.ListTTL <= 0 {
		opt.ListTTL = time.Minute
	}
	if opt.MetaTTL <= 0 {
		opt.MetaTTL = 5 * time.Minute
	}
	return &Service{
		store:     objects,
		cache:     responses,
		coherency: coherency,
		resolver:  NewResolver(objects),
		committer: &committer{store: objects},
		projector: projector,
		updater:   updater,
		listTTL:   opt.ListTTL,
		metaTTL:   opt.MetaTTL,
	}
}

// IngestResult is the success response of an upload.
type IngestResult struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	CRLNumber  string     `json:"crlNumber,omitempty"`
	ThisUpdate time.Time  `json:"thisUpdate"`
	NextUpdate *time.Time `json:"nextUpdate,omitempty"`
	Keys       []string   `json:"keys"`
	Replaced   *Replaced  `json:"replaced,omitempty"`
}

// Ingest runs the full pipeline for one submitted artifact. The content
// type selects the decode path: text/* bodies are PEM, anything else is
// raw DER.
func (s *Service) Ingest(ctx context.Context, body []byte, contentType string) (*IngestResult, error) {
	result, err := s.ingest(ctx, body, contentType)
	if err != nil {
		outcome := "error"
		if code, ok := CodeOf(err); ok {
			outcome = string(code)
		}
		metrics.ObserveIngest(outcome)
		return nil, err
	}
	metrics.ObserveIngest("accepted")
	return result, nil
}

func (s *Service) ingest(ctx context.Context, body []byte, contentType string) (*IngestResult, error) {
	der, err := decodeBody(body, contentType)
	if err != nil {
		return nil, err
	}

	incoming, err := pkix.ParseCRL(der)
	if err != nil {
		return nil, newError("decode crl", CodeInvalidDER, err)
	}

	issuer, err := s.resolver.Resolve(ctx, incoming)
	if err != nil {
		return nil, err
	}

	if err := verifySignature(incoming, issuer); err != nil {
		return nil, err
	}

	derKey, _, _ := canonicalKeys(incoming)
	prior, priorParsed, err := s.loadPrior(ctx, derKey)
	if err != nil {
		return nil, err
	}

	if priorParsed != nil && !supersedes(incoming, priorParsed) {
		return nil, newError("arbitrate freshness", CodeStaleCRL,
			fmt.Errorf("stored crl for %q is as new or newer", incoming.Issuer.CommonName))
	}

	commit, err := s.committer.commit(ctx, incoming, prior, priorParsed)
	if err != nil {
		return nil, err
	}
	if commit.Replaced != nil {
		metrics.ObserveArchive()
	}

	s.coherency.InvalidateCommit(ctx, []string{PrefixCRL, PrefixDelta, PrefixCA}, commit.Keys)
	if s.updater != nil {
		s.updater.Trigger()
	}

	crlType := summary.CRLTypeFull
	if incoming.IsDelta() {
		crlType = summary.CRLTypeDelta
	}
	result := &IngestResult{
		ID:         uuid.NewString(),
		Type:       crlType,
		ThisUpdate: incoming.ThisUpdate,
		Keys:       commit.Keys,
		Replaced:   commit.Replaced,
	}
	if incoming.Number != nil {
		result.CRLNumber = incoming.Number.String()
	}
	if !incoming.NextUpdate.IsZero() {
		next := incoming.NextUpdate
		result.NextUpdate = &next
	}

	slog.Info("crl accepted",
		"id", result.ID,
		"issuer", incoming.Issuer.CommonName,
		"type", crlType,
		"crlNumber", result.CRLNumber,
		"revoked", len(incoming.Revoked),
		"replaced", commit.Replaced != nil,
	)
	return result, nil
}

// loadPrior fetches and parses the currently stored CRL for the logical
// key. A missing prior means first upload; a stored artifact that no
// longer parses cannot out-order anything, so it is archived and
// replaced rather than blocking ingestion.
func (s *Service) loadPrior(ctx context.Context, derKey string) (*store.Object, *pkix.CRL, error) {
	obj, err := s.store.Get(ctx, derKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, newError("load prior crl", CodeStorageUnavailable, err)
	}

	parsed, err := pkix.ParseCRL(obj.Body)
	if err != nil {
		slog.Warn("stored crl no longer parses, replacing it", "key", derKey, "err", err)
		return obj, nil, nil
	}
	return obj, parsed, nil
}

func decodeBody(body []byte, contentType string) ([]byte, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	if strings.HasPrefix(mediaType, "text/") {
		der, err := pkix.DecodePEM(body, pkix.PEMTypeCRL)
		if err != nil {
			return nil, newError("decode pem", CodeInvalidPEM, err)
		}
		return der, nil
	}
	return body, nil
}

// ListSnapshot serves the {key, size, uploadedAt} listing for a storage
// prefix through the list cache. Cache failures fall through to the
// store and are logged, never surfaced.
type ListSnapshot struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Objects     []store.ObjectInfo `json:"objects"`
}

func (s *Service) List(ctx context.Context, prefix string) ([]byte, error) {
	key := cache.ListKey(prefix)
	payload, ok, err := s.cache.Match(ctx, key)
	if err != nil {
		slog.Warn("list cache lookup failed", "prefix", prefix, "err", err)
	} else if ok {
		return payload, nil
	}

	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, newError("list objects", CodeStorageUnavailable, err)
	}
	if infos == nil {
		infos = []store.ObjectInfo{}
	}

	payload, err = json.Marshal(ListSnapshot{GeneratedAt: time.Now().UTC(), Objects: infos})
	if err != nil {
		return nil, fmt.Errorf("failed to encode list snapshot: %w", err)
	}

	if err := s.cache.Put(ctx, key, payload, s.listTTL); err != nil {
		slog.Warn("list cache store failed", "prefix", prefix, "err", err)
	}
	return payload, nil
}

// ObjectSummary serves the projected display metadata for one object
// through the meta cache, projecting on demand when absent or stale.
func (s *Service) ObjectSummary(ctx context.Context, objectKey string) ([]byte, error) {
	key := cache.MetaKey(objectKey)
	payload, ok, err := s.cache.Match(ctx, key)
	if err != nil {
		slog.Warn("meta cache lookup failed", "key", objectKey, "err", err)
	} else if ok {
		return payload, nil
	}

	metadata, err := s.projector.Project(ctx, objectKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, newError("project summary", CodeStorageUnavailable, err)
	}

	payload, err = json.Marshal(struct {
		Key     string            `json:"key"`
		Summary map[string]string `json:"summary"`
	}{Key: objectKey, Summary: metadata})
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := s.cache.Put(ctx, key, payload, s.metaTTL); err != nil {
		slog.Warn("meta cache store failed", "key", objectKey, "err", err)
	}
	return payload, nil
}
