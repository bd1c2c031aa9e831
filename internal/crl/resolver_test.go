package crl

import (
	"bytes"
	"context"
	"testing"

	"github.com/gateway-fm/crl-publisher/internal/pkitest"
	"github.com/gateway-fm/crl-publisher/internal/pkix"
	"github.com/gateway-fm/crl-publisher/internal/store"
)

func putAnchor(t *testing.T, objects store.ObjectStore, key string, der []byte) {
	t.Helper()
	if err := objects.Put(context.Background(), key, der, store.PutOptions{}); err != nil {
		t.Fatalf("failed to store anchor %s: %v", key, err)
	}
}

func Test_Resolve_ByAuthorityKeyID(t *testing.T) {
	objects := store.NewMemoryStore()
	issuing := pkitest.NewCA(t, "Issuing CA")
	bystander := pkitest.NewCA(t, "Bystander CA")
	putAnchor(t, objects, "ca/bystander.crt", bystander.DER)
	putAnchor(t, objects, "ca/issuing.crt", issuing.DER)

	crl, err := pkix.ParseCRL(issuing.CRL(t, pkitest.CRLOptions{Number: 1}))
	if err != nil {
		t.Fatalf("failed to parse crl: %v", err)
	}

	resolver := NewResolver(objects)
	resolved, err := resolver.Resolve(context.Background(), crl)
	if err != nil {
		t.Fatalf("expected resolution, got %v", err)
	}
	if !bytes.Equal(resolved.SubjectKeyID, issuing.Cert.SubjectKeyId) {
		t.Errorf("expected the issuing CA, got %q", resolved.Subject.CommonName)
	}

	// Deterministic: same candidate set, same answer.
	again, err := resolver.Resolve(context.Background(), crl)
	if err != nil {
		t.Fatalf("expected resolution, got %v", err)
	}
	if !bytes.Equal(again.SubjectKeyID, resolved.SubjectKeyID) {
		t.Errorf("expected identical resolution on repeat")
	}
}

// Two anchors share one subject DN but only one holds the key that
// signed the CRL: the AKI/SKI match must win over the DN match.
func Test_Resolve_PrefersKeyIDOverDN(t *testing.T) {
	objects := store.NewMemoryStore()
	issuing := pkitest.NewCA(t, "Shared Name CA")
	impostor := pkitest.NewCA(t, "Shared Name CA")
	putAnchor(t, objects, "ca/a.crt", impostor.DER)
	putAnchor(t, objects, "ca/b.crt", issuing.DER)

	crl, err := pkix.ParseCRL(issuing.CRL(t, pkitest.CRLOptions{Number: 1}))
	if err != nil {
		t.Fatalf("failed to parse crl: %v", err)
	}

	resolved, err := NewResolver(objects).Resolve(context.Background(), crl)
	if err != nil {
		t.Fatalf("expected resolution, got %v", err)
	}
	if !bytes.Equal(resolved.SubjectKeyID, issuing.Cert.SubjectKeyId) {
		t.Errorf("expected the key-id match to win over the DN match")
	}
}

func Test_Resolve_PEMAnchors(t *testing.T) {
	objects := store.NewMemoryStore()
	issuing := pkitest.NewCA(t, "PEM Anchor CA")
	putAnchor(t, objects, "ca/pem-anchor.crt.pem", pkix.EncodePEM(issuing.DER, pkix.PEMTypeCertificate))

	crl, err := pkix.ParseCRL(issuing.CRL(t, pkitest.CRLOptions{Number: 1}))
	if err != nil {
		t.Fatalf("failed to parse crl: %v", err)
	}

	if _, err := NewResolver(objects).Resolve(context.Background(), crl); err != nil {
		t.Fatalf("expected resolution from a PEM anchor, got %v", err)
	}
}

func Test_Resolve_NotFound(t *testing.T) {
	objects := store.NewMemoryStore()
	putAnchor(t, objects, "ca/unrelated.crt", pkitest.NewCA(t, "Unrelated CA").DER)

	orphan := pkitest.NewCA(t, "Orphan CA")
	crl, err := pkix.ParseCRL(orphan.CRL(t, pkitest.CRLOptions{Number: 1}))
	if err != nil {
		t.Fatalf("failed to parse crl: %v", err)
	}

	_, err = NewResolver(objects).Resolve(context.Background(), crl)
	if code, ok := CodeOf(err); !ok || code != CodeIssuerNotFound {
		t.Fatalf("expected issuer_not_found, got %v", err)
	}
}
