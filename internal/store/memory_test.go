package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func Test_MemoryStore_GetPut(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "crl/missing.crl"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	body := []byte("payload")
	if err := s.Put(ctx, "crl/a.crl", body, PutOptions{Metadata: map[string]string{"kind": "crl"}}); err != nil {
		t.Fatalf("failed to put: %v", err)
	}

	obj, err := s.Get(ctx, "crl/a.crl")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !bytes.Equal(obj.Body, body) {
		t.Errorf("unexpected body %q", obj.Body)
	}
	if obj.Size != int64(len(body)) {
		t.Errorf("unexpected size %d", obj.Size)
	}
	if obj.ETag != ContentETag(body) {
		t.Errorf("etag must be the content digest, got %q", obj.ETag)
	}
	if obj.Metadata["kind"] != "crl" {
		t.Errorf("metadata not preserved: %v", obj.Metadata)
	}
	if obj.UploadedAt.IsZero() {
		t.Error("expected an upload timestamp")
	}

	// Mutating the returned object must not reach the stored copy.
	obj.Body[0] = 'X'
	obj.Metadata["kind"] = "tampered"
	again, _ := s.Get(ctx, "crl/a.crl")
	if !bytes.Equal(again.Body, body) || again.Metadata["kind"] != "crl" {
		t.Error("store handed out its internal copy")
	}
}

func Test_MemoryStore_ConditionalPut(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "crl/a.crl", []byte("v1"), PutOptions{IfMatch: "anything"}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("conditional put against a missing key must fail, got %v", err)
	}

	if err := s.Put(ctx, "crl/a.crl", []byte("v1"), PutOptions{}); err != nil {
		t.Fatalf("failed to put: %v", err)
	}
	obj, _ := s.Get(ctx, "crl/a.crl")

	if err := s.Put(ctx, "crl/a.crl", []byte("v2"), PutOptions{IfMatch: obj.ETag}); err != nil {
		t.Fatalf("matching conditional put must succeed, got %v", err)
	}
	if err := s.Put(ctx, "crl/a.crl", []byte("v3"), PutOptions{IfMatch: obj.ETag}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("stale conditional put must fail, got %v", err)
	}

	current, _ := s.Get(ctx, "crl/a.crl")
	if string(current.Body) != "v2" {
		t.Errorf("expected v2 to survive, got %q", current.Body)
	}
}

func Test_MemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, key := range []string{"crl/b.crl", "crl/a.crl", "dcrl/a.crl", "ca/root.crt"} {
		if err := s.Put(ctx, key, []byte(key), PutOptions{}); err != nil {
			t.Fatalf("failed to put %s: %v", key, err)
		}
	}

	tests := map[string]struct {
		prefix string
		want   []string
	}{
		"full crls":  {prefix: "crl/", want: []string{"crl/a.crl", "crl/b.crl"}},
		"delta crls": {prefix: "dcrl/", want: []string{"dcrl/a.crl"}},
		"anchors":    {prefix: "ca/", want: []string{"ca/root.crt"}},
		"no matches": {prefix: "other/", want: nil},
		"everything": {prefix: "", want: []string{"ca/root.crt", "crl/a.crl", "crl/b.crl", "dcrl/a.crl"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			infos, err := s.List(ctx, tc.prefix)
			if err != nil {
				t.Fatalf("failed to list: %v", err)
			}
			if len(infos) != len(tc.want) {
				t.Fatalf("expected %d objects, got %v", len(tc.want), infos)
			}
			for i, info := range infos {
				if info.Key != tc.want[i] {
					t.Errorf("position %d: expected %q, got %q", i, tc.want[i], info.Key)
				}
			}
		})
	}
}
