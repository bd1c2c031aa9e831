package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process ObjectStore used by tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*Object)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneObject(obj), nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, body []byte, opt PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if opt.IfMatch != "" {
		existing, ok := m.objects[key]
		if !ok || existing.ETag != opt.IfMatch {
			return ErrPreconditionFailed
		}
	}

	metadata := make(map[string]string, len(opt.Metadata))
	for k, v := range opt.Metadata {
		metadata[k] = v
	}

	m.objects[key] = &Object{
		Key:        key,
		Body:       append([]byte(nil), body...),
		Size:       int64(len(body)),
		UploadedAt: time.Now().UTC(),
		ETag:       ContentETag(body),
		Metadata:   metadata,
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var infos []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{Key: key, Size: obj.Size, UploadedAt: obj.UploadedAt})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func cloneObject(obj *Object) *Object {
	clone := *obj
	clone.Body = append([]byte(nil), obj.Body...)
	clone.Metadata = make(map[string]string, len(obj.Metadata))
	for k, v := range obj.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}
