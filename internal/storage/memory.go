package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStorage keeps objects in process memory. It backs the "memory" driver for local
// runs and the consistency tests; contents are lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

var _ Storage = (*MemoryStorage)(nil)

func memoryKey(bucket, key string) string {
	return bucket + "\x00" + key
}

func (m *MemoryStorage) Put(ctx context.Context, bucket, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	if opt.Size >= 0 && int64(len(data)) != opt.Size {
		return ObjectInfo{}, fmt.Errorf("put object %s/%s: declared %d bytes, read %d", bucket, key, opt.Size, len(data))
	}

	now := time.Now().UTC()
	m.mu.Lock()
	m.objects[memoryKey(bucket, key)] = memoryObject{data: data, contentType: opt.ContentType, modified: now}
	m.mu.Unlock()

	return ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opt.ContentType,
		LastModified: now,
	}, nil
}

func (m *MemoryStorage) Get(ctx context.Context, bucket, key string, expectedSize int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[memoryKey(bucket, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, ErrObjectNotFound)
	}
	return ReadExact(bytes.NewReader(obj.data), expectedSize)
}

func (m *MemoryStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(bucket, key)
	if _, ok := m.objects[k]; !ok {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, ErrObjectNotFound)
	}
	delete(m.objects, k)
	return nil
}

// Exists reports whether bucket/key is stored.
func (m *MemoryStorage) Exists(bucket, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[memoryKey(bucket, key)]
	return ok
}

// Len returns the number of stored objects across all buckets.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
