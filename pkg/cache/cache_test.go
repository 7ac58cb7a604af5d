package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yeisme/snapvault/pkg/cache"
)

// testShare 测试用的分享记录结构体.
type testShare struct {
	OTP      string `json:"otp"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// mockKVStore 模拟KV存储实现.
type mockKVStore struct {
	data map[string][]byte
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{
		data: make(map[string][]byte),
	}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, exists := m.data[key]; exists {
		return value, nil
	}

	return nil, fmt.Errorf("key not found")
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockKVStore) Exists(ctx context.Context, key string) (bool, error) {
	_, exists := m.data[key]
	return exists, nil
}

func (m *mockKVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}

	return keys, nil
}

func (m *mockKVStore) Close() error {
	return nil
}

// TestCacheGetSet 测试 Get/Set 方法.
func TestCacheGetSet(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	// 测试获取不存在的键
	_, err := cache.Get[testShare](ctx, c, "nonexistent")
	if err == nil {
		t.Error("Expected error for nonexistent key")
	}

	share := testShare{OTP: "1234", Filename: "report.pdf", Size: 2048}

	err = cache.Set(ctx, c, "share:1234", share, 0)
	if err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	got, err := cache.Get[testShare](ctx, c, "share:1234")
	if err != nil {
		t.Fatalf("Failed to get cache: %v", err)
	}

	if got != share {
		t.Errorf("Retrieved share %+v does not match original %+v", got, share)
	}
}

// TestCacheDelete 测试 Delete 方法.
func TestCacheDelete(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	share := testShare{OTP: "5678", Filename: "notes.txt", Size: 64}

	if err := cache.Set(ctx, c, "share:5678", share, 0); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	exists, err := c.Exists(ctx, "share:5678")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true, nil", exists, err)
	}

	if err := c.Delete(ctx, "share:5678"); err != nil {
		t.Fatalf("Failed to delete cache: %v", err)
	}

	exists, err = c.Exists(ctx, "share:5678")
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}

	if exists {
		t.Error("Key should not exist after delete")
	}
}

// TestCacheGetOrSet 测试 GetOrSet 模式.
func TestCacheGetOrSet(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	calls := 0
	getter := func() (testShare, error) {
		calls++
		return testShare{OTP: "0000", Filename: "a.bin", Size: 1}, nil
	}

	// 第一次调用 getter
	got, err := cache.GetOrSet(ctx, c, "share:0000", getter, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet failed: %v", err)
	}

	if got.OTP != "0000" {
		t.Errorf("got OTP %q, want %q", got.OTP, "0000")
	}

	// 第二次命中缓存，getter 不再被调用
	_, err = cache.GetOrSet(ctx, c, "share:0000", getter, time.Minute)
	if err != nil {
		t.Fatalf("GetOrSet failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("getter called %d times, want 1", calls)
	}
}

// TestCacheGetOrSetError 测试 getter 错误传播.
func TestCacheGetOrSetError(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	wantErr := errors.New("load failed")

	_, err := cache.GetOrSet(ctx, c, "share:err", func() (testShare, error) {
		return testShare{}, wantErr
	}, time.Minute)
	if !errors.Is(err, wantErr) {
		t.Errorf("got error %v, want %v", err, wantErr)
	}
}

// TestCacheClear 测试 Clear 方法.
func TestCacheClear(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	for i := range 3 {
		key := fmt.Sprintf("share:%d", i)
		if err := cache.Set(ctx, c, key, testShare{OTP: key}, 0); err != nil {
			t.Fatalf("Failed to set cache: %v", err)
		}
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if len(mockStore.data) != 0 {
		t.Errorf("store has %d entries after clear, want 0", len(mockStore.data))
	}
}
