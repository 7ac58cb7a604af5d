package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/snapvault/pkg/cache"
	"github.com/yeisme/snapvault/pkg/configs"
	"github.com/yeisme/snapvault/pkg/internal/model"
	"github.com/yeisme/snapvault/pkg/internal/service"
	"github.com/yeisme/snapvault/pkg/internal/storage/db"
	"github.com/yeisme/snapvault/pkg/internal/storage/kv"
	"github.com/yeisme/snapvault/pkg/internal/types"
	"github.com/yeisme/snapvault/pkg/queue"
)

// fakeBlob 内存对象存储，支持注入删除失败.
type fakeBlob struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failRemove bool
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (f *fakeBlob) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data

	return nil
}

func (f *fakeBlob) PresignedGet(ctx context.Context, key, filename string, expiry time.Duration) (*url.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.objects[key]; !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}

	return url.Parse(fmt.Sprintf("http://blob.local/%s?expires=%d", key, int(expiry.Seconds())))
}

func (f *fakeBlob) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failRemove {
		return fmt.Errorf("simulated remove failure for %s", key)
	}

	delete(f.objects, key)

	return nil
}

func (f *fakeBlob) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.objects[key]

	return ok
}

func testConfig() configs.ShareConfig {
	return configs.ShareConfig{
		TTL:            5 * time.Minute,
		Grace:          30 * time.Millisecond,
		OTPMaxAttempts: 10,
		MaxFileSize:    1 << 20,
		MaxTextSize:    1 << 16,
	}
}

func newTestService(t *testing.T, blob *fakeBlob, cfg configs.ShareConfig) (*service.ShareService, *gorm.DB) {
	t.Helper()
	return newTestServiceWithCache(t, blob, nil, cfg)
}

func newTestServiceWithCache(t *testing.T, blob *fakeBlob, cachec *cache.Cache, cfg configs.ShareConfig) (*service.ShareService, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// 内存库按连接隔离，收敛到单连接避免连接池各见一份空库
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&model.FileShare{}, &model.TextShare{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cleaner := service.NewCleaner()
	t.Cleanup(cleaner.Stop)

	svc := service.NewShareServiceWith(&db.Client{DB: gdb}, blob, cachec, nil, cfg, cleaner)

	return svc, gdb
}

// TestTextShareRoundTrip 创建文本分享后以取件码兑换内容.
func TestTextShareRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, newFakeBlob(), testConfig())
	ctx := context.Background()

	resp, err := svc.CreateTextShare(ctx, &types.CreateTextShareRequest{Content: "meet at 10"})
	if err != nil {
		t.Fatalf("CreateTextShare: %v", err)
	}

	if len(resp.OTP) != 4 {
		t.Fatalf("otp %q is not 4 digits", resp.OTP)
	}

	if resp.Kind != "text" {
		t.Errorf("kind = %q, want text", resp.Kind)
	}

	got, err := svc.RetrieveShare(ctx, resp.OTP)
	if err != nil {
		t.Fatalf("RetrieveShare: %v", err)
	}

	if got.Text != "meet at 10" {
		t.Errorf("content = %q, want %q", got.Text, "meet at 10")
	}
}

// TestTextShareGraceDeletion 文本被取走后经过宽限期自动删除.
func TestTextShareGraceDeletion(t *testing.T) {
	svc, gdb := newTestService(t, newFakeBlob(), testConfig())
	ctx := context.Background()

	resp, err := svc.CreateTextShare(ctx, &types.CreateTextShareRequest{Content: "ephemeral"})
	if err != nil {
		t.Fatalf("CreateTextShare: %v", err)
	}

	if _, err := svc.RetrieveShare(ctx, resp.OTP); err != nil {
		t.Fatalf("RetrieveShare: %v", err)
	}

	// 宽限期为 30ms，等待定时器触发
	deadline := time.Now().Add(2 * time.Second)
	for {
		var n int64
		if err := gdb.Model(&model.TextShare{}).Where("otp = ?", resp.OTP).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}

		if n == 0 {
			break
		}

		if time.Now().After(deadline) {
			t.Fatal("text share not deleted after grace period")
		}

		time.Sleep(10 * time.Millisecond)
	}

	if _, err := svc.RetrieveShare(ctx, resp.OTP); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("retrieve after deletion = %v, want ErrNotFound", err)
	}
}

// TestFileShareRoundTrip 创建文件分享，兑换元数据并授权下载.
func TestFileShareRoundTrip(t *testing.T) {
	blob := newFakeBlob()
	svc, _ := newTestService(t, blob, testConfig())
	ctx := context.Background()

	content := []byte("pdf bytes")

	resp, err := svc.CreateFileShare(ctx, "report.pdf", "application/pdf", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("CreateFileShare: %v", err)
	}

	objectKey := resp.OTP + "/report.pdf"
	if !blob.has(objectKey) {
		t.Fatalf("object %s not stored", objectKey)
	}

	got, err := svc.RetrieveShare(ctx, resp.OTP)
	if err != nil {
		t.Fatalf("RetrieveShare: %v", err)
	}

	if got.File == nil || got.File.OriginalName != "report.pdf" || got.File.Size != int64(len(content)) {
		t.Fatalf("unexpected file view: %+v", got.File)
	}

	dl, err := svc.AuthorizeDownload(ctx, objectKey, resp.OTP)
	if err != nil {
		t.Fatalf("AuthorizeDownload: %v", err)
	}

	if dl.URL == "" || dl.OriginalName != "report.pdf" {
		t.Errorf("unexpected download response: %+v", dl)
	}

	// 地址有效期不超过 5 分钟且不超过剩余有效期
	if dl.ExpiresIn <= 0 || dl.ExpiresIn > 300 {
		t.Errorf("ExpiresIn = %d, want (0, 300]", dl.ExpiresIn)
	}
}

// TestDownloadURLClampedToRemainingTTL 剩余有效期小于 5 分钟时地址随之缩短.
func TestDownloadURLClampedToRemainingTTL(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = 90 * time.Second
	cfg.Grace = time.Hour // 避免本测试中宽限期删除干扰

	blob := newFakeBlob()
	svc, _ := newTestService(t, blob, cfg)
	ctx := context.Background()

	content := []byte("x")

	resp, err := svc.CreateFileShare(ctx, "a.bin", "application/octet-stream", 1, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("CreateFileShare: %v", err)
	}

	dl, err := svc.AuthorizeDownload(ctx, resp.OTP+"/a.bin", resp.OTP)
	if err != nil {
		t.Fatalf("AuthorizeDownload: %v", err)
	}

	if dl.ExpiresIn > 90 {
		t.Errorf("ExpiresIn = %d, want <= 90 (remaining TTL)", dl.ExpiresIn)
	}
}

// TestAuthorizeDownloadRejectsForeignPath 下载授权只对取件码自己前缀下且与记录一致的对象放行.
func TestAuthorizeDownloadRejectsForeignPath(t *testing.T) {
	blob := newFakeBlob()
	svc, gdb := newTestService(t, blob, testConfig())
	ctx := context.Background()

	now := time.Now().UTC()

	if err := blob.Put(ctx, "1747/secret.txt", bytes.NewReader([]byte("secret")), 6, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	victim := &model.FileShare{
		ID:           "01TESTVICTIM1747SECRET",
		OTP:          "1747",
		ObjectKey:    "1747/secret.txt",
		OriginalName: "secret.txt",
		ContentType:  "text/plain",
		Size:         6,
		ExpiresAt:    now.Add(5 * time.Minute),
		CreatedAt:    now,
	}
	// 记录持有他人对象键，授权时不得为其签发地址
	attacker := &model.FileShare{
		ID:           "01TESTATTACKER4321STEAL",
		OTP:          "4321",
		ObjectKey:    "1747/secret.txt",
		OriginalName: "secret.txt",
		ContentType:  "text/plain",
		Size:         6,
		ExpiresAt:    now.Add(5 * time.Minute),
		CreatedAt:    now,
	}

	for _, rec := range []*model.FileShare{victim, attacker} {
		if err := gdb.Create(rec).Error; err != nil {
			t.Fatalf("seed %s: %v", rec.OTP, err)
		}
	}

	if _, err := svc.AuthorizeDownload(ctx, "1747/secret.txt", "4321"); !errors.Is(err, service.ErrInvalidOTP) {
		t.Errorf("cross-code path: err = %v, want ErrInvalidOTP", err)
	}

	if _, err := svc.AuthorizeDownload(ctx, "4321/secret.txt", "4321"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("own prefix but wrong object: err = %v, want ErrNotFound", err)
	}

	dl, err := svc.AuthorizeDownload(ctx, "1747/secret.txt", "1747")
	if err != nil {
		t.Fatalf("owner authorize: %v", err)
	}

	if dl.URL == "" {
		t.Error("owner should receive a signed URL")
	}
}

// TestRetrieveFileShareServedFromCache 文件分享的取件视图命中缓存时不再访问数据库.
func TestRetrieveFileShareServedFromCache(t *testing.T) {
	kvStore, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	blob := newFakeBlob()
	svc, gdb := newTestServiceWithCache(t, blob, cache.NewCache(kvStore), testConfig())
	ctx := context.Background()

	content := []byte("cached bytes")

	resp, err := svc.CreateFileShare(ctx, "c.txt", "text/plain", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("CreateFileShare: %v", err)
	}

	// 绕过服务直接清掉数据库行，命中缓存才可能继续取到视图
	if err := gdb.Delete(&model.FileShare{}, "otp = ?", resp.OTP).Error; err != nil {
		t.Fatalf("delete row: %v", err)
	}

	got, err := svc.RetrieveShare(ctx, resp.OTP)
	if err != nil {
		t.Fatalf("RetrieveShare: %v", err)
	}

	if got.File == nil || got.File.OriginalName != "c.txt" {
		t.Fatalf("unexpected cached view: %+v", got)
	}

	// 服务删除后缓存同步失效
	if err := gdb.Create(&model.FileShare{
		ID:           "01TESTCACHEINVALIDATION",
		OTP:          resp.OTP,
		ObjectKey:    resp.OTP + "/c.txt",
		OriginalName: "c.txt",
		ContentType:  "text/plain",
		Size:         int64(len(content)),
		ExpiresAt:    time.Now().UTC().Add(5 * time.Minute),
		CreatedAt:    time.Now().UTC(),
	}).Error; err != nil {
		t.Fatalf("reseed: %v", err)
	}

	if err := svc.DeleteShare(ctx, resp.OTP, queue.DeleteTriggerManual); err != nil {
		t.Fatalf("DeleteShare: %v", err)
	}

	if _, err := svc.RetrieveShare(ctx, resp.OTP); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("retrieve after delete = %v, want ErrNotFound", err)
	}
}

// TestRetrieveExpiredShare 过期记录返回 ErrExpired 并被就地清理.
func TestRetrieveExpiredShare(t *testing.T) {
	svc, gdb := newTestService(t, newFakeBlob(), testConfig())
	ctx := context.Background()

	// 直接插入一条已过期的文本记录
	past := time.Now().UTC().Add(-time.Minute)
	rec := &model.TextShare{
		ID:        model.NewTextShareID("7777", past.Add(-5*time.Minute)),
		OTP:       "7777",
		Content:   "stale",
		ExpiresAt: past,
		CreatedAt: past.Add(-5 * time.Minute),
	}
	if err := gdb.Create(rec).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.RetrieveShare(ctx, "7777"); !errors.Is(err, service.ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}

	// 就地触发的异步删除随后清掉记录
	deadline := time.Now().Add(2 * time.Second)
	for {
		var n int64
		if err := gdb.Model(&model.TextShare{}).Where("otp = ?", "7777").Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}

		if n == 0 {
			break
		}

		if time.Now().After(deadline) {
			t.Fatal("expired share not cleaned up")
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// TestRetrieveInvalidOTP 非法格式一律返回 ErrInvalidOTP，与记录是否存在无关.
func TestRetrieveInvalidOTP(t *testing.T) {
	svc, _ := newTestService(t, newFakeBlob(), testConfig())
	ctx := context.Background()

	for _, code := range []string{"", "12", "12345", "abcd", "12a4", "-123"} {
		if _, err := svc.RetrieveShare(ctx, code); !errors.Is(err, service.ErrInvalidOTP) {
			t.Errorf("RetrieveShare(%q) = %v, want ErrInvalidOTP", code, err)
		}
	}
}

// TestRetrieveNotFound 格式合法但无记录返回 ErrNotFound.
func TestRetrieveNotFound(t *testing.T) {
	svc, _ := newTestService(t, newFakeBlob(), testConfig())

	if _, err := svc.RetrieveShare(context.Background(), "0042"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestDeleteShareIdempotent 删除不存在的记录返回成功.
func TestDeleteShareIdempotent(t *testing.T) {
	svc, _ := newTestService(t, newFakeBlob(), testConfig())
	ctx := context.Background()

	if err := svc.DeleteShare(ctx, "1234", queue.DeleteTriggerManual); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	resp, err := svc.CreateTextShare(ctx, &types.CreateTextShareRequest{Content: "bye"})
	if err != nil {
		t.Fatalf("CreateTextShare: %v", err)
	}

	if err := svc.DeleteShare(ctx, resp.OTP, queue.DeleteTriggerManual); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := svc.DeleteShare(ctx, resp.OTP, queue.DeleteTriggerManual); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

// TestPartialCleanupStillDeletesMetadata 对象删除失败不阻断元数据删除，以部分失败上报.
func TestPartialCleanupStillDeletesMetadata(t *testing.T) {
	blob := newFakeBlob()
	svc, gdb := newTestService(t, blob, testConfig())
	ctx := context.Background()

	content := []byte("data")

	resp, err := svc.CreateFileShare(ctx, "f.txt", "text/plain", int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("CreateFileShare: %v", err)
	}

	blob.failRemove = true

	err = svc.DeleteShare(ctx, resp.OTP, queue.DeleteTriggerManual)

	var partial *service.PartialCleanupError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialCleanupError", err)
	}

	if partial.ObjectKey != resp.OTP+"/f.txt" {
		t.Errorf("partial.ObjectKey = %q, want %q", partial.ObjectKey, resp.OTP+"/f.txt")
	}

	// 元数据仍然删除，取件码随之失效
	var n int64
	if err := gdb.Model(&model.FileShare{}).Where("otp = ?", resp.OTP).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if n != 0 {
		t.Fatalf("metadata rows = %d, want 0", n)
	}

	if _, err := svc.RetrieveShare(ctx, resp.OTP); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("retrieve after delete = %v, want ErrNotFound", err)
	}

	// 孤儿对象留在存储中，由失败事件驱动的后续处理回收
	if !blob.has(resp.OTP + "/f.txt") {
		t.Error("orphan blob should remain after failed removal")
	}
}

// TestCreateFileShareMetadataFailureRollsBackBlob 元数据写入失败时回滚已写对象.
func TestCreateFileShareMetadataFailureRollsBackBlob(t *testing.T) {
	blob := newFakeBlob()
	svc, gdb := newTestService(t, blob, testConfig())
	ctx := context.Background()

	// 删除表以强制 Create 失败
	if err := gdb.Migrator().DropTable(&model.FileShare{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	content := []byte("data")

	_, err := svc.CreateFileShare(ctx, "g.txt", "text/plain", int64(len(content)), bytes.NewReader(content))

	var metaErr *service.MetadataError
	if !errors.As(err, &metaErr) {
		t.Fatalf("err = %v, want MetadataError", err)
	}

	blob.mu.Lock()
	remaining := len(blob.objects)
	blob.mu.Unlock()

	if remaining != 0 {
		t.Errorf("blob store has %d orphan objects, want 0", remaining)
	}
}

// TestFileShareTooLarge 超过大小上限返回 ErrTooLarge.
func TestFileShareTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFileSize = 8

	svc, _ := newTestService(t, newFakeBlob(), cfg)

	_, err := svc.CreateFileShare(context.Background(), "big.bin", "application/octet-stream", 9, bytes.NewReader(make([]byte, 9)))
	if !errors.Is(err, service.ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

// TestOTPUniqueAmongActive 并存的分享持有互不相同的取件码.
func TestOTPUniqueAmongActive(t *testing.T) {
	svc, _ := newTestService(t, newFakeBlob(), testConfig())
	ctx := context.Background()

	seen := make(map[string]bool)

	for i := range 20 {
		resp, err := svc.CreateTextShare(ctx, &types.CreateTextShareRequest{Content: fmt.Sprintf("n%d", i)})
		if err != nil {
			t.Fatalf("CreateTextShare: %v", err)
		}

		if seen[resp.OTP] {
			t.Fatalf("duplicate otp %q", resp.OTP)
		}

		seen[resp.OTP] = true
	}
}

// TestSweepExpiredLeavesActive 清扫只删除过期记录.
func TestSweepExpiredLeavesActive(t *testing.T) {
	blob := newFakeBlob()
	svc, gdb := newTestService(t, blob, testConfig())
	ctx := context.Background()

	active, err := svc.CreateTextShare(ctx, &types.CreateTextShareRequest{Content: "keep"})
	if err != nil {
		t.Fatalf("CreateTextShare: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute)
	stale := &model.TextShare{
		ID:        model.NewTextShareID("9999", past),
		OTP:       "9999",
		Content:   "stale",
		ExpiresAt: past,
		CreatedAt: past,
	}
	if err := gdb.Create(stale).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	deleted, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}

	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := svc.RetrieveShare(ctx, active.OTP); err != nil {
		t.Errorf("active share lost: %v", err)
	}
}
