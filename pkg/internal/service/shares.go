// Package service 实现分享记录的业务逻辑：创建、取件、下载授权与清理.
package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"

	"github.com/yeisme/snapvault/pkg/cache"
	"github.com/yeisme/snapvault/pkg/configs"
	ctxPkg "github.com/yeisme/snapvault/pkg/context"
	"github.com/yeisme/snapvault/pkg/internal/model"
	"github.com/yeisme/snapvault/pkg/internal/otp"
	"github.com/yeisme/snapvault/pkg/internal/storage/db"
	"github.com/yeisme/snapvault/pkg/internal/storage/mq"
	"github.com/yeisme/snapvault/pkg/internal/types"
	slog "github.com/yeisme/snapvault/pkg/log"
	"github.com/yeisme/snapvault/pkg/metrics"
	"github.com/yeisme/snapvault/pkg/queue"
	"github.com/yeisme/snapvault/pkg/rule"
)

// 全局单例的 ULID 熵源，使用单调递增策略，确保同一毫秒内生成的 ULID 具有排序稳定性。
var (
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
	ulidMu      sync.Mutex
)

// defaultCleaner 进程级定时器管理，跨请求共享.
var defaultCleaner = NewCleaner()

// DefaultCleaner 返回进程级 Cleaner，供应用关停时调用 Stop.
func DefaultCleaner() *Cleaner { return defaultCleaner }

// maxURLLifetime 预签名地址的上限时长，实际取 min(剩余有效期, 该值).
const maxURLLifetime = 5 * time.Minute

// ShareService 负责分享相关业务.
type ShareService struct {
	dbc     *db.Client
	blob    BlobStore
	cachec  *cache.Cache
	mqc     *mq.Client
	cfg     configs.ShareConfig
	alloc   *otp.Allocator
	cleaner *Cleaner
}

// NewShareService 创建并返回一个新的 ShareService 实例.
func NewShareService(c context.Context) *ShareService {
	svc := &ShareService{
		dbc:     ctxPkg.GetDBClient(c),
		mqc:     ctxPkg.GetMQClient(c),
		cfg:     configs.GetConfig().Share,
		cleaner: defaultCleaner,
	}

	if s3c := ctxPkg.GetS3Client(c); s3c != nil {
		svc.blob = NewMinioBlobStore(s3c, configs.GetConfig().S3.Bucket)
	} else {
		slog.Logger().Warn().Msg("S3 client not initialized, file share features will be limited")
	}

	if kvc := ctxPkg.GetKVClient(c); kvc != nil {
		svc.cachec = cache.NewCache(kvc.KVStore)
	}

	if svc.dbc == nil {
		slog.Logger().Warn().Msg("DB client not initialized, ShareService features limited")
	}

	svc.alloc = otp.NewAllocator(svc.otpInUse, svc.cfg.OTPMaxAttempts)

	return svc
}

// NewShareServiceWith 以显式依赖构建服务，测试与清扫任务使用.
func NewShareServiceWith(dbc *db.Client, blob BlobStore, cachec *cache.Cache, mqc *mq.Client, cfg configs.ShareConfig, cleaner *Cleaner) *ShareService {
	if cleaner == nil {
		cleaner = NewCleaner()
	}

	svc := &ShareService{
		dbc:     dbc,
		blob:    blob,
		cachec:  cachec,
		mqc:     mqc,
		cfg:     cfg,
		cleaner: cleaner,
	}
	svc.alloc = otp.NewAllocator(svc.otpInUse, cfg.OTPMaxAttempts)

	return svc
}

// newRecordID 生成 ULID 主键.
func newRecordID(t time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// otpInUse 探测取件码是否被占用. 以 DB 为真源，两张表都查，
// 过期但尚未清理的记录同样视为占用，避免新旧记录串号.
func (s *ShareService) otpInUse(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := s.db().WithContext(ctx).Model(&model.FileShare{}).Where("otp = ?", code).Count(&n).Error; err != nil {
		return false, err
	}

	if n > 0 {
		return true, nil
	}

	if err := s.db().WithContext(ctx).Model(&model.TextShare{}).Where("otp = ?", code).Count(&n).Error; err != nil {
		return false, err
	}

	return n > 0, nil
}

func (s *ShareService) db() *gorm.DB {
	return s.dbc.GetDB()
}

// CreateFileShare 创建文件分享：先写对象，再落元数据，元数据失败回滚对象.
func (s *ShareService) CreateFileShare(ctx context.Context, originalName, contentType string, size int64, r io.Reader) (*types.CreateShareResponse, error) {
	if s.dbc == nil || s.blob == nil {
		return nil, errors.New("storage not initialized")
	}

	if originalName == "" {
		return nil, fmt.Errorf("filename is required")
	}

	if size <= 0 || size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, size, s.cfg.MaxFileSize)
	}

	code, attempts, err := s.alloc.Allocate(ctx)
	metrics.OTPAllocationRetries.Observe(float64(attempts))

	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	objectKey := code + "/" + originalName

	// 先写对象
	if err := s.blob.Put(ctx, objectKey, r, size, contentType); err != nil {
		return nil, err
	}

	rec := &model.FileShare{
		ID:           newRecordID(now),
		OTP:          code,
		ObjectKey:    objectKey,
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         size,
		ExpiresAt:    now.Add(s.cfg.TTL),
		CreatedAt:    now,
	}

	if err := s.db().WithContext(ctx).Create(rec).Error; err != nil {
		// 元数据失败，回滚已写入的对象，避免孤儿 blob
		if rmErr := s.blob.Remove(ctx, objectKey); rmErr != nil {
			slog.Logger().Error().Err(rmErr).Str("object_key", objectKey).Msg("rollback blob after metadata failure")
		}

		return nil, &MetadataError{Op: "create", Err: err}
	}

	s.cacheFileShare(ctx, rec)
	s.armTTL(code, s.cfg.TTL)
	s.publishCreated(rec.OTP, queue.ShareKindFile, objectKey, size, rec.ExpiresAt)
	metrics.ShareCreated.WithLabelValues("file").Inc()

	return &types.CreateShareResponse{
		OTP:       rec.OTP,
		Kind:      string(queue.ShareKindFile),
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// CreateTextShare 创建文本分享，内容直接落库.
func (s *ShareService) CreateTextShare(ctx context.Context, req *types.CreateTextShareRequest) (*types.CreateShareResponse, error) {
	if s.dbc == nil {
		return nil, errors.New("storage not initialized")
	}

	if req == nil || req.Content == "" {
		return nil, fmt.Errorf("content is required")
	}

	if len(req.Content) > s.cfg.MaxTextSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(req.Content), s.cfg.MaxTextSize)
	}

	code, attempts, err := s.alloc.Allocate(ctx)
	metrics.OTPAllocationRetries.Observe(float64(attempts))

	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &model.TextShare{
		ID:        model.NewTextShareID(code, now),
		OTP:       code,
		Content:   req.Content,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}

	if err := s.db().WithContext(ctx).Create(rec).Error; err != nil {
		return nil, &MetadataError{Op: "create", Err: err}
	}

	s.armTTL(code, s.cfg.TTL)
	s.publishCreated(rec.OTP, queue.ShareKindText, "", int64(len(rec.Content)), rec.ExpiresAt)
	metrics.ShareCreated.WithLabelValues("text").Inc()

	return &types.CreateShareResponse{
		OTP:       rec.OTP,
		Kind:      string(queue.ShareKindText),
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// RetrieveShare 以取件码兑换内容.
// 文件分享返回元数据视图（下载地址另行通过 AuthorizeDownload 获取）；
// 文本分享返回内容本体并武装宽限期删除.
func (s *ShareService) RetrieveShare(ctx context.Context, code string) (*types.RetrieveShareResponse, error) {
	// 格式非法与记录缺失是不同的错误，无论记录是否存在都先校验格式
	if !rule.ValidOTP(code) {
		return nil, ErrInvalidOTP
	}

	// 缓存按剩余有效期写入，命中即未过期；记录删除时同步清除缓存
	if s.cachec != nil {
		if cached, err := cache.Get[types.RetrieveShareResponse](ctx, s.cachec, cacheKey(code)); err == nil {
			metrics.ShareRetrieved.WithLabelValues("found").Inc()
			s.publishRetrieved(code, queue.ShareKind(cached.Kind))

			return &cached, nil
		}
	}

	now := time.Now()

	var file model.FileShare

	err := s.db().WithContext(ctx).Where("otp = ?", code).First(&file).Error
	switch {
	case err == nil:
		if file.Expired(now) {
			s.expireAsync(code)
			metrics.ShareRetrieved.WithLabelValues("expired").Inc()

			return nil, ErrExpired
		}

		metrics.ShareRetrieved.WithLabelValues("found").Inc()
		s.publishRetrieved(code, queue.ShareKindFile)
		s.cacheFileShare(ctx, &file)

		return &types.RetrieveShareResponse{
			OTP:       file.OTP,
			Kind:      string(queue.ShareKindFile),
			ExpiresAt: file.ExpiresAt,
			File: &types.FileShareView{
				OriginalName: file.OriginalName,
				ContentType:  file.ContentType,
				Size:         file.Size,
			},
		}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, &MetadataError{Op: "query", Err: err}
	}

	var text model.TextShare

	err = s.db().WithContext(ctx).Where("otp = ?", code).First(&text).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.ShareRetrieved.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	case err != nil:
		return nil, &MetadataError{Op: "query", Err: err}
	}

	if text.Expired(now) {
		s.expireAsync(code)
		metrics.ShareRetrieved.WithLabelValues("expired").Inc()

		return nil, ErrExpired
	}

	// 标记已取走并武装宽限期删除；重复取件在宽限期内仍然可行
	if !text.Consumed {
		if err := s.db().WithContext(ctx).Model(&model.TextShare{}).
			Where("id = ?", text.ID).Update("consumed", true).Error; err != nil {
			slog.Logger().Warn().Err(err).Str("otp", code).Msg("mark text share consumed")
		}
	}

	s.armGrace(code)
	metrics.ShareRetrieved.WithLabelValues("found").Inc()
	s.publishRetrieved(code, queue.ShareKindText)

	return &types.RetrieveShareResponse{
		OTP:       text.OTP,
		Kind:      string(queue.ShareKindText),
		ExpiresAt: text.ExpiresAt,
		Text:      text.Content,
	}, nil
}

// AuthorizeDownload 为文件分享签发限时下载地址，并武装宽限期删除.
// path 必须位于取件码自己的前缀 {code}/ 之下且与记录的对象键一致，
// 防止持有任一取件码就能为他人的对象换取签名地址.
// 地址有效期取 min(剩余有效期, 5 分钟)，记录先于地址失效时地址同样不可用.
func (s *ShareService) AuthorizeDownload(ctx context.Context, path, code string) (*types.DownloadShareResponse, error) {
	if !rule.ValidOTP(code) {
		return nil, ErrInvalidOTP
	}

	if !strings.HasPrefix(path, code+"/") {
		return nil, ErrInvalidOTP
	}

	if s.blob == nil {
		return nil, errors.New("blob store not initialized")
	}

	now := time.Now()

	var file model.FileShare

	err := s.db().WithContext(ctx).Where("otp = ?", code).First(&file).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, &MetadataError{Op: "query", Err: err}
	}

	if file.Expired(now) {
		s.expireAsync(code)
		return nil, ErrExpired
	}

	if file.ObjectKey != path {
		return nil, ErrNotFound
	}

	lifetime := min(file.RemainingTTL(now), maxURLLifetime)

	u, err := s.blob.PresignedGet(ctx, file.ObjectKey, file.OriginalName, lifetime)
	if err != nil {
		return nil, err
	}

	s.armGrace(code)

	return &types.DownloadShareResponse{
		URL:          u.String(),
		ExpiresIn:    int(lifetime.Seconds()),
		OriginalName: file.OriginalName,
	}, nil
}

// DeleteShare 幂等删除取件码对应的记录与对象. 文件分享先删对象再删元数据，
// 对象删除失败不阻断元数据删除，整体以 PartialCleanupError 上报.
func (s *ShareService) DeleteShare(ctx context.Context, code string, trigger queue.DeleteTrigger) error {
	if !rule.ValidOTP(code) {
		return ErrInvalidOTP
	}

	var file model.FileShare

	err := s.db().WithContext(ctx).Where("otp = ?", code).First(&file).Error
	switch {
	case err == nil:
		return s.deleteFileShare(ctx, &file, trigger)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return &MetadataError{Op: "query", Err: err}
	}

	var text model.TextShare

	err = s.db().WithContext(ctx).Where("otp = ?", code).First(&text).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 已被并发删除，幂等返回成功
		s.cleaner.Disarm(code)
		return nil
	case err != nil:
		return &MetadataError{Op: "query", Err: err}
	}

	if err := s.db().WithContext(ctx).Delete(&model.TextShare{}, "id = ?", text.ID).Error; err != nil {
		return &MetadataError{Op: "delete", Err: err}
	}

	s.cleaner.Disarm(code)
	s.publishDeleted(code, queue.ShareKindText, trigger)
	metrics.ShareDeleted.WithLabelValues(string(trigger)).Inc()

	return nil
}

func (s *ShareService) deleteFileShare(ctx context.Context, file *model.FileShare, trigger queue.DeleteTrigger) error {
	// 先删对象再删元数据；对象删除失败不中止，元数据照常删除，
	// 整体以 PartialCleanupError 上报，孤儿对象交由运维按事件处理
	var blobErr error

	if s.blob != nil {
		if err := s.blob.Remove(ctx, file.ObjectKey); err != nil {
			blobErr = err

			s.publishBlobDeleteFailed(file.OTP, file.ObjectKey, err)
			slog.Logger().Error().Err(err).Str("otp", file.OTP).Str("object_key", file.ObjectKey).Msg("blob delete failed, removing metadata anyway")
		}
	}

	if err := s.db().WithContext(ctx).Delete(&model.FileShare{}, "id = ?", file.ID).Error; err != nil {
		if blobErr != nil {
			return &PartialCleanupError{OTP: file.OTP, ObjectKey: file.ObjectKey, Err: errors.Join(blobErr, err)}
		}

		return &MetadataError{Op: "delete", Err: err}
	}

	if s.cachec != nil {
		_ = s.cachec.Delete(ctx, cacheKey(file.OTP))
	}

	s.cleaner.Disarm(file.OTP)
	s.publishDeleted(file.OTP, queue.ShareKindFile, trigger)
	metrics.ShareDeleted.WithLabelValues(string(trigger)).Inc()

	if blobErr != nil {
		return &PartialCleanupError{OTP: file.OTP, ObjectKey: file.ObjectKey, Err: blobErr}
	}

	return nil
}

// armTTL 武装到期删除定时器.
func (s *ShareService) armTTL(code string, ttl time.Duration) {
	s.cleaner.Arm(code, ttl, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.DeleteShare(ctx, code, queue.DeleteTriggerTTL); err != nil {
			slog.Logger().Warn().Err(err).Str("otp", code).Msg("ttl delete failed, sweep will retry")
		}
	})
}

// armGrace 取件后武装宽限期删除定时器，替换原 TTL 定时器.
func (s *ShareService) armGrace(code string) {
	s.cleaner.Arm(code, s.cfg.Grace, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.DeleteShare(ctx, code, queue.DeleteTriggerGrace); err != nil {
			slog.Logger().Warn().Err(err).Str("otp", code).Msg("grace delete failed, sweep will retry")
		}
	})
}

// expireAsync 发现过期记录时就地触发删除，不阻塞取件请求.
func (s *ShareService) expireAsync(code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.DeleteShare(ctx, code, queue.DeleteTriggerTTL); err != nil {
			slog.Logger().Warn().Err(err).Str("otp", code).Msg("expired delete failed, sweep will retry")
		}
	}()
}

func cacheKey(code string) string { return "share:" + code }

// cacheFileShare 以剩余有效期缓存文件分享的取件视图，供 RetrieveShare 读穿透.
func (s *ShareService) cacheFileShare(ctx context.Context, rec *model.FileShare) {
	if s.cachec == nil {
		return
	}

	view := types.RetrieveShareResponse{
		OTP:       rec.OTP,
		Kind:      string(queue.ShareKindFile),
		ExpiresAt: rec.ExpiresAt,
		File: &types.FileShareView{
			OriginalName: rec.OriginalName,
			ContentType:  rec.ContentType,
			Size:         rec.Size,
		},
	}
	if err := cache.Set(ctx, s.cachec, cacheKey(rec.OTP), view, rec.RemainingTTL(time.Now())); err != nil {
		slog.Logger().Debug().Err(err).Str("otp", rec.OTP).Msg("cache file share")
	}
}

func (s *ShareService) publishCreated(code string, kind queue.ShareKind, objectKey string, size int64, expiresAt time.Time) {
	if s.mqc == nil {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicShareCreated, queue.ShareCreatedPayload{
		OTP:       code,
		Kind:      kind,
		ObjectKey: objectKey,
		Size:      size,
		ExpiresAt: expiresAt,
	}, queue.WithProducer("snapvault"))
	if err == nil {
		err = s.mqc.Publish(context.Background(), queue.TopicShareCreated, msg)
	}

	if err != nil {
		slog.Logger().Debug().Err(err).Str("otp", code).Msg("publish share created")
	}
}

func (s *ShareService) publishRetrieved(code string, kind queue.ShareKind) {
	if s.mqc == nil {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicShareRetrieved, queue.ShareRetrievedPayload{
		OTP:  code,
		Kind: kind,
	}, queue.WithProducer("snapvault"))
	if err == nil {
		err = s.mqc.Publish(context.Background(), queue.TopicShareRetrieved, msg)
	}

	if err != nil {
		slog.Logger().Debug().Err(err).Str("otp", code).Msg("publish share retrieved")
	}
}

func (s *ShareService) publishDeleted(code string, kind queue.ShareKind, trigger queue.DeleteTrigger) {
	if s.mqc == nil {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicShareDeleted, queue.ShareDeletedPayload{
		OTP:     code,
		Kind:    kind,
		Trigger: trigger,
	}, queue.WithProducer("snapvault"))
	if err == nil {
		err = s.mqc.Publish(context.Background(), queue.TopicShareDeleted, msg)
	}

	if err != nil {
		slog.Logger().Debug().Err(err).Str("otp", code).Msg("publish share deleted")
	}
}

func (s *ShareService) publishBlobDeleteFailed(code, objectKey string, cause error) {
	if s.mqc == nil {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicBlobDeleteFailed, queue.BlobDeleteFailedPayload{
		OTP:       code,
		ObjectKey: objectKey,
		Error:     cause.Error(),
	}, queue.WithProducer("snapvault"))
	if err == nil {
		err = s.mqc.Publish(context.Background(), queue.TopicBlobDeleteFailed, msg)
	}

	if err != nil {
		slog.Logger().Debug().Err(err).Str("otp", code).Msg("publish blob delete failed")
	}
}
