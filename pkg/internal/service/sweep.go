package service

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yeisme/snapvault/pkg/internal/model"
	slog "github.com/yeisme/snapvault/pkg/log"
	"github.com/yeisme/snapvault/pkg/queue"
)

// sweepConcurrency 清扫时并发删除的上限.
const sweepConcurrency = 8

// SweepExpired 删除所有已过期的记录，返回成功删除的数量.
// 作为进程内定时器的兜底：定时器在重启后丢失，残留的过期记录靠它清掉.
func (s *ShareService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	var files []model.FileShare
	if err := s.db().WithContext(ctx).Where("expires_at <= ?", now).Find(&files).Error; err != nil {
		return 0, &MetadataError{Op: "query", Err: err}
	}

	var texts []model.TextShare
	if err := s.db().WithContext(ctx).Where("expires_at <= ?", now).Find(&texts).Error; err != nil {
		return 0, &MetadataError{Op: "query", Err: err}
	}

	if len(files) == 0 && len(texts) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	var deleted atomic.Int64

	codes := make([]string, 0, len(files)+len(texts))
	for i := range files {
		codes = append(codes, files[i].OTP)
	}

	for i := range texts {
		codes = append(codes, texts[i].OTP)
	}

	for _, code := range codes {
		g.Go(func() error {
			if err := s.DeleteShare(gctx, code, queue.DeleteTriggerSweep); err != nil {
				// 留给下一轮清扫，不中断其余删除
				slog.Logger().Warn().Err(err).Str("otp", code).Msg("sweep delete failed")
				return nil
			}

			deleted.Add(1)

			return nil
		})
	}

	err := g.Wait()

	return int(deleted.Load()), err
}
