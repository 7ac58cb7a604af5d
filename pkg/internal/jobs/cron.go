// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"

	"github.com/yeisme/snapvault/pkg/configs"
	ctxPkg "github.com/yeisme/snapvault/pkg/context"
	"github.com/yeisme/snapvault/pkg/internal/service"
	"github.com/yeisme/snapvault/pkg/internal/storage"
	"github.com/yeisme/snapvault/pkg/log"
	"github.com/yeisme/snapvault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每分钟执行一次过期清扫，兜底删除进程内定时器遗漏的记录
//     （重启丢失的定时器、对象删除失败后保留的元数据都靠它补删）
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	cfg := configs.GetConfig().Share
	if !cfg.SweepEnabled {
		log.Logger().Info().Msg("expiry sweep disabled")
		return nil
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	return sched.AddCron(JobShareSweep, cfg.SweepCron, func(ctx context.Context) {
		runShareSweep(ctx)
	}, baseCtx)
}

// runShareSweep 执行一轮过期清扫.
func runShareSweep(ctx context.Context) {
	l := log.Logger().With().Str("job", JobShareSweep).Logger()

	svc := service.NewShareService(ctx)

	n, err := svc.SweepExpired(ctx)
	if err != nil {
		l.Error().Err(err).Msg("sweep failed")
		return
	}

	if n > 0 {
		l.Info().Int("deleted", n).Msg("swept expired shares")
	}
}
