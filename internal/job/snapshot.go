package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

// Snapshotter 写入达成率快照，由 AchievementService 实现
type Snapshotter interface {
	Snapshot(ctx context.Context, date schedule.Date) (int, error)
}

// runTimeout 单次快照的最长执行时间
const runTimeout = 4 * time.Minute

// SnapshotJob 每日达成率快照定时任务
type SnapshotJob struct {
	cron   *cron.Cron
	target Snapshotter
	zone   schedule.Zone
	now    func() time.Time
	logger *zap.Logger
}

// NewSnapshotJob 按 expr 注册任务，expr 为标准 5 段 cron 表达式或 @daily 等描述符，按 zone 解释
func NewSnapshotJob(expr string, zone schedule.Zone, target Snapshotter, logger *zap.Logger) (*SnapshotJob, error) {
	j := &SnapshotJob{
		target: target,
		zone:   zone,
		now:    time.Now,
		logger: logger,
	}
	j.cron = cron.New(
		cron.WithLocation(zone.Location()),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := j.cron.AddFunc(expr, j.runScheduled); err != nil {
		return nil, fmt.Errorf("无效的快照 cron 表达式 %q: %w", expr, err)
	}
	return j, nil
}

// Start 启动调度（非阻塞）
func (j *SnapshotJob) Start() {
	j.cron.Start()
	j.logger.Info("达成率快照任务已启动", zap.String("timezone", j.zone.String()))
}

// Stop 停止调度并等待正在执行的任务结束
func (j *SnapshotJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("等待快照任务结束超时")
	}
}

// RunOnce 为今天写入快照
func (j *SnapshotJob) RunOnce(ctx context.Context) (int, error) {
	today := j.zone.DateOf(j.now())
	n, err := j.target.Snapshot(ctx, today)
	if err != nil {
		return n, fmt.Errorf("写入 %s 快照失败: %w", today, err)
	}
	return n, nil
}

func (j *SnapshotJob) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	n, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("达成率快照失败", zap.Error(err), zap.Int("written", n))
		return
	}
	j.logger.Info("达成率快照完成",
		zap.Int("written", n),
		zap.Duration("elapsed", time.Since(start)),
	)
}
