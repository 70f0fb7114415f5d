package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/service"
)

// Scheduler 每日定时提醒任务
// 默认每天 09:00（客户所在时区）跑一次批量发送，和操作员手动触发的
// 批量发送可能并行重复执行，这是容忍的：没有锁。
type Scheduler struct {
	logger    *zap.Logger
	cron      *cron.Cron
	spec      string
	reminders *service.ReminderService
}

// New 创建定时任务
func New(spec, timezone string, logger *zap.Logger, reminders *service.ReminderService) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}

	return &Scheduler{
		logger:    logger,
		cron:      cron.New(cron.WithLocation(loc)),
		spec:      spec,
		reminders: reminders,
	}, nil
}

// Start 启动定时任务
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Automatic reminder job scheduled", zap.String("spec", s.spec))
	return nil
}

// Stop 停止定时任务，等待正在执行的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// run 执行一次批量发送
func (s *Scheduler) run() {
	s.logger.Info("Running daily reminder job")

	result, err := s.reminders.SendAllPending(context.Background())
	if err != nil {
		s.logger.Error("Daily reminder job failed", zap.Error(err))
		return
	}

	s.logger.Info("Daily reminder job finished",
		zap.Int("total", result.Total),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount),
		zap.Int("skipped", result.SkippedCount))
}
