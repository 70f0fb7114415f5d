package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/notify"
	"github.com/visutech/vims/internal/repository"
	"github.com/visutech/vims/pkg/ws"
)

// 调用方可识别的错误
var (
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrNoInspectionHistory = errors.New("no valid inspection history found to send a reminder")
	ErrAllChannelsFailed   = errors.New("failed to send reminders on all channels")
)

// VehicleStore 提醒服务需要的车辆读取能力
type VehicleStore interface {
	GetByID(ctx context.Context, id int64) (*models.Vehicle, error)
}

// InspectionStore 提醒服务需要的检测读取能力
type InspectionStore interface {
	GetLatestByVehicleID(ctx context.Context, vehicleID int64) (*models.Inspection, error)
	ListLatestPerVehicle(ctx context.Context) ([]*models.PendingReminder, error)
}

// NotificationMirror 提醒镜像写入能力（仅审计用）
type NotificationMirror interface {
	MarkSent(ctx context.Context, inspectionID int64) error
}

// SentLog 批量发送去重日志
type SentLog interface {
	Claim(ctx context.Context, vehicleID int64, dueDate time.Time) bool
}

// DispatchResult 单辆车的发送结果
type DispatchResult struct {
	VehicleID    int64           `json:"vehicle_id"`
	LicensePlate string          `json:"license_plate"`
	DueDate      time.Time       `json:"due_date"`
	Channels     map[string]bool `json:"channels"`
	Success      bool            `json:"success"`
}

// BatchResult 批量发送统计
type BatchResult struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
	SkippedCount int `json:"skippedCount"`
	Total        int `json:"total"`
}

// ReminderService 提醒投影与分发
// 待发送集合每次都从检测历史实时推导（每辆车最新一次检测 + 时间窗
// 过滤），不依赖任何排队表；镜像表只在发送后打标记。
type ReminderService struct {
	logger      *zap.Logger
	vehicles    VehicleStore
	inspections InspectionStore
	mirror      NotificationMirror
	channels    []notify.Channel
	sentLog     SentLog // 可选，nil 表示不去重
	wsHub       *ws.Hub // 可选，nil 表示不广播
	now         func() time.Time
}

// NewReminderService 创建提醒服务
func NewReminderService(
	logger *zap.Logger,
	vehicles VehicleStore,
	inspections InspectionStore,
	mirror NotificationMirror,
	channels []notify.Channel,
	sentLog SentLog,
	wsHub *ws.Hub,
) *ReminderService {
	return &ReminderService{
		logger:      logger,
		vehicles:    vehicles,
		inspections: inspections,
		mirror:      mirror,
		channels:    channels,
		sentLog:     sentLog,
		wsHub:       wsHub,
		now:         time.Now,
	}
}

// PendingReminders 当前待提醒集合
// 纯读操作：没有写入发生时连续两次调用返回同一集合，
// 这一层不做任何"已发送"抑制。
func (s *ReminderService) PendingReminders(ctx context.Context) ([]*models.PendingReminder, error) {
	latest, err := s.inspections.ListLatestPerVehicle(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pending := make([]*models.PendingReminder, 0, len(latest))
	for _, item := range latest {
		if IsDueSoon(item.DueDate, now) {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// PendingReminder 单辆车的待提醒条目
func (s *ReminderService) PendingReminder(ctx context.Context, vehicleID int64) (*models.PendingReminder, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}

	latest, err := s.inspections.GetLatestByVehicleID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoInspectionHistory
		}
		return nil, err
	}
	if latest.NextDueDate == nil {
		return nil, ErrNoInspectionHistory
	}

	return &models.PendingReminder{
		InspectionID: latest.ID,
		Vehicle:      vehicle,
		DueDate:      *latest.NextDueDate,
	}, nil
}

// SendReminder 手动给一辆车发送到期提醒
// 三个渠道各尝试一次，任一成功即算成功；全部失败返回
// ErrAllChannelsFailed。没有有效检测历史是校验错误，不是崩溃。
func (s *ReminderService) SendReminder(ctx context.Context, vehicleID int64) (*DispatchResult, error) {
	item, err := s.PendingReminder(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	result := s.dispatch(ctx, item)
	if !result.Success {
		return result, ErrAllChannelsFailed
	}
	return result, nil
}

// SendAllPending 批量发送全部待提醒
// 顺序处理，单辆车失败不影响其余；返回计数而不是错误。
// 空集合直接返回零值，不触碰任何渠道。
func (s *ReminderService) SendAllPending(ctx context.Context) (*BatchResult, error) {
	pending, err := s.PendingReminders(ctx)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Total: len(pending)}
	for _, item := range pending {
		if s.sentLog != nil && !s.sentLog.Claim(ctx, item.Vehicle.ID, item.DueDate) {
			batch.SkippedCount++
			s.logger.Info("Reminder already sent today, skipping",
				zap.String("license_plate", item.Vehicle.LicensePlate))
			continue
		}

		result := s.dispatch(ctx, item)
		if result.Success {
			batch.SuccessCount++
		} else {
			batch.FailureCount++
		}
	}

	s.logger.Info("Batch reminder dispatch finished",
		zap.Int("total", batch.Total),
		zap.Int("success", batch.SuccessCount),
		zap.Int("failure", batch.FailureCount),
		zap.Int("skipped", batch.SkippedCount))

	if s.wsHub != nil {
		s.wsHub.BroadcastMessage(ws.MsgTypeBatchDone, batch)
	}
	return batch, nil
}

// dispatch 对一辆车做三渠道扇出，结果取逻辑或
func (s *ReminderService) dispatch(ctx context.Context, item *models.PendingReminder) *DispatchResult {
	v := item.Vehicle
	result := &DispatchResult{
		VehicleID:    v.ID,
		LicensePlate: v.LicensePlate,
		DueDate:      item.DueDate,
		Channels:     make(map[string]bool, len(s.channels)),
	}

	for _, ch := range s.channels {
		if !ch.Applicable(v) {
			result.Channels[ch.Name()] = false
			continue
		}
		ok := ch.SendDueReminder(ctx, v, item.DueDate)
		result.Channels[ch.Name()] = ok
		if ok {
			result.Success = true
		}
	}

	s.logger.Info("Reminder dispatched",
		zap.String("license_plate", v.LicensePlate),
		zap.Bool("success", result.Success),
		zap.Any("channels", result.Channels))

	if result.Success && s.mirror != nil {
		// 镜像只是审计记录，打标记失败不影响结果
		if err := s.mirror.MarkSent(ctx, item.InspectionID); err != nil {
			s.logger.Warn("Failed to mark notification mirror as sent", zap.Error(err))
		}
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastMessage(ws.MsgTypeDispatchResult, result)
	}
	return result
}
