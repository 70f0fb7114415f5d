package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/notify"
	"github.com/visutech/vims/internal/repository"
)

// 校验错误
var (
	ErrMissingFields = errors.New("please provide all required inspection fields: vehicle, result, and next due date")
	ErrInvalidResult = errors.New("result must be pass or fail")
)

// InspectionWriter 检测记录写入能力
type InspectionWriter interface {
	Create(ctx context.Context, insp *models.Inspection) error
}

// MirrorWriter 提醒镜像写入能力
type MirrorWriter interface {
	Create(ctx context.Context, n *models.Notification) error
	ExistsForInspection(ctx context.Context, inspectionID int64) (bool, error)
}

// CreateInspectionInput 创建检测的入参
type CreateInspectionInput struct {
	VehicleID     int64
	Result        string
	Notes         string
	InspectorName string
	NextDueDate   time.Time
}

// InspectionService 检测记录业务
// 创建检测后内联发送欢迎消息和结果消息（一次性，失败只记日志），
// 新到期日已落在时间窗内时顺手写一条待发送镜像。
type InspectionService struct {
	logger      *zap.Logger
	vehicles    VehicleStore
	inspections InspectionWriter
	mirror      MirrorWriter
	channels    []notify.Channel
	now         func() time.Time
}

// NewInspectionService 创建检测业务
func NewInspectionService(
	logger *zap.Logger,
	vehicles VehicleStore,
	inspections InspectionWriter,
	mirror MirrorWriter,
	channels []notify.Channel,
) *InspectionService {
	return &InspectionService{
		logger:      logger,
		vehicles:    vehicles,
		inspections: inspections,
		mirror:      mirror,
		channels:    channels,
		now:         time.Now,
	}
}

// Create 创建检测记录
func (s *InspectionService) Create(ctx context.Context, in CreateInspectionInput) (*models.Inspection, error) {
	if in.VehicleID == 0 || in.Result == "" || in.NextDueDate.IsZero() {
		return nil, ErrMissingFields
	}
	if in.Result != models.ResultPass && in.Result != models.ResultFail {
		return nil, ErrInvalidResult
	}

	vehicle, err := s.vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}

	now := s.now()
	dueDate := in.NextDueDate
	insp := &models.Inspection{
		VehicleID:     vehicle.ID,
		Date:          now,
		InspectorName: in.InspectorName,
		Result:        in.Result,
		Notes:         in.Notes,
		NextDueDate:   &dueDate,
	}
	if err := s.inspections.Create(ctx, insp); err != nil {
		return nil, err
	}

	s.sendInlineMessages(ctx, vehicle, insp)
	s.mirrorIfDueSoon(ctx, vehicle, insp)

	return insp, nil
}

// sendInlineMessages 欢迎消息 + 结果消息，三个渠道各发一次
// 发送失败对检测创建不可见，客户只是收不到消息。
func (s *InspectionService) sendInlineMessages(ctx context.Context, v *models.Vehicle, insp *models.Inspection) {
	for _, ch := range s.channels {
		if !ch.Applicable(v) {
			continue
		}
		if !ch.SendWelcome(ctx, v) {
			s.logger.Warn("Welcome message failed",
				zap.String("channel", ch.Name()),
				zap.String("license_plate", v.LicensePlate))
		}
		if !ch.SendResult(ctx, v, insp) {
			s.logger.Warn("Result message failed",
				zap.String("channel", ch.Name()),
				zap.String("license_plate", v.LicensePlate))
		}
	}
}

// mirrorIfDueSoon 新到期日已在时间窗内时写入待发送镜像
// 镜像缺失不影响投影的正确性，写失败只记日志。
func (s *InspectionService) mirrorIfDueSoon(ctx context.Context, v *models.Vehicle, insp *models.Inspection) {
	if insp.NextDueDate == nil || !IsDueSoon(*insp.NextDueDate, s.now()) {
		return
	}

	exists, err := s.mirror.ExistsForInspection(ctx, insp.ID)
	if err != nil {
		s.logger.Warn("Failed to check notification mirror", zap.Error(err))
		return
	}
	if exists {
		return
	}

	n := &models.Notification{
		VehicleID:    v.ID,
		InspectionID: insp.ID,
		DueDate:      *insp.NextDueDate,
		Message: fmt.Sprintf("Inspection for %s is due on %s.",
			v.LicensePlate, insp.NextDueDate.Format("2006-01-02")),
		Status: models.NotificationPending,
	}
	if err := s.mirror.Create(ctx, n); err != nil {
		s.logger.Warn("Failed to create notification mirror", zap.Error(err))
	}
}
