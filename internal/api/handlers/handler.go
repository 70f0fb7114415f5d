package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/license"
	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/repository"
	"github.com/visutech/vims/internal/service"
	"github.com/visutech/vims/pkg/ws"
)

// VehicleStore 车辆存取能力，由 repository.VehicleRepository 实现
type VehicleStore interface {
	Create(ctx context.Context, v *models.Vehicle) error
	GetByID(ctx context.Context, id int64) (*models.Vehicle, error)
	GetByPlate(ctx context.Context, plate string) (*models.Vehicle, error)
	Search(ctx context.Context, search string) ([]*models.Vehicle, error)
	UpdateCustomer(ctx context.Context, v *models.Vehicle) error
	Count(ctx context.Context) (int64, error)
}

// SettingStore 配置存取能力，由 repository.SettingRepository 实现
type SettingStore interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	Upsert(ctx context.Context, key, value string) error
	List(ctx context.Context) ([]*models.Setting, error)
}

// Handler HTTP 处理器
type Handler struct {
	logger            *zap.Logger
	vehicleRepo       VehicleStore
	inspectionRepo    *repository.InspectionRepository
	settingRepo       SettingStore
	inspectionService *service.InspectionService
	reminderService   *service.ReminderService
	gate              *license.Gate
	wsHub             *ws.Hub
	upgrader          websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	vehicleRepo VehicleStore,
	inspectionRepo *repository.InspectionRepository,
	settingRepo SettingStore,
	inspectionService *service.InspectionService,
	reminderService *service.ReminderService,
	gate *license.Gate,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:            logger,
		vehicleRepo:       vehicleRepo,
		inspectionRepo:    inspectionRepo,
		settingRepo:       settingRepo,
		inspectionService: inspectionService,
		reminderService:   reminderService,
		gate:              gate,
		wsHub:             wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 管理面板和 API 同源部署，放开来源检查
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		// 车辆
		api.GET("/vehicles", h.ListVehicles)
		api.POST("/vehicles", h.licenseRequired(), h.CreateVehicle)
		api.GET("/vehicles/:id", h.GetVehicle)
		api.PUT("/vehicles/:id", h.licenseRequired(), h.UpdateVehicleCustomer)
		api.GET("/vehicles/:id/inspections", h.ListVehicleInspections)
		api.POST("/vehicles/:id/remind", h.licenseRequired(), h.SendManualReminder)

		// 检测
		api.POST("/inspections", h.licenseRequired(), h.CreateInspection)

		// 提醒
		api.GET("/notifications", h.GetNotifications)
		api.POST("/notifications/send-all", h.SendAllPendingReminders)

		// 配置（许可修复入口，永远不挂许可门禁）
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)

		// 报表
		api.GET("/reports", h.GetInspectionReport)
		api.GET("/reports/lapsed", h.GetLapsedVehicles)
		api.GET("/admin/stats", h.GetDashboardStats)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// licenseRequired 许可门禁中间件
// 拒绝必须是可区分的 403（带人类可读原因），让前端能渲染
// 续费提示而不是崩溃页。
func (h *Handler) licenseRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.gate.Check(c.Request.Context())
		if err == nil {
			c.Next()
			return
		}

		if errors.Is(err, license.ErrTrialExpired) || errors.Is(err, license.ErrLicenseInactive) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}

		h.logger.Error("License check failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify license"})
	}
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
