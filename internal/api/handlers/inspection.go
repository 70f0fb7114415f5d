package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/service"
)

// createInspectionRequest 创建检测请求体
// next_due_date 由检测员显式给出，格式 YYYY-MM-DD 或 RFC3339。
type createInspectionRequest struct {
	VehicleID     int64  `json:"vehicle_id" binding:"required"`
	Result        string `json:"result" binding:"required"`
	Notes         string `json:"notes"`
	InspectorName string `json:"inspector_name"`
	NextDueDate   string `json:"next_due_date" binding:"required"`
}

// CreateInspection 创建检测记录
// POST /api/inspections
// 创建成功后内联发送欢迎/结果消息（失败不影响响应）。
func (h *Handler) CreateInspection(c *gin.Context) {
	var req createInspectionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dueDate, err := parseDueDate(req.NextDueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid next due date"})
		return
	}

	inspection, err := h.inspectionService.Create(c.Request.Context(), service.CreateInspectionInput{
		VehicleID:     req.VehicleID,
		Result:        req.Result,
		Notes:         req.Notes,
		InspectorName: req.InspectorName,
		NextDueDate:   dueDate,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"data": inspection})
	case errors.Is(err, service.ErrMissingFields), errors.Is(err, service.ErrInvalidResult):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
	default:
		h.logger.Error("Failed to create inspection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create inspection"})
	}
}

// parseDueDate 解析到期日
func parseDueDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
