package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/models"
)

// pendingReminderView 待提醒条目的展示结构
type pendingReminderView struct {
	InspectionID int64           `json:"inspection_id"`
	Vehicle      *models.Vehicle `json:"vehicle"`
	DueDate      string          `json:"due_date"`
	Status       string          `json:"status"`
	Message      string          `json:"message"`
}

// GetNotifications 获取当前待提醒列表
// GET /api/notifications
// 列表每次从检测历史实时推导，不读任何排队表。
func (h *Handler) GetNotifications(c *gin.Context) {
	pending, err := h.reminderService.PendingReminders(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute pending reminders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	views := make([]pendingReminderView, 0, len(pending))
	for _, item := range pending {
		views = append(views, pendingReminderView{
			InspectionID: item.InspectionID,
			Vehicle:      item.Vehicle,
			DueDate:      item.DueDate.Format("2006-01-02"),
			Status:       models.NotificationPending,
			Message: fmt.Sprintf("Inspection for %s is due on %s.",
				item.Vehicle.LicensePlate, item.DueDate.Format("2006-01-02")),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

// SendAllPendingReminders 批量发送全部待提醒
// POST /api/notifications/send-all
// 永远返回计数；空集合是 total=0 的成功响应，不是错误。
func (h *Handler) SendAllPendingReminders(c *gin.Context) {
	result, err := h.reminderService.SendAllPending(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to send pending reminders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send pending reminders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Processing complete.",
		"successCount": result.SuccessCount,
		"failureCount": result.FailureCount,
		"skippedCount": result.SkippedCount,
		"total":        result.Total,
	})
}
