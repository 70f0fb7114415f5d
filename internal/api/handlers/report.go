package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/service"
)

// GetInspectionReport 按时段获取检测报表
// GET /api/reports?period=daily|weekly|monthly
func (h *Handler) GetInspectionReport(c *gin.Context) {
	start, end := reportRange(c.DefaultQuery("period", "daily"), time.Now())

	inspections, err := h.inspectionRepo.ListByDateRange(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("Failed to build inspection report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	if inspections == nil {
		inspections = []*models.InspectionWithVehicle{}
	}

	c.JSON(http.StatusOK, gin.H{"data": inspections})
}

// GetLapsedVehicles 逾期客户报表
// GET /api/reports/lapsed
// 最新一次检测的到期日已经过去的车辆；它们不在提醒列表里。
func (h *Handler) GetLapsedVehicles(c *gin.Context) {
	latest, err := h.inspectionRepo.ListLatestPerVehicle(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list lapsed vehicles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	now := time.Now()
	lapsed := make([]*models.PendingReminder, 0)
	for _, item := range latest {
		if service.IsLapsed(item.DueDate, now) {
			lapsed = append(lapsed, item)
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": lapsed})
}

// GetDashboardStats 管理面板统计
// GET /api/admin/stats?startDate=&endDate=
func (h *Handler) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	start, end := monthRange(now)
	if v := c.Query("startDate"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			start = t
		}
	}
	if v := c.Query("endDate"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}

	totalVehicles, err := h.vehicleRepo.Count(ctx)
	if err != nil {
		h.logger.Error("Failed to count vehicles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build stats"})
		return
	}

	inspectionsInRange, err := h.inspectionRepo.CountByDateRange(ctx, start, end, "")
	if err != nil {
		h.logger.Error("Failed to count inspections", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build stats"})
		return
	}
	passedInRange, err := h.inspectionRepo.CountByDateRange(ctx, start, end, models.ResultPass)
	if err != nil {
		h.logger.Error("Failed to count passed inspections", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build stats"})
		return
	}

	passRatio := 0.0
	if inspectionsInRange > 0 {
		passRatio = float64(passedInRange) / float64(inspectionsInRange) * 100
	}

	// 本周（周一起始）每天的检测数
	weekStart, weekEnd := weekRange(now)
	byWeekday, err := h.inspectionRepo.CountByWeekday(ctx, weekStart, weekEnd)
	if err != nil {
		h.logger.Error("Failed to count inspections by weekday", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build stats"})
		return
	}
	chartData := make([]int64, 7)
	for dow := 1; dow <= 7; dow++ {
		chartData[dow-1] = byWeekday[dow]
	}

	c.JSON(http.StatusOK, gin.H{
		"totalVehicles":      totalVehicles,
		"inspectionsInRange": inspectionsInRange,
		"passFailRatio":      passRatio,
		"chartData":          chartData,
	})
}

// reportRange 报表时段边界
func reportRange(period string, now time.Time) (time.Time, time.Time) {
	switch period {
	case "weekly":
		return weekRange(now)
	case "monthly":
		return monthRange(now)
	default:
		start := service.StartOfDay(now)
		return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
}

// weekRange 本周边界（周一起始）
func weekRange(now time.Time) (time.Time, time.Time) {
	start := service.StartOfDay(now)
	weekday := int(start.Weekday())
	if weekday == 0 {
		weekday = 7 // 周日算第 7 天
	}
	start = start.AddDate(0, 0, -(weekday - 1))
	return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// monthRange 本月边界
func monthRange(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}
