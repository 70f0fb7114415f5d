package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/license"
	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/notify"
)

// recognizedKeys 允许写入的配置键
// 未知键直接忽略，防止任意数据被塞进 settings 表。
var recognizedKeys = map[string]bool{
	license.KeyLicenseStatus:       true,
	license.KeyTrialStartDate:      true,
	notify.KeySMSGatewayURL:        true,
	notify.KeyWelcomeMessage:       true,
	notify.KeyPassedMessage:        true,
	notify.KeyFailedMessage:        true,
	notify.KeyWhatsAppReminder:     true,
	notify.KeyEmailReminderSubject: true,
	notify.KeyEmailReminderBody:    true,
}

// mergeSettings 默认值打底，存储值覆盖
// 返回合并结果和"哪些键真实存在于存储里"的集合。
func mergeSettings(settings []*models.Setting, now time.Time) (map[string]string, map[string]bool) {
	merged := make(map[string]string, len(notify.Defaults)+2)
	for key, value := range notify.Defaults {
		merged[key] = value
	}
	merged[license.KeyLicenseStatus] = license.StatusTrial
	merged[license.KeyTrialStartDate] = now.Format(time.RFC3339)

	stored := make(map[string]bool, len(settings))
	for _, s := range settings {
		merged[s.Key] = s.Value
		stored[s.Key] = true
	}
	return merged, stored
}

// GetSettings 获取全部配置（存储值覆盖默认值）
// GET /api/settings
// 首次读取时惰性落库许可状态和试用起始日。
func (h *Handler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	settings, err := h.settingRepo.List(ctx)
	if err != nil {
		h.logger.Error("Failed to list settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	merged, stored := mergeSettings(settings, time.Now())

	// 惰性初始化：许可键从未写入过时落库默认值，
	// 让试用期从首次使用当天开始计算。
	for _, key := range []string{license.KeyLicenseStatus, license.KeyTrialStartDate} {
		if stored[key] {
			continue
		}
		if err := h.settingRepo.Upsert(ctx, key, merged[key]); err != nil {
			h.logger.Warn("Failed to initialize setting", zap.String("key", key), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, merged)
}

// UpdateSettings 批量写入配置
// PUT /api/settings
// 只接受白名单里的键；licenseStatus 的变化要通过状态机校验。
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()

	if target, ok := req[license.KeyLicenseStatus]; ok {
		current, exists, err := h.settingRepo.GetValue(ctx, license.KeyLicenseStatus)
		if err != nil {
			h.logger.Error("Failed to read license status", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
			return
		}
		if !exists {
			current = license.StatusTrial
		}

		machine := license.NewMachine(current)
		if err := machine.TransitionTo(ctx, target); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// 切回试用态时补上试用起始日，门禁才有计算依据。
		// 读取失败时不补：把存储故障当成"没有起始日"会重置试用期。
		if target == license.StatusTrial {
			_, hasStart, err := h.settingRepo.GetValue(ctx, license.KeyTrialStartDate)
			switch {
			case err != nil:
				h.logger.Warn("Failed to read trial start date, leaving it untouched", zap.Error(err))
			case !hasStart:
				req[license.KeyTrialStartDate] = time.Now().Format(time.RFC3339)
			}
		}
	}

	for key, value := range req {
		if !recognizedKeys[key] {
			continue
		}
		if err := h.settingRepo.Upsert(ctx, key, value); err != nil {
			h.logger.Error("Failed to upsert setting", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully."})
}
