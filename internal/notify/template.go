package notify

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// 配置键常量
// 与许可相关的键（licenseStatus、trialStartDate）也存在同一个 settings 表里，
// 由 license 包读取，这里只列消息相关的键。
const (
	KeySMSGatewayURL        = "smsGatewayUrl"
	KeyWelcomeMessage       = "welcomeMessage"
	KeyPassedMessage        = "passedMessage"
	KeyFailedMessage        = "failedMessage"
	KeyWhatsAppReminder     = "whatsappReminder"
	KeyEmailReminderSubject = "emailReminderSubject"
	KeyEmailReminderBody    = "emailReminderBody"
)

// Defaults 内置默认模板
// 键缺失时回退到这里，读取配置永远不会因为键不存在而失败。
var Defaults = map[string]string{
	KeySMSGatewayURL:        "",
	KeyWelcomeMessage:       "Welcome to VisuTech, {{customerName}}! Your vehicle is being inspected.",
	KeyPassedMessage:        "Congratulations, {{customerName}}! Your vehicle {{licensePlate}} passed. Next inspection is due on {{nextDueDate}}.",
	KeyFailedMessage:        "Dear {{customerName}}, the inspection for your vehicle {{licensePlate}} has failed.",
	KeyWhatsAppReminder:     "Reminder: Dear {{1}}, your vehicle {{2}} is due for inspection on {{3}}.",
	KeyEmailReminderSubject: "Upcoming Vehicle Inspection Reminder for {{licensePlate}}",
	KeyEmailReminderBody: "<p>Dear {{customerName}},</p>" +
		"<p>This is a friendly reminder that your vehicle with license plate <strong>{{licensePlate}}</strong> " +
		"is due for its next technical inspection on <strong>{{nextDueDate}}</strong>.</p>" +
		"<p>Please schedule your appointment with VisuTech soon.</p>" +
		"<p>Thank you,</p><p><strong>The VisuTech Team</strong></p>",
}

// SettingSource 配置读取接口，由 repository.SettingRepository 实现
type SettingSource interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
}

// Templates 消息模板存取
type Templates struct {
	settings SettingSource
	logger   *zap.Logger
}

// NewTemplates 创建模板存取
func NewTemplates(settings SettingSource, logger *zap.Logger) *Templates {
	return &Templates{settings: settings, logger: logger}
}

// Resolve 读取模板，键缺失或读取出错时回退内置默认值
func (t *Templates) Resolve(ctx context.Context, key string) string {
	value, ok, err := t.settings.GetValue(ctx, key)
	if err != nil {
		t.logger.Warn("Failed to read template, using default", zap.String("key", key), zap.Error(err))
		return Defaults[key]
	}
	if !ok {
		return Defaults[key]
	}
	return value
}

// Render 占位符替换
// 纯文本全局替换，不做任何转义，和模板的书写约定保持一致。
func Render(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

// FormatDate 模板里的日期展示格式
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// cleanNumber 清理电话号码，只保留数字（含国家码）
func cleanNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
