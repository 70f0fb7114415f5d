package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/visutech/vims/internal/models"
)

// SMSSender 本地短信网关渠道
// 网关是操作员手机上的本地中继，地址随时可能变化，
// 因此网关 URL 是运行时配置（settings 表）而不是环境变量。
type SMSSender struct {
	templates  *Templates
	logger     *zap.Logger
	httpClient *http.Client
}

// NewSMSSender 创建短信渠道
func NewSMSSender(templates *Templates, logger *zap.Logger, timeout time.Duration) *SMSSender {
	return &SMSSender{
		templates: templates,
		logger:    logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SMSSender) Name() string { return ChannelSMS }

func (s *SMSSender) Applicable(v *models.Vehicle) bool { return v.CustomerPhone != "" }

// SendWelcome 欢迎短信
func (s *SMSSender) SendWelcome(ctx context.Context, v *models.Vehicle) bool {
	message := Render(s.templates.Resolve(ctx, KeyWelcomeMessage), map[string]string{
		"customerName": v.CustomerName,
	})
	return s.send(ctx, v.CustomerPhone, message)
}

// SendResult 检测结果短信
func (s *SMSSender) SendResult(ctx context.Context, v *models.Vehicle, insp *models.Inspection) bool {
	vars := map[string]string{
		"customerName": v.CustomerName,
		"licensePlate": v.LicensePlate,
	}
	key := KeyFailedMessage
	if insp.Result == models.ResultPass {
		key = KeyPassedMessage
		if insp.NextDueDate != nil {
			vars["nextDueDate"] = FormatDate(*insp.NextDueDate)
		}
	}
	message := Render(s.templates.Resolve(ctx, key), vars)
	return s.send(ctx, v.CustomerPhone, message)
}

// SendDueReminder 到期提醒短信
// 短信复用 WhatsApp 提醒模板的位置占位符 {{1}}/{{2}}/{{3}}。
func (s *SMSSender) SendDueReminder(ctx context.Context, v *models.Vehicle, dueDate time.Time) bool {
	message := Render(s.templates.Resolve(ctx, KeyWhatsAppReminder), map[string]string{
		"1": v.CustomerName,
		"2": v.LicensePlate,
		"3": FormatDate(dueDate),
	})
	return s.send(ctx, v.CustomerPhone, message)
}

// send 把短信指令 POST 给本地网关
// 网关 URL 未配置时直接返回 false，不发起任何网络请求。
func (s *SMSSender) send(ctx context.Context, number, message string) bool {
	gatewayURL, ok, err := s.templates.settings.GetValue(ctx, KeySMSGatewayURL)
	if err != nil {
		s.logger.Error("Failed to read SMS gateway URL", zap.Error(err))
		return false
	}
	if !ok || gatewayURL == "" {
		s.logger.Info("Local SMS gateway URL is not configured, skipping SMS")
		return false
	}

	payload, err := json.Marshal(map[string]string{
		"number":  cleanNumber(number),
		"message": message,
	})
	if err != nil {
		s.logger.Error("Failed to marshal SMS payload", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gatewayURL+"/sendsms", bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("Failed to create SMS request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Failed to reach local SMS gateway",
			zap.String("channel", ChannelSMS),
			zap.String("number", cleanNumber(number)),
			zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("Local SMS gateway rejected the command",
			zap.String("channel", ChannelSMS),
			zap.String("number", cleanNumber(number)),
			zap.String("status", fmt.Sprintf("%d", resp.StatusCode)))
		return false
	}

	s.logger.Info("SMS command sent to local gateway", zap.String("number", cleanNumber(number)))
	return true
}
