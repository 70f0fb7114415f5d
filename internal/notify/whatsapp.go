package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/visutech/vims/internal/config"
	"github.com/visutech/vims/internal/models"
)

// WhatsAppSender WhatsApp Business API 渠道（360dialog 兼容）
type WhatsAppSender struct {
	cfg        *config.Config
	templates  *Templates
	logger     *zap.Logger
	httpClient *http.Client
}

// waTextMessage 普通文本消息
type waTextMessage struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// waTemplateMessage 预审核模板消息
type waTemplateMessage struct {
	To       string     `json:"to"`
	Type     string     `json:"type"`
	Template waTemplate `json:"template"`
}

type waTemplate struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Language  struct {
		Code string `json:"code"`
	} `json:"language"`
	Components []waComponent `json:"components"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewWhatsAppSender 创建 WhatsApp 渠道
func NewWhatsAppSender(cfg *config.Config, templates *Templates, logger *zap.Logger) *WhatsAppSender {
	return &WhatsAppSender{
		cfg:       cfg,
		templates: templates,
		logger:    logger,
		httpClient: &http.Client{
			Timeout: cfg.SendTimeout,
		},
	}
}

func (s *WhatsAppSender) Name() string { return ChannelWhatsApp }

// Applicable WhatsApp 号码是可选字段，缺失的车辆跳过此渠道
func (s *WhatsAppSender) Applicable(v *models.Vehicle) bool { return v.CustomerWhatsApp != "" }

// SendWelcome 欢迎消息（文本）
func (s *WhatsAppSender) SendWelcome(ctx context.Context, v *models.Vehicle) bool {
	body := Render(s.templates.Resolve(ctx, KeyWelcomeMessage), map[string]string{
		"customerName": v.CustomerName,
	})
	return s.sendText(ctx, v.CustomerWhatsApp, body)
}

// SendResult 检测结果消息（文本）
func (s *WhatsAppSender) SendResult(ctx context.Context, v *models.Vehicle, insp *models.Inspection) bool {
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
	body := Render(s.templates.Resolve(ctx, key), vars)
	return s.sendText(ctx, v.CustomerWhatsApp, body)
}

// SendDueReminder 到期提醒
// 提醒走预审核模板，{{1}}/{{2}}/{{3}} 对应姓名、车牌、日期。
func (s *WhatsAppSender) SendDueReminder(ctx context.Context, v *models.Vehicle, dueDate time.Time) bool {
	msg := waTemplateMessage{
		To:   cleanNumber(v.CustomerWhatsApp),
		Type: "template",
	}
	msg.Template.Namespace = s.cfg.WhatsAppNamespace
	msg.Template.Name = s.cfg.WhatsAppTemplate
	msg.Template.Language.Code = s.cfg.WhatsAppLanguage
	msg.Template.Components = []waComponent{
		{
			Type: "body",
			Parameters: []waParameter{
				{Type: "text", Text: v.CustomerName},
				{Type: "text", Text: v.LicensePlate},
				{Type: "text", Text: FormatDate(dueDate)},
			},
		},
	}
	return s.post(ctx, msg, cleanNumber(v.CustomerWhatsApp))
}

// sendText 发送普通文本消息
func (s *WhatsAppSender) sendText(ctx context.Context, number, body string) bool {
	msg := waTextMessage{
		To:   cleanNumber(number),
		Type: "text",
	}
	msg.Text.Body = body
	return s.post(ctx, msg, cleanNumber(number))
}

// post 调用 WhatsApp API，所有失败转为 false
func (s *WhatsAppSender) post(ctx context.Context, payload interface{}, number string) bool {
	if s.cfg.WhatsAppAPIKey == "" {
		s.logger.Info("WhatsApp API key is not configured, skipping WhatsApp message")
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal WhatsApp payload", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WhatsAppAPIURL, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("Failed to create WhatsApp request", zap.Error(err))
		return false
	}
	req.Header.Set("D360-API-KEY", s.cfg.WhatsAppAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Failed to send WhatsApp message",
			zap.String("channel", ChannelWhatsApp),
			zap.String("number", number),
			zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("WhatsApp API returned an error",
			zap.String("channel", ChannelWhatsApp),
			zap.String("number", number),
			zap.Int("status", resp.StatusCode))
		return false
	}

	s.logger.Info("WhatsApp message sent", zap.String("number", number))
	return true
}
