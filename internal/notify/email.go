package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/visutech/vims/internal/config"
	"github.com/visutech/vims/internal/models"
)

// EmailSender SMTP 邮件渠道
type EmailSender struct {
	cfg       *config.Config
	templates *Templates
	logger    *zap.Logger
	dialer    *gomail.Dialer
}

// NewEmailSender 创建邮件渠道
func NewEmailSender(cfg *config.Config, templates *Templates, logger *zap.Logger) *EmailSender {
	var dialer *gomail.Dialer
	if cfg.SMTPHost != "" {
		dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}
	return &EmailSender{
		cfg:       cfg,
		templates: templates,
		logger:    logger,
		dialer:    dialer,
	}
}

func (s *EmailSender) Name() string { return ChannelEmail }

func (s *EmailSender) Applicable(v *models.Vehicle) bool { return v.CustomerEmail != "" }

// SendWelcome 欢迎邮件
func (s *EmailSender) SendWelcome(ctx context.Context, v *models.Vehicle) bool {
	body := Render(s.templates.Resolve(ctx, KeyWelcomeMessage), map[string]string{
		"customerName": v.CustomerName,
	})
	return s.send(v.CustomerEmail, "Welcome to VisuTech", body)
}

// SendResult 检测结果邮件
func (s *EmailSender) SendResult(ctx context.Context, v *models.Vehicle, insp *models.Inspection) bool {
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
	return s.send(v.CustomerEmail, "Inspection result for "+v.LicensePlate, body)
}

// SendDueReminder 到期提醒邮件
func (s *EmailSender) SendDueReminder(ctx context.Context, v *models.Vehicle, dueDate time.Time) bool {
	vars := map[string]string{
		"customerName": v.CustomerName,
		"licensePlate": v.LicensePlate,
		"nextDueDate":  FormatDate(dueDate),
	}
	subject := Render(s.templates.Resolve(ctx, KeyEmailReminderSubject), vars)
	body := Render(s.templates.Resolve(ctx, KeyEmailReminderBody), vars)
	return s.send(v.CustomerEmail, subject, body)
}

// send 发送邮件，失败只记日志并返回 false
func (s *EmailSender) send(to, subject, htmlBody string) bool {
	if s.dialer == nil {
		s.logger.Info("SMTP is not configured, skipping email", zap.String("to", to))
		return false
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.MailFrom)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(msg); err != nil {
		s.logger.Error("Failed to send email",
			zap.String("channel", ChannelEmail),
			zap.String("to", to),
			zap.Error(err))
		return false
	}

	s.logger.Info("Email sent", zap.String("to", to))
	return true
}
