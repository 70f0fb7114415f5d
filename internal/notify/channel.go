package notify

import (
	"context"
	"time"

	"github.com/visutech/vims/internal/models"
)

// 渠道名称常量
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Channel 独立的消息发送渠道
// 所有发送方法只返回成功与否：传输错误在渠道内部捕获并记日志，
// 绝不向调用方抛错。配置缺失同样表现为 false。
type Channel interface {
	Name() string

	// Applicable 该车辆是否具备此渠道的收件地址
	// 可选地址（如 WhatsApp 号码）由调用方先行判断，渠道本身不兜底。
	Applicable(v *models.Vehicle) bool

	// SendWelcome 新建检测时的欢迎消息
	SendWelcome(ctx context.Context, v *models.Vehicle) bool

	// SendResult 检测结果消息（通过/未通过）
	SendResult(ctx context.Context, v *models.Vehicle, insp *models.Inspection) bool

	// SendDueReminder 到期提醒消息
	SendDueReminder(ctx context.Context, v *models.Vehicle, dueDate time.Time) bool
}
