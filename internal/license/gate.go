package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// 许可状态常量
const (
	StatusTrial    = "trial"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// 许可相关的配置键
const (
	KeyLicenseStatus  = "licenseStatus"
	KeyTrialStartDate = "trialStartDate"
)

// TrialPeriodDays 试用期天数
const TrialPeriodDays = 14

// 拒绝原因，handler 层据此返回 403 而不是普通错误
var (
	ErrTrialExpired    = errors.New("trial period has expired, please contact support")
	ErrLicenseInactive = errors.New("license is inactive, please contact support")
)

// SettingSource 配置读取接口，由 repository.SettingRepository 实现
type SettingSource interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
}

// Gate 许可门禁
// 每次写操作前读取 settings 实时判定，试用期是否过期永远从
// trialStartDate 重新计算，不依赖任何写入时的状态翻转。
type Gate struct {
	settings SettingSource
	logger   *zap.Logger
	now      func() time.Time
}

// NewGate 创建许可门禁
func NewGate(settings SettingSource, logger *zap.Logger) *Gate {
	return &Gate{settings: settings, logger: logger, now: time.Now}
}

// Check 判定当前请求是否放行
// 返回 nil 放行；ErrTrialExpired / ErrLicenseInactive 表示拒绝；
// 其它错误是存储读取故障。
func (g *Gate) Check(ctx context.Context) error {
	status, ok, err := g.settings.GetValue(ctx, KeyLicenseStatus)
	if err != nil {
		return fmt.Errorf("read license status: %w", err)
	}
	// 键不存在说明系统从未配置过，放行，否则连配置界面都救不回来
	if !ok {
		return nil
	}

	switch status {
	case StatusActive:
		return nil
	case StatusTrial:
		startRaw, ok, err := g.settings.GetValue(ctx, KeyTrialStartDate)
		if err != nil {
			return fmt.Errorf("read trial start date: %w", err)
		}
		if !ok {
			return nil
		}
		start, perr := ParseDate(startRaw)
		if perr != nil {
			g.logger.Warn("Unparseable trial start date, allowing request", zap.String("value", startRaw))
			return nil
		}
		if daysBetween(start, g.now()) <= TrialPeriodDays {
			return nil
		}
		return ErrTrialExpired
	default:
		return ErrLicenseInactive
	}
}

// ParseDate 解析存储的日期值（RFC3339 或 YYYY-MM-DD）
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// daysBetween 日历天数差
// 存储的起始日可能带别的时区偏移，先统一到 to 的时区再截断到零点，
// 否则零点不对齐，14 天边界上会差一天。
func daysBetween(from, to time.Time) int {
	from = startOfDay(from.In(to.Location()))
	to = startOfDay(to)
	return int(to.Sub(from).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
