package service

import "time"

// ReminderWindowDays 提醒时间窗：到期前 7 天内视为"即将到期"
const ReminderWindowDays = 7

// StartOfDay 截断到当天零点
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsDueSoon 判断到期日是否落在提醒时间窗内
// 区间为 [当天零点, 当天零点+7天]，两端闭合：今天到期和恰好 7 天后
// 到期都算，昨天到期的不算（那是"逾期客户"报表的事，不是提醒）。
func IsDueSoon(nextDueDate, reference time.Time) bool {
	start := StartOfDay(reference)
	end := start.AddDate(0, 0, ReminderWindowDays)
	return !nextDueDate.Before(start) && !nextDueDate.After(end)
}

// IsLapsed 判断到期日是否已经过去
// 今天到期不算逾期（还在提醒窗内），昨天到期才算。
func IsLapsed(nextDueDate, reference time.Time) bool {
	return nextDueDate.Before(StartOfDay(reference))
}
