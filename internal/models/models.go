package models

import "time"

// 检测结果常量
const (
	ResultPass = "pass"
	ResultFail = "fail"
)

// 通知状态常量
const (
	NotificationPending      = "pending"
	NotificationSent         = "sent"
	NotificationAcknowledged = "acknowledged"
)

// Vehicle 车辆及车主联系信息
type Vehicle struct {
	ID               int64     `json:"id" db:"id"`
	LicensePlate     string    `json:"license_plate" db:"license_plate"`
	Category         string    `json:"category" db:"category"`
	VehicleType      string    `json:"vehicle_type" db:"vehicle_type"`
	CustomerName     string    `json:"customer_name" db:"customer_name"`
	CustomerPhone    string    `json:"customer_phone" db:"customer_phone"`
	CustomerEmail    string    `json:"customer_email" db:"customer_email"`
	CustomerWhatsApp string    `json:"customer_whatsapp" db:"customer_whatsapp"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Inspection 检测记录
// NextDueDate 由检测员在创建时显式给出，系统不自动推算。
// 历史数据可能缺失 NextDueDate，扫描时跳过而不是报错。
type Inspection struct {
	ID            int64      `json:"id" db:"id"`
	VehicleID     int64      `json:"vehicle_id" db:"vehicle_id"`
	Date          time.Time  `json:"date" db:"date"`
	InspectorName string     `json:"inspector_name" db:"inspector_name"`
	Result        string     `json:"result" db:"result"` // pass, fail
	Notes         string     `json:"notes" db:"notes"`
	NextDueDate   *time.Time `json:"next_due_date,omitempty" db:"next_due_date"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Setting 键值配置项
// key 全局唯一，value 为文本（日期以 RFC3339 存储）。
type Setting struct {
	ID    int64  `json:"id" db:"id"`
	Key   string `json:"key" db:"key"`
	Value string `json:"value" db:"value"`
}

// Notification 提醒镜像记录
// 仅作审计/缓存，待发送集合始终由检测历史实时推导。
type Notification struct {
	ID           int64      `json:"id" db:"id"`
	VehicleID    int64      `json:"vehicle_id" db:"vehicle_id"`
	InspectionID int64      `json:"inspection_id" db:"inspection_id"`
	DueDate      time.Time  `json:"due_date" db:"due_date"`
	Message      string     `json:"message" db:"message"`
	Status       string     `json:"status" db:"status"` // pending, sent, acknowledged
	SentAt       *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// PendingReminder 待提醒条目（每辆车最新一次检测 + 车辆信息）
type PendingReminder struct {
	InspectionID int64     `json:"inspection_id"`
	Vehicle      *Vehicle  `json:"vehicle"`
	DueDate      time.Time `json:"due_date"`
}

// InspectionWithVehicle 检测记录及所属车辆（报表用）
type InspectionWithVehicle struct {
	Inspection
	LicensePlate string `json:"license_plate"`
	Category     string `json:"category"`
	VehicleType  string `json:"vehicle_type"`
}
