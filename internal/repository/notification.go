package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/visutech/vims/internal/models"
)

// NotificationRepository 提醒镜像仓库
// 镜像仅用于审计，正确性始终以检测历史的实时推导为准。
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository 创建提醒镜像仓库
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建镜像记录
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (vehicle_id, inspection_id, due_date, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	now := time.Now()
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	err := r.db.Pool.QueryRow(ctx, query,
		n.VehicleID,
		n.InspectionID,
		n.DueDate,
		n.Message,
		n.Status,
		now,
	).Scan(&n.ID)

	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	n.CreatedAt = now
	return nil
}

// ExistsForInspection 该检测是否已有镜像记录
func (r *NotificationRepository) ExistsForInspection(ctx context.Context, inspectionID int64) (bool, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx, `SELECT id FROM notifications WHERE inspection_id = $1 LIMIT 1`, inspectionID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check notification: %w", err)
	}
	return true, nil
}

// MarkSent 标记镜像记录为已发送
func (r *NotificationRepository) MarkSent(ctx context.Context, inspectionID int64) error {
	query := `UPDATE notifications SET status = $1, sent_at = $2 WHERE inspection_id = $3 AND status = $4`
	_, err := r.db.Pool.Exec(ctx, query, models.NotificationSent, time.Now(), inspectionID, models.NotificationPending)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}
