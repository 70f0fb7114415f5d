package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/visutech/vims/internal/models"
)

// InspectionRepository 检测记录仓库
type InspectionRepository struct {
	db *DB
}

// NewInspectionRepository 创建检测记录仓库
func NewInspectionRepository(db *DB) *InspectionRepository {
	return &InspectionRepository{db: db}
}

// Create 创建检测记录
func (r *InspectionRepository) Create(ctx context.Context, insp *models.Inspection) error {
	query := `
		INSERT INTO inspections (vehicle_id, date, inspector_name, result, notes, next_due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	now := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		insp.VehicleID,
		insp.Date,
		insp.InspectorName,
		insp.Result,
		insp.Notes,
		insp.NextDueDate,
		now,
	).Scan(&insp.ID)

	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}

	insp.CreatedAt = now
	return nil
}

// ListByVehicleID 获取车辆的检测历史，按检测时间倒序
func (r *InspectionRepository) ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.Inspection, error) {
	query := `
		SELECT id, vehicle_id, date, inspector_name, result, notes, next_due_date, created_at
		FROM inspections WHERE vehicle_id = $1 ORDER BY date DESC, id DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	var inspections []*models.Inspection
	for rows.Next() {
		insp := &models.Inspection{}
		err := rows.Scan(
			&insp.ID,
			&insp.VehicleID,
			&insp.Date,
			&insp.InspectorName,
			&insp.Result,
			&insp.Notes,
			&insp.NextDueDate,
			&insp.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		inspections = append(inspections, insp)
	}

	return inspections, nil
}

// GetLatestByVehicleID 获取车辆最新一次检测
// 时间并列时按 id 倒序，保证结果确定。
func (r *InspectionRepository) GetLatestByVehicleID(ctx context.Context, vehicleID int64) (*models.Inspection, error) {
	query := `
		SELECT id, vehicle_id, date, inspector_name, result, notes, next_due_date, created_at
		FROM inspections WHERE vehicle_id = $1 ORDER BY date DESC, id DESC LIMIT 1
	`
	insp := &models.Inspection{}
	err := r.db.Pool.QueryRow(ctx, query, vehicleID).Scan(
		&insp.ID,
		&insp.VehicleID,
		&insp.Date,
		&insp.InspectorName,
		&insp.Result,
		&insp.Notes,
		&insp.NextDueDate,
		&insp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest inspection: %w", err)
	}
	return insp, nil
}

// ListLatestPerVehicle 每辆车最新一次检测（含车辆信息）
// next_due_date 为空的记录直接排除，零检测车辆自然缺席。
// 时间窗过滤由上层完成，这里只负责"最新一次"的聚合。
func (r *InspectionRepository) ListLatestPerVehicle(ctx context.Context) ([]*models.PendingReminder, error) {
	query := `
		SELECT i.id, i.next_due_date,
			v.id, v.license_plate, v.category, v.vehicle_type, v.customer_name, v.customer_phone, v.customer_email, v.customer_whatsapp, v.created_at, v.updated_at
		FROM (
			SELECT DISTINCT ON (vehicle_id) id, vehicle_id, next_due_date
			FROM inspections
			ORDER BY vehicle_id, date DESC, id DESC
		) i
		JOIN vehicles v ON v.id = i.vehicle_id
		WHERE i.next_due_date IS NOT NULL
		ORDER BY i.next_due_date
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list latest inspections: %w", err)
	}
	defer rows.Close()

	var reminders []*models.PendingReminder
	for rows.Next() {
		v := &models.Vehicle{}
		item := &models.PendingReminder{Vehicle: v}
		err := rows.Scan(
			&item.InspectionID,
			&item.DueDate,
			&v.ID,
			&v.LicensePlate,
			&v.Category,
			&v.VehicleType,
			&v.CustomerName,
			&v.CustomerPhone,
			&v.CustomerEmail,
			&v.CustomerWhatsApp,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pending reminder: %w", err)
		}
		reminders = append(reminders, item)
	}

	return reminders, nil
}

// ListByDateRange 按时间段获取检测记录（含车辆信息），按检测时间倒序
func (r *InspectionRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]*models.InspectionWithVehicle, error) {
	query := `
		SELECT i.id, i.vehicle_id, i.date, i.inspector_name, i.result, i.notes, i.next_due_date, i.created_at,
			v.license_plate, v.category, v.vehicle_type
		FROM inspections i
		JOIN vehicles v ON v.id = i.vehicle_id
		WHERE i.date >= $1 AND i.date <= $2
		ORDER BY i.date DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list inspections by range: %w", err)
	}
	defer rows.Close()

	var results []*models.InspectionWithVehicle
	for rows.Next() {
		item := &models.InspectionWithVehicle{}
		err := rows.Scan(
			&item.ID,
			&item.VehicleID,
			&item.Date,
			&item.InspectorName,
			&item.Result,
			&item.Notes,
			&item.NextDueDate,
			&item.CreatedAt,
			&item.LicensePlate,
			&item.Category,
			&item.VehicleType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan inspection with vehicle: %w", err)
		}
		results = append(results, item)
	}

	return results, nil
}

// CountByDateRange 统计时间段内检测数，result 为空统计全部
func (r *InspectionRepository) CountByDateRange(ctx context.Context, start, end time.Time, result string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM inspections
		WHERE date >= $1 AND date <= $2 AND ($3 = '' OR result = $3)
	`
	var count int64
	err := r.db.Pool.QueryRow(ctx, query, start, end, result).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count inspections: %w", err)
	}
	return count, nil
}

// CountByWeekday 统计时间段内每天的检测数，key 为 ISO 星期（1=周一）
func (r *InspectionRepository) CountByWeekday(ctx context.Context, start, end time.Time) (map[int]int64, error) {
	query := `
		SELECT EXTRACT(ISODOW FROM date)::INT AS dow, COUNT(*)
		FROM inspections
		WHERE date >= $1 AND date <= $2
		GROUP BY dow
	`
	rows, err := r.db.Pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("count inspections by weekday: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var dow int
		var count int64
		if err := rows.Scan(&dow, &count); err != nil {
			return nil, fmt.Errorf("scan weekday count: %w", err)
		}
		counts[dow] = count
	}

	return counts, nil
}
