package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/visutech/vims/internal/models"
)

// ErrNotFound 查询无结果
var ErrNotFound = errors.New("not found")

// ErrDuplicate 唯一约束冲突
var ErrDuplicate = errors.New("already exists")

// isUniqueViolation 是否为 Postgres 唯一约束冲突（23505）
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// VehicleRepository 车辆数据仓库
type VehicleRepository struct {
	db *DB
}

// NewVehicleRepository 创建车辆仓库
func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Create 创建车辆（车牌唯一）
func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (license_plate, category, vehicle_type, customer_name, customer_phone, customer_email, customer_whatsapp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	now := time.Now()
	v.LicensePlate = strings.ToUpper(strings.TrimSpace(v.LicensePlate))
	err := r.db.Pool.QueryRow(ctx, query,
		v.LicensePlate,
		v.Category,
		v.VehicleType,
		v.CustomerName,
		v.CustomerPhone,
		v.CustomerEmail,
		v.CustomerWhatsApp,
		now,
		now,
	).Scan(&v.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert vehicle: %w", err)
	}

	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

// GetByID 通过 ID 获取车辆
func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	query := `
		SELECT id, license_plate, category, vehicle_type, customer_name, customer_phone, customer_email, customer_whatsapp, created_at, updated_at
		FROM vehicles WHERE id = $1
	`
	v := &models.Vehicle{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vehicle by id: %w", err)
	}
	return v, nil
}

// GetByPlate 通过车牌获取车辆
func (r *VehicleRepository) GetByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	query := `
		SELECT id, license_plate, category, vehicle_type, customer_name, customer_phone, customer_email, customer_whatsapp, created_at, updated_at
		FROM vehicles WHERE license_plate = $1
	`
	plate = strings.ToUpper(strings.TrimSpace(plate))
	v := &models.Vehicle{}
	err := r.db.Pool.QueryRow(ctx, query, plate).Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vehicle by plate: %w", err)
	}
	return v, nil
}

// Search 车牌模糊检索，search 为空返回全部，按创建时间倒序
func (r *VehicleRepository) Search(ctx context.Context, search string) ([]*models.Vehicle, error) {
	query := `
		SELECT id, license_plate, category, vehicle_type, customer_name, customer_phone, customer_email, customer_whatsapp, created_at, updated_at
		FROM vehicles
		WHERE ($1 = '' OR license_plate ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("search vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		v := &models.Vehicle{}
		err := rows.Scan(
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
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, nil
}

// UpdateCustomer 更新车主联系信息
func (r *VehicleRepository) UpdateCustomer(ctx context.Context, v *models.Vehicle) error {
	query := `
		UPDATE vehicles SET customer_name = $1, customer_phone = $2, customer_email = $3, customer_whatsapp = $4, updated_at = $5
		WHERE id = $6
	`
	v.UpdatedAt = time.Now()
	_, err := r.db.Pool.Exec(ctx, query,
		v.CustomerName,
		v.CustomerPhone,
		v.CustomerEmail,
		v.CustomerWhatsApp,
		v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("update vehicle customer: %w", err)
	}
	return nil
}

// Count 统计车辆总数
func (r *VehicleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	return count, nil
}
