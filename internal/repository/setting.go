package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/visutech/vims/internal/models"
)

// SettingRepository 键值配置仓库
type SettingRepository struct {
	db *DB
}

// NewSettingRepository 创建配置仓库
func NewSettingRepository(db *DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// GetValue 读取配置值
// key 不存在返回 ok=false 而不是错误，调用方自行回退默认值。
func (r *SettingRepository) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Upsert 写入配置，key 已存在则覆盖（last-write-wins）
func (r *SettingRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := r.db.Pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

// List 读取全部配置
func (r *SettingRepository) List(ctx context.Context) ([]*models.Setting, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		s := &models.Setting{}
		if err := rows.Scan(&s.ID, &s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, s)
	}

	return settings, nil
}
