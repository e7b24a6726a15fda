package gormdb

import (
	"errors"
	"fmt"

	"github.com/awsl-project/tower/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemSettingRepository 基于 GORM 的系统设置存储
type SystemSettingRepository struct {
	db *DB
}

// NewSystemSettingRepository creates a settings repository backed by db
func NewSystemSettingRepository(db *DB) *SystemSettingRepository {
	return &SystemSettingRepository{db: db}
}

func (r *SystemSettingRepository) Get(key string) (string, error) {
	var s SystemSetting
	err := r.db.gorm.Where("setting_key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return s.Value.String(), nil
}

func (r *SystemSettingRepository) Set(key, value string) error {
	s := SystemSetting{Key: key, Value: SettingValue(value)}
	err := r.db.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (r *SystemSettingRepository) GetAll() ([]*domain.SystemSetting, error) {
	var rows []SystemSetting
	if err := r.db.gorm.Order("setting_key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	settings := make([]*domain.SystemSetting, 0, len(rows))
	for _, row := range rows {
		settings = append(settings, &domain.SystemSetting{
			Key:       row.Key,
			Value:     row.Value.String(),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return settings, nil
}

func (r *SystemSettingRepository) Delete(key string) error {
	if err := r.db.gorm.Where("setting_key = ?", key).Delete(&SystemSetting{}).Error; err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
