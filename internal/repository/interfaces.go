package repository

import "github.com/awsl-project/tower/internal/domain"

type SystemSettingRepository interface {
	// Get 返回设置值；不存在时返回 domain.ErrNotFound
	Get(key string) (string, error)
	Set(key, value string) error
	GetAll() ([]*domain.SystemSetting, error)
	Delete(key string) error
}
