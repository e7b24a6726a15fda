package gormdb

import "time"

// SystemSetting 系统设置表
type SystemSetting struct {
	Key       string       `gorm:"column:setting_key;primaryKey;size:128"`
	Value     SettingValue `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

// AllModels 返回需要自动迁移的模型
func AllModels() []any {
	return []any{
		&SystemSetting{},
	}
}
