package gormdb

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SettingValue 设置值列。MySQL 的 TEXT 上限 64KB，其余方言的 TEXT 不限长度
type SettingValue string

func (SettingValue) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "mysql" {
		return "MEDIUMTEXT"
	}
	return "TEXT"
}

func (v SettingValue) Value() (driver.Value, error) {
	return string(v), nil
}

// Scan 兼容驱动把手工写入的数字或布尔列返回为非字符串类型
func (v *SettingValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = ""
	case string:
		*v = SettingValue(s)
	case []byte:
		*v = SettingValue(s)
	case int64:
		*v = SettingValue(strconv.FormatInt(s, 10))
	case bool:
		*v = SettingValue(strconv.FormatBool(s))
	default:
		return fmt.Errorf("scan setting value: unsupported type %T", src)
	}
	return nil
}

func (v SettingValue) String() string {
	return string(v)
}
