package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ── PostgreSQL INT[] 自定义类型 ──

// IntArray 对应 PostgreSQL INT[] 类型，实现 GORM Scanner/Valuer 接口。
type IntArray []int

// Scan 将 PostgreSQL 返回的 {1,2,3} 文本解析为 []int。
func (a *IntArray) Scan(src interface{}) error {
	s, err := arrayText("IntArray", src)
	if err != nil {
		return err
	}
	if s == nil {
		*a = nil
		return nil
	}
	body := strings.Trim(*s, "{}")
	if body == "" {
		*a = IntArray{}
		return nil
	}
	parts := strings.Split(body, ",")
	arr := make(IntArray, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("IntArray.Scan: invalid element %q: %w", p, err)
		}
		arr = append(arr, n)
	}
	*a = arr
	return nil
}

// Value 将 []int 序列化为 PostgreSQL {1,2,3} 文本。
func (a IntArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	parts := make([]string, len(a))
	for i, n := range a {
		parts[i] = strconv.Itoa(n)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// ── PostgreSQL TEXT[] 自定义类型 ──

// StringArray 对应 PostgreSQL TEXT[] 类型。元素统一加双引号写入。
type StringArray []string

// Scan 解析 {a,"b c"} 形式的数组文本
func (a *StringArray) Scan(src interface{}) error {
	s, err := arrayText("StringArray", src)
	if err != nil {
		return err
	}
	if s == nil {
		*a = nil
		return nil
	}
	body := strings.TrimSuffix(strings.TrimPrefix(*s, "{"), "}")
	arr := StringArray{}
	if body == "" {
		*a = arr
		return nil
	}

	var cur strings.Builder
	quoted, escaped := false, false
	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			arr = append(arr, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	*a = append(arr, cur.String())
	return nil
}

// Value 序列化为 {"a","b"} 文本
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	parts := make([]string, len(a))
	for i, s := range a {
		s = strings.ReplaceAll(s, `\`, `\\`)
		parts[i] = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func arrayText(kind string, src interface{}) (*string, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		s := string(v)
		return &s, nil
	case string:
		return &v, nil
	default:
		return nil, fmt.Errorf("%s.Scan: unsupported type %T", kind, src)
	}
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}
