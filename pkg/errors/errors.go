package errors

import (
	"errors"
	"strings"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ValidationError 业务校验失败，携带全部失败原因
type ValidationError struct {
	Reasons []string
}

// NewValidationError 由原因列表构造校验错误
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return "参数校验失败"
	}
	return "参数校验失败: " + strings.Join(e.Reasons, "; ")
}

// AsValidation 取出错误链中的 ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
