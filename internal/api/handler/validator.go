package handler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

var registerOnce sync.Once

// RegisterValidators 在 gin 的校验引擎上注册 dateonly / hhmm 标签，可重复调用
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin 校验引擎不是 validator/v10")
			return
		}
		if err = v.RegisterValidation("dateonly", validateDateOnly); err != nil {
			return
		}
		err = v.RegisterValidation("hhmm", validateClock)
	})
	return err
}

func validateDateOnly(fl validator.FieldLevel) bool {
	_, err := schedule.ParseDate(fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := schedule.ParseClock(fl.Field().String())
	return err == nil
}

// bindingReasons 将绑定错误展开为 "字段: 规则" 列表
func bindingReasons(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	reasons := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return reasons
}
