// Package validator 注册 gin 绑定使用的自定义校验规则。
package validator

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"sugang-timetable/backend/internal/model"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// Register 向 gin 的默认校验引擎注册自定义规则，可重复调用
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("gin 校验引擎不是 validator/v10")
			return
		}
		registerErr = v.RegisterValidation("semester", validateSemester)
	})
	return registerErr
}

// validateSemester 学期名（SPRING/AUTUMN/SUMMER/WINTER）或 1-4 的编号
func validateSemester(fl validator.FieldLevel) bool {
	_, err := model.ParseSemester(fl.Field().String())
	return err == nil
}
