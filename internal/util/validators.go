package util

import (
	"errors"

	"campaign-ledger/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册自定义验证器
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("eth_addr", ValidateAddress); err != nil {
		return err
	}
	return v.RegisterValidation("base_units", ValidateBaseUnits)
}

// ValidateAddress 验证 0x 前缀的地址
func ValidateAddress(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if s == "" {
		return true
	}
	_, err := model.ParseAddress(s)
	return err == nil
}

// ValidateBaseUnits 验证十进制整数金额字符串
func ValidateBaseUnits(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := model.ParseAmount(s)
	return err == nil
}

// RegisterBindingValidators 把自定义验证器注册到 gin 的绑定引擎
func RegisterBindingValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 绑定引擎不是 validator.Validate")
	}
	return RegisterValidators(v)
}
