package util

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 全局日志，InitLogger 之前为空实现，测试中无需初始化
var Logger = zap.NewNop()

func InitLogger(logLevel string) {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level.SetLevel(level)
	logger, err := config.Build()
	if err != nil {
		return
	}
	Logger = logger
}

// CampaignID 返回一个 zap.Field，用于记录活动ID
func CampaignID(id uint64) zap.Field {
	return zap.Uint64("campaign_id", id)
}

// Address 返回一个 zap.Field，用于记录地址
func Address(key string, addr fmt.Stringer) zap.Field {
	return zap.Stringer(key, addr)
}

// Amount 返回一个 zap.Field，用于记录金额
func Amount(key string, amount fmt.Stringer) zap.Field {
	return zap.Stringer(key, amount)
}
