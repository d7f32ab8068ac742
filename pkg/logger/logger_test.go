package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"sugang-timetable/backend/config"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "warn", Format: format})
		if err != nil {
			t.Fatalf("%s: NewLogger 失败: %v", format, err)
		}
		if l.Core().Enabled(zapcore.InfoLevel) || !l.Core().Enabled(zapcore.WarnLevel) {
			t.Errorf("%s: 日志级别应为 warn", format)
		}
	}

	if _, err := NewLogger(&config.LogConfig{Level: "verbose"}); err == nil {
		t.Error("未知日志级别应返回错误")
	}
}
