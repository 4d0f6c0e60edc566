package config

import (
	"errors"
	"strings"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug/info/warn/error
	Level string `json:"level"`

	// Format 输出格式：text/json
	Format string `json:"format"`

	// FxEvents 是否输出依赖注入容器事件
	FxEvents bool `json:"fx_events"`

	// Setup 是否在节点创建时安装全局 logger
	// 嵌入到已有日志体系的应用应关闭
	Setup bool `json:"setup"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("invalid log level")
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return errors.New("invalid log format: must be text or json")
	}
	return nil
}

// WithLevel 设置日志级别
func (c LogConfig) WithLevel(level string) LogConfig {
	c.Level = level
	return c
}
