package config

import (
	"errors"
	"regexp"
)

var metricNamespaceRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enabled 是否创建指标收集器
	Enabled bool `json:"enabled"`

	// Namespace 指标名前缀
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "roundnet",
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enabled && !metricNamespaceRe.MatchString(c.Namespace) {
		return errors.New("namespace must be a valid prometheus identifier")
	}
	return nil
}
