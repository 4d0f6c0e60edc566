package config

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Duration 配置中的时间间隔
//
// JSON 中可写作时长字符串（"250ms"、"1m30s"）或整数纳秒，输出总是字符串。
type Duration time.Duration

// UnmarshalJSON 解析时长字符串或整数纳秒
func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var ns int64
	if err := json.Unmarshal(data, &ns); err != nil {
		return fmt.Errorf("duration %s: want a string like \"30s\" or integer nanoseconds", data)
	}
	*d = Duration(ns)
	return nil
}

// MarshalJSON 输出时长字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 转为 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// positive 校验字段为正数
func (d Duration) positive(field string) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, d)
	}
	return nil
}

// notAbove 校验字段不超过 limit，limitField 为 limit 对应的字段名
func (d Duration) notAbove(field string, limit Duration, limitField string) error {
	if d > limit {
		return fmt.Errorf("%s (%s) must not exceed %s (%s)", field, d, limitField, limit)
	}
	return nil
}
