package config

import "errors"

// HostConfig 主机配置
type HostConfig struct {
	// Topic gossip 广播主题
	Topic string `json:"topic"`

	// InboxCapacity 每个协议入站队列的容量，满时丢弃最旧消息
	InboxCapacity int `json:"inbox_capacity"`

	// Regossip 是否转发首次见到的 gossip 帧
	Regossip bool `json:"regossip"`
}

// DefaultHostConfig 返回默认主机配置
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Topic:         "roundnet/gossip",
		InboxCapacity: 4096,
	}
}

// Validate 验证主机配置
func (c HostConfig) Validate() error {
	if c.Topic == "" {
		return errors.New("topic must not be empty")
	}
	if c.InboxCapacity <= 0 {
		return errors.New("inbox_capacity must be positive")
	}
	return nil
}
