package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// HandshakeConfig 握手配置
type HandshakeConfig struct {
	// SessionID 会话标识，参与签名挑战，双方必须一致
	SessionID string `json:"session_id"`

	// Parties 会话参与方的序列化公钥（十六进制），顺序即参与方索引
	// 为空表示开放会话：任何持有合法签名的节点都可完成验证
	Parties []string `json:"parties,omitempty"`

	// Timeout 进行中握手的最长存活时间
	Timeout Duration `json:"timeout"`

	// SweepInterval 超时清理周期
	SweepInterval Duration `json:"sweep_interval"`

	// RequestRate 单个对端每秒允许的入站握手请求数
	RequestRate float64 `json:"request_rate"`

	// RequestBurst 入站握手请求突发上限
	RequestBurst int `json:"request_burst"`

	// AutoInitiate 连接建立后是否自动发起握手
	AutoInitiate bool `json:"auto_initiate"`
}

// DefaultHandshakeConfig 返回默认握手配置
func DefaultHandshakeConfig() HandshakeConfig {
	return HandshakeConfig{
		SessionID:     "roundnet-default",
		Timeout:       Duration(30 * time.Second),
		SweepInterval: Duration(5 * time.Second),
		RequestRate:   5,
		RequestBurst:  10,
		AutoInitiate:  true,
	}
}

// Validate 验证握手配置
func (c HandshakeConfig) Validate() error {
	if c.SessionID == "" {
		return errors.New("session_id must not be empty")
	}
	if err := c.Timeout.positive("timeout"); err != nil {
		return err
	}
	if err := c.SweepInterval.positive("sweep_interval"); err != nil {
		return err
	}
	// 超时握手最迟在一个清理周期后被回收
	if err := c.SweepInterval.notAbove("sweep_interval", c.Timeout, "timeout"); err != nil {
		return err
	}
	if c.RequestRate <= 0 || c.RequestBurst <= 0 {
		return errors.New("request_rate and request_burst must be positive")
	}
	if _, err := c.PartyKeys(); err != nil {
		return err
	}
	return nil
}

// PartyKeys 解码参与方公钥
func (c HandshakeConfig) PartyKeys() ([][]byte, error) {
	keys := make([][]byte, 0, len(c.Parties))
	for i, p := range c.Parties {
		k, err := hex.DecodeString(p)
		if err != nil || len(k) == 0 {
			return nil, fmt.Errorf("party %d: invalid hex public key", i)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// WithSessionID 设置会话标识
func (c HandshakeConfig) WithSessionID(id string) HandshakeConfig {
	c.SessionID = id
	return c
}

// WithParties 设置会话参与方（序列化公钥）
func (c HandshakeConfig) WithParties(keys ...[]byte) HandshakeConfig {
	c.Parties = make([]string, len(keys))
	for i, k := range keys {
		c.Parties[i] = hex.EncodeToString(k)
	}
	return c
}

// WithTimeout 设置握手超时，清理周期超过新超时时随之缩短
func (c HandshakeConfig) WithTimeout(d time.Duration) HandshakeConfig {
	c.Timeout = Duration(d)
	if c.SweepInterval > c.Timeout {
		c.SweepInterval = c.Timeout
	}
	return c
}
