package config

import (
	"encoding/hex"
	"errors"
	"strings"
)

// IdentityConfig 身份配置
type IdentityConfig struct {
	// KeyType 密钥类型，可选 "ed25519"（默认）、"secp256k1"
	KeyType string `json:"key_type"`

	// PrivateKeyHex 十六进制编码的原始私钥，优先于 KeyFile
	PrivateKeyHex string `json:"private_key_hex,omitempty"`

	// KeyFile 密钥文件路径，文件内容为十六进制原始私钥
	// 为空时在内存中生成临时密钥
	KeyFile string `json:"key_file,omitempty"`

	// AutoGenerate 密钥文件不存在时是否生成并写入
	AutoGenerate bool `json:"auto_generate"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		KeyType:      "ed25519",
		AutoGenerate: true,
	}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	switch strings.ToLower(c.KeyType) {
	case "", "ed25519", "secp256k1":
	default:
		return errors.New("invalid key type: must be ed25519 or secp256k1")
	}
	if c.PrivateKeyHex != "" {
		if _, err := hex.DecodeString(c.PrivateKeyHex); err != nil {
			return errors.New("private_key_hex is not valid hex")
		}
	}
	return nil
}

// WithKeyType 设置密钥类型
func (c IdentityConfig) WithKeyType(keyType string) IdentityConfig {
	c.KeyType = keyType
	return c
}

// WithKeyFile 设置密钥文件路径
func (c IdentityConfig) WithKeyFile(path string) IdentityConfig {
	c.KeyFile = path
	return c
}

// WithPrivateKeyHex 直接指定私钥
func (c IdentityConfig) WithPrivateKeyHex(key string) IdentityConfig {
	c.PrivateKeyHex = key
	return c
}
