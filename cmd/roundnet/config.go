package main

import (
	"os"
	"strings"

	"github.com/dep2p/go-roundnet/config"
)

// 环境变量（均使用 ROUNDNET_ 前缀）
const (
	envPrefix   = "ROUNDNET_"
	envSession  = "SESSION_ID"
	envKeyFile  = "IDENTITY_KEY_FILE"
	envParties  = "PARTIES"
	envLogLevel = "LOG_LEVEL"
)

// loadConfig 加载配置文件，路径为空时使用默认配置
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.LoadFile(path)
}

// applyEnvOverrides 应用环境变量覆盖
//
// 环境变量优先级高于配置文件，低于命令行参数。
//   - ROUNDNET_SESSION_ID: 会话标识
//   - ROUNDNET_IDENTITY_KEY_FILE: 身份密钥文件
//   - ROUNDNET_PARTIES: 参与方公钥（十六进制，逗号分隔）
//   - ROUNDNET_LOG_LEVEL: 日志级别
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(envPrefix + envSession); v != "" {
		cfg.Handshake = cfg.Handshake.WithSessionID(v)
	}
	if v := os.Getenv(envPrefix + envKeyFile); v != "" {
		cfg.Identity = cfg.Identity.WithKeyFile(v)
	}
	if v := os.Getenv(envPrefix + envParties); v != "" {
		cfg.Handshake.Parties = splitList(v)
	}
	if v := os.Getenv(envPrefix + envLogLevel); v != "" {
		cfg.Log = cfg.Log.WithLevel(strings.ToLower(v))
		cfg.Log.Setup = true
	}
}
