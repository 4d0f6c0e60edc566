package host

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-roundnet/internal/core/dedup"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
	"github.com/dep2p/go-roundnet/internal/core/registry"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
)

// Option Host 构造选项类型
type Option func(*Host) error

// WithTransport 设置传输
func WithTransport(t pkgif.Transport) Option {
	return func(h *Host) error {
		h.transport = t
		return nil
	}
}

// WithSigner 设置本地签名身份
func WithSigner(s pkgif.Signer) Option {
	return func(h *Host) error {
		h.signer = s
		return nil
	}
}

// WithVerifier 设置 gossip 作者签名验证器，默认 crypto.StdVerifier
func WithVerifier(v pkgif.Verifier) Option {
	return func(h *Host) error {
		h.verifier = v
		return nil
	}
}

// WithRegistry 设置身份注册表
func WithRegistry(r *registry.Registry) Option {
	return func(h *Host) error {
		h.registry = r
		return nil
	}
}

// WithCoordinator 设置握手协调器
func WithCoordinator(c *handshake.Coordinator) Option {
	return func(h *Host) error {
		h.coordinator = c
		return nil
	}
}

// WithDedup 设置 gossip 去重管理器
func WithDedup(m *dedup.Manager) Option {
	return func(h *Host) error {
		h.dedup = m
		return nil
	}
}

// WithConfig 设置配置
func WithConfig(cfg Config) Option {
	return func(h *Host) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		h.cfg = cfg
		return nil
	}
}

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(h *Host) error {
		h.clock = c
		return nil
	}
}
