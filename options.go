package roundnet

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-roundnet/config"
	"github.com/dep2p/go-roundnet/internal/core/handshake"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config    *config.Config
	identity  *Identity
	transport TransportFactory

	clock      clock.Clock
	tieBreaker handshake.TieBreaker
	registerer prometheus.Registerer

	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置，后续选项在其基础上修改
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return config.ErrNilConfig
		}
		c := *cfg
		o.config = &c
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithIdentity 使用已有身份，优先于配置中的密钥
func WithIdentity(id *Identity) Option {
	return func(o *options) error {
		if id == nil {
			return errors.New("identity is nil")
		}
		o.identity = id
		return nil
	}
}

// WithSessionID 设置会话标识
func WithSessionID(id string) Option {
	return func(o *options) error {
		o.config.Handshake = o.config.Handshake.WithSessionID(id)
		return nil
	}
}

// WithParties 设置会话参与方公钥，顺序即参与方索引
func WithParties(pubKeys ...[]byte) Option {
	return func(o *options) error {
		o.config.Handshake = o.config.Handshake.WithParties(pubKeys...)
		return nil
	}
}

// WithHandshakeTimeout 设置握手超时
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.config.Handshake = o.config.Handshake.WithTimeout(d)
		return nil
	}
}

// WithAutoInitiate 设置连接建立后是否自动握手
func WithAutoInitiate(enabled bool) Option {
	return func(o *options) error {
		o.config.Handshake.AutoInitiate = enabled
		return nil
	}
}

// WithRegossip 设置是否转发首次见到的 gossip 帧
func WithRegossip(enabled bool) Option {
	return func(o *options) error {
		o.config.Host.Regossip = enabled
		return nil
	}
}

// WithDedup 设置去重缓存容量与 TTL
func WithDedup(capacity int, ttl time.Duration) Option {
	return func(o *options) error {
		o.config.Dedup.Capacity = capacity
		o.config.Dedup.TTL = config.Duration(ttl)
		return nil
	}
}

// WithLoopbackBroadcast 设置适配器广播是否回环到本地
func WithLoopbackBroadcast(enabled bool) Option {
	return func(o *options) error {
		o.config.Adapter.LoopbackBroadcast = enabled
		return nil
	}
}

// WithLogLevel 设置日志级别
func WithLogLevel(level string) Option {
	return func(o *options) error {
		o.config.Log = o.config.Log.WithLevel(level)
		o.config.Log.Setup = true
		return nil
	}
}

// WithTransport 使用自定义传输
func WithTransport(f TransportFactory) Option {
	return func(o *options) error {
		if f == nil {
			return ErrNoTransport
		}
		o.transport = f
		return nil
	}
}

// WithMemoryTransport 使用进程内传输
func WithMemoryTransport(hub *MemoryHub) Option {
	return func(o *options) error {
		if hub == nil {
			return errors.New("memory hub is nil")
		}
		o.transport = MemoryTransport(hub)
		return nil
	}
}

// WithStreamTransport 使用 TCP 传输并在 listenAddr 监听
func WithStreamTransport(listenAddr string) Option {
	return func(o *options) error {
		o.transport = StreamTransport(listenAddr)
		return nil
	}
}

// WithClock 注入时钟，测试使用
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithTieBreaker 替换同时握手的让步规则
func WithTieBreaker(tb handshake.TieBreaker) Option {
	return func(o *options) error {
		o.tieBreaker = tb
		return nil
	}
}

// WithMetricsRegisterer 把指标注册到外部 Registerer
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
