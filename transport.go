package roundnet

import (
	"context"
	"net"

	"github.com/dep2p/go-roundnet/internal/core/transport/memory"
	"github.com/dep2p/go-roundnet/internal/core/transport/stream"
	pkgif "github.com/dep2p/go-roundnet/pkg/interfaces"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// TransportFactory 根据本地身份创建传输
//
// 需要认证链路的传输用 id 签名，其余只取 id.PeerID()。
type TransportFactory func(id pkgif.Signer) (pkgif.Transport, error)

// MemoryHub 进程内传输交换中心
type MemoryHub = memory.Hub

// NewMemoryHub 创建进程内交换中心
func NewMemoryHub() *MemoryHub {
	return memory.NewHub()
}

// MemoryTransport 返回挂到 hub 上的进程内传输
//
// 节点创建后需调用 hub.Connect 或 hub.ConnectAll 建立链路。
func MemoryTransport(hub *MemoryHub) TransportFactory {
	return func(id pkgif.Signer) (pkgif.Transport, error) {
		return hub.NewPeer(id.PeerID())
	}
}

// StreamTransport 返回 TCP 长连接传输，listenAddr 为空时不监听
func StreamTransport(listenAddr string) TransportFactory {
	return func(id pkgif.Signer) (pkgif.Transport, error) {
		t := stream.New(id, stream.DefaultConfig())
		if listenAddr == "" {
			return t, nil
		}
		if _, err := t.Listen(listenAddr); err != nil {
			_ = t.Close()
			return nil, err
		}
		return t, nil
	}
}

// dialer 支持按地址拨号的传输
type dialer interface {
	Dial(ctx context.Context, addr string) (types.PeerID, error)
}

// listener 可报告监听地址的传输
type listener interface {
	ListenAddrs() []net.Addr
}
