package interfaces

import (
	"context"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// Transport 底层网络传输
//
// 提供两条相互独立的通道：请求-响应单播通道（握手信封与点对点协议消息）
// 以及主题广播通道。连接生命周期由传输自身管理，只以事件形式上报。
type Transport interface {
	// LocalPeer 返回本地节点 ID
	LocalPeer() types.PeerID

	// Send 通过单播通道向对端发送数据
	Send(ctx context.Context, to types.PeerID, data []byte) error

	// Publish 向主题广播数据
	Publish(ctx context.Context, topic string, data []byte) error

	// Subscribe 订阅主题
	Subscribe(topic string) error

	// Next 阻塞等待下一个入站事件
	//
	// 传输关闭后返回 types.ErrTransportClosed。
	Next(ctx context.Context) (types.TransportEvent, error)

	// Peers 返回当前已连接的对端
	Peers() []types.PeerID

	// Close 关闭传输
	Close() error
}
