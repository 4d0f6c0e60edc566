package interfaces

import (
	"context"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// Network 主机向轮次适配器暴露的网络能力
//
// 入站消息在到达 Inbox 之前已经过握手校验与去重。
type Network interface {
	// LocalPeer 返回本地节点 ID
	LocalPeer() types.PeerID

	// SendDirect 单播协议消息
	SendDirect(ctx context.Context, to types.PeerID, msg *types.ProtocolMessage) error

	// Broadcast 通过主题广播协议消息
	Broadcast(ctx context.Context, msg *types.ProtocolMessage) error

	// Inbox 返回协议的入站队列，不存在时创建
	Inbox(protocol string) Inbox
}

// Inbox 单个协议的入站消息队列
type Inbox interface {
	// Next 阻塞等待下一条消息
	//
	// 关闭后返回 types.ErrTransportClosed。
	Next(ctx context.Context) (*types.ProtocolMessage, error)
}

// PeerResolver 参与方索引与节点 ID 之间的双向解析
type PeerResolver interface {
	// IndexOf 返回节点的参与方索引
	IndexOf(peer types.PeerID) (types.PartyIndex, bool)

	// PeerOf 返回参与方索引对应的节点
	PeerOf(index types.PartyIndex) (types.PeerID, bool)
}
