package roundnet

import (
	"github.com/dep2p/go-roundnet/internal/protocol/roundbased"
)

// NewAdapter 在节点上创建轮次协议适配器
//
// 本节点必须是会话参与方，节点需已启动。codec 为 nil 时使用 JSON。
func NewAdapter[M roundbased.RoundMessage](n *Node, protocol string, codec roundbased.Codec[M], opts ...roundbased.Option) (*roundbased.Adapter[M], error) {
	if n.State() != StateRunning {
		return nil, ErrNotStarted
	}
	self, ok := n.PartyIndex()
	if !ok {
		return nil, ErrNotParty
	}
	all := append(roundbased.ConfigFromUnified(n.config), opts...)
	return roundbased.New[M](n.host, n.registry, protocol, self, codec, all...)
}
