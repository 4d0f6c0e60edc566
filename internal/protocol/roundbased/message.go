package roundbased

import (
	"github.com/dep2p/go-roundnet/pkg/types"
)

// RoundMessage 轮次协议消息
type RoundMessage interface {
	// Round 返回消息所属轮次
	Round() uint16
}

// Outgoing 待发送消息
type Outgoing[M RoundMessage] struct {
	Recipient types.Destination
	Msg       M
}

// Incoming 已接收消息
type Incoming[M RoundMessage] struct {
	// ID 发送方为该协议标签分配的编号
	ID uint64

	// Sender 发送方参与方索引
	Sender types.PartyIndex

	Type types.MessageType
	Msg  M
}
