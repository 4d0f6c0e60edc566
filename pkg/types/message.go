package types

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
//                              MessageType - 消息类型
// ============================================================================

// MessageType 入站消息类型
type MessageType int

const (
	// MessageTypeBroadcast 广播消息（无指定接收方）
	MessageTypeBroadcast MessageType = iota
	// MessageTypeP2P 点对点消息
	MessageTypeP2P
)

// String 返回消息类型的字符串表示
func (t MessageType) String() string {
	switch t {
	case MessageTypeP2P:
		return "p2p"
	case MessageTypeBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              ProtocolMessage
// ============================================================================

// MessageRouting 路由信息
type MessageRouting struct {
	// MessageID 发送方按协议标签单调递增的编号
	MessageID uint64

	// RoundID 轮次号
	RoundID uint16

	// Sender 发送方
	Sender PeerID

	// Recipient 接收方，nil 表示广播
	Recipient *PeerID
}

// ProtocolMessage 协议消息
type ProtocolMessage struct {
	// ProtocolTag 形如 "<protocol>/<round>"
	ProtocolTag string

	// Routing 路由信息
	Routing MessageRouting

	// Payload 序列化后的协议载荷
	Payload []byte
}

// Type 根据是否存在接收方推导消息类型
func (m *ProtocolMessage) Type() MessageType {
	if m.Routing.Recipient != nil {
		return MessageTypeP2P
	}
	return MessageTypeBroadcast
}

// Protocol 返回协议名（标签最后一个 '/' 之前的部分）
func (m *ProtocolMessage) Protocol() string {
	protocol, _, err := SplitProtocolTag(m.ProtocolTag)
	if err != nil {
		return ""
	}
	return protocol
}

// ProtocolTag 由协议名与轮次号构造标签
func ProtocolTag(protocol string, round uint16) string {
	return protocol + "/" + strconv.FormatUint(uint64(round), 10)
}

// SplitProtocolTag 拆分协议标签
func SplitProtocolTag(tag string) (string, uint16, error) {
	i := strings.LastIndexByte(tag, '/')
	if i <= 0 || i == len(tag)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidProtocolTag, tag)
	}
	round, err := strconv.ParseUint(tag[i+1:], 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidProtocolTag, tag)
	}
	return tag[:i], uint16(round), nil
}

// ============================================================================
//                              Destination - 发送目标
// ============================================================================

// Destination 出站消息目标：全部参与方或单个参与方
type Destination struct {
	all   bool
	party PartyIndex
}

// AllParties 广播目标
func AllParties() Destination {
	return Destination{all: true}
}

// OneParty 单播目标
func OneParty(index PartyIndex) Destination {
	return Destination{party: index}
}

// IsBroadcast 是否为广播
func (d Destination) IsBroadcast() bool {
	return d.all
}

// Party 返回单播目标索引，广播时 ok 为 false
func (d Destination) Party() (PartyIndex, bool) {
	return d.party, !d.all
}

// String 返回目标的字符串表示
func (d Destination) String() string {
	if d.all {
		return "all"
	}
	return fmt.Sprintf("party(%d)", d.party)
}
