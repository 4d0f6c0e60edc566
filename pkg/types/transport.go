package types

// ============================================================================
//                              传输事件
// ============================================================================

// EventKind 传输事件类型
type EventKind int

const (
	// EventFrame 收到数据帧
	EventFrame EventKind = iota
	// EventConnected 对端已连接
	EventConnected
	// EventDisconnected 对端已断开
	EventDisconnected
)

// String 返回事件类型的字符串表示
func (k EventKind) String() string {
	switch k {
	case EventFrame:
		return "frame"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Channel 数据帧所在通道
type Channel int

const (
	// ChannelDirect 请求-响应单播通道（握手与点对点协议消息）
	ChannelDirect Channel = iota
	// ChannelGossip 主题广播通道
	ChannelGossip
)

// String 返回通道的字符串表示
func (c Channel) String() string {
	switch c {
	case ChannelDirect:
		return "direct"
	case ChannelGossip:
		return "gossip"
	default:
		return "unknown"
	}
}

// TransportEvent 传输层入站事件
type TransportEvent struct {
	Kind EventKind

	// From 直接来源（gossip 时为传播源，不一定是原始发送方）
	From PeerID

	Channel Channel

	// Topic 仅 gossip 帧有效
	Topic string

	Data []byte
}
