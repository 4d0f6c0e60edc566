package types

import "time"

// ============================================================================
//                              Direction - 握手方向
// ============================================================================

// Direction 握手方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 对端发起
	DirInbound
	// DirOutbound 本端发起
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              HandshakeState - 握手状态
// ============================================================================

// HandshakeState 与单个对端的握手状态
//
//	NoHandshake → {InboundPending, OutboundPending} → {Verified, Failed}
type HandshakeState int

const (
	// HandshakeNone 尚未握手
	HandshakeNone HandshakeState = iota
	// HandshakeInboundPending 正在处理对端请求
	HandshakeInboundPending
	// HandshakeOutboundPending 已发出请求，等待响应
	HandshakeOutboundPending
	// HandshakeVerified 验证成功
	HandshakeVerified
	// HandshakeFailed 验证失败或超时
	HandshakeFailed
)

// String 返回状态的字符串表示
func (s HandshakeState) String() string {
	switch s {
	case HandshakeNone:
		return "none"
	case HandshakeInboundPending:
		return "inbound_pending"
	case HandshakeOutboundPending:
		return "outbound_pending"
	case HandshakeVerified:
		return "verified"
	case HandshakeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsPending 是否处于进行中状态
func (s HandshakeState) IsPending() bool {
	return s == HandshakeInboundPending || s == HandshakeOutboundPending
}

// PendingHandshake 进行中的握手
type PendingHandshake struct {
	Peer      PeerID
	StartedAt time.Time
	Direction Direction
	AttemptID string
}

// VerifiedPeerEntry 验证通过的对端
//
// 仅在签名验证成功后创建，会话期间保持。
type VerifiedPeerEntry struct {
	Peer       PeerID
	PublicKey  []byte
	VerifiedAt time.Time
}
