package types

import "errors"

// ============================================================================
//                              ID 相关错误
// ============================================================================

var (
	// ErrEmptyPeerID 空节点 ID
	ErrEmptyPeerID = errors.New("empty peer ID")

	// ErrInvalidPeerID 无效的节点 ID
	ErrInvalidPeerID = errors.New("invalid peer ID: must be Base58 of 32 bytes")
)

// ============================================================================
//                              消息相关错误
// ============================================================================

var (
	// ErrInvalidProtocolTag 协议标签格式错误（应为 "<protocol>/<round>"）
	ErrInvalidProtocolTag = errors.New("invalid protocol tag")

	// ErrTransportClosed 传输或收件箱已关闭
	ErrTransportClosed = errors.New("transport closed")
)
