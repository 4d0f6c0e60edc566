package types

import (
	"bytes"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerID 节点唯一标识符
//
// 由序列化公钥的 SHA-256 派生，外部表示为 Base58。
type PeerID [32]byte

// EmptyPeerID 空节点 ID
var EmptyPeerID PeerID

// PeerIDFromPublicKey 由序列化公钥派生 PeerID
func PeerIDFromPublicKey(pubKey []byte) PeerID {
	return PeerID(sha256.Sum256(pubKey))
}

// PeerIDFromBytes 从 32 字节创建 PeerID
func PeerIDFromBytes(b []byte) (PeerID, error) {
	if len(b) != len(EmptyPeerID) {
		return EmptyPeerID, ErrInvalidPeerID
	}
	var id PeerID
	copy(id[:], b)
	return id, nil
}

// ParsePeerID 从 Base58 字符串解析 PeerID
func ParsePeerID(s string) (PeerID, error) {
	if s == "" {
		return EmptyPeerID, ErrEmptyPeerID
	}
	b, err := base58.Decode(s)
	if err != nil {
		return EmptyPeerID, ErrInvalidPeerID
	}
	return PeerIDFromBytes(b)
}

// String 返回 Base58 表示
func (id PeerID) String() string {
	if id.IsEmpty() {
		return ""
	}
	return base58.Encode(id[:])
}

// ShortString 返回 Base58 前 8 个字符，用于日志
func (id PeerID) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回字节切片
func (id PeerID) Bytes() []byte {
	return id[:]
}

// IsEmpty 检查是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// Compare 字节序比较，返回 -1、0 或 1
func (id PeerID) Compare(other PeerID) int {
	return bytes.Compare(id[:], other[:])
}

// MatchesPublicKey 检查 PeerID 是否由给定公钥派生
func (id PeerID) MatchesPublicKey(pubKey []byte) bool {
	return len(pubKey) > 0 && id == PeerIDFromPublicKey(pubKey)
}

// ============================================================================
//                              PeerIdentity - 节点身份
// ============================================================================

// PeerIdentity 传输层地址加长期公钥
type PeerIdentity struct {
	// ID 传输层地址
	ID PeerID

	// PublicKey 序列化公钥（算法无关）
	PublicKey []byte
}

// NewPeerIdentity 由序列化公钥构造身份
func NewPeerIdentity(pubKey []byte) PeerIdentity {
	pk := make([]byte, len(pubKey))
	copy(pk, pubKey)
	return PeerIdentity{ID: PeerIDFromPublicKey(pk), PublicKey: pk}
}

// Equal 比较两个身份
func (p PeerIdentity) Equal(other PeerIdentity) bool {
	return p.ID == other.ID && bytes.Equal(p.PublicKey, other.PublicKey)
}

// String 返回 PeerID 的字符串表示
func (p PeerIdentity) String() string {
	return p.ID.String()
}

// ============================================================================
//                              PartyIndex - 参与方索引
// ============================================================================

// PartyIndex 一次协议会话中参与方的 0 起始编号
type PartyIndex uint16
