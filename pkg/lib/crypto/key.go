// Package crypto 提供 roundnet 密码学工具
//
// 握手只依赖两个原语：Sign(challenge) 与 Verify(pubkey, challenge, sig)。
// 公钥以 [Type(1)][Length(4)][Data(n)] 格式序列化，序列化结果即握手中
// 传递的长期公钥，也是 PeerID 的派生输入。
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
)

// ============================================================================
//                              密钥类型定义
// ============================================================================

// KeyType 密钥类型
type KeyType int

const (
	// KeyTypeUnspecified 未指定密钥类型
	KeyTypeUnspecified KeyType = 0
	// KeyTypeEd25519 Ed25519 密钥（默认推荐）
	KeyTypeEd25519 KeyType = 2
	// KeyTypeSecp256k1 Secp256k1 密钥（区块链兼容）
	KeyTypeSecp256k1 KeyType = 3
)

// String 返回密钥类型名称
func (kt KeyType) String() string {
	switch kt {
	case KeyTypeEd25519:
		return "Ed25519"
	case KeyTypeSecp256k1:
		return "Secp256k1"
	case KeyTypeUnspecified:
		return "Unspecified"
	default:
		return "Unknown"
	}
}

// ParseKeyType 从配置字符串解析密钥类型
func ParseKeyType(s string) (KeyType, error) {
	switch s {
	case "", "ed25519", "Ed25519":
		return KeyTypeEd25519, nil
	case "secp256k1", "Secp256k1":
		return KeyTypeSecp256k1, nil
	default:
		return KeyTypeUnspecified, fmt.Errorf("%w: %q", ErrBadKeyType, s)
	}
}

// ============================================================================
//                              密钥接口定义
// ============================================================================

// Key 基础密钥接口
type Key interface {
	// Raw 返回原始密钥字节
	Raw() ([]byte, error)

	// Type 返回密钥类型
	Type() KeyType

	// Equals 比较两个密钥是否相等
	Equals(Key) bool
}

// PublicKey 公钥接口
type PublicKey interface {
	Key

	// Verify 使用此公钥验证签名
	Verify(data, sig []byte) (bool, error)
}

// PrivateKey 私钥接口
type PrivateKey interface {
	Key

	// Sign 使用此私钥签名数据
	Sign(data []byte) ([]byte, error)

	// GetPublic 返回对应的公钥
	GetPublic() PublicKey
}

// KeyEqual 通过比较类型和原始字节判断两个密钥是否相等
func KeyEqual(a, b Key) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}
	ra, err := a.Raw()
	if err != nil {
		return false
	}
	rb, err := b.Raw()
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(ra, rb) == 1
}

// ============================================================================
//                              密钥工厂函数
// ============================================================================

// GenerateKeyPair 生成密钥对
func GenerateKeyPair(keyType KeyType) (PrivateKey, PublicKey, error) {
	return GenerateKeyPairWithReader(keyType, rand.Reader)
}

// GenerateKeyPairWithReader 使用指定的随机源生成密钥对
//
// Secp256k1 总是使用系统随机源，reader 仅对 Ed25519 生效。
func GenerateKeyPairWithReader(keyType KeyType, reader io.Reader) (PrivateKey, PublicKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return GenerateEd25519Key(reader)
	case KeyTypeSecp256k1:
		return GenerateSecp256k1Key()
	default:
		return nil, nil, ErrBadKeyType
	}
}

// UnmarshalPublicKey 从原始字节反序列化公钥
func UnmarshalPublicKey(keyType KeyType, data []byte) (PublicKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return UnmarshalEd25519PublicKey(data)
	case KeyTypeSecp256k1:
		return UnmarshalSecp256k1PublicKey(data)
	default:
		return nil, ErrBadKeyType
	}
}

// UnmarshalPrivateKey 从原始字节反序列化私钥
func UnmarshalPrivateKey(keyType KeyType, data []byte) (PrivateKey, error) {
	switch keyType {
	case KeyTypeEd25519:
		return UnmarshalEd25519PrivateKey(data)
	case KeyTypeSecp256k1:
		return UnmarshalSecp256k1PrivateKey(data)
	default:
		return nil, ErrBadKeyType
	}
}

// ============================================================================
//                              序列化
// ============================================================================

// 序列化头大小：1 字节类型 + 4 字节长度
const marshalHeaderSize = 5

// MarshalPublicKey 序列化公钥
//
// 返回格式：[Type(1)] [Length(4)] [Data(n)]
func MarshalPublicKey(key PublicKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPublicKey
	}

	raw, err := key.Raw()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMarshalFailed, err)
	}

	buf := make([]byte, marshalHeaderSize+len(raw))
	buf[0] = byte(key.Type())
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(raw)))
	copy(buf[5:], raw)
	return buf, nil
}

// UnmarshalPublicKeyBytes 从序列化字节反序列化公钥
func UnmarshalPublicKeyBytes(data []byte) (PublicKey, error) {
	if len(data) < marshalHeaderSize {
		return nil, fmt.Errorf("%w: data too short", ErrUnmarshalFailed)
	}

	keyType := KeyType(data[0])
	length := binary.BigEndian.Uint32(data[1:5])
	if len(data) != marshalHeaderSize+int(length) {
		return nil, fmt.Errorf("%w: data length mismatch", ErrUnmarshalFailed)
	}

	return UnmarshalPublicKey(keyType, data[5:])
}

// ============================================================================
//                              签名原语
// ============================================================================

// Sign 使用私钥对挑战签名
func Sign(key PrivateKey, challenge []byte) ([]byte, error) {
	if key == nil {
		return nil, ErrNilPrivateKey
	}
	return key.Sign(challenge)
}

// Verify 使用序列化公钥验证挑战签名
//
// 公钥无法解析时返回错误；签名不匹配返回 (false, nil)。
func Verify(pubKey, challenge, sig []byte) (bool, error) {
	if len(sig) == 0 {
		return false, ErrNilSignature
	}
	pk, err := UnmarshalPublicKeyBytes(pubKey)
	if err != nil {
		return false, err
	}
	return pk.Verify(challenge, sig)
}

// StdVerifier 基于本包 Verify 的验证器
type StdVerifier struct{}

// Verify 使用序列化公钥验证挑战签名
func (StdVerifier) Verify(pubKey, challenge, sig []byte) (bool, error) {
	return Verify(pubKey, challenge, sig)
}
