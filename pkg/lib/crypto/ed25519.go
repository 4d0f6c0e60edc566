package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"
	"io"
)

// Ed25519SeedSize 私钥种子长度
const Ed25519SeedSize = ed25519.SeedSize

// Ed25519PublicKey Ed25519 公钥，握手、链路 hello 与 gossip 作者签名默认使用
type Ed25519PublicKey ed25519.PublicKey

// Ed25519PrivateKey Ed25519 私钥（种子 + 公钥，共 64 字节）
type Ed25519PrivateKey ed25519.PrivateKey

var (
	_ PublicKey  = Ed25519PublicKey(nil)
	_ PrivateKey = Ed25519PrivateKey(nil)
)

// GenerateEd25519Key 生成新的 Ed25519 密钥对，src 为 nil 时使用系统随机源
func GenerateEd25519Key(src io.Reader) (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(src)
	if err != nil {
		return nil, nil, err
	}
	return Ed25519PrivateKey(priv), Ed25519PublicKey(pub), nil
}

// UnmarshalEd25519PublicKey 解析 32 字节公钥
//
// 全零公钥不对应任何私钥，直接拒绝。
func UnmarshalEd25519PublicKey(data []byte) (PublicKey, error) {
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key is %d bytes, got %d", ErrInvalidKeySize, ed25519.PublicKeySize, len(data))
	}
	if isZero(data) {
		return nil, fmt.Errorf("%w: all-zero ed25519 key", ErrInvalidPublicKey)
	}
	return Ed25519PublicKey(bytes.Clone(data)), nil
}

// UnmarshalEd25519PrivateKey 解析 32 字节种子或 64 字节完整私钥
//
// 完整私钥的后半部分必须是由种子派生的公钥，否则签名会以错误身份发出。
func UnmarshalEd25519PrivateKey(data []byte) (PrivateKey, error) {
	switch len(data) {
	case ed25519.SeedSize:
		return Ed25519PrivateKey(ed25519.NewKeyFromSeed(data)), nil
	case ed25519.PrivateKeySize:
		priv := ed25519.NewKeyFromSeed(data[:ed25519.SeedSize])
		if subtle.ConstantTimeCompare(priv[ed25519.SeedSize:], data[ed25519.SeedSize:]) != 1 {
			return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidPrivateKey)
		}
		return Ed25519PrivateKey(priv), nil
	default:
		return nil, fmt.Errorf("%w: ed25519 private key is %d or %d bytes, got %d",
			ErrInvalidKeySize, ed25519.SeedSize, ed25519.PrivateKeySize, len(data))
	}
}

// ============================================================================
//                              公钥
// ============================================================================

func (k Ed25519PublicKey) Type() KeyType { return KeyTypeEd25519 }

func (k Ed25519PublicKey) Raw() ([]byte, error) { return bytes.Clone(k), nil }

func (k Ed25519PublicKey) Equals(other Key) bool {
	if o, ok := other.(Ed25519PublicKey); ok {
		return subtle.ConstantTimeCompare(k, o) == 1
	}
	return KeyEqual(k, other)
}

// Verify 验证签名，签名长度不对时返回 false 而非错误
func (k Ed25519PublicKey) Verify(data, sig []byte) (bool, error) {
	if len(k) != ed25519.PublicKeySize {
		return false, ErrInvalidPublicKey
	}
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(k), data, sig), nil
}

// ============================================================================
//                              私钥
// ============================================================================

func (k Ed25519PrivateKey) Type() KeyType { return KeyTypeEd25519 }

func (k Ed25519PrivateKey) Raw() ([]byte, error) { return bytes.Clone(k), nil }

func (k Ed25519PrivateKey) Equals(other Key) bool {
	if o, ok := other.(Ed25519PrivateKey); ok {
		return subtle.ConstantTimeCompare(k, o) == 1
	}
	return KeyEqual(k, other)
}

// GetPublic 返回私钥内嵌的公钥
func (k Ed25519PrivateKey) GetPublic() PublicKey {
	return Ed25519PublicKey(bytes.Clone(k[ed25519.SeedSize:]))
}

// Sign 签名，结果是确定性的：同一私钥对同一数据总是得到相同签名
func (k Ed25519PrivateKey) Sign(data []byte) ([]byte, error) {
	if len(k) != ed25519.PrivateKeySize {
		return nil, ErrInvalidPrivateKey
	}
	return ed25519.Sign(ed25519.PrivateKey(k), data), nil
}

func isZero(b []byte) bool {
	var acc byte
	for _, c := range b {
		acc |= c
	}
	return acc == 0
}
