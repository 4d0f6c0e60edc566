package crypto

import (
	"crypto/subtle"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/minio/sha256-simd"
)

// Secp256k1 密钥常量
const (
	// Secp256k1PrivateKeySize 私钥大小（32 字节）
	Secp256k1PrivateKeySize = secp256k1.PrivKeyBytesLen
	// Secp256k1PublicKeySize 压缩公钥大小（33 字节）
	Secp256k1PublicKeySize = secp256k1.PubKeyBytesLenCompressed
)

// ============================================================================
//                              Secp256k1PublicKey
// ============================================================================

// Secp256k1PublicKey Secp256k1 公钥
type Secp256k1PublicKey struct {
	k *secp256k1.PublicKey
}

// Raw 返回压缩格式公钥（33 字节）
func (k *Secp256k1PublicKey) Raw() ([]byte, error) {
	return k.k.SerializeCompressed(), nil
}

// Type 返回密钥类型
func (k *Secp256k1PublicKey) Type() KeyType {
	return KeyTypeSecp256k1
}

// Equals 比较两个公钥是否相等
func (k *Secp256k1PublicKey) Equals(other Key) bool {
	sk, ok := other.(*Secp256k1PublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.IsEqual(sk.k)
}

// Verify 验证 DER 编码的 ECDSA 签名
//
// 签名对象是数据的 SHA-256 摘要。签名无法解析视为无效签名。
func (k *Secp256k1PublicKey) Verify(data, sig []byte) (bool, error) {
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, nil
	}
	digest := sha256.Sum256(data)
	return s.Verify(digest[:], k.k), nil
}

// ============================================================================
//                              Secp256k1PrivateKey
// ============================================================================

// Secp256k1PrivateKey Secp256k1 私钥
type Secp256k1PrivateKey struct {
	k *secp256k1.PrivateKey
}

// Raw 返回 32 字节私钥标量
func (k *Secp256k1PrivateKey) Raw() ([]byte, error) {
	return k.k.Serialize(), nil
}

// Type 返回密钥类型
func (k *Secp256k1PrivateKey) Type() KeyType {
	return KeyTypeSecp256k1
}

// Equals 常量时间比较
func (k *Secp256k1PrivateKey) Equals(other Key) bool {
	sk, ok := other.(*Secp256k1PrivateKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return subtle.ConstantTimeCompare(k.k.Serialize(), sk.k.Serialize()) == 1
}

// GetPublic 返回对应的公钥
func (k *Secp256k1PrivateKey) GetPublic() PublicKey {
	return &Secp256k1PublicKey{k: k.k.PubKey()}
}

// Sign 对数据的 SHA-256 摘要签名，返回 DER 编码
func (k *Secp256k1PrivateKey) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return ecdsa.Sign(k.k, digest[:]).Serialize(), nil
}

// ============================================================================
//                              工厂函数
// ============================================================================

// GenerateSecp256k1Key 生成新的 Secp256k1 密钥对
func GenerateSecp256k1Key() (PrivateKey, PublicKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, err
	}
	sk := &Secp256k1PrivateKey{k: priv}
	return sk, sk.GetPublic(), nil
}

// UnmarshalSecp256k1PublicKey 反序列化公钥，接受压缩或未压缩格式
func UnmarshalSecp256k1PublicKey(data []byte) (PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return &Secp256k1PublicKey{k: pub}, nil
}

// UnmarshalSecp256k1PrivateKey 从 32 字节反序列化私钥
func UnmarshalSecp256k1PrivateKey(data []byte) (PrivateKey, error) {
	if len(data) != Secp256k1PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, Secp256k1PrivateKeySize, len(data))
	}
	return &Secp256k1PrivateKey{k: secp256k1.PrivKeyFromBytes(data)}, nil
}
