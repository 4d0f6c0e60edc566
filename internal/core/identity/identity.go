// Package identity 管理本地节点身份
//
// Identity 持有长期私钥，导出序列化公钥与由其派生的 PeerID，
// 并作为握手的签名原语。
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
	"github.com/dep2p/go-roundnet/pkg/types"
)

// Identity 本地身份
type Identity struct {
	priv   crypto.PrivateKey
	pubKey []byte
	id     types.PeerID
}

// New 从私钥创建身份
func New(priv crypto.PrivateKey) (*Identity, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	pub, err := crypto.MarshalPublicKey(priv.GetPublic())
	if err != nil {
		return nil, err
	}
	return &Identity{
		priv:   priv,
		pubKey: pub,
		id:     types.PeerIDFromPublicKey(pub),
	}, nil
}

// Generate 生成新身份
func Generate(keyType crypto.KeyType) (*Identity, error) {
	priv, _, err := crypto.GenerateKeyPairWithReader(keyType, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate %s key: %w", keyType, err)
	}
	return New(priv)
}

// FromHex 从十六进制原始私钥创建身份
func FromHex(keyType crypto.KeyType, s string) (*Identity, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	priv, err := crypto.UnmarshalPrivateKey(keyType, raw)
	if err != nil {
		return nil, err
	}
	return New(priv)
}

// PeerID 返回本地节点 ID
func (i *Identity) PeerID() types.PeerID {
	return i.id
}

// PublicKey 返回序列化公钥副本
func (i *Identity) PublicKey() []byte {
	return append([]byte(nil), i.pubKey...)
}

// PeerIdentity 返回本地节点身份
func (i *Identity) PeerIdentity() types.PeerIdentity {
	return types.PeerIdentity{ID: i.id, PublicKey: i.PublicKey()}
}

// PrivateKey 返回私钥
func (i *Identity) PrivateKey() crypto.PrivateKey {
	return i.priv
}

// KeyType 返回密钥类型
func (i *Identity) KeyType() crypto.KeyType {
	return i.priv.Type()
}

// Sign 对挑战签名
func (i *Identity) Sign(challenge []byte) ([]byte, error) {
	return crypto.Sign(i.priv, challenge)
}

// EncodeHex 返回十六进制原始私钥
func (i *Identity) EncodeHex() (string, error) {
	raw, err := i.priv.Raw()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
