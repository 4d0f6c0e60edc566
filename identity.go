package roundnet

import (
	"github.com/dep2p/go-roundnet/internal/core/identity"
	"github.com/dep2p/go-roundnet/pkg/lib/crypto"
)

// Identity 节点身份
type Identity = identity.Identity

// NewIdentity 生成新身份，keyType 为 "ed25519"（默认）或 "secp256k1"
func NewIdentity(keyType string) (*Identity, error) {
	kt, err := crypto.ParseKeyType(keyType)
	if err != nil {
		return nil, err
	}
	return identity.Generate(kt)
}

// IdentityFromHex 从十六进制原始私钥恢复身份
func IdentityFromHex(keyType, privHex string) (*Identity, error) {
	kt, err := crypto.ParseKeyType(keyType)
	if err != nil {
		return nil, err
	}
	return identity.FromHex(kt, privHex)
}
