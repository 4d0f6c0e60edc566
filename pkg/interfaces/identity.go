package interfaces

import "github.com/dep2p/go-roundnet/pkg/types"

// Signer 本地签名原语
type Signer interface {
	// PeerID 返回本地节点 ID（由公钥派生）
	PeerID() types.PeerID

	// PublicKey 返回序列化公钥
	PublicKey() []byte

	// Sign 对挑战签名
	Sign(challenge []byte) ([]byte, error)
}

// Verifier 签名验证原语
type Verifier interface {
	// Verify 使用序列化公钥验证挑战签名
	//
	// 公钥无法解析时返回错误；签名不匹配返回 (false, nil)。
	Verify(pubKey, challenge, sig []byte) (bool, error)
}
