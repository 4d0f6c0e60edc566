package mocks

import (
	"github.com/dep2p/go-roundnet/pkg/types"
)

// MockSigner 模拟 Signer 接口实现
type MockSigner struct {
	PeerIDValue types.PeerID
	PubKeyValue []byte

	// 可覆盖的方法
	SignFunc func(challenge []byte) ([]byte, error)

	// 调用记录
	SignCalls int
}

// NewMockSigner 创建带有默认值的 MockSigner，节点 ID 由公钥派生
func NewMockSigner(pubKey []byte) *MockSigner {
	return &MockSigner{
		PeerIDValue: types.PeerIDFromPublicKey(pubKey),
		PubKeyValue: pubKey,
	}
}

// PeerID 返回节点 ID
func (m *MockSigner) PeerID() types.PeerID {
	return m.PeerIDValue
}

// PublicKey 返回公钥
func (m *MockSigner) PublicKey() []byte {
	return m.PubKeyValue
}

// Sign 签名挑战
func (m *MockSigner) Sign(challenge []byte) ([]byte, error) {
	m.SignCalls++
	if m.SignFunc != nil {
		return m.SignFunc(challenge)
	}
	return []byte("mock-signature"), nil
}

// MockVerifier 模拟 Verifier 接口实现
type MockVerifier struct {
	// 可覆盖的方法
	VerifyFunc func(pubKey, challenge, sig []byte) (bool, error)

	// 调用记录
	VerifyCalls int
}

// Verify 验证签名，默认全部通过
func (m *MockVerifier) Verify(pubKey, challenge, sig []byte) (bool, error) {
	m.VerifyCalls++
	if m.VerifyFunc != nil {
		return m.VerifyFunc(pubKey, challenge, sig)
	}
	return true, nil
}
