package registry

import "errors"

var (
	// ErrEmptyPublicKey 公钥为空
	ErrEmptyPublicKey = errors.New("registry: empty public key")

	// ErrEmptyPeerID 节点 ID 为空
	ErrEmptyPeerID = errors.New("registry: empty peer ID")

	// ErrDuplicateParty 参与方列表中存在重复公钥
	ErrDuplicateParty = errors.New("registry: duplicate party public key")

	// ErrTooManyParties 参与方数量超出索引范围
	ErrTooManyParties = errors.New("registry: too many parties")

	// ErrNotBound 节点尚未绑定公钥
	ErrNotBound = errors.New("registry: peer has no bound public key")

	// ErrNotAllowed 公钥不在会话参与方列表中
	ErrNotAllowed = errors.New("registry: public key is not a session party")
)
