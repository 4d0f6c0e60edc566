package handshake

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// 握手失败类型
var (
	// ErrInvalidSignature 签名验证失败
	ErrInvalidSignature = errors.New("handshake: invalid signature")

	// ErrUnknownPublicKey 公钥无法解析或不在会话参与方中
	ErrUnknownPublicKey = errors.New("handshake: unknown public key")

	// ErrTimeout 握手超时
	ErrTimeout = errors.New("handshake: timeout")
)

// 其他错误
var (
	// ErrIdentityMismatch 节点 ID 不是由所声明公钥派生
	ErrIdentityMismatch = errors.New("handshake: peer ID does not match public key")

	// ErrRejected 对端返回错误响应
	ErrRejected = errors.New("handshake: rejected by remote")

	// ErrRateLimited 入站握手请求过于频繁
	ErrRateLimited = errors.New("handshake: too many requests")

	// ErrSelfHandshake 不能与自身握手
	ErrSelfHandshake = errors.New("handshake: cannot handshake with self")

	// ErrUnexpectedEnvelope 信封类型不属于握手
	ErrUnexpectedEnvelope = errors.New("handshake: unexpected envelope kind")

	// ErrMalformedEnvelope 信封格式错误
	ErrMalformedEnvelope = errors.New("handshake: malformed envelope")

	// ErrClosed 协调器已关闭
	ErrClosed = errors.New("handshake: coordinator closed")
)

// 错误响应码
const (
	CodeInvalidSignature  uint32 = 400
	CodeUnknownPublicKey  uint32 = 401
	CodeHandshakeRequired uint32 = 403
	CodeIdentityMismatch  uint32 = 409
	CodeRateLimited       uint32 = 429
)

// codeOf 返回失败类型对应的响应码
func codeOf(kind error) uint32 {
	switch {
	case errors.Is(kind, ErrUnknownPublicKey):
		return CodeUnknownPublicKey
	case errors.Is(kind, ErrIdentityMismatch):
		return CodeIdentityMismatch
	case errors.Is(kind, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeInvalidSignature
	}
}

// Error 单个对端的握手失败
//
// Kind 为 ErrInvalidSignature、ErrUnknownPublicKey、ErrTimeout 等哨兵错误，
// 可直接用 errors.Is 判断。
type Error struct {
	Kind error
	Peer types.PeerID
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: peer %s: %v", e.Kind, e.Peer.ShortString(), e.Err)
	}
	return fmt.Sprintf("%v: peer %s", e.Kind, e.Peer.ShortString())
}

// Unwrap 同时暴露失败类型与底层原因
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, peer types.PeerID, cause error) *Error {
	return &Error{Kind: kind, Peer: peer, Err: cause}
}
