package roundbased

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-roundnet/pkg/types"
)

// 发送错误类型
var (
	// ErrUnresolvedPeerIndex 参与方索引无法解析为节点
	ErrUnresolvedPeerIndex = errors.New("roundbased: unresolved peer index")

	// ErrSerialization 载荷序列化失败
	ErrSerialization = errors.New("roundbased: serialization failed")

	// ErrTransportSend 传输发送失败
	ErrTransportSend = errors.New("roundbased: transport send failed")
)

// 接收错误类型
var (
	// ErrDeserialization 载荷反序列化失败
	ErrDeserialization = errors.New("roundbased: deserialization failed")

	// ErrTransportClosed 网络入站队列已关闭
	ErrTransportClosed = errors.New("roundbased: transport closed")
)

// 其他错误
var (
	// ErrConcurrentRecv 同一 Receiver 同时只允许一个 Recv 调用
	ErrConcurrentRecv = errors.New("roundbased: concurrent recv")

	// ErrReceiverClosed Receiver 已关闭
	ErrReceiverClosed = errors.New("roundbased: receiver closed")

	// ErrEmptyProtocol 协议名为空
	ErrEmptyProtocol = errors.New("roundbased: empty protocol name")

	// ErrSelfIndexMismatch 本地参与方索引对应的节点不是本节点
	ErrSelfIndexMismatch = errors.New("roundbased: self index does not match local peer")
)

// RouteError 发送失败
type RouteError struct {
	Kind error
	Tag  string
	Dest types.Destination
	Err  error
}

func (e *RouteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: tag %s to %s: %v", e.Kind, e.Tag, e.Dest, e.Err)
	}
	return fmt.Sprintf("%v: tag %s to %s", e.Kind, e.Tag, e.Dest)
}

// Unwrap 同时暴露错误类型与底层原因
func (e *RouteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ReceiveError 接收失败
type ReceiveError struct {
	Kind   error
	Tag    string
	Sender types.PartyIndex
	Err    error
}

func (e *ReceiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: tag %s from party %d: %v", e.Kind, e.Tag, e.Sender, e.Err)
	}
	return fmt.Sprintf("%v: tag %s", e.Kind, e.Tag)
}

// Unwrap 同时暴露错误类型与底层原因
func (e *ReceiveError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
