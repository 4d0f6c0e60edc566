package host

import "errors"

var (
	// ErrAlreadyStarted 主机已启动
	ErrAlreadyStarted = errors.New("host: already started")

	// ErrClosed 主机已关闭
	ErrClosed = errors.New("host: closed")

	// ErrSelfSend 不能向自身单播
	ErrSelfSend = errors.New("host: cannot send to self")

	// ErrPeerNotVerified 目标节点未完成握手
	ErrPeerNotVerified = errors.New("host: peer not verified")

	// ErrForeignSender 广播消息的发送方不是本节点
	ErrForeignSender = errors.New("host: message sender is not the local peer")

	// ErrForgedAuthor gossip 消息的作者签名无效或与发送方不符
	ErrForgedAuthor = errors.New("host: gossip author signature invalid")

	// ErrMissingDependency 缺少必需依赖
	ErrMissingDependency = errors.New("host: missing dependency")
)
