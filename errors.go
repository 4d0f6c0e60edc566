package roundnet

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrNoTransport 未配置传输
	ErrNoTransport = errors.New("no transport configured")

	// ErrNotParty 本节点不是会话参与方
	ErrNotParty = errors.New("local peer is not a session party")

	// ErrOpenSession 开放会话没有固定的参与方集合
	ErrOpenSession = errors.New("open session has no fixed party set")

	// ErrDialUnsupported 传输不支持按地址拨号
	ErrDialUnsupported = errors.New("transport does not support dialing")
)
