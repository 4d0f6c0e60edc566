package memory

import "errors"

var (
	// ErrDuplicatePeer 节点 ID 已存在
	ErrDuplicatePeer = errors.New("memory: duplicate peer")

	// ErrUnknownPeer 节点不存在
	ErrUnknownPeer = errors.New("memory: unknown peer")

	// ErrNotConnected 未与目标节点连接
	ErrNotConnected = errors.New("memory: not connected")

	// ErrSelfConnect 不能连接自身
	ErrSelfConnect = errors.New("memory: cannot connect to self")
)
